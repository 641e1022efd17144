// Package reconcile runs the receipt-side stock movements: unloading
// tracking lines into the destination ledger, recording shipment
// variance, and reversing processed receipts. Every receipt runs in a
// single transaction so the ledger, the shipment and any variance record
// commit or roll back together.
package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/meridian-relief/meridian/internal/adjustment"
	"github.com/meridian-relief/meridian/internal/ledger"
	"github.com/meridian-relief/meridian/internal/observability"
	"github.com/meridian-relief/meridian/internal/shared"
	"github.com/meridian-relief/meridian/internal/shipment"
)

// Store joins the shipment and adjustment transactional stores over one
// transaction. The embedded shipment store already carries the ledger.
type Store interface {
	shipment.TxStore
	Adjustments() adjustment.TxStore
}

// RepositoryPort abstracts transactional access for the engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
	GetInbound(ctx context.Context, id int64) (shipment.Inbound, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Engine executes receipts and their reversals.
type Engine struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	metrics     *observability.Metrics
	allowNeg    bool
}

// EngineConfig groups optional settings.
type EngineConfig struct {
	AllowNegativeStock bool
	Metrics            *observability.Metrics
}

// NewEngine builds Engine.
func NewEngine(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, cfg EngineConfig) *Engine {
	return &Engine{repo: repo, audit: audit, idempotency: idem, metrics: cfg.Metrics, allowNeg: cfg.AllowNegativeStock}
}

// ReceiveInbound processes a receipt. Receipt is refused while any
// active line is missing a received quantity or destination bin. Each
// line is unloaded into the destination ledger through the deduplication
// match; a received quantity differing from the sent quantity produces a
// variance line under a shipment-category adjustment created lazily for
// this receipt. Lines already carrying a destination reference are
// skipped, so a replayed receipt moves no stock twice.
func (e *Engine) ReceiveInbound(ctx context.Context, inboundID, actorID int64) (shipment.Inbound, error) {
	key := receiptKey(inboundID)
	inserted := false
	if e.idempotency != nil {
		if err := e.idempotency.CheckAndInsert(ctx, key, "reconcile.receive"); err != nil {
			return shipment.Inbound{}, err
		}
		inserted = true
	}
	err := e.repo.WithTx(ctx, func(ctx context.Context, st Store) error {
		in, err := st.GetInboundForUpdate(ctx, inboundID)
		if err != nil {
			return err
		}
		if !in.Status.CanReceive() {
			return fmt.Errorf("reconcile: inbound %d is %s and cannot be received: %w", in.ID, in.Status, shared.ErrIllegalTransition)
		}
		lines, err := st.ListInboundLinesForUpdate(ctx, inboundID)
		if err != nil {
			return err
		}

		incomplete := 0
		for _, l := range lines {
			if l.Status == shipment.TrackCanceled {
				continue
			}
			if !l.IsComplete() {
				incomplete++
			}
		}
		if incomplete > 0 {
			return fmt.Errorf("reconcile: inbound %d has %d lines missing a received quantity or bin: %w", inboundID, incomplete, shared.ErrIllegalTransition)
		}

		var varianceHeaderID *int64
		outbounds := map[int64]struct{}{}
		for _, l := range lines {
			if l.Status == shipment.TrackCanceled {
				continue
			}
			if l.OutboundID != nil {
				outbounds[*l.OutboundID] = struct{}{}
			}
			if l.DestEntryID != nil {
				continue // already unloaded
			}
			if err := e.unload(ctx, st, in, l, &varianceHeaderID, actorID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := st.SetInboundStatus(ctx, inboundID, shipment.StatusReceived, &now, actorID); err != nil {
			return err
		}
		for outboundID := range outbounds {
			if err := e.settleOutbound(ctx, st, outboundID, actorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if inserted {
			_ = e.idempotency.Delete(ctx, key)
		}
		return shipment.Inbound{}, err
	}
	e.record(ctx, actorID, "reconcile.receive", inboundID, nil)
	return e.repo.GetInbound(ctx, inboundID)
}

func receiptKey(inboundID int64) string {
	return "RECV:" + strconv.FormatInt(inboundID, 10)
}

// unload credits one line into the destination ledger and records
// variance when the counted quantity differs from the sent quantity.
func (e *Engine) unload(ctx context.Context, st Store, in shipment.Inbound, l shipment.TrackingLine, varianceHeaderID **int64, actorID int64) error {
	received := *l.QuantityReceived
	key := ledger.MatchKey{
		SiteID:      in.SiteID,
		ItemID:      l.ItemID,
		PackID:      l.PackID,
		Currency:    l.Currency,
		PackValue:   l.PackValue,
		ExpiryDate:  l.ExpiryDate,
		Bin:         l.DestBin,
		SupplyOrgID: l.SupplyOrgID,
	}
	entry, _, err := ledger.ResolveOrCreate(ctx, st.Ledger(), key, received, l.TrackingNo, actorID)
	if err != nil {
		return err
	}
	e.metrics.CountMovement("unload")

	var adjLineID *int64
	if received != l.QuantitySent {
		if *varianceHeaderID == nil {
			headerID, err := st.Adjustments().InsertHeader(ctx, adjustment.Adjustment{
				AdjusterID: in.RecipientID,
				SiteID:     in.SiteID,
				Status:     adjustment.StatusComplete,
				Category:   adjustment.CategoryShipment,
				Comments:   "Shipment variance for inbound " + strconv.FormatInt(in.ID, 10),
				CreatedBy:  actorID,
			})
			if err != nil {
				return err
			}
			*varianceHeaderID = &headerID
		}
		recv := received
		lineID, err := st.Adjustments().InsertLine(ctx, adjustment.Line{
			AdjustmentID: **varianceHeaderID,
			EntryID:      l.SourceEntryID,
			ItemID:       l.ItemID,
			PackID:       l.PackID,
			Reason:       adjustment.ReasonUnknown,
			OldQuantity:  l.QuantitySent,
			NewQuantity:  &recv,
			PackValue:    l.PackValue,
			Currency:     l.Currency,
			ExpiryDate:   l.ExpiryDate,
			Bin:          l.DestBin,
			CreatedBy:    actorID,
		})
		if err != nil {
			return err
		}
		e.metrics.CountVarianceLine()
		adjLineID = &lineID
	}

	destID := entry.ID
	if err := st.SetLineDestination(ctx, l.ID, &destID, adjLineID, actorID); err != nil {
		return err
	}
	return st.SetLineStatus(ctx, l.ID, shipment.TrackArrived, actorID)
}

// settleOutbound marks a linked outbound received once none of its lines
// remain in transit.
func (e *Engine) settleOutbound(ctx context.Context, st Store, outboundID, actorID int64) error {
	o, err := st.GetOutboundForUpdate(ctx, outboundID)
	if err != nil {
		return err
	}
	if o.Status != shipment.StatusSent {
		return nil
	}
	lines, err := st.ListOutboundLinesForUpdate(ctx, outboundID)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if l.Status == shipment.TrackInTransit {
			return nil
		}
	}
	return st.SetOutboundStatus(ctx, outboundID, shipment.StatusReceived, nil, actorID)
}

// CancelInbound reverses a processed receipt: every unloaded quantity is
// debited back out of its destination entry, variance lines are voided,
// and the shipment returns to IN_PROCESS so the counts can be corrected
// and receipt re-run.
func (e *Engine) CancelInbound(ctx context.Context, inboundID, actorID int64) (shipment.Inbound, error) {
	err := e.repo.WithTx(ctx, func(ctx context.Context, st Store) error {
		in, err := st.GetInboundForUpdate(ctx, inboundID)
		if err != nil {
			return err
		}
		if !in.Status.CanCancelInbound() {
			return fmt.Errorf("reconcile: inbound %d is %s, only processed receipts reverse: %w", in.ID, in.Status, shared.ErrIllegalTransition)
		}
		lines, err := st.ListInboundLinesForUpdate(ctx, inboundID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.Status != shipment.TrackArrived || l.DestEntryID == nil {
				continue
			}
			if l.QuantityReceived != nil && *l.QuantityReceived > 0 {
				if _, err := ledger.ApplyDebit(ctx, st.Ledger(), *l.DestEntryID, *l.QuantityReceived, actorID, e.allowNeg); err != nil {
					return err
				}
			}
			if l.AdjustmentLineID != nil {
				if err := st.Adjustments().VoidLine(ctx, *l.AdjustmentLineID, actorID); err != nil {
					return err
				}
			}
			if err := st.SetLineDestination(ctx, l.ID, nil, nil, actorID); err != nil {
				return err
			}
			if err := st.SetLineStatus(ctx, l.ID, shipment.TrackInTransit, actorID); err != nil {
				return err
			}
		}
		return st.SetInboundStatus(ctx, inboundID, shipment.StatusInProcess, nil, actorID)
	})
	if err != nil {
		return shipment.Inbound{}, err
	}
	if e.idempotency != nil {
		// free the receipt key so the corrected counts can be processed
		_ = e.idempotency.Delete(ctx, receiptKey(inboundID))
	}
	e.record(ctx, actorID, "reconcile.cancel_receipt", inboundID, nil)
	return e.repo.GetInbound(ctx, inboundID)
}

func (e *Engine) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if e.audit == nil {
		return
	}
	_ = e.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "inbound",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
