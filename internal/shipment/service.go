package shipment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meridian-relief/meridian/internal/ledger"
	"github.com/meridian-relief/meridian/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetOutbound(ctx context.Context, id int64) (Outbound, error)
	GetInbound(ctx context.Context, id int64) (Inbound, error)
	GetLine(ctx context.Context, id int64) (TrackingLine, error)
	ListOutboundBySite(ctx context.Context, siteID int64, limit int) ([]Outbound, error)
	ListInboundBySite(ctx context.Context, siteID int64, limit int) ([]Inbound, error)
	ListOutboundLines(ctx context.Context, outboundID int64) ([]TrackingLine, error)
	ListInboundLines(ctx context.Context, inboundID int64) ([]TrackingLine, error)
	CountIncompleteLines(ctx context.Context, inboundID int64) (int, error)
	SiteName(ctx context.Context, siteID int64) (string, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates shipment headers and the tracking-line protocol.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	allowNeg bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, allowNeg: cfg.AllowNegativeStock}
}

// ---------------------------------------------------------------------------
// Headers
// ---------------------------------------------------------------------------

// CreateOutbound opens a new outbound shipment in preparation.
func (s *Service) CreateOutbound(ctx context.Context, cmd CreateOutboundCommand) (Outbound, error) {
	o := Outbound{
		SenderID:     cmd.SenderID,
		SiteID:       cmd.SiteID,
		ToSiteID:     cmd.ToSiteID,
		RecipientID:  cmd.RecipientID,
		DeliveryDate: cmd.DeliveryDate,
		Status:       StatusInProcess,
		Comments:     cmd.Comments,
		CreatedBy:    cmd.ActorID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		id, err := st.InsertOutbound(ctx, o)
		if err != nil {
			return err
		}
		o.ID = id
		return nil
	})
	if err != nil {
		return Outbound{}, err
	}
	s.record(ctx, cmd.ActorID, "shipment.outbound.create", "outbound", o.ID, nil)
	return s.repo.GetOutbound(ctx, o.ID)
}

// CreateInbound opens a new inbound shipment in preparation.
func (s *Service) CreateInbound(ctx context.Context, cmd CreateInboundCommand) (Inbound, error) {
	in := Inbound{
		SenderID:    cmd.SenderID,
		SenderName:  cmd.SenderName,
		FromSiteID:  cmd.FromSiteID,
		SiteID:      cmd.SiteID,
		ETA:         cmd.ETA,
		RecipientID: cmd.RecipientID,
		Type:        cmd.Type,
		Status:      StatusInProcess,
		Comments:    cmd.Comments,
		CreatedBy:   cmd.ActorID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		id, err := st.InsertInbound(ctx, in)
		if err != nil {
			return err
		}
		in.ID = id
		return nil
	})
	if err != nil {
		return Inbound{}, err
	}
	s.record(ctx, cmd.ActorID, "shipment.inbound.create", "inbound", in.ID, nil)
	return s.repo.GetInbound(ctx, in.ID)
}

// GetOutbound loads an outbound shipment.
func (s *Service) GetOutbound(ctx context.Context, id int64) (Outbound, error) {
	return s.repo.GetOutbound(ctx, id)
}

// GetInbound loads an inbound shipment.
func (s *Service) GetInbound(ctx context.Context, id int64) (Inbound, error) {
	return s.repo.GetInbound(ctx, id)
}

// GetLine loads a tracking line.
func (s *Service) GetLine(ctx context.Context, id int64) (TrackingLine, error) {
	return s.repo.GetLine(ctx, id)
}

// ListOutboundBySite lists recent outbound shipments from a site.
func (s *Service) ListOutboundBySite(ctx context.Context, siteID int64, limit int) ([]Outbound, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListOutboundBySite(ctx, siteID, limit)
}

// ListInboundBySite lists recent inbound shipments destined for a site.
func (s *Service) ListInboundBySite(ctx context.Context, siteID int64, limit int) ([]Inbound, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListInboundBySite(ctx, siteID, limit)
}

// ListOutboundLines lists active lines of an outbound shipment.
func (s *Service) ListOutboundLines(ctx context.Context, outboundID int64) ([]TrackingLine, error) {
	return s.repo.ListOutboundLines(ctx, outboundID)
}

// ListInboundLines lists active lines of an inbound shipment.
func (s *Service) ListInboundLines(ctx context.Context, inboundID int64) ([]TrackingLine, error) {
	return s.repo.ListInboundLines(ctx, inboundID)
}

// OutboundActionsFor reports which operations an outbound currently permits.
func (s *Service) OutboundActionsFor(ctx context.Context, id int64) (Actions, error) {
	o, err := s.repo.GetOutbound(ctx, id)
	if err != nil {
		return Actions{}, err
	}
	return OutboundActions(o.Status), nil
}

// InboundActionsFor reports which operations an inbound currently permits.
// Receipt availability depends on every line carrying a received quantity
// and a resolved destination bin.
func (s *Service) InboundActionsFor(ctx context.Context, id int64) (Actions, error) {
	in, err := s.repo.GetInbound(ctx, id)
	if err != nil {
		return Actions{}, err
	}
	incomplete, err := s.repo.CountIncompleteLines(ctx, id)
	if err != nil {
		return Actions{}, err
	}
	return InboundActions(in.Status, incomplete), nil
}

// ---------------------------------------------------------------------------
// Tracking lines
// ---------------------------------------------------------------------------

// AddLine attaches a tracking line to a shipment still in preparation.
// When the line references a source ledger entry the item identity is
// copied from the entry, the shipping organisation is stamped from the
// origin site, and the sent quantity is debited immediately.
func (s *Service) AddLine(ctx context.Context, cmd CreateLineCommand) (TrackingLine, error) {
	if (cmd.OutboundID == nil) == (cmd.InboundID == nil) {
		return TrackingLine{}, fmt.Errorf("shipment: a line binds to exactly one of an outbound or inbound shipment: %w", shared.ErrInvalidCommand)
	}
	if cmd.SourceEntryID == nil && (cmd.ItemID <= 0 || cmd.PackID <= 0) {
		return TrackingLine{}, fmt.Errorf("shipment: a line without a source entry needs an item and pack: %w", shared.ErrInvalidCommand)
	}
	var lineID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		line := TrackingLine{
			TrackingNo:    strings.TrimSpace(cmd.TrackingNo),
			Status:        TrackPreparing,
			SourceEntryID: cmd.SourceEntryID,
			ItemID:        cmd.ItemID,
			PackID:        cmd.PackID,
			QuantitySent:  cmd.QuantitySent,
			Currency:      cmd.Currency,
			PackValue:     cmd.PackValue,
			ExpiryDate:    cmd.ExpiryDate,
			OriginBin:     cmd.OriginBin,
			DestBin:       cmd.DestBin.Normalize(),
			OutboundID:    cmd.OutboundID,
			InboundID:     cmd.InboundID,
			SupplyOrgID:   cmd.SupplyOrgID,
			Comments:      cmd.Comments,
			CreatedBy:     cmd.ActorID,
		}

		var siteID int64
		switch {
		case cmd.OutboundID != nil:
			o, err := st.GetOutboundForUpdate(ctx, *cmd.OutboundID)
			if err != nil {
				return err
			}
			if !o.Status.CanEdit() {
				return fmt.Errorf("shipment: outbound %d is %s, lines can only be added in preparation: %w", o.ID, o.Status, shared.ErrIllegalTransition)
			}
			siteID = o.SiteID
		case cmd.InboundID != nil:
			in, err := st.GetInboundForUpdate(ctx, *cmd.InboundID)
			if err != nil {
				return err
			}
			if !in.Status.CanEdit() {
				return fmt.Errorf("shipment: inbound %d is %s, lines can only be added in preparation: %w", in.ID, in.Status, shared.ErrIllegalTransition)
			}
			siteID = in.SiteID
		}

		if cmd.SourceEntryID != nil {
			entry, err := st.Ledger().GetEntryForUpdate(ctx, *cmd.SourceEntryID)
			if err != nil {
				return err
			}
			line.ItemID = entry.ItemID
			line.PackID = entry.PackID
			line.Currency = entry.Currency
			line.PackValue = entry.PackValue
			line.ExpiryDate = entry.ExpiryDate
			line.OriginBin = entry.Bin
			line.SupplyOrgID = entry.SupplyOrgID
			siteID = entry.SiteID
		}

		orgID, err := st.SiteOrgID(ctx, siteID)
		if err != nil {
			return err
		}
		line.ShippingOrgID = orgID

		if err := checkTrackingNo(ctx, st, orgID, line.TrackingNo, 0); err != nil {
			return err
		}

		if cmd.SourceEntryID != nil {
			if _, err := ledger.ApplyDebit(ctx, st.Ledger(), *cmd.SourceEntryID, line.QuantitySent, cmd.ActorID, s.allowNeg); err != nil {
				return err
			}
		}

		lineID, err = st.InsertLine(ctx, line)
		return err
	})
	if err != nil {
		return TrackingLine{}, err
	}
	s.record(ctx, cmd.ActorID, "shipment.line.create", "tracking_line", lineID, map[string]any{"quantity_sent": cmd.QuantitySent})
	return s.repo.GetLine(ctx, lineID)
}

// UpdateLine mutates a line still in preparation. A changed sent quantity
// first restores the previously debited amount to the source entry, then
// debits the new amount, so the ledger never double-counts.
func (s *Service) UpdateLine(ctx context.Context, cmd UpdateLineCommand) (TrackingLine, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		line, err := st.GetLineForUpdate(ctx, cmd.LineID)
		if err != nil {
			return err
		}
		if line.Lifecycle != shared.LifecycleActive {
			return fmt.Errorf("shipment: line %d is void: %w", line.ID, shared.ErrIllegalTransition)
		}

		if cmd.TrackingNo != nil {
			no := strings.TrimSpace(*cmd.TrackingNo)
			if no != line.TrackingNo {
				if err := checkTrackingNo(ctx, st, line.ShippingOrgID, no, line.ID); err != nil {
					return err
				}
				line.TrackingNo = no
			}
		}

		if cmd.QuantitySent != nil && *cmd.QuantitySent != line.QuantitySent {
			if !line.Status.CanEditQuantity() {
				return fmt.Errorf("shipment: line %d is %s, quantity is frozen: %w", line.ID, line.Status, shared.ErrIllegalTransition)
			}
			if line.QuantityReceived != nil {
				return fmt.Errorf("shipment: line %d already has a received quantity: %w", line.ID, shared.ErrIllegalTransition)
			}
			if line.SourceEntryID != nil {
				if _, err := ledger.ApplyCredit(ctx, st.Ledger(), *line.SourceEntryID, line.QuantitySent, cmd.ActorID); err != nil {
					return err
				}
				if _, err := ledger.ApplyDebit(ctx, st.Ledger(), *line.SourceEntryID, *cmd.QuantitySent, cmd.ActorID, s.allowNeg); err != nil {
					return err
				}
			}
			line.QuantitySent = *cmd.QuantitySent
		}

		if cmd.DestBin != nil {
			line.DestBin = cmd.DestBin.Normalize()
		}
		if cmd.Comments != nil {
			line.Comments = *cmd.Comments
		}
		line.UpdatedBy = cmd.ActorID
		return st.UpdateLine(ctx, line)
	})
	if err != nil {
		return TrackingLine{}, err
	}
	s.record(ctx, cmd.ActorID, "shipment.line.update", "tracking_line", cmd.LineID, nil)
	return s.repo.GetLine(ctx, cmd.LineID)
}

// DeleteLine removes a line that is still preparing. The debited quantity
// is restored to the source entry, the line quantity is zeroed, and the
// original amount is preserved in the line comment. Lines past
// preparation are never deletable.
func (s *Service) DeleteLine(ctx context.Context, lineID, actorID int64) error {
	var restored float64
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		line, err := st.GetLineForUpdate(ctx, lineID)
		if err != nil {
			return err
		}
		if line.Lifecycle != shared.LifecycleActive {
			return nil // already void, nothing to undo
		}
		if !line.Status.CanDelete() {
			return fmt.Errorf("shipment: line %d is %s and can no longer be deleted: %w", line.ID, line.Status, shared.ErrIllegalTransition)
		}
		restored = line.QuantitySent
		if line.SourceEntryID != nil && line.QuantitySent > 0 {
			if _, err := ledger.ApplyCredit(ctx, st.Ledger(), *line.SourceEntryID, line.QuantitySent, actorID); err != nil {
				return err
			}
		}
		note := "Quantity was: " + strconv.FormatFloat(line.QuantitySent, 'f', -1, 64)
		if line.Comments != "" {
			note = line.Comments + "; " + note
		}
		line.QuantitySent = 0
		line.Comments = note
		line.Lifecycle = shared.LifecycleVoid
		line.UpdatedBy = actorID
		return st.UpdateLine(ctx, line)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "shipment.line.delete", "tracking_line", lineID, map[string]any{"restored": restored})
	return nil
}

// RecordReceipt captures the counted quantity and destination bin for one
// line of an inbound shipment awaiting receipt.
func (s *Service) RecordReceipt(ctx context.Context, cmd RecordReceiptCommand) (TrackingLine, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		line, err := st.GetLineForUpdate(ctx, cmd.LineID)
		if err != nil {
			return err
		}
		if line.InboundID == nil {
			return fmt.Errorf("shipment: line %d is not bound to an inbound shipment: %w", line.ID, shared.ErrInvalidCommand)
		}
		in, err := st.GetInboundForUpdate(ctx, *line.InboundID)
		if err != nil {
			return err
		}
		if !in.Status.CanReceive() {
			return fmt.Errorf("shipment: inbound %d is %s, receipt counts are closed: %w", in.ID, in.Status, shared.ErrIllegalTransition)
		}
		if line.Status == TrackArrived || line.Status == TrackCanceled {
			return fmt.Errorf("shipment: line %d is %s: %w", line.ID, line.Status, shared.ErrIllegalTransition)
		}
		qty := cmd.QuantityReceived
		line.QuantityReceived = &qty
		line.DestBin = cmd.DestBin.Normalize()
		line.UpdatedBy = cmd.ActorID
		return st.UpdateLine(ctx, line)
	})
	if err != nil {
		return TrackingLine{}, err
	}
	s.record(ctx, cmd.ActorID, "shipment.line.receipt", "tracking_line", cmd.LineID, map[string]any{"quantity_received": cmd.QuantityReceived})
	return s.repo.GetLine(ctx, cmd.LineID)
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// SendOutbound dispatches an outbound shipment: the header moves to SENT
// with the dispatch date stamped, and every preparing line moves to
// IN_TRANSIT, freezing its quantity.
func (s *Service) SendOutbound(ctx context.Context, outboundID, actorID int64) (Outbound, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		o, err := st.GetOutboundForUpdate(ctx, outboundID)
		if err != nil {
			return err
		}
		if !o.Status.CanSend() {
			return fmt.Errorf("shipment: outbound %d is %s and cannot be sent: %w", o.ID, o.Status, shared.ErrIllegalTransition)
		}
		lines, err := st.ListOutboundLinesForUpdate(ctx, outboundID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.Status != TrackPreparing {
				continue
			}
			if err := st.SetLineStatus(ctx, l.ID, TrackInTransit, actorID); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		return st.SetOutboundStatus(ctx, outboundID, StatusSent, &now, actorID)
	})
	if err != nil {
		return Outbound{}, err
	}
	s.record(ctx, actorID, "shipment.outbound.send", "outbound", outboundID, nil)
	return s.repo.GetOutbound(ctx, outboundID)
}

// ConfirmOutboundReceived marks a sent shipment as received by a
// destination outside the system. No ledger movement happens; the stock
// left at dispatch and there is no in-system destination to credit.
func (s *Service) ConfirmOutboundReceived(ctx context.Context, outboundID, actorID int64) (Outbound, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		o, err := st.GetOutboundForUpdate(ctx, outboundID)
		if err != nil {
			return err
		}
		if !o.Status.CanConfirmReceived() {
			return fmt.Errorf("shipment: outbound %d is %s and cannot be confirmed received: %w", o.ID, o.Status, shared.ErrIllegalTransition)
		}
		lines, err := st.ListOutboundLinesForUpdate(ctx, outboundID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.Status != TrackInTransit {
				continue
			}
			if err := st.SetLineStatus(ctx, l.ID, TrackArrived, actorID); err != nil {
				return err
			}
		}
		return st.SetOutboundStatus(ctx, outboundID, StatusReceived, nil, actorID)
	})
	if err != nil {
		return Outbound{}, err
	}
	s.record(ctx, actorID, "shipment.outbound.confirm_received", "outbound", outboundID, nil)
	return s.repo.GetOutbound(ctx, outboundID)
}

// CancelOutbound reverses a dispatched shipment. Every line that has not
// arrived is credited back to its source entry and marked canceled. The
// transition is terminal.
func (s *Service) CancelOutbound(ctx context.Context, outboundID, actorID int64) (Outbound, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		o, err := st.GetOutboundForUpdate(ctx, outboundID)
		if err != nil {
			return err
		}
		if !o.Status.CanCancelOutbound() {
			return fmt.Errorf("shipment: outbound %d is %s and cannot be canceled: %w", o.ID, o.Status, shared.ErrIllegalTransition)
		}
		lines, err := st.ListOutboundLinesForUpdate(ctx, outboundID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.Status == TrackArrived || l.Status == TrackCanceled {
				continue
			}
			if l.SourceEntryID != nil && l.QuantitySent > 0 {
				if _, err := ledger.ApplyCredit(ctx, st.Ledger(), *l.SourceEntryID, l.QuantitySent, actorID); err != nil {
					return err
				}
			}
			if err := st.SetLineStatus(ctx, l.ID, TrackCanceled, actorID); err != nil {
				return err
			}
		}
		return st.SetOutboundStatus(ctx, outboundID, StatusCanceled, nil, actorID)
	})
	if err != nil {
		return Outbound{}, err
	}
	s.record(ctx, actorID, "shipment.outbound.cancel", "outbound", outboundID, nil)
	return s.repo.GetOutbound(ctx, outboundID)
}

// SetDocuments updates the paperwork completion flags on an inbound
// shipment. Paperwork is independent of the state machine but frozen once
// the shipment is canceled.
func (s *Service) SetDocuments(ctx context.Context, cmd SetDocumentsCommand) (Inbound, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		in, err := st.GetInboundForUpdate(ctx, cmd.InboundID)
		if err != nil {
			return err
		}
		if in.Status == StatusCanceled {
			return fmt.Errorf("shipment: inbound %d is canceled: %w", in.ID, shared.ErrIllegalTransition)
		}
		return st.SetInboundDocuments(ctx, cmd.InboundID, cmd.GRNStatus, cmd.CertStatus, cmd.ActorID)
	})
	if err != nil {
		return Inbound{}, err
	}
	s.record(ctx, cmd.ActorID, "shipment.inbound.documents", "inbound", cmd.InboundID, nil)
	return s.repo.GetInbound(ctx, cmd.InboundID)
}

// MatchInbound links the in-transit lines of a sent outbound shipment to
// an inbound shipment raised at the destination, and stamps the inbound's
// origin site from the outbound.
func (s *Service) MatchInbound(ctx context.Context, cmd MatchCommand) (int, error) {
	matched := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		in, err := st.GetInboundForUpdate(ctx, cmd.InboundID)
		if err != nil {
			return err
		}
		if !in.Status.CanEdit() {
			return fmt.Errorf("shipment: inbound %d is %s and cannot accept matched lines: %w", in.ID, in.Status, shared.ErrIllegalTransition)
		}
		o, err := st.GetOutboundForUpdate(ctx, cmd.OutboundID)
		if err != nil {
			return err
		}
		if o.Status != StatusSent {
			return fmt.Errorf("shipment: outbound %d is %s, only sent shipments can be matched: %w", o.ID, o.Status, shared.ErrIllegalTransition)
		}
		lines, err := st.ListOutboundLinesForUpdate(ctx, cmd.OutboundID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.Status != TrackInTransit || l.InboundID != nil {
				continue
			}
			l.InboundID = &cmd.InboundID
			l.UpdatedBy = cmd.ActorID
			if err := st.UpdateLine(ctx, l); err != nil {
				return err
			}
			matched++
		}
		siteID := o.SiteID
		return st.SetInboundOrigin(ctx, cmd.InboundID, &siteID, cmd.ActorID)
	})
	if err != nil {
		return 0, err
	}
	s.record(ctx, cmd.ActorID, "shipment.inbound.match", "inbound", cmd.InboundID, map[string]any{"outbound_id": cmd.OutboundID, "lines": matched})
	return matched, nil
}

// ---------------------------------------------------------------------------
// Representation
// ---------------------------------------------------------------------------

// RepresentOutbound renders the display label for an outbound shipment:
// the destination site name and the dispatch date.
func (s *Service) RepresentOutbound(ctx context.Context, id int64) string {
	o, err := s.repo.GetOutbound(ctx, id)
	if err != nil {
		return shared.LabelNone
	}
	name := ""
	if o.ToSiteID != nil {
		if n, err := s.repo.SiteName(ctx, *o.ToSiteID); err == nil {
			name = n
		}
	}
	return composeLabel(name, o.Date)
}

// RepresentInbound renders the display label for an inbound shipment:
// the origin (site or free-text sender) and the receipt date.
func (s *Service) RepresentInbound(ctx context.Context, id int64) string {
	in, err := s.repo.GetInbound(ctx, id)
	if err != nil {
		return shared.LabelNone
	}
	name := in.SenderName
	if in.FromSiteID != nil {
		if n, err := s.repo.SiteName(ctx, *in.FromSiteID); err == nil {
			name = n
		}
	}
	return composeLabel(name, in.Date)
}

func composeLabel(name string, date *time.Time) string {
	parts := []string{}
	if name != "" {
		parts = append(parts, name)
	}
	if date != nil {
		parts = append(parts, date.Format("2006-01-02"))
	}
	if len(parts) == 0 {
		return shared.LabelNone
	}
	return strings.Join(parts, " - ")
}

// checkTrackingNo enforces per-organisation uniqueness of non-empty
// tracking numbers. The excluded id lets a line keep its own number.
func checkTrackingNo(ctx context.Context, st TxStore, orgID int64, trackingNo string, excludeLineID int64) error {
	if trackingNo == "" {
		return nil
	}
	existing, err := st.FindLineByTrackingNo(ctx, orgID, trackingNo)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID == excludeLineID {
		return nil
	}
	return &shared.DuplicateTrackingNumberError{OrgID: orgID, TrackingNo: trackingNo}
}

func (s *Service) record(ctx context.Context, actorID int64, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
