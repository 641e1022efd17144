package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-relief/meridian/internal/observability"
	"github.com/meridian-relief/meridian/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetEntry(ctx context.Context, id int64) (StockEntry, error)
	ListBySite(ctx context.Context, siteID int64) ([]StockEntry, error)
	StockedItemIDs(ctx context.Context, siteID int64) ([]int64, error)
	ItemName(ctx context.Context, itemID int64) (string, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock ledger operations.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	metrics  *observability.Metrics
	allowNeg bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
	Metrics            *observability.Metrics
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, metrics: cfg.Metrics, allowNeg: cfg.AllowNegativeStock}
}

// ApplyDebit decreases the quantity of an existing entry inside the
// caller's transaction. A debit that would go negative fails with
// ErrInsufficientStock unless the deployment opted out of the guard.
func ApplyDebit(ctx context.Context, tx TxStore, entryID int64, amount float64, actorID int64, allowNegative bool) (StockEntry, error) {
	entry, err := tx.GetEntryForUpdate(ctx, entryID)
	if err != nil {
		return StockEntry{}, err
	}
	newQty := entry.Quantity - amount
	if !allowNegative && newQty < -0.0001 {
		return StockEntry{}, fmt.Errorf("ledger: debit %.2f from entry %d holding %.2f: %w", amount, entryID, entry.Quantity, shared.ErrInsufficientStock)
	}
	if newQty < 0 && newQty > -0.0001 {
		newQty = 0
	}
	if err := tx.SetQuantity(ctx, entryID, newQty, actorID); err != nil {
		return StockEntry{}, err
	}
	entry.Quantity = newQty
	return entry, nil
}

// ApplyCredit increases the quantity of an existing entry inside the
// caller's transaction.
func ApplyCredit(ctx context.Context, tx TxStore, entryID int64, amount float64, actorID int64) (StockEntry, error) {
	entry, err := tx.GetEntryForUpdate(ctx, entryID)
	if err != nil {
		return StockEntry{}, err
	}
	newQty := entry.Quantity + amount
	if err := tx.SetQuantity(ctx, entryID, newQty, actorID); err != nil {
		return StockEntry{}, err
	}
	entry.Quantity = newQty
	return entry, nil
}

// ResolveOrCreate performs the deduplication match and either credits the
// matched entry or inserts a new one. The bool reports whether a new
// entry was created. This is the single point of truth for unload
// crediting; the matched row stays locked until the caller commits, and
// the unique match index turns a concurrent first insert into a credit
// of the winning row.
func ResolveOrCreate(ctx context.Context, tx TxStore, key MatchKey, initialQty float64, trackingNo string, actorID int64) (StockEntry, bool, error) {
	entry, err := tx.FindByKeyForUpdate(ctx, key)
	if err == nil {
		updated, cerr := ApplyCredit(ctx, tx, entry.ID, initialQty, actorID)
		return updated, false, cerr
	}
	if !isNotFound(err) {
		return StockEntry{}, false, err
	}
	fresh := StockEntry{
		SiteID:      key.SiteID,
		ItemID:      key.ItemID,
		PackID:      key.PackID,
		Quantity:    initialQty,
		PackValue:   key.PackValue,
		Currency:    key.Currency,
		ExpiryDate:  key.ExpiryDate,
		Bin:         key.Bin,
		SupplyOrgID: key.SupplyOrgID,
		TrackingNo:  trackingNo,
		CreatedBy:   actorID,
	}
	id, err := tx.InsertEntry(ctx, fresh)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			// lost the insert race; lock and credit the row the winning
			// transaction created
			winner, ferr := tx.FindByKeyForUpdate(ctx, key)
			if ferr != nil {
				return StockEntry{}, false, err
			}
			updated, cerr := ApplyCredit(ctx, tx, winner.ID, initialQty, actorID)
			return updated, false, cerr
		}
		return StockEntry{}, false, err
	}
	fresh.ID = id
	fresh.Lifecycle = shared.LifecycleActive
	return fresh, true, nil
}

// Debit runs ApplyDebit as a standalone transaction.
func (s *Service) Debit(ctx context.Context, entryID int64, amount float64, actorID int64) (StockEntry, error) {
	var result StockEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		result, err = ApplyDebit(ctx, tx, entryID, amount, actorID, s.allowNeg)
		return err
	})
	if err != nil {
		return StockEntry{}, err
	}
	s.metrics.CountMovement("debit")
	s.record(ctx, actorID, "ledger:debit", result.ID, map[string]any{"amount": amount, "quantity": result.Quantity})
	return result, nil
}

// Credit runs ApplyCredit as a standalone transaction.
func (s *Service) Credit(ctx context.Context, entryID int64, amount float64, actorID int64) (StockEntry, error) {
	var result StockEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		result, err = ApplyCredit(ctx, tx, entryID, amount, actorID)
		return err
	})
	if err != nil {
		return StockEntry{}, err
	}
	s.metrics.CountMovement("credit")
	s.record(ctx, actorID, "ledger:credit", result.ID, map[string]any{"amount": amount, "quantity": result.Quantity})
	return result, nil
}

// ReceiveStock books stock directly into a warehouse, matching an
// existing entry by deduplication key or creating a new one.
func (s *Service) ReceiveStock(ctx context.Context, input ReceiveStockInput) (StockEntry, error) {
	if input.SiteID == 0 || input.ItemID == 0 || input.PackID == 0 {
		return StockEntry{}, fmt.Errorf("ledger: site, item and pack required")
	}
	if input.Quantity <= 0 {
		return StockEntry{}, fmt.Errorf("ledger: quantity must be positive")
	}
	key := MatchKey{
		SiteID:      input.SiteID,
		ItemID:      input.ItemID,
		PackID:      input.PackID,
		Currency:    input.Currency,
		PackValue:   input.PackValue,
		ExpiryDate:  input.ExpiryDate,
		Bin:         input.Bin,
		SupplyOrgID: input.SupplyOrgID,
	}
	var result StockEntry
	var created bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		result, created, err = ResolveOrCreate(ctx, tx, key, input.Quantity, input.TrackingNo, input.ActorID)
		return err
	})
	if err != nil {
		return StockEntry{}, err
	}
	s.metrics.CountMovement("receive")
	s.record(ctx, input.ActorID, "ledger:receive", result.ID, map[string]any{
		"site_id":  input.SiteID,
		"item_id":  input.ItemID,
		"quantity": input.Quantity,
		"created":  created,
	})
	return result, nil
}

// GetEntry loads one stock entry.
func (s *Service) GetEntry(ctx context.Context, id int64) (StockEntry, error) {
	return s.repo.GetEntry(ctx, id)
}

// SiteOverview lists the active entries at a site.
func (s *Service) SiteOverview(ctx context.Context, siteID int64) ([]StockEntry, error) {
	if siteID == 0 {
		return nil, fmt.Errorf("ledger: site required")
	}
	return s.repo.ListBySite(ctx, siteID)
}

// PrepareInventoryFilter returns item ids already stocked at a site so
// pickers can exclude them, optionally keeping one id selectable.
func (s *Service) PrepareInventoryFilter(ctx context.Context, siteID int64, excludeItemID *int64) ([]int64, error) {
	ids, err := s.repo.StockedItemIDs(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if excludeItemID == nil {
		return ids, nil
	}
	filtered := ids[:0]
	for _, id := range ids {
		if id != *excludeItemID {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// RepresentEntry returns the item display name for a stock entry, or the
// no-data sentinel when the entry is absent.
func (s *Service) RepresentEntry(ctx context.Context, id int64) string {
	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return shared.LabelNone
	}
	name, err := s.repo.ItemName(ctx, entry.ItemID)
	if err != nil {
		return shared.LabelNone
	}
	return name
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       time.Now().UTC(),
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
