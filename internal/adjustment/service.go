package adjustment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/meridian-relief/meridian/internal/ledger"
	"github.com/meridian-relief/meridian/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetHeader(ctx context.Context, id int64) (Adjustment, error)
	GetLine(ctx context.Context, id int64) (Line, error)
	ListBySite(ctx context.Context, siteID int64, limit int) ([]Adjustment, error)
	ListLines(ctx context.Context, adjustmentID int64) ([]Line, error)
	CountUncountedLines(ctx context.Context, adjustmentID int64) (int, error)
	PersonName(ctx context.Context, personID int64) (string, error)
	ItemName(ctx context.Context, itemID int64) (string, error)
	PackName(ctx context.Context, packID int64) (string, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory count adjustments.
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

// Create opens an inventory count adjustment. Every active entry with
// positive stock at the site gets a line snapshotting its book quantity;
// the snapshot rows stay locked until the header commits so counts open
// against a consistent picture.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (Adjustment, error) {
	var headerID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		id, err := st.InsertHeader(ctx, Adjustment{
			AdjusterID: cmd.AdjusterID,
			SiteID:     cmd.SiteID,
			Status:     StatusInProcess,
			Category:   CategoryInventory,
			Comments:   cmd.Comments,
			CreatedBy:  cmd.ActorID,
		})
		if err != nil {
			return err
		}
		headerID = id
		entries, err := st.Ledger().ListSiteEntriesForUpdate(ctx, cmd.SiteID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			entryID := e.ID
			if _, err := st.InsertLine(ctx, Line{
				AdjustmentID: id,
				EntryID:      &entryID,
				ItemID:       e.ItemID,
				PackID:       e.PackID,
				Reason:       ReasonUnknown,
				OldQuantity:  e.Quantity,
				PackValue:    e.PackValue,
				Currency:     e.Currency,
				ExpiryDate:   e.ExpiryDate,
				Bin:          e.Bin,
				CreatedBy:    cmd.ActorID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Adjustment{}, err
	}
	s.record(ctx, cmd.ActorID, "adjustment.create", headerID, map[string]any{"site_id": cmd.SiteID})
	return s.repo.GetHeader(ctx, headerID)
}

// RecordCount stores the counted quantity for a line. The book quantity
// captured at creation never changes; only the count and reason do, and
// only while the header is still in process.
func (s *Service) RecordCount(ctx context.Context, cmd RecordCountCommand) (Line, error) {
	if !cmd.Reason.IsValid() {
		return Line{}, fmt.Errorf("adjustment: reason %d: %w", cmd.Reason, shared.ErrInvalidCommand)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		line, err := st.GetLineForUpdate(ctx, cmd.LineID)
		if err != nil {
			return err
		}
		header, err := st.GetHeaderForUpdate(ctx, line.AdjustmentID)
		if err != nil {
			return err
		}
		if !header.Status.CanEdit() {
			return fmt.Errorf("adjustment: header %d is %s, counts are closed: %w", header.ID, header.Status, shared.ErrIllegalTransition)
		}
		comments := line.Comments
		if cmd.Comments != "" {
			comments = cmd.Comments
		}
		return st.SetLineCount(ctx, cmd.LineID, cmd.NewQuantity, cmd.Reason, comments, cmd.ActorID)
	})
	if err != nil {
		return Line{}, err
	}
	s.record(ctx, cmd.ActorID, "adjustment.count", cmd.LineID, map[string]any{"new_quantity": cmd.NewQuantity})
	return s.repo.GetLine(ctx, cmd.LineID)
}

// Close applies every counted delta to the ledger and completes the
// header. Closing is refused while any line is missing a count, so a
// close either corrects the whole site snapshot or nothing.
func (s *Service) Close(ctx context.Context, cmd CloseCommand) (Adjustment, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, st TxStore) error {
		header, err := st.GetHeaderForUpdate(ctx, cmd.AdjustmentID)
		if err != nil {
			return err
		}
		if header.Category != CategoryInventory {
			return fmt.Errorf("adjustment: header %d is a %s record and does not close: %w", header.ID, header.Category, shared.ErrIllegalTransition)
		}
		if !header.Status.CanEdit() {
			return fmt.Errorf("adjustment: header %d is already %s: %w", header.ID, header.Status, shared.ErrIllegalTransition)
		}
		lines, err := st.ListLinesForUpdate(ctx, cmd.AdjustmentID)
		if err != nil {
			return err
		}
		uncounted := 0
		for _, l := range lines {
			if !l.IsCounted() {
				uncounted++
			}
		}
		if uncounted > 0 {
			return fmt.Errorf("adjustment: header %d has %d lines without a counted quantity: %w", header.ID, uncounted, shared.ErrIllegalTransition)
		}
		for _, l := range lines {
			delta := l.Delta()
			if delta == 0 || l.EntryID == nil {
				continue
			}
			if delta > 0 {
				if _, err := ledger.ApplyCredit(ctx, st.Ledger(), *l.EntryID, delta, cmd.ActorID); err != nil {
					return err
				}
				continue
			}
			if _, err := ledger.ApplyDebit(ctx, st.Ledger(), *l.EntryID, -delta, cmd.ActorID, s.allowNeg); err != nil {
				return err
			}
		}
		return st.SetHeaderStatus(ctx, cmd.AdjustmentID, StatusComplete, cmd.ActorID)
	})
	if err != nil {
		return Adjustment{}, err
	}
	s.record(ctx, cmd.ActorID, "adjustment.close", cmd.AdjustmentID, nil)
	return s.repo.GetHeader(ctx, cmd.AdjustmentID)
}

// GetHeader loads an adjustment.
func (s *Service) GetHeader(ctx context.Context, id int64) (Adjustment, error) {
	return s.repo.GetHeader(ctx, id)
}

// ListBySite lists recent adjustments at a site.
func (s *Service) ListBySite(ctx context.Context, siteID int64, limit int) ([]Adjustment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListBySite(ctx, siteID, limit)
}

// ListLines lists the active lines of an adjustment.
func (s *Service) ListLines(ctx context.Context, adjustmentID int64) ([]Line, error) {
	return s.repo.ListLines(ctx, adjustmentID)
}

// UncountedLines reports how many lines still block the close.
func (s *Service) UncountedLines(ctx context.Context, adjustmentID int64) (int, error) {
	return s.repo.CountUncountedLines(ctx, adjustmentID)
}

// RepresentHeader renders the display label for an adjustment: the
// adjuster's name and the adjustment date.
func (s *Service) RepresentHeader(ctx context.Context, id int64) string {
	a, err := s.repo.GetHeader(ctx, id)
	if err != nil {
		return shared.LabelNone
	}
	parts := []string{}
	if name, err := s.repo.PersonName(ctx, a.AdjusterID); err == nil && name != "" {
		parts = append(parts, name)
	}
	parts = append(parts, a.Date.Format("2006-01-02"))
	return strings.Join(parts, " - ")
}

// RepresentLine renders the display label for a line: the item name and
// the signed quantity delta in its pack.
func (s *Service) RepresentLine(ctx context.Context, id int64) string {
	l, err := s.repo.GetLine(ctx, id)
	if err != nil {
		return shared.LabelNone
	}
	item, err := s.repo.ItemName(ctx, l.ItemID)
	if err != nil {
		return shared.LabelNone
	}
	pack, err := s.repo.PackName(ctx, l.PackID)
	if err != nil {
		return shared.LabelNone
	}
	return fmt.Sprintf("%s: %s %s", item, strconv.FormatFloat(l.Delta(), 'f', -1, 64), pack)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "adjustment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
