package adjustment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-relief/meridian/internal/ledger"
	platformdb "github.com/meridian-relief/meridian/internal/platform/db"
	"github.com/meridian-relief/meridian/internal/shared"
)

// Repository persists adjustments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxStore exposes transactional adjustment operations plus a ledger
// store bound to the same transaction. The reconciliation engine
// composes this store to create variance records atomically with the
// unload credits.
type TxStore interface {
	Ledger() ledger.TxStore

	InsertHeader(ctx context.Context, a Adjustment) (int64, error)
	GetHeaderForUpdate(ctx context.Context, id int64) (Adjustment, error)
	SetHeaderStatus(ctx context.Context, id int64, status Status, actorID int64) error

	InsertLine(ctx context.Context, l Line) (int64, error)
	GetLineForUpdate(ctx context.Context, id int64) (Line, error)
	SetLineCount(ctx context.Context, id int64, newQuantity float64, reason Reason, comments string, actorID int64) error
	ListLinesForUpdate(ctx context.Context, adjustmentID int64) ([]Line, error)
	VoidLine(ctx context.Context, id int64, actorID int64) error
}

// NewTxStore wraps a pgx transaction with adjustment operations.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx, stock: ledger.NewTxStore(tx)}
}

type txStore struct {
	tx    pgx.Tx
	stock ledger.TxStore
}

func (s *txStore) Ledger() ledger.TxStore { return s.stock }

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil {
		return errors.New("adjustment repository not initialised")
	}
	return platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

const headerColumns = `id, adjuster_id, site_id, date, status, category, comments, lifecycle, created_by, created_at, updated_by, updated_at`

func scanHeader(row pgx.Row) (Adjustment, error) {
	var a Adjustment
	err := row.Scan(&a.ID, &a.AdjusterID, &a.SiteID, &a.Date, &a.Status, &a.Category, &a.Comments, &a.Lifecycle, &a.CreatedBy, &a.CreatedAt, &a.UpdatedBy, &a.UpdatedAt)
	return a, err
}

const lineColumns = `id, adjustment_id, entry_id, item_id, pack_id, reason, old_quantity, new_quantity, pack_value, currency, expiry_date, bin, comments, lifecycle, created_by, created_at, updated_by, updated_at`

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.AdjustmentID, &l.EntryID, &l.ItemID, &l.PackID, &l.Reason, &l.OldQuantity, &l.NewQuantity, &l.PackValue, &l.Currency, &l.ExpiryDate, &l.Bin, &l.Comments, &l.Lifecycle, &l.CreatedBy, &l.CreatedAt, &l.UpdatedBy, &l.UpdatedAt)
	return l, err
}

// ---------------------------------------------------------------------------
// Pool reads
// ---------------------------------------------------------------------------

// GetHeader loads an adjustment without locking.
func (r *Repository) GetHeader(ctx context.Context, id int64) (Adjustment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+headerColumns+` FROM adjustments WHERE id=$1`, id)
	a, err := scanHeader(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Adjustment{}, fmt.Errorf("adjustment: header %d: %w", id, shared.ErrNotFound)
	}
	return a, err
}

// GetLine loads an adjustment line without locking.
func (r *Repository) GetLine(ctx context.Context, id int64) (Line, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+lineColumns+` FROM adjustment_lines WHERE id=$1`, id)
	l, err := scanLine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Line{}, fmt.Errorf("adjustment: line %d: %w", id, shared.ErrNotFound)
	}
	return l, err
}

// ListBySite returns adjustments at a site, newest first.
func (r *Repository) ListBySite(ctx context.Context, siteID int64, limit int) ([]Adjustment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+headerColumns+` FROM adjustments WHERE site_id=$1 AND lifecycle=$2 ORDER BY id DESC LIMIT $3`, siteID, shared.LifecycleActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Adjustment{}
	for rows.Next() {
		a, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListLines returns the active lines of an adjustment.
func (r *Repository) ListLines(ctx context.Context, adjustmentID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM adjustment_lines WHERE adjustment_id=$1 AND lifecycle=$2 ORDER BY id`, adjustmentID, shared.LifecycleActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// CountUncountedLines counts active lines still missing a counted
// quantity.
func (r *Repository) CountUncountedLines(ctx context.Context, adjustmentID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM adjustment_lines WHERE adjustment_id=$1 AND lifecycle=$2 AND new_quantity IS NULL`, adjustmentID, shared.LifecycleActive).Scan(&n)
	return n, err
}

// PersonName resolves a person's display name.
func (r *Repository) PersonName(ctx context.Context, personID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM persons WHERE id=$1`, personID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("adjustment: person %d: %w", personID, shared.ErrNotFound)
	}
	return name, err
}

// ItemName resolves the catalog display name for an item.
func (r *Repository) ItemName(ctx context.Context, itemID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM catalog_items WHERE id=$1`, itemID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("adjustment: catalog item %d: %w", itemID, shared.ErrNotFound)
	}
	return name, err
}

// PackName resolves the catalog display name for a pack.
func (r *Repository) PackName(ctx context.Context, packID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM catalog_packs WHERE id=$1`, packID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("adjustment: catalog pack %d: %w", packID, shared.ErrNotFound)
	}
	return name, err
}

// ---------------------------------------------------------------------------
// Transactional writes
// ---------------------------------------------------------------------------

func (s *txStore) InsertHeader(ctx context.Context, a Adjustment) (int64, error) {
	var id int64
	now := time.Now().UTC()
	date := a.Date
	if date.IsZero() {
		date = now
	}
	err := s.tx.QueryRow(ctx, `INSERT INTO adjustments
(adjuster_id, site_id, date, status, category, comments, lifecycle, created_by, created_at, updated_by, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$8,$9)
RETURNING id`,
		a.AdjusterID, a.SiteID, date, a.Status, a.Category, a.Comments, shared.LifecycleActive, a.CreatedBy, now).Scan(&id)
	return id, err
}

func (s *txStore) GetHeaderForUpdate(ctx context.Context, id int64) (Adjustment, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+headerColumns+` FROM adjustments WHERE id=$1 FOR UPDATE`, id)
	a, err := scanHeader(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Adjustment{}, fmt.Errorf("adjustment: header %d: %w", id, shared.ErrNotFound)
	}
	return a, err
}

func (s *txStore) SetHeaderStatus(ctx context.Context, id int64, status Status, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE adjustments SET status=$2, updated_by=$3, updated_at=NOW() WHERE id=$1`, id, status, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjustment: header %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (s *txStore) InsertLine(ctx context.Context, l Line) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := s.tx.QueryRow(ctx, `INSERT INTO adjustment_lines
(adjustment_id, entry_id, item_id, pack_id, reason, old_quantity, new_quantity, pack_value, currency, expiry_date, bin, comments, lifecycle, created_by, created_at, updated_by, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$14,$15)
RETURNING id`,
		l.AdjustmentID, l.EntryID, l.ItemID, l.PackID, l.Reason, l.OldQuantity, l.NewQuantity, l.PackValue, l.Currency, l.ExpiryDate, l.Bin, l.Comments, shared.LifecycleActive, l.CreatedBy, now).Scan(&id)
	return id, err
}

func (s *txStore) GetLineForUpdate(ctx context.Context, id int64) (Line, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+lineColumns+` FROM adjustment_lines WHERE id=$1 FOR UPDATE`, id)
	l, err := scanLine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Line{}, fmt.Errorf("adjustment: line %d: %w", id, shared.ErrNotFound)
	}
	return l, err
}

// SetLineCount stores the counted quantity and reason. OldQuantity is
// deliberately not an assignable column here.
func (s *txStore) SetLineCount(ctx context.Context, id int64, newQuantity float64, reason Reason, comments string, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE adjustment_lines SET new_quantity=$2, reason=$3, comments=$4, updated_by=$5, updated_at=NOW() WHERE id=$1`, id, newQuantity, reason, comments, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjustment: line %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// VoidLine retires a line without ledger effect. Used when a receipt
// whose variance produced the line is reversed.
func (s *txStore) VoidLine(ctx context.Context, id int64, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE adjustment_lines SET lifecycle=$2, updated_by=$3, updated_at=NOW() WHERE id=$1`, id, shared.LifecycleVoid, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjustment: line %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (s *txStore) ListLinesForUpdate(ctx context.Context, adjustmentID int64) ([]Line, error) {
	rows, err := s.tx.Query(ctx, `SELECT `+lineColumns+` FROM adjustment_lines WHERE adjustment_id=$1 AND lifecycle=$2 ORDER BY id FOR UPDATE`, adjustmentID, shared.LifecycleActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
