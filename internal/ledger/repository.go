package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/meridian-relief/meridian/internal/platform/db"
	"github.com/meridian-relief/meridian/internal/shared"
)

// Repository persists stock entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxStore exposes transactional ledger operations. Other modules compose
// a TxStore over their own pgx.Tx via NewTxStore so debits and credits
// commit atomically with their own record mutations.
type TxStore interface {
	GetEntryForUpdate(ctx context.Context, id int64) (StockEntry, error)
	FindByKeyForUpdate(ctx context.Context, key MatchKey) (StockEntry, error)
	InsertEntry(ctx context.Context, entry StockEntry) (int64, error)
	SetQuantity(ctx context.Context, id int64, quantity float64, actorID int64) error
	ListSiteEntriesForUpdate(ctx context.Context, siteID int64) ([]StockEntry, error)
}

// NewTxStore wraps a pgx transaction with ledger operations.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

type txStore struct {
	tx pgx.Tx
}

const entryColumns = `id, site_id, item_id, pack_id, quantity, pack_value, currency, expiry_date, bin, supply_org_id, tracking_no, comments, lifecycle, created_by, created_at, updated_by, updated_at`

func scanEntry(row pgx.Row) (StockEntry, error) {
	var e StockEntry
	err := row.Scan(&e.ID, &e.SiteID, &e.ItemID, &e.PackID, &e.Quantity, &e.PackValue, &e.Currency, &e.ExpiryDate, &e.Bin, &e.SupplyOrgID, &e.TrackingNo, &e.Comments, &e.Lifecycle, &e.CreatedBy, &e.CreatedAt, &e.UpdatedBy, &e.UpdatedAt)
	return e, err
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

// GetEntry loads a stock entry without locking.
func (r *Repository) GetEntry(ctx context.Context, id int64) (StockEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM stock_entries WHERE id=$1`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockEntry{}, fmt.Errorf("ledger: entry %d: %w", id, shared.ErrNotFound)
	}
	return entry, err
}

// ListBySite returns all active entries held at a site.
func (r *Repository) ListBySite(ctx context.Context, siteID int64) ([]StockEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM stock_entries WHERE site_id=$1 AND lifecycle=$2 ORDER BY item_id, bin, id`, siteID, shared.LifecycleActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []StockEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// StockedItemIDs lists distinct item ids with an active entry at a site.
func (r *Repository) StockedItemIDs(ctx context.Context, siteID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT item_id FROM stock_entries WHERE site_id=$1 AND lifecycle=$2 ORDER BY item_id`, siteID, shared.LifecycleActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ItemName resolves the catalog display name for an item reference.
func (r *Repository) ItemName(ctx context.Context, itemID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM catalog_items WHERE id=$1`, itemID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("ledger: catalog item %d: %w", itemID, shared.ErrNotFound)
	}
	return name, err
}

func (s *txStore) GetEntryForUpdate(ctx context.Context, id int64) (StockEntry, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM stock_entries WHERE id=$1 FOR UPDATE`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockEntry{}, fmt.Errorf("ledger: entry %d: %w", id, shared.ErrNotFound)
	}
	return entry, err
}

// FindByKeyForUpdate performs the deduplication match, locking the matched
// row so concurrent unloads against the same key serialize.
func (s *txStore) FindByKeyForUpdate(ctx context.Context, key MatchKey) (StockEntry, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM stock_entries
WHERE site_id=$1 AND item_id=$2 AND pack_id=$3 AND currency=$4 AND pack_value=$5
  AND expiry_date IS NOT DISTINCT FROM $6 AND bin=$7 AND supply_org_id=$8
  AND lifecycle=$9
FOR UPDATE`,
		key.SiteID, key.ItemID, key.PackID, key.Currency, key.PackValue, key.ExpiryDate, key.Bin, key.SupplyOrgID, shared.LifecycleActive)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockEntry{}, fmt.Errorf("ledger: no entry for match key: %w", shared.ErrNotFound)
	}
	return entry, err
}

func (s *txStore) InsertEntry(ctx context.Context, entry StockEntry) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := s.tx.QueryRow(ctx, `INSERT INTO stock_entries
(site_id, item_id, pack_id, quantity, pack_value, currency, expiry_date, bin, supply_org_id, tracking_no, comments, lifecycle, created_by, created_at, updated_by, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$13,$14)
RETURNING id`,
		entry.SiteID, entry.ItemID, entry.PackID, entry.Quantity, entry.PackValue, entry.Currency, entry.ExpiryDate, entry.Bin, entry.SupplyOrgID, entry.TrackingNo, entry.Comments, shared.LifecycleActive, entry.CreatedBy, now).Scan(&id)
	return id, err
}

// ListSiteEntriesForUpdate locks and returns every active entry with
// positive stock at a site, for snapshot-style operations.
func (s *txStore) ListSiteEntriesForUpdate(ctx context.Context, siteID int64) ([]StockEntry, error) {
	rows, err := s.tx.Query(ctx, `SELECT `+entryColumns+` FROM stock_entries WHERE site_id=$1 AND quantity > 0 AND lifecycle=$2 ORDER BY id FOR UPDATE`, siteID, shared.LifecycleActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []StockEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *txStore) SetQuantity(ctx context.Context, id int64, quantity float64, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE stock_entries SET quantity=$2, updated_by=$3, updated_at=NOW() WHERE id=$1`, id, quantity, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger: entry %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
