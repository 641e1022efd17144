package shipment

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

// Repository persists shipment headers and tracking lines in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxStore exposes the transactional shipment operations plus a ledger
// store bound to the same transaction. Header and line mutations that
// move stock lock both sides before writing either.
type TxStore interface {
	Ledger() ledger.TxStore

	GetOutboundForUpdate(ctx context.Context, id int64) (Outbound, error)
	InsertOutbound(ctx context.Context, o Outbound) (int64, error)
	SetOutboundStatus(ctx context.Context, id int64, status Status, date *time.Time, actorID int64) error

	GetInboundForUpdate(ctx context.Context, id int64) (Inbound, error)
	InsertInbound(ctx context.Context, i Inbound) (int64, error)
	SetInboundStatus(ctx context.Context, id int64, status Status, date *time.Time, actorID int64) error
	SetInboundOrigin(ctx context.Context, id int64, fromSiteID *int64, actorID int64) error
	SetInboundDocuments(ctx context.Context, id int64, grn, cert *DocStatus, actorID int64) error

	GetLineForUpdate(ctx context.Context, id int64) (TrackingLine, error)
	InsertLine(ctx context.Context, l TrackingLine) (int64, error)
	UpdateLine(ctx context.Context, l TrackingLine) error
	SetLineStatus(ctx context.Context, id int64, status TrackingStatus, actorID int64) error
	SetLineDestination(ctx context.Context, id int64, destEntryID *int64, adjustmentLineID *int64, actorID int64) error
	ListOutboundLinesForUpdate(ctx context.Context, outboundID int64) ([]TrackingLine, error)
	ListInboundLinesForUpdate(ctx context.Context, inboundID int64) ([]TrackingLine, error)
	FindLineByTrackingNo(ctx context.Context, shippingOrgID int64, trackingNo string) (TrackingLine, error)
	SiteOrgID(ctx context.Context, siteID int64) (int64, error)
}

// NewTxStore wraps a pgx transaction with shipment operations.
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
		return errors.New("shipment repository not initialised")
	}
	return platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

const outboundColumns = `id, sender_id, site_id, to_site_id, recipient_id, date, delivery_date, status, comments, lifecycle, created_by, created_at, updated_by, updated_at`

func scanOutbound(row pgx.Row) (Outbound, error) {
	var o Outbound
	err := row.Scan(&o.ID, &o.SenderID, &o.SiteID, &o.ToSiteID, &o.RecipientID, &o.Date, &o.DeliveryDate, &o.Status, &o.Comments, &o.Lifecycle, &o.CreatedBy, &o.CreatedAt, &o.UpdatedBy, &o.UpdatedAt)
	return o, err
}

const inboundColumns = `id, sender_id, sender_name, from_site_id, site_id, eta, date, recipient_id, type, status, grn_status, cert_status, comments, lifecycle, created_by, created_at, updated_by, updated_at`

func scanInbound(row pgx.Row) (Inbound, error) {
	var i Inbound
	err := row.Scan(&i.ID, &i.SenderID, &i.SenderName, &i.FromSiteID, &i.SiteID, &i.ETA, &i.Date, &i.RecipientID, &i.Type, &i.Status, &i.GRNStatus, &i.CertStatus, &i.Comments, &i.Lifecycle, &i.CreatedBy, &i.CreatedAt, &i.UpdatedBy, &i.UpdatedAt)
	return i, err
}

const lineColumns = `id, shipping_org_id, tracking_no, status, source_entry_id, dest_entry_id, item_id, pack_id, quantity_sent, quantity_received, currency, pack_value, expiry_date, origin_bin, dest_bin, outbound_id, inbound_id, supply_org_id, adjustment_line_id, comments, lifecycle, created_by, created_at, updated_by, updated_at`

func scanLine(row pgx.Row) (TrackingLine, error) {
	var l TrackingLine
	err := row.Scan(&l.ID, &l.ShippingOrgID, &l.TrackingNo, &l.Status, &l.SourceEntryID, &l.DestEntryID, &l.ItemID, &l.PackID, &l.QuantitySent, &l.QuantityReceived, &l.Currency, &l.PackValue, &l.ExpiryDate, &l.OriginBin, &l.DestBin, &l.OutboundID, &l.InboundID, &l.SupplyOrgID, &l.AdjustmentLineID, &l.Comments, &l.Lifecycle, &l.CreatedBy, &l.CreatedAt, &l.UpdatedBy, &l.UpdatedAt)
	return l, err
}

// ---------------------------------------------------------------------------
// Pool reads
// ---------------------------------------------------------------------------

// GetOutbound loads an outbound shipment without locking.
func (r *Repository) GetOutbound(ctx context.Context, id int64) (Outbound, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+outboundColumns+` FROM outbound_shipments WHERE id=$1`, id)
	o, err := scanOutbound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Outbound{}, fmt.Errorf("shipment: outbound %d: %w", id, shared.ErrNotFound)
	}
	return o, err
}

// GetInbound loads an inbound shipment without locking.
func (r *Repository) GetInbound(ctx context.Context, id int64) (Inbound, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+inboundColumns+` FROM inbound_shipments WHERE id=$1`, id)
	i, err := scanInbound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Inbound{}, fmt.Errorf("shipment: inbound %d: %w", id, shared.ErrNotFound)
	}
	return i, err
}

// GetLine loads a tracking line without locking.
func (r *Repository) GetLine(ctx context.Context, id int64) (TrackingLine, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+lineColumns+` FROM tracking_lines WHERE id=$1`, id)
	l, err := scanLine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return TrackingLine{}, fmt.Errorf("shipment: line %d: %w", id, shared.ErrNotFound)
	}
	return l, err
}

// ListOutboundBySite returns outbound shipments originating at a site,
// newest first.
func (r *Repository) ListOutboundBySite(ctx context.Context, siteID int64, limit int) ([]Outbound, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+outboundColumns+` FROM outbound_shipments WHERE site_id=$1 AND lifecycle=$2 ORDER BY id DESC LIMIT $3`, siteID, shared.LifecycleActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Outbound{}
	for rows.Next() {
		o, err := scanOutbound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListInboundBySite returns inbound shipments destined for a site,
// newest first.
func (r *Repository) ListInboundBySite(ctx context.Context, siteID int64, limit int) ([]Inbound, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inboundColumns+` FROM inbound_shipments WHERE site_id=$1 AND lifecycle=$2 ORDER BY id DESC LIMIT $3`, siteID, shared.LifecycleActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	in := []Inbound{}
	for rows.Next() {
		i, err := scanInbound(rows)
		if err != nil {
			return nil, err
		}
		in = append(in, i)
	}
	return in, rows.Err()
}

// ListOutboundLines returns the active lines of an outbound shipment.
func (r *Repository) ListOutboundLines(ctx context.Context, outboundID int64) ([]TrackingLine, error) {
	return r.listLines(ctx, `outbound_id`, outboundID)
}

// ListInboundLines returns the active lines of an inbound shipment.
func (r *Repository) ListInboundLines(ctx context.Context, inboundID int64) ([]TrackingLine, error) {
	return r.listLines(ctx, `inbound_id`, inboundID)
}

func (r *Repository) listLines(ctx context.Context, col string, id int64) ([]TrackingLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM tracking_lines WHERE `+col+`=$1 AND lifecycle=$2 ORDER BY id`, id, shared.LifecycleActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []TrackingLine{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// CountIncompleteLines counts active lines of an inbound shipment still
// missing a received quantity or destination bin. Canceled lines are
// skipped during receipt and do not block it.
func (r *Repository) CountIncompleteLines(ctx context.Context, inboundID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tracking_lines WHERE inbound_id=$1 AND lifecycle=$2 AND status <> $3 AND (quantity_received IS NULL OR dest_bin='')`, inboundID, shared.LifecycleActive, TrackCanceled).Scan(&n)
	return n, err
}

// SiteName resolves a site's display name.
func (r *Repository) SiteName(ctx context.Context, siteID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM org_sites WHERE id=$1`, siteID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("shipment: site %d: %w", siteID, shared.ErrNotFound)
	}
	return name, err
}

// ---------------------------------------------------------------------------
// Transactional writes
// ---------------------------------------------------------------------------

func (s *txStore) GetOutboundForUpdate(ctx context.Context, id int64) (Outbound, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+outboundColumns+` FROM outbound_shipments WHERE id=$1 FOR UPDATE`, id)
	o, err := scanOutbound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Outbound{}, fmt.Errorf("shipment: outbound %d: %w", id, shared.ErrNotFound)
	}
	return o, err
}

func (s *txStore) InsertOutbound(ctx context.Context, o Outbound) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := s.tx.QueryRow(ctx, `INSERT INTO outbound_shipments
(sender_id, site_id, to_site_id, recipient_id, date, delivery_date, status, comments, lifecycle, created_by, created_at, updated_by, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$10,$11)
RETURNING id`,
		o.SenderID, o.SiteID, o.ToSiteID, o.RecipientID, o.Date, o.DeliveryDate, o.Status, o.Comments, shared.LifecycleActive, o.CreatedBy, now).Scan(&id)
	return id, err
}

func (s *txStore) SetOutboundStatus(ctx context.Context, id int64, status Status, date *time.Time, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE outbound_shipments SET status=$2, date=COALESCE($3, date), updated_by=$4, updated_at=NOW() WHERE id=$1`, id, status, date, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment: outbound %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (s *txStore) GetInboundForUpdate(ctx context.Context, id int64) (Inbound, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+inboundColumns+` FROM inbound_shipments WHERE id=$1 FOR UPDATE`, id)
	i, err := scanInbound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Inbound{}, fmt.Errorf("shipment: inbound %d: %w", id, shared.ErrNotFound)
	}
	return i, err
}

func (s *txStore) InsertInbound(ctx context.Context, i Inbound) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := s.tx.QueryRow(ctx, `INSERT INTO inbound_shipments
(sender_id, sender_name, from_site_id, site_id, eta, date, recipient_id, type, status, grn_status, cert_status, comments, lifecycle, created_by, created_at, updated_by, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$14,$15)
RETURNING id`,
		i.SenderID, i.SenderName, i.FromSiteID, i.SiteID, i.ETA, i.Date, i.RecipientID, i.Type, i.Status, i.GRNStatus, i.CertStatus, i.Comments, shared.LifecycleActive, i.CreatedBy, now).Scan(&id)
	return id, err
}

func (s *txStore) SetInboundStatus(ctx context.Context, id int64, status Status, date *time.Time, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE inbound_shipments SET status=$2, date=COALESCE($3, date), updated_by=$4, updated_at=NOW() WHERE id=$1`, id, status, date, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment: inbound %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (s *txStore) SetInboundOrigin(ctx context.Context, id int64, fromSiteID *int64, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE inbound_shipments SET from_site_id=$2, updated_by=$3, updated_at=NOW() WHERE id=$1`, id, fromSiteID, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment: inbound %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (s *txStore) SetInboundDocuments(ctx context.Context, id int64, grn, cert *DocStatus, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE inbound_shipments SET grn_status=COALESCE($2, grn_status), cert_status=COALESCE($3, cert_status), updated_by=$4, updated_at=NOW() WHERE id=$1`, id, grn, cert, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment: inbound %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (s *txStore) GetLineForUpdate(ctx context.Context, id int64) (TrackingLine, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+lineColumns+` FROM tracking_lines WHERE id=$1 FOR UPDATE`, id)
	l, err := scanLine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return TrackingLine{}, fmt.Errorf("shipment: line %d: %w", id, shared.ErrNotFound)
	}
	return l, err
}

func (s *txStore) InsertLine(ctx context.Context, l TrackingLine) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := s.tx.QueryRow(ctx, `INSERT INTO tracking_lines
(shipping_org_id, tracking_no, status, source_entry_id, dest_entry_id, item_id, pack_id, quantity_sent, quantity_received, currency, pack_value, expiry_date, origin_bin, dest_bin, outbound_id, inbound_id, supply_org_id, adjustment_line_id, comments, lifecycle, created_by, created_at, updated_by, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$21,$22)
RETURNING id`,
		l.ShippingOrgID, l.TrackingNo, l.Status, l.SourceEntryID, l.DestEntryID, l.ItemID, l.PackID, l.QuantitySent, l.QuantityReceived, l.Currency, l.PackValue, l.ExpiryDate, l.OriginBin, l.DestBin, l.OutboundID, l.InboundID, l.SupplyOrgID, l.AdjustmentLineID, l.Comments, shared.LifecycleActive, l.CreatedBy, now).Scan(&id)
	return id, err
}

// UpdateLine rewrites the mutable columns of a line.
func (s *txStore) UpdateLine(ctx context.Context, l TrackingLine) error {
	tag, err := s.tx.Exec(ctx, `UPDATE tracking_lines SET
tracking_no=$2, status=$3, quantity_sent=$4, quantity_received=$5, dest_bin=$6, inbound_id=$7, comments=$8, lifecycle=$9, updated_by=$10, updated_at=NOW()
WHERE id=$1`,
		l.ID, l.TrackingNo, l.Status, l.QuantitySent, l.QuantityReceived, l.DestBin, l.InboundID, l.Comments, l.Lifecycle, l.UpdatedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment: line %d: %w", l.ID, shared.ErrNotFound)
	}
	return nil
}

func (s *txStore) SetLineStatus(ctx context.Context, id int64, status TrackingStatus, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE tracking_lines SET status=$2, updated_by=$3, updated_at=NOW() WHERE id=$1`, id, status, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment: line %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// SetLineDestination attaches or clears the unload references. Clearing
// the destination entry also clears the variance line reference.
func (s *txStore) SetLineDestination(ctx context.Context, id int64, destEntryID *int64, adjustmentLineID *int64, actorID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE tracking_lines SET dest_entry_id=$2,
adjustment_line_id=CASE WHEN $2::bigint IS NULL THEN NULL ELSE COALESCE($3, adjustment_line_id) END,
updated_by=$4, updated_at=NOW() WHERE id=$1`, id, destEntryID, adjustmentLineID, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment: line %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (s *txStore) ListOutboundLinesForUpdate(ctx context.Context, outboundID int64) ([]TrackingLine, error) {
	return s.listLinesForUpdate(ctx, `outbound_id`, outboundID)
}

func (s *txStore) ListInboundLinesForUpdate(ctx context.Context, inboundID int64) ([]TrackingLine, error) {
	return s.listLinesForUpdate(ctx, `inbound_id`, inboundID)
}

func (s *txStore) listLinesForUpdate(ctx context.Context, col string, id int64) ([]TrackingLine, error) {
	rows, err := s.tx.Query(ctx, `SELECT `+lineColumns+` FROM tracking_lines WHERE `+col+`=$1 AND lifecycle=$2 ORDER BY id FOR UPDATE`, id, shared.LifecycleActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []TrackingLine{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// FindLineByTrackingNo locates an active line by its organisation-scoped
// tracking number.
func (s *txStore) FindLineByTrackingNo(ctx context.Context, shippingOrgID int64, trackingNo string) (TrackingLine, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+lineColumns+` FROM tracking_lines WHERE shipping_org_id=$1 AND tracking_no=$2 AND lifecycle=$3`, shippingOrgID, trackingNo, shared.LifecycleActive)
	l, err := scanLine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return TrackingLine{}, fmt.Errorf("shipment: tracking number %q: %w", trackingNo, shared.ErrNotFound)
	}
	return l, err
}

// SiteOrgID resolves the organisation owning a site.
func (s *txStore) SiteOrgID(ctx context.Context, siteID int64) (int64, error) {
	var orgID int64
	err := s.tx.QueryRow(ctx, `SELECT org_id FROM org_sites WHERE id=$1`, siteID).Scan(&orgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("shipment: site %d: %w", siteID, shared.ErrNotFound)
	}
	return orgID, err
}
