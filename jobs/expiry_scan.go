package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpiryScanJob reports stock entries whose expiry date falls within the
// configured window, grouped per site for warehouse follow-up.
type ExpiryScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewExpiryScanJob initialises the expiry scan handler.
func NewExpiryScanJob(pool *pgxpool.Pool, logger *slog.Logger) *ExpiryScanJob {
	return &ExpiryScanJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type expiringEntry struct {
	EntryID  int64
	SiteID   int64
	ItemID   int64
	Quantity float64
	Expiry   time.Time
}

// Handle executes the expiry scan.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload ExpiryScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 30
	}

	start := j.clock()
	logger := j.logger().With(slog.Int("window_days", payload.WindowDays))
	logger.Info("starting expiry scan")

	cutoff := start.AddDate(0, 0, payload.WindowDays)
	rows, err := j.Pool.Query(ctx, `SELECT id, site_id, item_id, quantity, expiry_date
FROM stock_entries
WHERE lifecycle='ACTIVE' AND quantity > 0 AND expiry_date IS NOT NULL AND expiry_date <= $1
ORDER BY expiry_date, site_id`, cutoff)
	if err != nil {
		logger.Error("expiry scan query failed", slog.Any("error", err))
		return err
	}
	defer rows.Close()

	entries := []expiringEntry{}
	for rows.Next() {
		var e expiringEntry
		if err := rows.Scan(&e.EntryID, &e.SiteID, &e.ItemID, &e.Quantity, &e.Expiry); err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range entries {
		logger.Warn("stock approaching expiry",
			slog.Int64("entry_id", e.EntryID),
			slog.Int64("site_id", e.SiteID),
			slog.Int64("item_id", e.ItemID),
			slog.Float64("quantity", e.Quantity),
			slog.Time("expiry_date", e.Expiry),
		)
	}

	logger.Info("completed expiry scan",
		slog.Int("entries", len(entries)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *ExpiryScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", "expiry_scan"))
	}
	return slog.Default()
}
