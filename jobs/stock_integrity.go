package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockIntegrityJob scans the ledger for invariant violations: negative
// quantities, which should be impossible under the debit guard, and
// tracking lines whose source or destination entry disappeared.
type StockIntegrityJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewStockIntegrityJob initialises the integrity scan handler.
func NewStockIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger) *StockIntegrityJob {
	return &StockIntegrityJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity scan.
func (j *StockIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("stock integrity: handler not configured")
	}
	start := j.clock()
	logger := j.logger()
	logger.Info("starting stock integrity scan")

	negatives, err := j.scanNegativeQuantities(ctx)
	if err != nil {
		logger.Error("negative quantity scan failed", slog.Any("error", err))
		return err
	}
	for _, id := range negatives {
		logger.Warn("stock entry with negative quantity", slog.Int64("entry_id", id))
	}

	dangling, err := j.scanDanglingLines(ctx)
	if err != nil {
		logger.Error("dangling line scan failed", slog.Any("error", err))
		return err
	}
	for _, id := range dangling {
		logger.Warn("tracking line references missing entry", slog.Int64("line_id", id))
	}

	logger.Info("completed stock integrity scan",
		slog.Int("negative_entries", len(negatives)),
		slog.Int("dangling_lines", len(dangling)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *StockIntegrityJob) scanNegativeQuantities(ctx context.Context) ([]int64, error) {
	rows, err := j.Pool.Query(ctx, `SELECT id FROM stock_entries WHERE quantity < 0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows.Next, rows.Scan, rows.Err)
}

func (j *StockIntegrityJob) scanDanglingLines(ctx context.Context) ([]int64, error) {
	rows, err := j.Pool.Query(ctx, `SELECT t.id FROM tracking_lines t
LEFT JOIN stock_entries s ON s.id = t.source_entry_id
LEFT JOIN stock_entries d ON d.id = t.dest_entry_id
WHERE (t.source_entry_id IS NOT NULL AND s.id IS NULL)
   OR (t.dest_entry_id IS NOT NULL AND d.id IS NULL)
ORDER BY t.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows.Next, rows.Scan, rows.Err)
}

func (j *StockIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", "stock_integrity"))
	}
	return slog.Default()
}

func collectIDs(next func() bool, scan func(...any) error, rowsErr func() error) ([]int64, error) {
	ids := []int64{}
	for next() {
		var id int64
		if err := scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rowsErr()
}
