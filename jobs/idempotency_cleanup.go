package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-relief/meridian/internal/shared"
)

// IdempotencyCleanupJob prunes idempotency keys past their retention.
type IdempotencyCleanupJob struct {
	Store     *shared.IdempotencyStore
	Logger    *slog.Logger
	Retention time.Duration
}

// NewIdempotencyCleanupJob initialises the cleanup handler.
func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger, retention time.Duration) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Retention: retention}
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	if err := j.Store.Cleanup(ctx, j.Retention); err != nil {
		if j.Logger != nil {
			j.Logger.Error("idempotency cleanup failed", slog.Any("error", err))
		}
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("idempotency keys pruned", slog.Duration("retention", j.Retention))
	}
	return nil
}
