// Package jobs holds the background task definitions and the Asynq
// worker around them: ledger integrity scanning, expiry warnings and
// idempotency key cleanup.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockIntegrity scans the ledger for negative quantities and
	// tracking lines pointing at missing entries.
	TaskStockIntegrity = "inv:stock_integrity"
	// TaskExpiryScan reports stock entries expiring within a window.
	TaskExpiryScan = "inv:expiry_scan"
	// TaskIdempotencyCleanup prunes idempotency keys past retention.
	TaskIdempotencyCleanup = "inv:idempotency_cleanup"
)

// ExpiryScanPayload bounds the expiry scan window.
type ExpiryScanPayload struct {
	WindowDays int `json:"window_days"`
}

// NewStockIntegrityTask constructs the integrity scan task.
func NewStockIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskStockIntegrity, nil)
}

// NewExpiryScanTask constructs the expiry scan task.
func NewExpiryScanTask(payload ExpiryScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpiryScan, data), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueIntegrityScan enqueues a stock integrity scan.
func (c *Client) EnqueueIntegrityScan(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewStockIntegrityTask(), asynq.Queue(QueueDefault))
	return err
}

// EnqueueExpiryScan enqueues an expiry scan with the given window.
func (c *Client) EnqueueExpiryScan(ctx context.Context, payload ExpiryScanPayload) error {
	task, err := NewExpiryScanTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
