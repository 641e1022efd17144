package reconcile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-relief/meridian/internal/adjustment"
	platformdb "github.com/meridian-relief/meridian/internal/platform/db"
	"github.com/meridian-relief/meridian/internal/shipment"
)

// Repository gives the engine transactional access spanning the
// shipment, adjustment and ledger tables.
type Repository struct {
	pool      *pgxpool.Pool
	shipments *shipment.Repository
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, shipments: shipment.NewRepository(pool)}
}

type store struct {
	shipment.TxStore
	adj adjustment.TxStore
}

func (s *store) Adjustments() adjustment.TxStore { return s.adj }

// WithTx executes the callback inside a repeatable-read transaction with
// all three stores bound to it.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	if r == nil {
		return errors.New("reconcile repository not initialised")
	}
	return platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &store{
			TxStore: shipment.NewTxStore(tx),
			adj:     adjustment.NewTxStore(tx),
		})
	})
}

// GetInbound loads an inbound shipment without locking.
func (r *Repository) GetInbound(ctx context.Context, id int64) (shipment.Inbound, error) {
	return r.shipments.GetInbound(ctx, id)
}
