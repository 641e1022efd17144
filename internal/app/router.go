package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-relief/meridian/internal/adjustment"
	"github.com/meridian-relief/meridian/internal/ledger"
	"github.com/meridian-relief/meridian/internal/observability"
	"github.com/meridian-relief/meridian/internal/shipment"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	StockHandler      *ledger.Handler
	ShipmentHandler   *shipment.Handler
	AdjustmentHandler *adjustment.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/stock", params.StockHandler.MountRoutes)
	r.Route("/shipments", params.ShipmentHandler.MountRoutes)
	r.Route("/adjustments", params.AdjustmentHandler.MountRoutes)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
