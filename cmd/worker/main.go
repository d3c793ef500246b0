package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/cartage-erp/cartage-erp/internal/app"
	"github.com/cartage-erp/cartage-erp/internal/catalog"
	"github.com/cartage-erp/cartage-erp/internal/platform/db"
	"github.com/cartage-erp/cartage-erp/internal/purchasing"
	"github.com/cartage-erp/cartage-erp/internal/quotation"
	"github.com/cartage-erp/cartage-erp/internal/shared"
	"github.com/cartage-erp/cartage-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, logger)

	quotationRepo := quotation.NewRepository(dbpool)
	quotationService := quotation.NewService(quotationRepo, nil, logger)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	purchasingRepo := purchasing.NewRepository(dbpool)
	purchasingService := purchasing.NewService(
		purchasingRepo,
		quotationService,
		catalogService,
		idempotencyStore,
		nil,
		logger,
		purchasing.Config{PriceList: cfg.BuyingPriceList},
	)

	handlers := jobs.NewConversionHandlers(purchasingService, quotationService, logger)
	maintenance := jobs.NewMaintenanceHandlers(idempotencyStore, cfg.IdempotencyRetention, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskConversionRetry, Handler: handlers.HandleConversionRetry},
			{Type: jobs.TaskConversionReconcile, Handler: handlers.HandleConversionReconcile},
			{Type: jobs.TaskIdempotencyCleanup, Handler: maintenance.HandleIdempotencyCleanup},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: jobs.NewConversionReconcileTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "0 3 * * *", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
