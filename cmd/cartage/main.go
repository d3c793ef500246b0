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

	"github.com/cartage-erp/cartage-erp/internal/app"
	"github.com/cartage-erp/cartage-erp/internal/auth"
	"github.com/cartage-erp/cartage-erp/internal/broker"
	"github.com/cartage-erp/cartage-erp/internal/catalog"
	"github.com/cartage-erp/cartage-erp/internal/lifecycle"
	"github.com/cartage-erp/cartage-erp/internal/platform/cache"
	"github.com/cartage-erp/cartage-erp/internal/platform/db"
	"github.com/cartage-erp/cartage-erp/internal/purchasing"
	"github.com/cartage-erp/cartage-erp/internal/quotation"
	"github.com/cartage-erp/cartage-erp/internal/shared"
	"github.com/cartage-erp/cartage-erp/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	hooks := lifecycle.NewDispatcher(logger)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService)
	credentialCache := auth.NewCredentialCache(redisClient, cfg.CredentialCacheTTL)
	tokenMiddleware := auth.NewTokenMiddleware(logger, authService, credentialCache)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, logger)

	quotationRepo := quotation.NewRepository(dbpool)
	quotationService := quotation.NewService(quotationRepo, hooks, logger)
	quotationHandler := quotation.NewHandler(logger, quotationService, authService)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	purchasingRepo := purchasing.NewRepository(dbpool)
	purchasingService := purchasing.NewService(
		purchasingRepo,
		quotationService,
		catalogService,
		idempotencyStore,
		hooks,
		logger,
		purchasing.Config{PriceList: cfg.BuyingPriceList},
	)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService, authService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	purchasingService.SetRetryEnqueuer(jobClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	hooks.Register(lifecycle.DoctypeSupplierQuotation, lifecycle.BeforeSave, func(_ context.Context, doc any) error {
		snap, ok := doc.(quotation.Snapshot)
		if !ok {
			return nil
		}
		return quotation.ValidateFreight(snap.Quotation)
	})
	purchasingService.RegisterHooks()

	brokerRepo := broker.NewRepository(dbpool)
	brokerService := broker.NewService(brokerRepo, logger)
	brokerHandler := broker.NewHandler(logger, brokerService, authService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		AuthMiddleware:    tokenMiddleware.Handler,
		BrokerHandler:     brokerHandler,
		QuotationHandler:  quotationHandler,
		PurchasingHandler: purchasingHandler,
		JobHandler:        jobHandler,
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
