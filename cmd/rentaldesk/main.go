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

	"github.com/rentaldesk/rentaldesk/internal/app"
	"github.com/rentaldesk/rentaldesk/internal/commissions"
	"github.com/rentaldesk/rentaldesk/internal/dashboard"
	"github.com/rentaldesk/rentaldesk/internal/leads"
	"github.com/rentaldesk/rentaldesk/internal/platform/cache"
	"github.com/rentaldesk/rentaldesk/internal/platform/db"
	"github.com/rentaldesk/rentaldesk/internal/quotes"
	"github.com/rentaldesk/rentaldesk/internal/shared"
	"github.com/rentaldesk/rentaldesk/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(pool)

	commissionRepo := commissions.NewRepository(pool)
	commissionService := commissions.NewService(commissionRepo, commissions.Config{RatePercent: cfg.CommissionRatePercent}, logger)
	commissionHandler := commissions.NewHandler(logger, commissionService)

	quoteRepo := quotes.NewRepository(pool)
	quoteService := quotes.NewService(quoteRepo, commissionService, logger)
	quoteHandler := quotes.NewHandler(logger, quoteService, idempotencyStore)

	leadRepo := leads.NewRepository(pool)
	leadService := leads.NewService(leadRepo, logger)
	leadHandler := leads.NewHandler(logger, leadService)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	if err := dashboardCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	dashboardService := dashboard.NewService(logger, quoteRepo, commissionService, leadService, dashboardCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("job client unavailable", slog.Any("error", err))
		jobClient = nil
	}
	defer func() {
		if jobClient == nil {
			return
		}
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		QuoteHandler:      quoteHandler,
		CommissionHandler: commissionHandler,
		LeadHandler:       leadHandler,
		DashboardHandler:  dashboardHandler,
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
