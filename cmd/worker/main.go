package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/rentaldesk/rentaldesk/internal/app"
	"github.com/rentaldesk/rentaldesk/internal/commissions"
	"github.com/rentaldesk/rentaldesk/internal/dashboard"
	"github.com/rentaldesk/rentaldesk/internal/leads"
	"github.com/rentaldesk/rentaldesk/internal/platform/db"
	"github.com/rentaldesk/rentaldesk/internal/quotes"
	"github.com/rentaldesk/rentaldesk/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	commissionRepo := commissions.NewRepository(pool)
	commissionService := commissions.NewService(commissionRepo, commissions.Config{RatePercent: cfg.CommissionRatePercent}, logger)

	quoteRepo := quotes.NewRepository(pool)

	leadRepo := leads.NewRepository(pool)
	leadService := leads.NewService(leadRepo, logger)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(logger, quoteRepo, commissionService, leadService, dashboardCache)

	followupJob := jobs.NewFollowupScanJob(leadService, logger)
	warmupJob := jobs.NewDashboardWarmupJob(dashboardService, dashboardCache, pool, logger)

	followupTask, err := jobs.NewFollowupScanTask(jobs.FollowupScanPayload{})
	if err != nil {
		logger.Error("build followup task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewDashboardWarmupTask(jobs.DashboardWarmupPayload{BumpVersion: true})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskFollowupScan, Handler: followupJob.Handle},
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 7 * * *", Task: followupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
