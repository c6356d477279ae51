package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-books/meridian/internal/app"
	"github.com/meridian-books/meridian/internal/ledger/balances"
	"github.com/meridian-books/meridian/internal/ledger/recon"
	"github.com/meridian-books/meridian/internal/ledger/vouchers"
	"github.com/meridian-books/meridian/internal/platform/cache"
	"github.com/meridian-books/meridian/internal/platform/db"
	"github.com/meridian-books/meridian/internal/shared"
	"github.com/meridian-books/meridian/internal/tenant"
	"github.com/meridian-books/meridian/jobs"
)

func main() {
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	audit := shared.NewAuditLogger(pool)
	tenantRepo := tenant.NewRepository(pool)

	reportCache := balances.NewCache(redisClient, cfg.ReportCacheTTL)
	policy := vouchers.PostingPolicy{IncludeDraft: cfg.PostingIncludeDraft}
	reportService := balances.NewService(balances.NewRepository(pool), tenantRepo, policy, reportCache, logger)

	reconService := recon.NewService(recon.NewRepository(pool), reportService, redisClient, audit, policy, recon.Options{
		ImportMaxLines:  cfg.ReconImportMaxLines,
		MatchWindowDays: cfg.ReconMatchWindowDays,
		LockTTL:         cfg.ReconLockTTL,
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskIntegritySweep, Handler: jobs.NewIntegritySweepHandler(logger, tenantRepo, reportService)},
			{Type: jobs.TaskAutoMatchSweep, Handler: jobs.NewAutoMatchSweepHandler(logger, tenantRepo, reconService)},
			{Type: jobs.TaskAutoMatchAccount, Handler: jobs.NewAutoMatchAccountHandler(logger, reconService)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 1 * * *", Task: jobs.NewIntegritySweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/30 * * * *", Task: jobs.NewAutoMatchSweepTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
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
