package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-books/meridian/internal/app"
	"github.com/meridian-books/meridian/internal/ledger/balances"
	"github.com/meridian-books/meridian/internal/ledger/coa"
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

	coaService := coa.NewService(coa.NewRepository(pool), reportService)
	voucherService := vouchers.NewService(vouchers.NewRepository(pool), audit, reportCache, policy)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	reconService := recon.NewService(recon.NewRepository(pool), reportService, redisClient, audit, policy, recon.Options{
		ImportMaxLines:  cfg.ReconImportMaxLines,
		MatchWindowDays: cfg.ReconMatchWindowDays,
		LockTTL:         cfg.ReconLockTTL,
	})
	reconService.WithMatchEnqueue(func(ctx context.Context, tenantID, bankAccountID int64) error {
		_, err := jobsClient.EnqueueAutoMatch(ctx, jobs.AutoMatchPayload{
			TenantID:      tenantID,
			BankAccountID: bankAccountID,
		})
		return err
	})

	router := app.NewRouter(app.RouterConfig{
		Middleware: app.MiddlewareConfig{Logger: logger, Config: cfg},
		COA:        coa.NewHandler(logger, coaService),
		Vouchers:   vouchers.NewHandler(logger, voucherService),
		Reports:    balances.NewHandler(logger, reportService),
		Recon:      recon.NewHandler(logger, reconService),
		Tenant:     tenant.NewHandler(logger, tenantRepo),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledgerd listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
