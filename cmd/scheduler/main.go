package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fsbo_finder_backend/internal/email"
	"fsbo_finder_backend/internal/exports"
	exportrepo "fsbo_finder_backend/internal/exports/repository"
	"fsbo_finder_backend/internal/ghl"
	"fsbo_finder_backend/internal/listings"
	"fsbo_finder_backend/internal/runner"
	"fsbo_finder_backend/internal/scheduler"
	searchrepo "fsbo_finder_backend/internal/searches/repository"
	"fsbo_finder_backend/internal/tokens"
	"fsbo_finder_backend/platform/config"
	"fsbo_finder_backend/platform/db"
	"fsbo_finder_backend/platform/logger"
	"fsbo_finder_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	val := validator.New()
	ghlClient := ghl.New(cfg, log)
	listingsClient := listings.New(cfg, log)

	// Worker-side pipeline wiring (no HTTP handlers required).
	tokensModule := tokens.NewModule(pool, ghlClient, cfg, val, log)
	searchRepo := searchrepo.New(pool)
	resultRepo := exportrepo.New(pool)

	exporter := exports.NewBackgroundExporter(resultRepo, ghlClient, tokensModule.Service(), cfg.GetExportDelay(), log)
	searchRunner := runner.NewRunner(searchRepo, resultRepo, listingsClient, exporter, cfg.GetBatchTimeout(), log)

	var alerter runner.Alerter
	if sender := email.NewAlertSender(cfg); sender != nil {
		alerter = sender
	}
	refresher := runner.NewRefresher(tokensModule.Service(), alerter, log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := scheduler.NewDispatcher(cfg, client, log)
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, searchRunner, refresher, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
