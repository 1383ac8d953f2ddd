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
	"fsbo_finder_backend/internal/ghl"
	apphttp "fsbo_finder_backend/internal/http"
	"fsbo_finder_backend/internal/http/router"
	"fsbo_finder_backend/internal/listings"
	"fsbo_finder_backend/internal/runner"
	"fsbo_finder_backend/internal/searches"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	val := validator.New()
	ghlClient := ghl.New(cfg, log)
	listingsClient := listings.New(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	tokensModule := tokens.NewModule(pool, ghlClient, cfg, val, log)
	searchesModule := searches.NewModule(pool, tokensModule.Repository(), val, log)
	exportsModule := exports.NewModule(pool, ghlClient, tokensModule.Service(), cfg.GetExportDelay(), val, log)

	// Disconnect must stop the location's scheduled searches (set late to
	// break the module dependency cycle).
	tokensModule.SetSearchDeactivator(searchesModule.Service())

	// The jobs endpoints run the same pipeline as the scheduler worker, so
	// external cron services can drive the system without redis.
	backgroundExporter := exports.NewBackgroundExporter(exportsModule.Repository(), ghlClient, tokensModule.Service(), cfg.GetExportDelay(), log)
	searchRunner := runner.NewRunner(searchesModule.Repository(), exportsModule.Repository(), listingsClient, backgroundExporter, cfg.GetBatchTimeout(), log)
	refresher := runner.NewRefresher(tokensModule.Service(), alertSender(cfg), log)
	jobsModule := runner.NewModule(searchRunner, refresher)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			tokensModule,
			searchesModule,
			exportsModule,
			jobsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// alertSender returns the refresher alerter, or nil when alert email is not
// configured. The nil check happens here so the interface value stays nil.
func alertSender(cfg *config.Config) runner.Alerter {
	sender := email.NewAlertSender(cfg)
	if sender == nil {
		return nil
	}
	return sender
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
