package scheduler

import (
	"context"
	"fmt"

	"fsbo_finder_backend/internal/runner"
	"fsbo_finder_backend/platform/config"
	"fsbo_finder_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	runner    *runner.Runner
	refresher *runner.Refresher
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, run *runner.Runner, refresher *runner.Refresher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		runner:    run,
		refresher: refresher,
		log:       log,
	}

	mux.HandleFunc(TaskRunScheduledSearches, w.handleRunScheduledSearches)
	mux.HandleFunc(TaskRefreshTokens, w.handleRefreshTokens)

	return w, nil
}

func (w *Worker) handleRunScheduledSearches(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseRunScheduledSearchesPayload(task); err != nil {
		return err
	}

	summary, err := w.runner.RunDue(ctx)
	if err != nil {
		return err
	}

	if summary.Processed > 0 {
		w.log.Info("scheduled search run",
			"total_due", summary.TotalSearches,
			"processed", summary.Processed,
			"errors", summary.Errors,
		)
	}
	return nil
}

func (w *Worker) handleRefreshTokens(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseRefreshTokensPayload(task); err != nil {
		return err
	}

	summary, err := w.refresher.RefreshExpiring(ctx)
	if err != nil {
		return err
	}

	if summary.Refreshed > 0 || summary.Errors > 0 {
		w.log.Info("token refresh sweep",
			"refreshed", summary.Refreshed,
			"errors", summary.Errors,
		)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
