package scheduler

import (
	"context"
	"time"

	"fsbo_finder_backend/platform/config"
	"fsbo_finder_backend/platform/logger"
)

const (
	defaultRunnerInterval    = time.Minute
	defaultRefresherInterval = 15 * time.Minute
)

// Dispatcher enqueues the recurring jobs on fixed intervals. The jobs
// themselves are cheap no-ops when nothing is due, so the tick cadence only
// bounds how quickly due work is noticed.
type Dispatcher struct {
	client            *Client
	runnerInterval    time.Duration
	refresherInterval time.Duration
	log               *logger.Logger
}

func NewDispatcher(cfg config.SchedulerConfig, client *Client, log *logger.Logger) *Dispatcher {
	runnerInterval := cfg.GetRunnerInterval()
	if runnerInterval <= 0 {
		runnerInterval = defaultRunnerInterval
	}
	refresherInterval := cfg.GetRefresherInterval()
	if refresherInterval <= 0 {
		refresherInterval = defaultRefresherInterval
	}

	return &Dispatcher{
		client:            client,
		runnerInterval:    runnerInterval,
		refresherInterval: refresherInterval,
		log:               log,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	runnerTicker := time.NewTicker(d.runnerInterval)
	defer runnerTicker.Stop()
	refresherTicker := time.NewTicker(d.refresherInterval)
	defer refresherTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-runnerTicker.C:
			if err := d.client.EnqueueRunScheduledSearches(ctx); err != nil {
				d.log.Warn("enqueue scheduled search run failed", "error", err)
			}
		case <-refresherTicker.C:
			if err := d.client.EnqueueRefreshTokens(ctx); err != nil {
				d.log.Warn("enqueue token refresh failed", "error", err)
			}
		}
	}
}
