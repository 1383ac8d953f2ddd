package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type testSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c testSchedulerConfig) GetRedisURL() string                 { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool           { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string           { return c.queue }
func (c testSchedulerConfig) GetAsynqConcurrency() int            { return 1 }
func (c testSchedulerConfig) GetRunnerInterval() time.Duration    { return time.Minute }
func (c testSchedulerConfig) GetRefresherInterval() time.Duration { return 15 * time.Minute }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}

func TestClientEnqueuesBothJobs(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr(), queue: "jobs"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	if err := client.EnqueueRunScheduledSearches(ctx); err != nil {
		t.Fatalf("enqueue search run: %v", err)
	}
	if err := client.EnqueueRefreshTokens(ctx); err != nil {
		t.Fatalf("enqueue refresh: %v", err)
	}

	var pendingKey bool
	for _, key := range mr.Keys() {
		if strings.Contains(key, "{jobs}:pending") {
			pendingKey = true
		}
	}
	if !pendingKey {
		t.Fatalf("expected tasks on the jobs queue, keys: %v", mr.Keys())
	}
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	at := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	task, err := NewRunScheduledSearchesTask(RunScheduledSearchesPayload{TriggeredAt: at})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if task.Type() != TaskRunScheduledSearches {
		t.Fatalf("type: %q", task.Type())
	}

	payload, err := ParseRunScheduledSearchesPayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !payload.TriggeredAt.Equal(at) {
		t.Fatalf("triggered at: %v", payload.TriggeredAt)
	}
}
