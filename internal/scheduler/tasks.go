// Package scheduler runs the background job pipeline on asynq: ticker
// dispatchers enqueue tasks into redis, the worker consumes them and drives
// the runner and refresher.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskRunScheduledSearches = "searches.run_due"

const TaskRefreshTokens = "tokens.refresh_expiring"

type RunScheduledSearchesPayload struct {
	TriggeredAt time.Time `json:"triggeredAt"`
}

type RefreshTokensPayload struct {
	TriggeredAt time.Time `json:"triggeredAt"`
}

func NewRunScheduledSearchesTask(payload RunScheduledSearchesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRunScheduledSearches, data), nil
}

func ParseRunScheduledSearchesPayload(task *asynq.Task) (RunScheduledSearchesPayload, error) {
	var payload RunScheduledSearchesPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RunScheduledSearchesPayload{}, err
	}
	return payload, nil
}

func NewRefreshTokensTask(payload RefreshTokensPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefreshTokens, data), nil
}

func ParseRefreshTokensPayload(task *asynq.Task) (RefreshTokensPayload, error) {
	var payload RefreshTokensPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RefreshTokensPayload{}, err
	}
	return payload, nil
}
