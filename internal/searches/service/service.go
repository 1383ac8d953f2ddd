// Package service implements scheduled search management: quota-guarded
// creation, schedule bookkeeping and tenant-scoped CRUD.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fsbo_finder_backend/internal/listings"
	"fsbo_finder_backend/internal/searches/repository"
	tokenservice "fsbo_finder_backend/internal/tokens/service"
	"fsbo_finder_backend/platform/apperr"
	"fsbo_finder_backend/platform/logger"
)

const (
	msgSearchNotFound = "scheduled search not found"
	msgQuotaExceeded  = "maximum number of scheduled searches reached"
)

// Repository is the scheduled search persistence contract.
type Repository interface {
	CreateIfUnderLimit(ctx context.Context, s repository.ScheduledSearch, limit int) (repository.ScheduledSearch, error)
	GetByID(ctx context.Context, id uuid.UUID, locationID string) (repository.ScheduledSearch, error)
	ListByLocation(ctx context.Context, locationID string) ([]repository.ScheduledSearch, error)
	Update(ctx context.Context, s repository.ScheduledSearch) (repository.ScheduledSearch, error)
	SetActive(ctx context.Context, id uuid.UUID, locationID string, active bool) error
	Delete(ctx context.Context, id uuid.UUID, locationID string) error
	DeactivateAllForLocation(ctx context.Context, locationID string) (int, error)
}

// QuotaSource resolves a location's search quota. The stored per-location
// limit wins; the policy fallback applies to locations connected before
// limits were recorded.
type QuotaSource interface {
	MaxSearchesLimit(ctx context.Context, locationID string, fallback int) (int, error)
}

type Service struct {
	repo  Repository
	quota QuotaSource
	log   *logger.Logger
	now   func() time.Time
}

func New(repo Repository, quota QuotaSource, log *logger.Logger) *Service {
	return &Service{repo: repo, quota: quota, log: log, now: time.Now}
}

// Create registers a new scheduled search, due immediately, unless the
// location is already at its quota.
func (s *Service) Create(ctx context.Context, locationID, name string, params listings.SearchParams, frequencyDays int) (repository.ScheduledSearch, error) {
	limit, err := s.quota.MaxSearchesLimit(ctx, locationID, tokenservice.MaxSearchesLimitFor(locationID))
	if err != nil {
		return repository.ScheduledSearch{}, err
	}

	search := repository.ScheduledSearch{
		LocationID:    locationID,
		Name:          name,
		SearchParams:  params,
		FrequencyDays: frequencyDays,
		NextRun:       s.now(),
	}

	created, err := s.repo.CreateIfUnderLimit(ctx, search, limit)
	if errors.Is(err, repository.ErrQuotaExceeded) {
		return repository.ScheduledSearch{}, apperr.Quota(msgQuotaExceeded).
			WithOp("searches.Create").
			WithDetails(map[string]interface{}{"limit": limit})
	}
	if err != nil {
		return repository.ScheduledSearch{}, err
	}

	s.log.Info("scheduled search created",
		"search_id", created.ID.String(),
		"location_id", locationID,
		"frequency_days", frequencyDays,
	)
	return created, nil
}

// Get returns one search scoped to the caller's location.
func (s *Service) Get(ctx context.Context, id uuid.UUID, locationID string) (repository.ScheduledSearch, error) {
	search, err := s.repo.GetByID(ctx, id, locationID)
	if errors.Is(err, repository.ErrSearchNotFound) {
		return repository.ScheduledSearch{}, apperr.NotFound(msgSearchNotFound).WithOp("searches.Get")
	}
	return search, err
}

// List returns all of the location's searches.
func (s *Service) List(ctx context.Context, locationID string) ([]repository.ScheduledSearch, error) {
	return s.repo.ListByLocation(ctx, locationID)
}

// Update rewrites name, params and frequency. A frequency change reschedules
// the next run relative to the last run, or to now for a search that has
// never run.
func (s *Service) Update(ctx context.Context, id uuid.UUID, locationID, name string, params listings.SearchParams, frequencyDays int, active bool) (repository.ScheduledSearch, error) {
	current, err := s.Get(ctx, id, locationID)
	if err != nil {
		return repository.ScheduledSearch{}, err
	}

	nextRun := current.NextRun
	if frequencyDays != current.FrequencyDays {
		base := s.now()
		if current.LastRun != nil {
			base = *current.LastRun
		}
		nextRun = base.AddDate(0, 0, frequencyDays)
	}

	current.Name = name
	current.SearchParams = params
	current.FrequencyDays = frequencyDays
	current.NextRun = nextRun
	current.Active = active

	updated, err := s.repo.Update(ctx, current)
	if errors.Is(err, repository.ErrSearchNotFound) {
		return repository.ScheduledSearch{}, apperr.NotFound(msgSearchNotFound).WithOp("searches.Update")
	}
	return updated, err
}

// SetActive pauses or resumes a search.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, locationID string, active bool) error {
	err := s.repo.SetActive(ctx, id, locationID, active)
	if errors.Is(err, repository.ErrSearchNotFound) {
		return apperr.NotFound(msgSearchNotFound).WithOp("searches.SetActive")
	}
	return err
}

// Delete removes a search permanently.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, locationID string) error {
	err := s.repo.Delete(ctx, id, locationID)
	if errors.Is(err, repository.ErrSearchNotFound) {
		return apperr.NotFound(msgSearchNotFound).WithOp("searches.Delete")
	}
	return err
}

// DeactivateAllForLocation implements the disconnect hook: every active
// search of the location is stopped.
func (s *Service) DeactivateAllForLocation(ctx context.Context, locationID string) (int, error) {
	count, err := s.repo.DeactivateAllForLocation(ctx, locationID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("scheduled searches deactivated", "location_id", locationID, "count", count)
	}
	return count, nil
}
