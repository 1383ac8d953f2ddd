package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"fsbo_finder_backend/internal/listings"
	"fsbo_finder_backend/internal/searches/repository"
	"fsbo_finder_backend/platform/apperr"
	"fsbo_finder_backend/platform/logger"
)

type fakeSearchRepo struct {
	searches map[uuid.UUID]repository.ScheduledSearch
	gotLimit int
}

func newFakeSearchRepo() *fakeSearchRepo {
	return &fakeSearchRepo{searches: make(map[uuid.UUID]repository.ScheduledSearch)}
}

// activeCountFor mirrors the guard in the SQL repository: only active rows
// count against quota.
func (r *fakeSearchRepo) activeCountFor(locationID string) int {
	count := 0
	for _, s := range r.searches {
		if s.LocationID == locationID && s.Active {
			count++
		}
	}
	return count
}

func (r *fakeSearchRepo) CreateIfUnderLimit(_ context.Context, s repository.ScheduledSearch, limit int) (repository.ScheduledSearch, error) {
	r.gotLimit = limit
	if r.activeCountFor(s.LocationID) >= limit {
		return repository.ScheduledSearch{}, repository.ErrQuotaExceeded
	}
	s.ID = uuid.New()
	s.Active = true
	r.searches[s.ID] = s
	return s, nil
}

func (r *fakeSearchRepo) GetByID(_ context.Context, id uuid.UUID, locationID string) (repository.ScheduledSearch, error) {
	s, ok := r.searches[id]
	if !ok || s.LocationID != locationID {
		return repository.ScheduledSearch{}, repository.ErrSearchNotFound
	}
	return s, nil
}

func (r *fakeSearchRepo) ListByLocation(_ context.Context, locationID string) ([]repository.ScheduledSearch, error) {
	out := make([]repository.ScheduledSearch, 0)
	for _, s := range r.searches {
		if s.LocationID == locationID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSearchRepo) Update(_ context.Context, s repository.ScheduledSearch) (repository.ScheduledSearch, error) {
	if _, ok := r.searches[s.ID]; !ok {
		return repository.ScheduledSearch{}, repository.ErrSearchNotFound
	}
	r.searches[s.ID] = s
	return s, nil
}

func (r *fakeSearchRepo) SetActive(_ context.Context, id uuid.UUID, locationID string, active bool) error {
	s, ok := r.searches[id]
	if !ok || s.LocationID != locationID {
		return repository.ErrSearchNotFound
	}
	s.Active = active
	r.searches[id] = s
	return nil
}

func (r *fakeSearchRepo) Delete(_ context.Context, id uuid.UUID, locationID string) error {
	s, ok := r.searches[id]
	if !ok || s.LocationID != locationID {
		return repository.ErrSearchNotFound
	}
	delete(r.searches, id)
	return nil
}

func (r *fakeSearchRepo) DeactivateAllForLocation(_ context.Context, locationID string) (int, error) {
	count := 0
	for id, s := range r.searches {
		if s.LocationID == locationID && s.Active {
			s.Active = false
			r.searches[id] = s
			count++
		}
	}
	return count, nil
}

type fakeQuota struct {
	stored map[string]int
}

func (q fakeQuota) MaxSearchesLimit(_ context.Context, locationID string, fallback int) (int, error) {
	if limit, ok := q.stored[locationID]; ok {
		return limit, nil
	}
	return fallback, nil
}

func newTestSearchService(repo Repository, quota QuotaSource) *Service {
	return New(repo, quota, logger.New("development"))
}

func testParams() listings.SearchParams {
	return listings.SearchParams{Location: "Austin, TX", State: "TX"}
}

func TestCreateUnderLimit(t *testing.T) {
	repo := newFakeSearchRepo()
	svc := newTestSearchService(repo, fakeQuota{})

	created, err := svc.Create(context.Background(), "loc-1", "austin houses", testParams(), 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.Active {
		t.Fatal("expected new search active")
	}
	if created.NextRun.After(time.Now().Add(time.Second)) {
		t.Fatal("expected new search due immediately")
	}
	if repo.gotLimit != 100 {
		t.Fatalf("expected policy fallback limit 100, got %d", repo.gotLimit)
	}
}

func TestCreateUsesStoredQuota(t *testing.T) {
	repo := newFakeSearchRepo()
	svc := newTestSearchService(repo, fakeQuota{stored: map[string]int{"loc-1": 2}})

	if _, err := svc.Create(context.Background(), "loc-1", "one", testParams(), 7); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(context.Background(), "loc-1", "two", testParams(), 7); err != nil {
		t.Fatalf("second create: %v", err)
	}

	_, err := svc.Create(context.Background(), "loc-1", "three", testParams(), 7)
	if !apperr.Is(err, apperr.KindQuota) {
		t.Fatalf("expected quota error, got %v", err)
	}

	appErr := err.(*apperr.Error)
	details, ok := appErr.Details.(map[string]interface{})
	if !ok || details["limit"] != 2 {
		t.Fatalf("expected limit in details, got %v", appErr.Details)
	}
}

func TestDeactivatedSearchesFreeQuota(t *testing.T) {
	repo := newFakeSearchRepo()
	svc := newTestSearchService(repo, fakeQuota{stored: map[string]int{"loc-1": 2}})

	first, err := svc.Create(context.Background(), "loc-1", "one", testParams(), 7)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(context.Background(), "loc-1", "two", testParams(), 7); err != nil {
		t.Fatalf("second create: %v", err)
	}

	if err := svc.SetActive(context.Background(), first.ID, "loc-1", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.Create(context.Background(), "loc-1", "three", testParams(), 7); err != nil {
		t.Fatalf("expected create to succeed with a deactivated search, got %v", err)
	}
}

func TestUpdateFrequencyReschedulesFromLastRun(t *testing.T) {
	repo := newFakeSearchRepo()
	svc := newTestSearchService(repo, fakeQuota{})

	created, err := svc.Create(context.Background(), "loc-1", "austin", testParams(), 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	lastRun := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	stored := repo.searches[created.ID]
	stored.LastRun = &lastRun
	repo.searches[created.ID] = stored

	updated, err := svc.Update(context.Background(), created.ID, "loc-1", "austin", testParams(), 3, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := lastRun.AddDate(0, 0, 3)
	if !updated.NextRun.Equal(want) {
		t.Fatalf("expected next run %v, got %v", want, updated.NextRun)
	}
}

func TestGetScopedToLocation(t *testing.T) {
	repo := newFakeSearchRepo()
	svc := newTestSearchService(repo, fakeQuota{})

	created, err := svc.Create(context.Background(), "loc-1", "austin", testParams(), 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Get(context.Background(), created.ID, "loc-other")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
}

func TestDeactivateAllForLocation(t *testing.T) {
	repo := newFakeSearchRepo()
	svc := newTestSearchService(repo, fakeQuota{})

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), "loc-1", "s", testParams(), 7); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	count, err := svc.DeactivateAllForLocation(context.Background(), "loc-1")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 deactivated, got %d", count)
	}
	for _, s := range repo.searches {
		if s.Active {
			t.Fatal("expected every search inactive")
		}
	}
}
