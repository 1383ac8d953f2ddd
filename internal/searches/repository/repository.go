// Package repository provides data access for scheduled searches.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fsbo_finder_backend/internal/listings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSearchNotFound = errors.New("scheduled search not found")
	// ErrQuotaExceeded means the location already holds its maximum number
	// of searches; the conditional insert matched no row.
	ErrQuotaExceeded = errors.New("scheduled search quota exceeded")
)

// ScheduledSearch is one recurring saved search.
type ScheduledSearch struct {
	ID            uuid.UUID
	LocationID    string
	Name          string
	SearchParams  listings.SearchParams
	FrequencyDays int
	LastRun       *time.Time
	NextRun       time.Time
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const searchColumns = `id, ghl_location_id, name, search_params, frequency_days, last_run, next_run, active, created_at, updated_at`

// Repository provides data access for scheduled search operations.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateIfUnderLimit inserts a search only while the location's count of
// active searches is below limit. Deactivated searches do not consume quota.
// The count and the insert happen in one statement so concurrent creates
// cannot both slip under the quota.
func (r *Repository) CreateIfUnderLimit(ctx context.Context, s ScheduledSearch, limit int) (ScheduledSearch, error) {
	params, err := json.Marshal(s.SearchParams)
	if err != nil {
		return ScheduledSearch{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO scheduled_searches (ghl_location_id, name, search_params, frequency_days, next_run, active)
		SELECT $1, $2, $3, $4, $5, true
		WHERE (SELECT COUNT(*) FROM scheduled_searches WHERE ghl_location_id = $1 AND active = true) < $6
		RETURNING `+searchColumns+`
	`, s.LocationID, s.Name, params, s.FrequencyDays, s.NextRun, limit)

	created, err := scanSearch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScheduledSearch{}, ErrQuotaExceeded
	}
	return created, err
}

// GetByID fetches one search scoped to its owning location.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, locationID string) (ScheduledSearch, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+searchColumns+`
		FROM scheduled_searches
		WHERE id = $1 AND ghl_location_id = $2
	`, id, locationID)

	s, err := scanSearch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScheduledSearch{}, ErrSearchNotFound
	}
	return s, err
}

// ListByLocation returns all of a location's searches, newest first.
func (r *Repository) ListByLocation(ctx context.Context, locationID string) ([]ScheduledSearch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+searchColumns+`
		FROM scheduled_searches
		WHERE ghl_location_id = $1
		ORDER BY created_at DESC
	`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSearches(rows)
}

// Update rewrites a search's mutable fields.
func (r *Repository) Update(ctx context.Context, s ScheduledSearch) (ScheduledSearch, error) {
	params, err := json.Marshal(s.SearchParams)
	if err != nil {
		return ScheduledSearch{}, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE scheduled_searches
		SET name = $3, search_params = $4, frequency_days = $5, next_run = $6, active = $7, updated_at = NOW()
		WHERE id = $1 AND ghl_location_id = $2
		RETURNING `+searchColumns+`
	`, s.ID, s.LocationID, s.Name, params, s.FrequencyDays, s.NextRun, s.Active)

	updated, err := scanSearch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScheduledSearch{}, ErrSearchNotFound
	}
	return updated, err
}

// SetActive toggles a search without touching its schedule.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, locationID string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduled_searches
		SET active = $3, updated_at = NOW()
		WHERE id = $1 AND ghl_location_id = $2
	`, id, locationID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSearchNotFound
	}
	return nil
}

// Delete removes a search scoped to its owning location.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, locationID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM scheduled_searches
		WHERE id = $1 AND ghl_location_id = $2
	`, id, locationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSearchNotFound
	}
	return nil
}

// ListDue returns active searches whose next_run has passed, most overdue
// first. The runner asks for limit 1: one search per tick.
func (r *Repository) ListDue(ctx context.Context, now time.Time, limit int) ([]ScheduledSearch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+searchColumns+`
		FROM scheduled_searches
		WHERE active = true AND next_run <= $1
		ORDER BY next_run ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSearches(rows)
}

// CountDue reports how many active searches are currently due.
func (r *Repository) CountDue(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM scheduled_searches
		WHERE active = true AND next_run <= $1
	`, now).Scan(&count)
	return count, err
}

// MarkRun advances a search's schedule after a run attempt.
func (r *Repository) MarkRun(ctx context.Context, id uuid.UUID, lastRun, nextRun time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_searches
		SET last_run = $2, next_run = $3, updated_at = NOW()
		WHERE id = $1
	`, id, lastRun, nextRun)
	return err
}

// DeactivateAllForLocation stops every active search of a location and
// returns how many were stopped. Used when the location disconnects its CRM.
func (r *Repository) DeactivateAllForLocation(ctx context.Context, locationID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduled_searches
		SET active = false, updated_at = NOW()
		WHERE ghl_location_id = $1 AND active = true
	`, locationID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanSearch(row pgx.Row) (ScheduledSearch, error) {
	var (
		s      ScheduledSearch
		params []byte
	)
	err := row.Scan(&s.ID, &s.LocationID, &s.Name, &params, &s.FrequencyDays,
		&s.LastRun, &s.NextRun, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return ScheduledSearch{}, err
	}
	if err := json.Unmarshal(params, &s.SearchParams); err != nil {
		return ScheduledSearch{}, err
	}
	return s, nil
}

func scanSearches(rows pgx.Rows) ([]ScheduledSearch, error) {
	searches := make([]ScheduledSearch, 0)
	for rows.Next() {
		s, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}
