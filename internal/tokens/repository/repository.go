// Package repository provides data access for per-location GHL OAuth tokens.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTokenNotFound is returned when a location has no stored token record.
var ErrTokenNotFound = errors.New("token record not found")

// TokenRecord is one stored OAuth token pair, keyed by GHL location.
// Access and refresh tokens are stored sealed (AES-GCM) by the service layer.
type TokenRecord struct {
	ID               uuid.UUID
	LocationID       string
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	CompanyID        string
	MaxSearchesLimit int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Repository provides data access for token records.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tokenColumns = `id, location_id, access_token, refresh_token, expires_at, company_id, max_searches_limit, created_at, updated_at`

// Upsert stores a token record keyed by location_id. At most one record per
// location exists; a second store overwrites tokens, expiry, company and limit.
func (r *Repository) Upsert(ctx context.Context, rec TokenRecord) (TokenRecord, error) {
	var stored TokenRecord
	err := r.pool.QueryRow(ctx, `
		INSERT INTO ghl_service_tokens (location_id, access_token, refresh_token, expires_at, company_id, max_searches_limit)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (location_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			company_id = EXCLUDED.company_id,
			max_searches_limit = EXCLUDED.max_searches_limit,
			updated_at = now()
		RETURNING `+tokenColumns+`
	`, rec.LocationID, rec.AccessToken, rec.RefreshToken, rec.ExpiresAt, rec.CompanyID, rec.MaxSearchesLimit).Scan(
		&stored.ID, &stored.LocationID, &stored.AccessToken, &stored.RefreshToken, &stored.ExpiresAt,
		&stored.CompanyID, &stored.MaxSearchesLimit, &stored.CreatedAt, &stored.UpdatedAt,
	)
	return stored, err
}

// GetByLocation returns the token record for a location.
func (r *Repository) GetByLocation(ctx context.Context, locationID string) (TokenRecord, error) {
	var rec TokenRecord
	err := r.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM ghl_service_tokens
		WHERE location_id = $1
	`, locationID).Scan(
		&rec.ID, &rec.LocationID, &rec.AccessToken, &rec.RefreshToken, &rec.ExpiresAt,
		&rec.CompanyID, &rec.MaxSearchesLimit, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return TokenRecord{}, ErrTokenNotFound
	}
	return rec, err
}

// ListExpiringBefore returns every token record expiring before the cutoff,
// soonest first. Used by the proactive refresh sweep.
func (r *Repository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]TokenRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tokenColumns+`
		FROM ghl_service_tokens
		WHERE expires_at < $1
		ORDER BY expires_at ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]TokenRecord, 0)
	for rows.Next() {
		var rec TokenRecord
		if err := rows.Scan(
			&rec.ID, &rec.LocationID, &rec.AccessToken, &rec.RefreshToken, &rec.ExpiresAt,
			&rec.CompanyID, &rec.MaxSearchesLimit, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateTokens replaces the token pair and expiry for a location. The
// max_searches_limit column is deliberately untouched: a refresh must never
// reset the tenant's quota.
func (r *Repository) UpdateTokens(ctx context.Context, locationID, accessToken, refreshToken string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ghl_service_tokens
		SET access_token = $2, refresh_token = $3, expires_at = $4, updated_at = now()
		WHERE location_id = $1
	`, locationID, accessToken, refreshToken, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// Delete removes a location's token record.
func (r *Repository) Delete(ctx context.Context, locationID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM ghl_service_tokens WHERE location_id = $1
	`, locationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// MaxSearchesLimit returns the quota for a location, or the fallback when no
// token record exists yet.
func (r *Repository) MaxSearchesLimit(ctx context.Context, locationID string, fallback int) (int, error) {
	var limit int
	err := r.pool.QueryRow(ctx, `
		SELECT max_searches_limit FROM ghl_service_tokens WHERE location_id = $1
	`, locationID).Scan(&limit)
	if errors.Is(err, pgx.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	return limit, nil
}
