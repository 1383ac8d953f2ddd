// Package repository provides data access for export audit rows.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"fsbo_finder_backend/internal/listings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchResult is one export audit row. search_id is null for ad-hoc exports.
type SearchResult struct {
	ID            uuid.UUID
	SearchID      *uuid.UUID
	PropertyData  listings.Property
	ExportedToGHL bool
	GHLContactID  *string
	CreatedAt     time.Time
}

// Repository provides data access for search result audit rows.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertPending records a found property before export (exported_to_ghl=false).
func (r *Repository) InsertPending(ctx context.Context, searchID uuid.UUID, property listings.Property) (uuid.UUID, error) {
	data, err := json.Marshal(property)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx, `
		INSERT INTO search_results (search_id, property_data, exported_to_ghl)
		VALUES ($1, $2, false)
		RETURNING id
	`, searchID, data).Scan(&id)
	return id, err
}

// InsertExported records an ad-hoc export with no owning search.
func (r *Repository) InsertExported(ctx context.Context, property listings.Property, contactID string) (uuid.UUID, error) {
	data, err := json.Marshal(property)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx, `
		INSERT INTO search_results (search_id, property_data, exported_to_ghl, ghl_contact_id)
		VALUES (NULL, $1, true, $2)
		RETURNING id
	`, data, contactID).Scan(&id)
	return id, err
}

// MarkExported flips a pending row to exported and stores the contact id.
// This is the only mutation an audit row ever receives.
func (r *Repository) MarkExported(ctx context.Context, id uuid.UUID, contactID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE search_results
		SET exported_to_ghl = true, ghl_contact_id = $2
		WHERE id = $1
	`, id, contactID)
	return err
}

// ListBySearch returns the audit rows for one scheduled search, newest
// first. The join scopes the lookup to the caller's location so one tenant
// cannot read another tenant's results.
func (r *Repository) ListBySearch(ctx context.Context, searchID uuid.UUID, locationID string, limit int) ([]SearchResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sr.id, sr.search_id, sr.property_data, sr.exported_to_ghl, sr.ghl_contact_id, sr.created_at
		FROM search_results sr
		JOIN scheduled_searches s ON s.id = sr.search_id
		WHERE sr.search_id = $1 AND s.ghl_location_id = $2
		ORDER BY sr.created_at DESC
		LIMIT $3
	`, searchID, locationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]SearchResult, 0)
	for rows.Next() {
		var (
			result SearchResult
			data   []byte
		)
		if err := rows.Scan(&result.ID, &result.SearchID, &data, &result.ExportedToGHL, &result.GHLContactID, &result.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &result.PropertyData); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
