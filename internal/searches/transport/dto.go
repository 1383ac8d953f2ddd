// Package transport defines request/response DTOs for the searches module.
package transport

import (
	"time"

	"fsbo_finder_backend/internal/listings"
	"fsbo_finder_backend/internal/searches/repository"
)

// CreateSearchRequest registers a new scheduled search.
type CreateSearchRequest struct {
	Name          string                `json:"name" validate:"required,max=200"`
	SearchParams  listings.SearchParams `json:"search_params" validate:"required"`
	FrequencyDays int                   `json:"frequency_days" validate:"required,min=1,max=365"`
}

// UpdateSearchRequest rewrites a search's mutable fields.
type UpdateSearchRequest struct {
	Name          string                `json:"name" validate:"required,max=200"`
	SearchParams  listings.SearchParams `json:"search_params" validate:"required"`
	FrequencyDays int                   `json:"frequency_days" validate:"required,min=1,max=365"`
	Active        bool                  `json:"active"`
}

// SetActiveRequest pauses or resumes a search.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// SearchResponse is the wire form of a scheduled search.
type SearchResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	SearchParams  listings.SearchParams `json:"search_params"`
	FrequencyDays int                   `json:"frequency_days"`
	LastRun       *time.Time            `json:"last_run"`
	NextRun       time.Time             `json:"next_run"`
	Active        bool                  `json:"active"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// ListSearchesResponse wraps the location's searches.
type ListSearchesResponse struct {
	Searches []SearchResponse `json:"searches"`
}

// DeletedResponse confirms a deletion.
type DeletedResponse struct {
	Deleted bool `json:"deleted"`
}

// FromRecord maps a stored search onto its wire form.
func FromRecord(s repository.ScheduledSearch) SearchResponse {
	return SearchResponse{
		ID:            s.ID.String(),
		Name:          s.Name,
		SearchParams:  s.SearchParams,
		FrequencyDays: s.FrequencyDays,
		LastRun:       s.LastRun,
		NextRun:       s.NextRun,
		Active:        s.Active,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
