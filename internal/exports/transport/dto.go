// Package transport defines request/response DTOs for the exports module.
package transport

import (
	"time"

	"fsbo_finder_backend/internal/exports/repository"
	"fsbo_finder_backend/internal/listings"
)

// ExportPropertyRequest asks for a single property export.
type ExportPropertyRequest struct {
	Property listings.Property `json:"property" validate:"required"`
}

// ExportPropertyResponse reports the resulting CRM contact.
type ExportPropertyResponse struct {
	Message   string `json:"message"`
	ContactID string `json:"contact_id"`
}

// ExportBatchRequest asks for a sequential export of multiple properties.
type ExportBatchRequest struct {
	Properties []listings.Property `json:"properties" validate:"required,min=1"`
}

// ExportBatchResponse summarizes the batch outcome. Errors is present only
// when at least one property failed.
type ExportBatchResponse struct {
	Message  string      `json:"message"`
	Exported int         `json:"exported"`
	Total    int         `json:"total"`
	Errors   interface{} `json:"errors,omitempty"`
}

// SearchResultResponse is one audit row in a results listing.
type SearchResultResponse struct {
	ID           string            `json:"id"`
	SearchID     *string           `json:"search_id"`
	Property     listings.Property `json:"property"`
	Exported     bool              `json:"exported"`
	GHLContactID *string           `json:"ghl_contact_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ListResultsResponse wraps the audit rows of one scheduled search.
type ListResultsResponse struct {
	Results []SearchResultResponse `json:"results"`
}

// FromResult maps a repository row to its response shape.
func FromResult(r repository.SearchResult) SearchResultResponse {
	resp := SearchResultResponse{
		ID:           r.ID.String(),
		Property:     r.PropertyData,
		Exported:     r.ExportedToGHL,
		GHLContactID: r.GHLContactID,
		CreatedAt:    r.CreatedAt,
	}
	if r.SearchID != nil {
		id := r.SearchID.String()
		resp.SearchID = &id
	}
	return resp
}
