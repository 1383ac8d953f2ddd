// Package handler exposes direct lead export endpoints for the UI's
// "export now" flows.
package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"fsbo_finder_backend/internal/exports/repository"
	"fsbo_finder_backend/internal/exports/service"
	"fsbo_finder_backend/internal/exports/transport"
	"fsbo_finder_backend/platform/httpkit"
	"fsbo_finder_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidSearchID  = "invalid search id"

	defaultResultsLimit = 50
	maxResultsLimit     = 200
)

type Handler struct {
	exporter *service.Exporter
	results  *repository.Repository
	val      *validator.Validator
}

func New(exporter *service.Exporter, results *repository.Repository, val *validator.Validator) *Handler {
	return &Handler{exporter: exporter, results: results, val: val}
}

// ExportProperty exports one property to GHL for the caller's location.
func (h *Handler) ExportProperty(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}

	var req transport.ExportPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	contactID, err := h.exporter.ExportProperty(c.Request.Context(), locationID, service.BatchItem{Property: req.Property})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ExportPropertyResponse{
		Message:   "property exported",
		ContactID: contactID,
	})
}

// ExportBatch exports a list of properties sequentially. Partial failure is
// still a 200: the response carries the per-item errors.
func (h *Handler) ExportBatch(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}

	var req transport.ExportBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	items := make([]service.BatchItem, len(req.Properties))
	for i, p := range req.Properties {
		items[i] = service.BatchItem{Property: p}
	}

	result := h.exporter.ExportBatch(c.Request.Context(), locationID, items, nil)

	resp := transport.ExportBatchResponse{
		Exported: result.Exported,
		Total:    result.Total,
	}
	switch {
	case result.Exported == result.Total:
		resp.Message = fmt.Sprintf("exported %d properties", result.Total)
	case result.Exported > 0:
		resp.Message = fmt.Sprintf("exported %d of %d properties", result.Exported, result.Total)
		resp.Errors = result.Errors
	default:
		resp.Message = "export failed"
		resp.Errors = result.Errors
	}

	httpkit.OK(c, resp)
}

// ListResults returns the audit rows recorded for one scheduled search,
// newest first.
func (h *Handler) ListResults(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}

	searchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidSearchID, nil)
		return
	}

	limit := defaultResultsLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= maxResultsLimit {
			limit = n
		}
	}

	results, err := h.results.ListBySearch(c.Request.Context(), searchID, locationID, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ListResultsResponse{Results: make([]transport.SearchResultResponse, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, transport.FromResult(r))
	}
	httpkit.OK(c, resp)
}
