// Package handler exposes scheduled search CRUD endpoints.
package handler

import (
	"net/http"

	"fsbo_finder_backend/internal/searches/service"
	"fsbo_finder_backend/internal/searches/transport"
	"fsbo_finder_backend/platform/httpkit"
	"fsbo_finder_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidSearchID  = "invalid search id"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create registers a new scheduled search for the caller's location.
func (h *Handler) Create(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}

	var req transport.CreateSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	created, err := h.svc.Create(c.Request.Context(), locationID, req.Name, req.SearchParams, req.FrequencyDays)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromRecord(created))
}

// List returns every search of the caller's location.
func (h *Handler) List(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}

	searches, err := h.svc.List(c.Request.Context(), locationID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ListSearchesResponse{Searches: make([]transport.SearchResponse, 0, len(searches))}
	for _, s := range searches {
		resp.Searches = append(resp.Searches, transport.FromRecord(s))
	}
	httpkit.OK(c, resp)
}

// Get returns one search.
func (h *Handler) Get(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}
	id, ok := h.searchID(c)
	if !ok {
		return
	}

	search, err := h.svc.Get(c.Request.Context(), id, locationID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromRecord(search))
}

// Update rewrites a search's mutable fields.
func (h *Handler) Update(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}
	id, ok := h.searchID(c)
	if !ok {
		return
	}

	var req transport.UpdateSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), id, locationID, req.Name, req.SearchParams, req.FrequencyDays, req.Active)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromRecord(updated))
}

// SetActive pauses or resumes a search.
func (h *Handler) SetActive(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}
	id, ok := h.searchID(c)
	if !ok {
		return
	}

	var req transport.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	if err := h.svc.SetActive(c.Request.Context(), id, locationID, *req.Active); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"active": *req.Active})
}

// Delete removes a search.
func (h *Handler) Delete(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}
	id, ok := h.searchID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, locationID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.DeletedResponse{Deleted: true})
}

func (h *Handler) searchID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidSearchID, nil)
		return uuid.Nil, false
	}
	return id, true
}
