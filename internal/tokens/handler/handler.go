// Package handler exposes the GHL OAuth connection endpoints.
package handler

import (
	"net/http"

	"fsbo_finder_backend/internal/tokens/service"
	"fsbo_finder_backend/internal/tokens/transport"
	"fsbo_finder_backend/platform/httpkit"
	"fsbo_finder_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// AuthorizeURL returns the marketplace OAuth chooselocation URL.
func (h *Handler) AuthorizeURL(c *gin.Context) {
	httpkit.OK(c, transport.AuthorizeURLResponse{URL: h.svc.AuthorizeURL()})
}

// Callback completes the OAuth code exchange. When the session already has a
// location bound, the exchanged token must belong to that same location.
func (h *Handler) Callback(c *gin.Context) {
	var req transport.CallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	sessionLocation := req.LocationID
	if bound, ok := c.Get(httpkit.ContextLocationIDKey); ok {
		if boundID, ok := bound.(string); ok && boundID != "" {
			sessionLocation = boundID
		}
	}

	rec, err := h.svc.ExchangeAndStore(c.Request.Context(), req.Code, sessionLocation)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.CallbackResponse{
		LocationID:       rec.LocationID,
		CompanyID:        rec.CompanyID,
		ExpiresAt:        rec.ExpiresAt,
		MaxSearchesLimit: rec.MaxSearchesLimit,
	})
}

// Status reports the connection state for the caller's location.
func (h *Handler) Status(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}

	status, err := h.svc.Status(c.Request.Context(), locationID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, status)
}

// Disconnect removes the stored token and deactivates the location's
// scheduled searches.
func (h *Handler) Disconnect(c *gin.Context) {
	locationID, ok := httpkit.LocationID(c)
	if !ok {
		return
	}

	if err := h.svc.Disconnect(c.Request.Context(), locationID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.DisconnectResponse{Disconnected: true})
}
