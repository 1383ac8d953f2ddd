package transport

import "time"

type CallbackRequest struct {
	Code       string `form:"code" validate:"required"`
	LocationID string `form:"locationId" validate:"omitempty"`
}

type CallbackResponse struct {
	LocationID       string    `json:"locationId"`
	CompanyID        string    `json:"companyId"`
	ExpiresAt        time.Time `json:"expiresAt"`
	MaxSearchesLimit int       `json:"maxSearchesLimit"`
}

type AuthorizeURLResponse struct {
	URL string `json:"url"`
}

type DisconnectResponse struct {
	Disconnected bool `json:"disconnected"`
}
