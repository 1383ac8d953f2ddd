// Package service implements the GHL OAuth token lifecycle: code exchange,
// storage, expiry tracking, refresh and per-location scoping.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"fsbo_finder_backend/internal/ghl"
	"fsbo_finder_backend/internal/tokens/repository"
	"fsbo_finder_backend/platform/apperr"
	"fsbo_finder_backend/platform/crypto"
	"fsbo_finder_backend/platform/logger"
)

const (
	// defaultMaxSearches is the scheduled-search quota for a regular location.
	defaultMaxSearches = 100
	// elevatedMaxSearches is the quota for the designated agency location.
	elevatedMaxSearches = 700
	// elevatedLocationID is the one location granted the elevated quota.
	elevatedLocationID = "5YrB6A0F3YI4XSvjfD25"

	oauthScopes = "contacts.write contacts.readonly locations.readonly"
)

// Messages for the typed errors this service returns.
const (
	msgAuthRequired      = "authentication required"
	msgTokenExpired      = "token expired"
	msgMissingLocationID = "token response is missing a location id"
	msgLocationMismatch  = "location ids do not match"
)

// OAuthClient is the subset of the GHL client the token service needs.
type OAuthClient interface {
	ExchangeCode(ctx context.Context, code string) (ghl.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (ghl.TokenResponse, error)
}

// Repository is the token persistence contract.
type Repository interface {
	Upsert(ctx context.Context, rec repository.TokenRecord) (repository.TokenRecord, error)
	GetByLocation(ctx context.Context, locationID string) (repository.TokenRecord, error)
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]repository.TokenRecord, error)
	UpdateTokens(ctx context.Context, locationID, accessToken, refreshToken string, expiresAt time.Time) error
	Delete(ctx context.Context, locationID string) error
}

// SearchDeactivator stops a location's scheduled searches on disconnect.
type SearchDeactivator interface {
	DeactivateAllForLocation(ctx context.Context, locationID string) (int, error)
}

// OAuthAppConfig carries the marketplace settings for building authorize URLs.
type OAuthAppConfig interface {
	GetGHLClientID() string
	GetGHLRedirectURI() string
	GetGHLMarketplaceBase() string
}

// Service is the single source of truth for whether a location has a usable
// access token and how to obtain one.
type Service struct {
	repo        Repository
	oauth       OAuthClient
	deactivator SearchDeactivator
	appCfg      OAuthAppConfig
	cryptoKey   []byte
	log         *logger.Logger
	now         func() time.Time
}

func New(repo Repository, oauth OAuthClient, appCfg OAuthAppConfig, cryptoKey []byte, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		oauth:     oauth,
		appCfg:    appCfg,
		cryptoKey: cryptoKey,
		log:       log,
		now:       time.Now,
	}
}

// SetSearchDeactivator wires the scheduled-search deactivation used on
// disconnect (set late to break the module dependency cycle).
func (s *Service) SetSearchDeactivator(d SearchDeactivator) {
	s.deactivator = d
}

// AuthorizeURL builds the marketplace OAuth location-chooser URL.
func (s *Service) AuthorizeURL() string {
	return fmt.Sprintf(
		"%s/oauth/chooselocation?response_type=code&client_id=%s&redirect_uri=%s&scope=%s",
		s.appCfg.GetGHLMarketplaceBase(),
		url.QueryEscape(s.appCfg.GetGHLClientID()),
		url.QueryEscape(s.appCfg.GetGHLRedirectURI()),
		url.QueryEscape(oauthScopes),
	)
}

// GetValidToken returns the decrypted access token for a location when its
// stored record has not expired. This path never refreshes: background jobs
// rely on the proactive sweep instead, so a stale record surfaces as a typed
// error the caller can count and skip.
func (s *Service) GetValidToken(ctx context.Context, locationID string) (string, error) {
	rec, err := s.repo.GetByLocation(ctx, locationID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return "", apperr.Unauthorized(msgAuthRequired).WithOp("tokens.GetValidToken")
	}
	if err != nil {
		return "", err
	}

	if !rec.ExpiresAt.After(s.now()) {
		return "", apperr.Unauthorized(msgTokenExpired).WithOp("tokens.GetValidToken")
	}

	return crypto.Decrypt(rec.AccessToken, s.cryptoKey)
}

// GetValidTokenRefreshing is the interactive-path variant: an expired record
// triggers one refresh attempt before giving up.
func (s *Service) GetValidTokenRefreshing(ctx context.Context, locationID string) (string, error) {
	token, err := s.GetValidToken(ctx, locationID)
	if err == nil {
		return token, nil
	}
	if !apperr.Is(err, apperr.KindUnauthorized) {
		return "", err
	}

	rec, repoErr := s.repo.GetByLocation(ctx, locationID)
	if repoErr != nil {
		return "", err
	}

	refreshed, refreshErr := s.Refresh(ctx, rec)
	if refreshErr != nil {
		return "", apperr.Wrap(apperr.KindUnauthorized, msgTokenExpired, refreshErr).WithOp("tokens.GetValidTokenRefreshing")
	}
	return crypto.Decrypt(refreshed.AccessToken, s.cryptoKey)
}

// ExchangeAndStore performs the one-time authorization-code exchange and
// persists the resulting token pair. sessionLocationID is the tenant already
// established for the caller's session; a response scoped to a different
// location is rejected rather than silently rebinding the session.
func (s *Service) ExchangeAndStore(ctx context.Context, code, sessionLocationID string) (repository.TokenRecord, error) {
	resp, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return repository.TokenRecord{}, apperr.Wrap(apperr.KindUnavailable, "code exchange failed", err).WithOp("tokens.ExchangeAndStore")
	}

	if resp.LocationID == "" {
		return repository.TokenRecord{}, apperr.BadRequest(msgMissingLocationID).WithOp("tokens.ExchangeAndStore")
	}
	if sessionLocationID != "" && sessionLocationID != resp.LocationID {
		return repository.TokenRecord{}, apperr.Conflict(msgLocationMismatch).WithOp("tokens.ExchangeAndStore")
	}

	return s.StoreTokens(ctx, resp)
}

// StoreTokens upserts a token record from an OAuth response. The quota is
// a policy table lookup keyed on the location id, never a negotiated value.
func (s *Service) StoreTokens(ctx context.Context, resp ghl.TokenResponse) (repository.TokenRecord, error) {
	sealedAccess, err := crypto.Encrypt(resp.AccessToken, s.cryptoKey)
	if err != nil {
		return repository.TokenRecord{}, err
	}
	sealedRefresh, err := crypto.Encrypt(resp.RefreshToken, s.cryptoKey)
	if err != nil {
		return repository.TokenRecord{}, err
	}

	rec := repository.TokenRecord{
		LocationID:       resp.LocationID,
		AccessToken:      sealedAccess,
		RefreshToken:     sealedRefresh,
		ExpiresAt:        s.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		CompanyID:        resp.CompanyID,
		MaxSearchesLimit: MaxSearchesLimitFor(resp.LocationID),
	}

	stored, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return repository.TokenRecord{}, err
	}

	s.log.Info("tokens stored", "location_id", stored.LocationID, "max_searches_limit", stored.MaxSearchesLimit)
	return stored, nil
}

// Refresh trades the record's refresh token for a new pair and persists it,
// leaving max_searches_limit untouched.
func (s *Service) Refresh(ctx context.Context, rec repository.TokenRecord) (repository.TokenRecord, error) {
	refreshToken, err := crypto.Decrypt(rec.RefreshToken, s.cryptoKey)
	if err != nil {
		return repository.TokenRecord{}, err
	}

	resp, err := s.oauth.RefreshToken(ctx, refreshToken)
	if err != nil {
		return repository.TokenRecord{}, err
	}

	sealedAccess, err := crypto.Encrypt(resp.AccessToken, s.cryptoKey)
	if err != nil {
		return repository.TokenRecord{}, err
	}
	sealedRefresh, err := crypto.Encrypt(resp.RefreshToken, s.cryptoKey)
	if err != nil {
		return repository.TokenRecord{}, err
	}

	expiresAt := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	if err := s.repo.UpdateTokens(ctx, rec.LocationID, sealedAccess, sealedRefresh, expiresAt); err != nil {
		return repository.TokenRecord{}, err
	}

	rec.AccessToken = sealedAccess
	rec.RefreshToken = sealedRefresh
	rec.ExpiresAt = expiresAt
	return rec, nil
}

// ListExpiringWithin returns records whose expiry falls inside the horizon.
func (s *Service) ListExpiringWithin(ctx context.Context, horizon time.Duration) ([]repository.TokenRecord, error) {
	return s.repo.ListExpiringBefore(ctx, s.now().Add(horizon))
}

// Status describes a location's connection state for the UI.
type Status struct {
	Connected        bool      `json:"connected"`
	ExpiresAt        time.Time `json:"expiresAt,omitempty"`
	CompanyID        string    `json:"companyId,omitempty"`
	MaxSearchesLimit int       `json:"maxSearchesLimit,omitempty"`
}

// Status reports whether a location holds a non-expired token.
func (s *Service) Status(ctx context.Context, locationID string) (Status, error) {
	rec, err := s.repo.GetByLocation(ctx, locationID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return Status{Connected: false}, nil
	}
	if err != nil {
		return Status{}, err
	}

	return Status{
		Connected:        rec.ExpiresAt.After(s.now()),
		ExpiresAt:        rec.ExpiresAt,
		CompanyID:        rec.CompanyID,
		MaxSearchesLimit: rec.MaxSearchesLimit,
	}, nil
}

// Disconnect removes the location's token record and deactivates its
// scheduled searches, so background exports stop together with the
// interactive session.
func (s *Service) Disconnect(ctx context.Context, locationID string) error {
	if s.deactivator != nil {
		deactivated, err := s.deactivator.DeactivateAllForLocation(ctx, locationID)
		if err != nil {
			return err
		}
		if deactivated > 0 {
			s.log.Info("scheduled searches deactivated on disconnect", "location_id", locationID, "count", deactivated)
		}
	}

	err := s.repo.Delete(ctx, locationID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil
	}
	return err
}

// MaxSearchesLimitFor is the quota policy table.
func MaxSearchesLimitFor(locationID string) int {
	if locationID == elevatedLocationID {
		return elevatedMaxSearches
	}
	return defaultMaxSearches
}
