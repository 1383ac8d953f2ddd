package service

import (
	"context"
	"testing"
	"time"

	"fsbo_finder_backend/internal/ghl"
	"fsbo_finder_backend/internal/tokens/repository"
	"fsbo_finder_backend/platform/apperr"
	"fsbo_finder_backend/platform/crypto"
	"fsbo_finder_backend/platform/logger"
)

var testCryptoKey = []byte("0123456789abcdef0123456789abcdef")

type fakeRepo struct {
	records map[string]repository.TokenRecord
	deleted []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]repository.TokenRecord)}
}

func (r *fakeRepo) Upsert(_ context.Context, rec repository.TokenRecord) (repository.TokenRecord, error) {
	if existing, ok := r.records[rec.LocationID]; ok {
		rec.ID = existing.ID
	}
	r.records[rec.LocationID] = rec
	return rec, nil
}

func (r *fakeRepo) GetByLocation(_ context.Context, locationID string) (repository.TokenRecord, error) {
	rec, ok := r.records[locationID]
	if !ok {
		return repository.TokenRecord{}, repository.ErrTokenNotFound
	}
	return rec, nil
}

func (r *fakeRepo) ListExpiringBefore(_ context.Context, cutoff time.Time) ([]repository.TokenRecord, error) {
	out := make([]repository.TokenRecord, 0)
	for _, rec := range r.records {
		if rec.ExpiresAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateTokens(_ context.Context, locationID, accessToken, refreshToken string, expiresAt time.Time) error {
	rec, ok := r.records[locationID]
	if !ok {
		return repository.ErrTokenNotFound
	}
	rec.AccessToken = accessToken
	rec.RefreshToken = refreshToken
	rec.ExpiresAt = expiresAt
	r.records[locationID] = rec
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, locationID string) error {
	if _, ok := r.records[locationID]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(r.records, locationID)
	r.deleted = append(r.deleted, locationID)
	return nil
}

type fakeOAuth struct {
	exchangeResp ghl.TokenResponse
	exchangeErr  error
	refreshResp  ghl.TokenResponse
	refreshErr   error
	refreshCalls int
}

func (o *fakeOAuth) ExchangeCode(_ context.Context, _ string) (ghl.TokenResponse, error) {
	return o.exchangeResp, o.exchangeErr
}

func (o *fakeOAuth) RefreshToken(_ context.Context, _ string) (ghl.TokenResponse, error) {
	o.refreshCalls++
	return o.refreshResp, o.refreshErr
}

type fakeAppConfig struct{}

func (fakeAppConfig) GetGHLClientID() string        { return "client-id" }
func (fakeAppConfig) GetGHLRedirectURI() string     { return "https://app.example.com/callback" }
func (fakeAppConfig) GetGHLMarketplaceBase() string { return "https://marketplace.example.com" }

type fakeDeactivator struct {
	calls []string
	count int
}

func (d *fakeDeactivator) DeactivateAllForLocation(_ context.Context, locationID string) (int, error) {
	d.calls = append(d.calls, locationID)
	return d.count, nil
}

func newTestService(repo Repository, oauth OAuthClient) *Service {
	return New(repo, oauth, fakeAppConfig{}, testCryptoKey, logger.New("development"))
}

func TestMaxSearchesLimitForPolicyTable(t *testing.T) {
	if got := MaxSearchesLimitFor("5YrB6A0F3YI4XSvjfD25"); got != 700 {
		t.Fatalf("expected elevated quota 700, got %d", got)
	}
	if got := MaxSearchesLimitFor("someOtherLocation"); got != 100 {
		t.Fatalf("expected default quota 100, got %d", got)
	}
}

func TestExchangeAndStoreAssignsQuota(t *testing.T) {
	repo := newFakeRepo()
	oauth := &fakeOAuth{exchangeResp: ghl.TokenResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    86400,
		LocationID:   "loc-1",
		CompanyID:    "comp-1",
	}}
	svc := newTestService(repo, oauth)

	rec, err := svc.ExchangeAndStore(context.Background(), "code", "")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if rec.MaxSearchesLimit != 100 {
		t.Fatalf("expected default quota, got %d", rec.MaxSearchesLimit)
	}
	if rec.AccessToken == "access" {
		t.Fatal("expected access token to be sealed at rest")
	}
}

func TestExchangeAndStoreMissingLocationID(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeOAuth{exchangeResp: ghl.TokenResponse{AccessToken: "a", RefreshToken: "r"}})

	_, err := svc.ExchangeAndStore(context.Background(), "code", "")
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestExchangeAndStoreTenantMismatch(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeOAuth{exchangeResp: ghl.TokenResponse{
		AccessToken: "a", RefreshToken: "r", LocationID: "loc-other",
	}})

	_, err := svc.ExchangeAndStore(context.Background(), "code", "loc-session")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestStoreTokensUpsertIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeOAuth{})

	resp := ghl.TokenResponse{AccessToken: "a1", RefreshToken: "r1", ExpiresIn: 3600, LocationID: "loc-1"}
	if _, err := svc.StoreTokens(context.Background(), resp); err != nil {
		t.Fatalf("first store: %v", err)
	}
	resp.AccessToken = "a2"
	if _, err := svc.StoreTokens(context.Background(), resp); err != nil {
		t.Fatalf("second store: %v", err)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected one record per location, got %d", len(repo.records))
	}
}

func TestGetValidTokenExpired(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeOAuth{})

	sealed, _ := crypto.Encrypt("stale", testCryptoKey)
	repo.records["loc-1"] = repository.TokenRecord{
		LocationID:  "loc-1",
		AccessToken: sealed,
		ExpiresAt:   time.Now().Add(-time.Minute),
	}

	_, err := svc.GetValidToken(context.Background(), "loc-1")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestGetValidTokenNotConnected(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeOAuth{})

	_, err := svc.GetValidToken(context.Background(), "loc-missing")
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestGetValidTokenRefreshingRecoversExpired(t *testing.T) {
	repo := newFakeRepo()
	oauth := &fakeOAuth{refreshResp: ghl.TokenResponse{
		AccessToken: "fresh-access", RefreshToken: "fresh-refresh", ExpiresIn: 86400, LocationID: "loc-1",
	}}
	svc := newTestService(repo, oauth)

	sealedAccess, _ := crypto.Encrypt("stale-access", testCryptoKey)
	sealedRefresh, _ := crypto.Encrypt("old-refresh", testCryptoKey)
	repo.records["loc-1"] = repository.TokenRecord{
		LocationID:   "loc-1",
		AccessToken:  sealedAccess,
		RefreshToken: sealedRefresh,
		ExpiresAt:    time.Now().Add(-time.Minute),
	}

	token, err := svc.GetValidTokenRefreshing(context.Background(), "loc-1")
	if err != nil {
		t.Fatalf("expected refresh to recover, got %v", err)
	}
	if token != "fresh-access" {
		t.Fatalf("expected refreshed access token, got %q", token)
	}
	if oauth.refreshCalls != 1 {
		t.Fatalf("expected exactly one refresh attempt, got %d", oauth.refreshCalls)
	}
}

func TestRefreshPreservesQuota(t *testing.T) {
	repo := newFakeRepo()
	oauth := &fakeOAuth{refreshResp: ghl.TokenResponse{
		AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 86400,
	}}
	svc := newTestService(repo, oauth)

	sealedRefresh, _ := crypto.Encrypt("old-refresh", testCryptoKey)
	repo.records["loc-1"] = repository.TokenRecord{
		LocationID:       "loc-1",
		RefreshToken:     sealedRefresh,
		ExpiresAt:        time.Now().Add(30 * time.Minute),
		MaxSearchesLimit: 700,
	}

	if _, err := svc.Refresh(context.Background(), repo.records["loc-1"]); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	stored := repo.records["loc-1"]
	if stored.MaxSearchesLimit != 700 {
		t.Fatalf("expected quota preserved across refresh, got %d", stored.MaxSearchesLimit)
	}
	if !stored.ExpiresAt.After(time.Now().Add(23 * time.Hour)) {
		t.Fatal("expected expiry advanced by expires_in")
	}
}

func TestDisconnectDeactivatesSearchesAndDeletesToken(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeOAuth{})
	deactivator := &fakeDeactivator{count: 3}
	svc.SetSearchDeactivator(deactivator)

	repo.records["loc-1"] = repository.TokenRecord{LocationID: "loc-1"}

	if err := svc.Disconnect(context.Background(), "loc-1"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if len(deactivator.calls) != 1 || deactivator.calls[0] != "loc-1" {
		t.Fatalf("expected searches deactivated for loc-1, got %v", deactivator.calls)
	}
	if len(repo.deleted) != 1 {
		t.Fatal("expected token record deleted")
	}
}

func TestDisconnectTolerantOfMissingToken(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeOAuth{})
	if err := svc.Disconnect(context.Background(), "loc-missing"); err != nil {
		t.Fatalf("expected disconnect without a token to succeed, got %v", err)
	}
}
