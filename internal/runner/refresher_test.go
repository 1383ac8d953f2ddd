package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"fsbo_finder_backend/internal/email"
	tokenrepo "fsbo_finder_backend/internal/tokens/repository"
	"fsbo_finder_backend/platform/logger"
)

type fakeTokenManager struct {
	expiring   []tokenrepo.TokenRecord
	listErr    error
	failFor    map[string]error
	refreshed  []string
	gotHorizon time.Duration
}

func (f *fakeTokenManager) ListExpiringWithin(_ context.Context, horizon time.Duration) ([]tokenrepo.TokenRecord, error) {
	f.gotHorizon = horizon
	return f.expiring, f.listErr
}

func (f *fakeTokenManager) Refresh(_ context.Context, rec tokenrepo.TokenRecord) (tokenrepo.TokenRecord, error) {
	if err, ok := f.failFor[rec.LocationID]; ok {
		return tokenrepo.TokenRecord{}, err
	}
	f.refreshed = append(f.refreshed, rec.LocationID)
	return rec, nil
}

type fakeAlerter struct {
	calls    int
	failures []email.RefreshFailure
}

func (f *fakeAlerter) SendRefreshAlert(_ context.Context, _ int, failures []email.RefreshFailure) error {
	f.calls++
	f.failures = failures
	return nil
}

func records(locations ...string) []tokenrepo.TokenRecord {
	out := make([]tokenrepo.TokenRecord, 0, len(locations))
	for _, loc := range locations {
		out = append(out, tokenrepo.TokenRecord{LocationID: loc})
	}
	return out
}

func TestRefreshExpiringUsesOneHourHorizon(t *testing.T) {
	mgr := &fakeTokenManager{}
	r := NewRefresher(mgr, nil, logger.New("development"))

	if _, err := r.RefreshExpiring(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if mgr.gotHorizon != time.Hour {
		t.Fatalf("expected 1h horizon, got %v", mgr.gotHorizon)
	}
}

func TestRefreshExpiringContinuesPastFailure(t *testing.T) {
	mgr := &fakeTokenManager{
		expiring: records("loc-1", "loc-2", "loc-3"),
		failFor:  map[string]error{"loc-2": errors.New("invalid_grant")},
	}
	alerter := &fakeAlerter{}
	r := NewRefresher(mgr, alerter, logger.New("development"))

	summary, err := r.RefreshExpiring(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if summary.Refreshed != 2 || summary.Errors != 1 {
		t.Fatalf("expected 2 refreshed 1 failed, got %+v", summary)
	}
	if len(mgr.refreshed) != 2 {
		t.Fatalf("expected sweep to visit every tenant, refreshed %v", mgr.refreshed)
	}
	if len(summary.Details) != 3 {
		t.Fatalf("expected a detail per tenant, got %d", len(summary.Details))
	}

	if alerter.calls != 1 {
		t.Fatalf("expected one alert email, got %d", alerter.calls)
	}
	if len(alerter.failures) != 1 || alerter.failures[0].LocationID != "loc-2" {
		t.Fatalf("alert failures: %+v", alerter.failures)
	}
}

func TestRefreshExpiringNoAlertWhenClean(t *testing.T) {
	mgr := &fakeTokenManager{expiring: records("loc-1")}
	alerter := &fakeAlerter{}
	r := NewRefresher(mgr, alerter, logger.New("development"))

	if _, err := r.RefreshExpiring(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if alerter.calls != 0 {
		t.Fatal("expected no alert for a clean sweep")
	}
}

func TestRefreshExpiringListFailure(t *testing.T) {
	mgr := &fakeTokenManager{listErr: errors.New("db down")}
	r := NewRefresher(mgr, nil, logger.New("development"))

	if _, err := r.RefreshExpiring(context.Background()); err == nil {
		t.Fatal("expected list error to propagate")
	}
}
