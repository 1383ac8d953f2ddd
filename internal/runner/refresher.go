package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"fsbo_finder_backend/internal/email"
	tokenrepo "fsbo_finder_backend/internal/tokens/repository"
	"fsbo_finder_backend/platform/logger"
)

// refreshHorizon is how far ahead of expiry a token qualifies for refresh.
const refreshHorizon = time.Hour

// refreshDelay throttles OAuth token endpoint calls during a sweep.
const refreshDelay = 200 * time.Millisecond

// TokenManager is the slice of the tokens service the refresher drives.
type TokenManager interface {
	ListExpiringWithin(ctx context.Context, horizon time.Duration) ([]tokenrepo.TokenRecord, error)
	Refresh(ctx context.Context, rec tokenrepo.TokenRecord) (tokenrepo.TokenRecord, error)
}

// Alerter delivers a summary when a sweep leaves failures behind.
type Alerter interface {
	SendRefreshAlert(ctx context.Context, refreshed int, failures []email.RefreshFailure) error
}

// RefreshDetail reports one tenant inside a refresh summary.
type RefreshDetail struct {
	LocationID string `json:"location_id"`
	Refreshed  bool   `json:"refreshed"`
	Error      string `json:"error,omitempty"`
}

// RefreshSummary is the JSON body returned by the refresh-tokens job.
type RefreshSummary struct {
	Message   string          `json:"message"`
	Refreshed int             `json:"refreshed"`
	Errors    int             `json:"errors"`
	Details   []RefreshDetail `json:"details"`
}

// Refresher proactively renews tokens before they expire so background
// exports never hit a stale token.
type Refresher struct {
	tokens  TokenManager
	alerter Alerter
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewRefresher builds a refresher. alerter may be nil when alert email is
// not configured.
func NewRefresher(tokens TokenManager, alerter Alerter, log *logger.Logger) *Refresher {
	return &Refresher{
		tokens:  tokens,
		alerter: alerter,
		limiter: rate.NewLimiter(rate.Every(refreshDelay), 1),
		log:     log,
	}
}

// RefreshExpiring refreshes every token expiring within the horizon. A
// failing tenant is counted and skipped; the sweep always visits every
// candidate.
func (r *Refresher) RefreshExpiring(ctx context.Context) (RefreshSummary, error) {
	records, err := r.tokens.ListExpiringWithin(ctx, refreshHorizon)
	if err != nil {
		return RefreshSummary{}, err
	}

	summary := RefreshSummary{Details: []RefreshDetail{}}
	failures := make([]email.RefreshFailure, 0)

	for _, rec := range records {
		if err := r.limiter.Wait(ctx); err != nil {
			return summary, err
		}

		detail := RefreshDetail{LocationID: rec.LocationID}
		if _, err := r.tokens.Refresh(ctx, rec); err != nil {
			r.log.TokenRefreshFailed(rec.LocationID, err)
			detail.Error = err.Error()
			summary.Errors++
			failures = append(failures, email.RefreshFailure{LocationID: rec.LocationID, Reason: err.Error()})
		} else {
			detail.Refreshed = true
			summary.Refreshed++
		}
		summary.Details = append(summary.Details, detail)
	}

	switch {
	case len(records) == 0:
		summary.Message = "no tokens near expiry"
	case summary.Errors == 0:
		summary.Message = "all expiring tokens refreshed"
	default:
		summary.Message = "token refresh completed with errors"
	}

	if summary.Errors > 0 && r.alerter != nil {
		if err := r.alerter.SendRefreshAlert(ctx, summary.Refreshed, failures); err != nil {
			r.log.Error("refresh alert email failed", "error", err)
		}
	}

	return summary, nil
}
