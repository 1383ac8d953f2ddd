// Package runner executes the background jobs: running due scheduled
// searches and refreshing expiring CRM tokens. Both jobs return JSON
// summaries so their HTTP triggers and the scheduler worker report the
// same shape.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"

	exportrepo "fsbo_finder_backend/internal/exports/repository"
	exportservice "fsbo_finder_backend/internal/exports/service"
	"fsbo_finder_backend/internal/listings"
	searchrepo "fsbo_finder_backend/internal/searches/repository"
	"fsbo_finder_backend/platform/logger"
)

// SearchStore is the slice of the searches repository the runner drives.
type SearchStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]searchrepo.ScheduledSearch, error)
	CountDue(ctx context.Context, now time.Time) (int, error)
	MarkRun(ctx context.Context, id uuid.UUID, lastRun, nextRun time.Time) error
}

// ResultStore persists found properties before export.
type ResultStore interface {
	InsertPending(ctx context.Context, searchID uuid.UUID, property listings.Property) (uuid.UUID, error)
}

// BatchExporter pushes properties into the CRM.
type BatchExporter interface {
	ExportBatch(ctx context.Context, locationID string, items []exportservice.BatchItem, progress exportservice.ProgressFunc) exportservice.BatchResult
}

// RunDetail reports one processed search inside a run summary.
type RunDetail struct {
	SearchID   string `json:"search_id"`
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
	Found      int    `json:"found"`
	Exported   int    `json:"exported"`
	Error      string `json:"error,omitempty"`
}

// RunSummary is the JSON body returned by the run-scheduled-searches job.
type RunSummary struct {
	Message       string      `json:"message"`
	TotalSearches int         `json:"total_searches"`
	Processed     int         `json:"processed"`
	Errors        int         `json:"errors"`
	Details       []RunDetail `json:"details"`
}

// Runner processes due scheduled searches, one per invocation. Working one
// search at a time keeps a single slow tenant from starving the rest: the
// next tick picks up the next most overdue search.
type Runner struct {
	searches     SearchStore
	results      ResultStore
	listings     listings.Searcher
	exporter     BatchExporter
	batchTimeout time.Duration
	log          *logger.Logger
	now          func() time.Time
}

func NewRunner(searches SearchStore, results ResultStore, lst listings.Searcher, exporter BatchExporter, batchTimeout time.Duration, log *logger.Logger) *Runner {
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Minute
	}
	return &Runner{
		searches:     searches,
		results:      results,
		listings:     lst,
		exporter:     exporter,
		batchTimeout: batchTimeout,
		log:          log,
		now:          time.Now,
	}
}

// RunDue executes the single most overdue scheduled search. The search is
// rescheduled whether or not its run succeeded, so a broken search cannot
// wedge the queue.
func (r *Runner) RunDue(ctx context.Context) (RunSummary, error) {
	now := r.now()

	totalDue, err := r.searches.CountDue(ctx, now)
	if err != nil {
		return RunSummary{}, err
	}

	due, err := r.searches.ListDue(ctx, now, 1)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		TotalSearches: totalDue,
		Details:       []RunDetail{},
	}

	if len(due) == 0 {
		summary.Message = "no scheduled searches due"
		return summary, nil
	}

	search := due[0]
	detail := r.runOne(ctx, search)
	summary.Processed = 1
	if detail.Error != "" {
		summary.Errors++
	}
	summary.Details = append(summary.Details, detail)
	summary.Message = "scheduled search processed"

	return summary, nil
}

func (r *Runner) runOne(ctx context.Context, search searchrepo.ScheduledSearch) RunDetail {
	detail := RunDetail{
		SearchID:   search.ID.String(),
		LocationID: search.LocationID,
		Name:       search.Name,
	}

	log := r.log.WithLocationID(search.LocationID)
	log.Info("running scheduled search", "search_id", detail.SearchID, "name", search.Name)

	runCtx, cancel := context.WithTimeout(ctx, r.batchTimeout)
	defer cancel()

	properties, err := r.listings.Search(runCtx, search.SearchParams)
	if err != nil {
		detail.Error = err.Error()
		log.Error("scheduled search failed", "search_id", detail.SearchID, "error", err)
		r.reschedule(ctx, search)
		return detail
	}
	detail.Found = len(properties)

	items := make([]exportservice.BatchItem, 0, len(properties))
	for _, property := range properties {
		item := exportservice.BatchItem{Property: property}
		resultID, err := r.results.InsertPending(runCtx, search.ID, property)
		if err != nil {
			// The export still runs; only the search linkage is lost.
			log.DatabaseError("insert pending result", err)
		} else {
			item.ResultID = &resultID
		}
		items = append(items, item)
	}

	result := r.exporter.ExportBatch(runCtx, search.LocationID, items, nil)
	detail.Exported = result.Exported
	if len(result.Errors) > 0 {
		detail.Error = result.Errors[0].Error
		if len(result.Errors) > 1 {
			detail.Error += " (and more)"
		}
	}

	r.reschedule(ctx, search)
	return detail
}

// reschedule advances last_run/next_run unconditionally.
func (r *Runner) reschedule(ctx context.Context, search searchrepo.ScheduledSearch) {
	now := r.now()
	nextRun := now.AddDate(0, 0, search.FrequencyDays)
	if err := r.searches.MarkRun(ctx, search.ID, now, nextRun); err != nil {
		r.log.DatabaseError("mark search run", err)
	}
}

var _ ResultStore = (*exportrepo.Repository)(nil)
