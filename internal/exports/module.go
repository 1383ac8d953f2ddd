// Package exports is the lead export bounded context: it turns FSBO
// properties into GHL contacts, deduplicated by phone, with an audit trail
// in search_results.
package exports

import (
	"context"
	"time"

	"fsbo_finder_backend/internal/exports/handler"
	"fsbo_finder_backend/internal/exports/repository"
	"fsbo_finder_backend/internal/exports/service"
	"fsbo_finder_backend/internal/ghl"
	apphttp "fsbo_finder_backend/internal/http"
	tokenservice "fsbo_finder_backend/internal/tokens/service"
	"fsbo_finder_backend/platform/logger"
	"fsbo_finder_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the exports bounded context implementing http.Module.
type Module struct {
	handler  *handler.Handler
	exporter *service.Exporter
	repo     *repository.Repository
}

// NewModule creates and initializes the exports module. The interactive
// exporter behind the HTTP endpoints refreshes an expired token once before
// giving up; background callers build their own exporter via
// NewBackgroundExporter.
func NewModule(pool *pgxpool.Pool, ghlClient *ghl.Client, tokensSvc *tokenservice.Service, delay time.Duration, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	dedup := service.NewPhoneDeduplicator(ghlClient, log)
	exporter := service.NewExporter(ghlClient, refreshingTokenSource{svc: tokensSvc}, dedup, repo, delay, log)
	h := handler.New(exporter, repo, val)

	return &Module{handler: h, exporter: exporter, repo: repo}
}

// NewBackgroundExporter builds an exporter for the scheduled runner. It uses
// stored tokens as-is; keeping them fresh is the refresher's job.
func NewBackgroundExporter(repo *repository.Repository, ghlClient *ghl.Client, tokensSvc *tokenservice.Service, delay time.Duration, log *logger.Logger) *service.Exporter {
	dedup := service.NewPhoneDeduplicator(ghlClient, log)
	return service.NewExporter(ghlClient, storedTokenSource{svc: tokensSvc}, dedup, repo, delay, log)
}

// Repository exposes the audit store to the runner.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Exporter exposes the interactive exporter.
func (m *Module) Exporter() *service.Exporter {
	return m.exporter
}

func (m *Module) Name() string {
	return "exports"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/exports")
	group.POST("/property", m.handler.ExportProperty)
	group.POST("/batch", m.handler.ExportBatch)
	group.GET("/searches/:id/results", m.handler.ListResults)
}

type refreshingTokenSource struct {
	svc *tokenservice.Service
}

func (s refreshingTokenSource) AccessToken(ctx context.Context, locationID string) (string, error) {
	return s.svc.GetValidTokenRefreshing(ctx, locationID)
}

type storedTokenSource struct {
	svc *tokenservice.Service
}

func (s storedTokenSource) AccessToken(ctx context.Context, locationID string) (string, error) {
	return s.svc.GetValidToken(ctx, locationID)
}

var _ apphttp.Module = (*Module)(nil)
