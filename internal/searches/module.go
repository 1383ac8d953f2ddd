// Package searches is the scheduled search bounded context: recurring saved
// searches with per-location quotas and schedule bookkeeping.
package searches

import (
	apphttp "fsbo_finder_backend/internal/http"
	"fsbo_finder_backend/internal/searches/handler"
	"fsbo_finder_backend/internal/searches/repository"
	"fsbo_finder_backend/internal/searches/service"
	"fsbo_finder_backend/platform/logger"
	"fsbo_finder_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the searches bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the searches module. quota is the
// per-location limit lookup, backed by the stored token records.
func NewModule(pool *pgxpool.Pool, quota service.QuotaSource, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, quota, log)
	h := handler.New(svc, val)

	return &Module{handler: h, svc: svc, repo: repo}
}

// Service exposes search management to the tokens module (disconnect hook)
// and to the runner.
func (m *Module) Service() *service.Service {
	return m.svc
}

// Repository exposes the search store to the background runner.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) Name() string {
	return "searches"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/searches")
	group.POST("", m.handler.Create)
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.Get)
	group.PUT("/:id", m.handler.Update)
	group.PATCH("/:id/active", m.handler.SetActive)
	group.DELETE("/:id", m.handler.Delete)
}

var _ apphttp.Module = (*Module)(nil)
