package runner

import (
	apphttp "fsbo_finder_backend/internal/http"
)

// Module exposes the job trigger endpoints implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wraps an already-wired runner and refresher.
func NewModule(r *Runner, refresher *Refresher) *Module {
	return &Module{handler: NewHandler(r, refresher)}
}

func (m *Module) Name() string {
	return "jobs"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Jobs.POST("/run-scheduled-searches", m.handler.RunScheduledSearches)
	ctx.Jobs.POST("/refresh-tokens", m.handler.RefreshTokens)
}

var _ apphttp.Module = (*Module)(nil)
