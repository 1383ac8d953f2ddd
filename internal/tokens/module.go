package tokens

import (
	"fsbo_finder_backend/internal/ghl"
	apphttp "fsbo_finder_backend/internal/http"
	"fsbo_finder_backend/internal/tokens/handler"
	"fsbo_finder_backend/internal/tokens/repository"
	"fsbo_finder_backend/internal/tokens/service"
	"fsbo_finder_backend/platform/config"
	"fsbo_finder_backend/platform/logger"
	"fsbo_finder_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the tokens bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
	repo    *repository.Repository
}

// ModuleConfig combines the config interfaces the tokens module needs.
type ModuleConfig interface {
	config.GHLConfig
	config.TokenCryptoConfig
}

// NewModule creates and initializes the tokens module.
func NewModule(pool *pgxpool.Pool, ghlClient *ghl.Client, cfg ModuleConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, ghlClient, cfg, cfg.GetTokenCryptoKey(), log)
	h := handler.New(svc, val)

	return &Module{handler: h, svc: svc, repo: repo}
}

// Service exposes the token manager to other modules (exports, runner).
func (m *Module) Service() *service.Service {
	return m.svc
}

// Repository exposes the token store to the background refresher.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// SetSearchDeactivator wires disconnect-time search deactivation.
func (m *Module) SetSearchDeactivator(d service.SearchDeactivator) {
	m.svc.SetSearchDeactivator(d)
}

func (m *Module) Name() string {
	return "tokens"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// The callback lands before any app session exists, so the group is
	// mounted on V1; the remaining routes require an authenticated session.
	public := ctx.V1.Group("/ghl")
	public.GET("/callback", m.handler.Callback)
	public.GET("/authorize-url", m.handler.AuthorizeURL)

	protected := ctx.Protected.Group("/ghl")
	protected.GET("/status", m.handler.Status)
	protected.POST("/disconnect", m.handler.Disconnect)
}

var _ apphttp.Module = (*Module)(nil)
