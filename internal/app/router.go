package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
	"github.com/odyssey-hr/odyssey-hr/internal/observability"
	"github.com/odyssey-hr/odyssey-hr/internal/platform/httpx"
	"github.com/odyssey-hr/odyssey-hr/internal/rbac"
	"github.com/odyssey-hr/odyssey-hr/internal/shared"
	"github.com/odyssey-hr/odyssey-hr/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	AccessHandler  *rbac.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) (http.Handler, error) {
	pages, err := newPages(params.Logger, params.Config)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get(params.Config.LoginPath, pages.login)
	r.Get(params.Config.UnauthorizedPath, pages.unauthorized)

	if params.AccessHandler != nil {
		r.Get("/", params.AccessHandler.Home)
		r.Route("/access", params.AccessHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireRoles(access.ModeInline, access.RoleSuperAdmin))
			params.JobHandler.MountRoutes(r)
		})
	}

	mountScreens(r, params.RBACMiddleware, params.Config.ScreenMode())
	return r, nil
}

// mountScreens guards every back-office screen by its route table entry. The
// dashboard has no entry and is governed by the fallback rule.
func mountScreens(r chi.Router, mw rbac.Middleware, mode access.Mode) {
	guard := mw.RequirePath(mode)
	for _, req := range mw.Service.Registry().Requirements() {
		r.With(guard).Get(req.Pattern, screen(req.Pattern))
	}
	r.With(guard).Get(mw.Service.Landing().Dashboard, screen(mw.Service.Landing().Dashboard))
}

type screenResponse struct {
	Screen string `json:"screen"`
	Path   string `json:"path"`
	UserID int64  `json:"user_id"`
}

// screen stands in for a back-office screen and reports who was admitted.
func screen(pattern string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := screenResponse{Screen: pattern, Path: r.URL.Path}
		if p := shared.PrincipalFromContext(r.Context()); p != nil {
			resp.UserID = p.ID
		}
		httpx.JSON(w, http.StatusOK, resp)
	}
}
