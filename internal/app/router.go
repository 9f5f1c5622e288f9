package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/harmonia-web/portal/internal/auth"
	"github.com/harmonia-web/portal/internal/inactivity"
	"github.com/harmonia-web/portal/internal/menu"
	"github.com/harmonia-web/portal/internal/navigation"
	"github.com/harmonia-web/portal/internal/observability"
	"github.com/harmonia-web/portal/internal/platform/httpx"
	"github.com/harmonia-web/portal/internal/rbac"
	"github.com/harmonia-web/portal/internal/shared"
	"github.com/harmonia-web/portal/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Engines        *shared.Registry
	API            auth.Forwarder
	Menu           *menu.Resolver
	Broadcaster    menu.Broadcaster
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Engines:        params.Engines,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	lookups := Lookups{Engines: params.Engines}
	guard := rbac.Middleware{Lookup: lookups.User, Logger: logger}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok", "engines": params.Engines.Len()})
	})

	r.Get("/auth/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		w.Header().Set("Cache-Control", "no-store")
		httpx.JSON(w, http.StatusOK, map[string]string{"token": params.CSRFManager.Token(sess)})
	})

	auth.NewHandler(logger, lookups.Store).MountRoutes(r)
	if params.API != nil {
		auth.NewProxyHandler(logger, lookups.Store, params.API).MountRoutes(r)
	}
	inactivity.NewHandler(logger, lookups.Monitor).MountRoutes(r)
	menu.NewHandler(logger, params.Menu, params.Broadcaster).
		MountRoutes(r, guard.RequireAny(shared.PermMenusManage))
	navigation.NewHandler(logger, lookups.Session, nil).MountRoutes(r)
	rbac.NewPermissionsHandler(logger, lookups.User, shared.CoreScopes()).MountRoutes(r)

	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			params.JobHandler.MountRoutes(r, guard.RequireAny(shared.PermMenusManage))
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
