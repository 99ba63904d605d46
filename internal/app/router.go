package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/commerce-admin/internal/audit"
	"github.com/odyssey-erp/commerce-admin/internal/auth"
	"github.com/odyssey-erp/commerce-admin/internal/observability"
	"github.com/odyssey-erp/commerce-admin/internal/permissions"
	"github.com/odyssey-erp/commerce-admin/internal/platform/httpx"
	"github.com/odyssey-erp/commerce-admin/internal/rbac"
	"github.com/odyssey-erp/commerce-admin/internal/roles"
	"github.com/odyssey-erp/commerce-admin/internal/shared"
	"github.com/odyssey-erp/commerce-admin/internal/users"
	"github.com/odyssey-erp/commerce-admin/jobs"
)

// ReadinessCheck probes one backing service for /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RBACMiddleware     rbac.Middleware
	AuthHandler        *auth.Handler
	PermissionsHandler *permissions.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	Readiness          []ReadinessCheck
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the admin API mounted under the
// configured prefix.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	prefix := "/api"
	if params.Config != nil {
		prefix = params.Config.APIPrefix
	}
	api := chi.NewRouter()
	api.Use(params.RBACMiddleware.Authenticate)
	if params.AuthHandler != nil {
		api.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		api.Route("/permission", params.PermissionsHandler.MountRoutes)
	}
	if params.RolesHandler != nil {
		api.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		api.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		api.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		api.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequirePermission(shared.PermReadAll))
			params.JobHandler.MountRoutes(r)
		})
	}
	if prefix == "" {
		r.Mount("/", api)
	} else {
		r.Mount(prefix, api)
	}

	return r
}

func readyHandler(logger *slog.Logger, checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("check", c.Name), slog.Any("error", err))
				result[c.Name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			result[c.Name] = "ok"
		}
		httpx.JSON(w, status, result)
	}
}
