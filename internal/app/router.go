package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vicops/vicops/internal/auth"
	"github.com/vicops/vicops/internal/incidents"
	"github.com/vicops/vicops/internal/observability"
	"github.com/vicops/vicops/internal/platform/httpx"
	"github.com/vicops/vicops/internal/rbac"
	"github.com/vicops/vicops/internal/shared"
	"github.com/vicops/vicops/internal/users"
	"github.com/vicops/vicops/internal/workorders"
	"github.com/vicops/vicops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	AuthService       *auth.Service
	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	WorkOrdersHandler *workorders.Handler
	IncidentsHandler  *incidents.Handler
	RBACHandler       *rbac.Handler
	JobsHandler       *jobs.Handler
	RBACMiddleware    rbac.Middleware
	RouteTable        *rbac.RouteTable
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with VicOps defaults. The edge
// gate wraps every mounted module; handler-level guards inside each
// module repeat the check with their own permission lists.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		AuthService:    params.AuthService,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.RBACMiddleware.Gate(params.RouteTable, PublicPrefixes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get(rbac.UnauthorizedPath, func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, httpx.ErrForbidden)
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/work-orders", params.WorkOrdersHandler.MountRoutes)
	r.Route("/incidents", params.IncidentsHandler.MountRoutes)
	r.Route("/admin", params.RBACHandler.MountRoutes)
	if params.JobsHandler != nil {
		// No table rule covers /jobs, so only administrators reach it.
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
