package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/mnledger/internal/audit"
	"github.com/odyssey-erp/mnledger/internal/costing"
	"github.com/odyssey-erp/mnledger/internal/indents"
	"github.com/odyssey-erp/mnledger/internal/ledger"
	"github.com/odyssey-erp/mnledger/internal/observability"
	"github.com/odyssey-erp/mnledger/internal/platform/httpx"
	"github.com/odyssey-erp/mnledger/internal/procurement"
	"github.com/odyssey-erp/mnledger/internal/rbac"
	"github.com/odyssey-erp/mnledger/internal/requests"
	"github.com/odyssey-erp/mnledger/internal/users"
	"github.com/odyssey-erp/mnledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RBACMiddleware     rbac.Middleware
	CostingHandler     *costing.Handler
	LedgerHandler      *ledger.Handler
	RequestsHandler    *requests.Handler
	ProcurementHandler *procurement.Handler
	IndentsHandler     *indents.Handler
	UsersHandler       *users.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(params.RBACMiddleware.Authenticate)
		if params.CostingHandler != nil {
			r.Route("/costing", params.CostingHandler.MountRoutes)
		}
		if params.LedgerHandler != nil {
			r.Route("/ledger", params.LedgerHandler.MountRoutes)
		}
		if params.RequestsHandler != nil {
			r.Route("/requests", params.RequestsHandler.MountRoutes)
		}
		if params.ProcurementHandler != nil {
			r.Route("/procurement", params.ProcurementHandler.MountRoutes)
		}
		if params.IndentsHandler != nil {
			r.Route("/indents", params.IndentsHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	return r
}
