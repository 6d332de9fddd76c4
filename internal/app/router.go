package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bemobi-ops/ops-console/internal/antifraud"
	audithttp "github.com/bemobi-ops/ops-console/internal/audit/http"
	"github.com/bemobi-ops/ops-console/internal/auth"
	"github.com/bemobi-ops/ops-console/internal/bolepix"
	"github.com/bemobi-ops/ops-console/internal/observability"
	"github.com/bemobi-ops/ops-console/internal/payments"
	"github.com/bemobi-ops/ops-console/internal/platform/httpx"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
	"github.com/bemobi-ops/ops-console/jobs"
)

// ReadyCheck is one dependency probed by /readyz.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RBACMiddleware     rbac.Middleware
	AuthHandler        *auth.Handler
	PermissionsHandler *rbac.PermissionsHandler
	AuditHandler       *audithttp.Handler
	AntifraudHandler   *antifraud.Handler
	PaymentsHandler    *payments.Handler
	BolepixHandler     *bolepix.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	ReadyChecks        []ReadyCheck
}

// NewRouter constructs the chi.Router with console defaults.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(logger, params.ReadyChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/healthz/jobs", params.JobHandler.MountRoutes)
	}

	mw := params.RBACMiddleware
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if params.AuthHandler != nil {
				params.AuthHandler.MountPublic(r)
			}
			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate)
				if params.AuthHandler != nil {
					params.AuthHandler.MountRoutes(r)
				}
				if params.PermissionsHandler != nil {
					params.PermissionsHandler.MountRoutes(r)
				}
				if params.AuditHandler != nil {
					r.Route("/audit", params.AuditHandler.MountRoutes)
				}
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate)
			if params.AntifraudHandler != nil {
				r.Route("/antifraude", params.AntifraudHandler.MountRoutes)
			}
			if params.PaymentsHandler != nil {
				r.Route("/pagamentos", params.PaymentsHandler.MountRoutes)
			}
			if params.BolepixHandler != nil {
				r.Route("/bolepix", params.BolepixHandler.MountRoutes)
			}
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.RespondError(w, r, shared.ErrNotFound)
		})
	})
	return r
}

func readyHandler(logger *slog.Logger, checks []ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		code := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("dependency", c.Name), slog.Any("error", err))
				status[c.Name] = "down"
				code = http.StatusServiceUnavailable
				continue
			}
			status[c.Name] = "up"
		}
		httpx.JSON(w, code, status)
	}
}
