package payments

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bemobi-ops/ops-console/internal/allowlist"
	"github.com/bemobi-ops/ops-console/internal/platform/httpx"
	"github.com/bemobi-ops/ops-console/internal/query"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// Handler exposes the payment search endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers payment routes. The router must already run
// rbac.Middleware.Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireCapability(shared.PermPagamentosGMA)).Get("/"+allowlist.SourceGMA, h.list(allowlist.SourceGMA))
	r.With(h.rbac.RequireCapability(shared.PermPagamentosPosNegado)).Get("/"+allowlist.SourcePosNegado, h.list(allowlist.SourcePosNegado))
	r.With(h.rbac.RequireAny(shared.PaymentScopes()...)).Get("/{source}/{id}", h.get)
}

func (h *Handler) list(source string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := h.service.Source(source)
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		result, err := h.service.List(r.Context(), src, ParamsFromQuery(r.URL.Query()))
		if err != nil {
			h.fail(w, r, source, err)
			return
		}
		httpx.SetSkipped(w, query.Columns(result.Skipped))
		w.Header().Set("X-Page", strconv.Itoa(result.Pagination.Page))
		w.Header().Set("X-Per-Page", strconv.Itoa(result.Pagination.PerPage))
		httpx.JSON(w, http.StatusOK, result.Rows)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	src, err := h.service.Source(chi.URLParam(r, "source"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if !rbac.HasCapability(rbac.IdentityFromContext(r.Context()), src.Capability) {
		httpx.RespondError(w, r, fmt.Errorf("%w: requires %s", shared.ErrForbidden, src.Capability))
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, r, shared.ValidationError("invalid payment id"))
		return
	}
	row, err := h.service.Get(r.Context(), src, id)
	if err != nil {
		h.fail(w, r, src.Name, err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, source string, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error("payments query", append([]any{slog.String("source", source)}, httpx.ErrorAttrs(err)...)...)
	}
	httpx.RespondError(w, r, err)
}
