package antifraud

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bemobi-ops/ops-console/internal/platform/httpx"
	"github.com/bemobi-ops/ops-console/internal/query"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// Handler exposes the antifraud endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: mw, validator: validator.New()}
}

// MountRoutes registers the routes behind the antifraude capability. The
// router must already run rbac.Middleware.Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(shared.PermAntifraude))
		r.Post("/", h.search)
		r.Get("/datasets", h.datasets)
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, shared.ValidationError("malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationError("table and document are required"))
		return
	}
	result, err := h.service.Search(r.Context(), req)
	if err != nil {
		if httpx.IsServerError(err) {
			h.logger.Error("antifraud search", append([]any{slog.String("table", req.Table)}, httpx.ErrorAttrs(err)...)...)
		}
		httpx.RespondError(w, r, err)
		return
	}
	httpx.SetSkipped(w, query.Columns(result.Skipped))
	w.Header().Set("X-Page", strconv.Itoa(result.Pagination.Page))
	w.Header().Set("X-Per-Page", strconv.Itoa(result.Pagination.PerPage))
	httpx.JSON(w, http.StatusOK, result.Rows)
}

func (h *Handler) datasets(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Datasets())
}
