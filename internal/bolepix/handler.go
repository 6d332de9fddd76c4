package bolepix

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bemobi-ops/ops-console/internal/platform/httpx"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/redact"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// PaymentFetcher is satisfied by *Client.
type PaymentFetcher interface {
	Payment(ctx context.Context, l Lookup) (map[string]any, error)
}

// Handler exposes the BolePIX lookup.
type Handler struct {
	logger    *slog.Logger
	client    PaymentFetcher
	redactor  *redact.Redactor
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, client PaymentFetcher, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		client:    client,
		redactor:  redact.New(redact.BolepixFields...),
		rbac:      mw,
		validator: validator.New(),
	}
}

// MountRoutes registers the lookup behind the bolepix capability. The router
// must already run rbac.Middleware.Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireCapability(shared.PermBolepix)).Post("/", h.lookup)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	var req Lookup
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, shared.ValidationError("malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationError("correlation_id, application_id, workspace_id and company_id are required"))
		return
	}
	payload, err := h.client.Payment(r.Context(), req)
	if err != nil {
		attrs := append([]any{slog.String("correlation_id", req.CorrelationID)}, httpx.ErrorAttrs(err)...)
		if errors.Is(err, context.Canceled) {
			// The caller is gone; nobody reads the answer.
			h.logger.Info("bolepix lookup canceled", attrs...)
			return
		}
		if httpx.IsServerError(err) {
			h.logger.Error("bolepix lookup", attrs...)
		} else {
			h.logger.Info("bolepix lookup", attrs...)
		}
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.redactor.ApplyOne(payload))
}
