package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bemobi-ops/ops-console/internal/platform/httpx"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// PermissionsHandler exposes the catalog and permission updates.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
	audit   shared.AuditSink
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance. audit may be nil.
func NewPermissionsHandler(logger *slog.Logger, service *Service, audit shared.AuditSink, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, audit: audit, rbac: rbac}
}

// MountRoutes registers permission routes. The router must already run
// Middleware.Authenticate.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.listPermissions)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(shared.PermUsuarios))
		r.Put("/users/{id}/permissions", h.updatePermissions)
	})
}

type catalogResponse struct {
	Permissions []Capability      `json:"permissions"`
	Labels      map[string]string `json:"labels"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, catalogResponse{Permissions: Catalog(), Labels: Labels()})
}

type updatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

type updatePermissionsResponse struct {
	UserID      int64    `json:"user_id"`
	Permissions []string `json:"permissions"`
}

func (h *PermissionsHandler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.RespondError(w, r, shared.ValidationError("invalid user id"))
		return
	}
	var req updatePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, shared.ValidationError("malformed request body"))
		return
	}
	final, err := h.service.UpdatePermissions(r.Context(), userID, req.Permissions)
	if err != nil {
		if httpx.IsServerError(err) {
			h.logger.Error("update permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		httpx.RespondError(w, r, err)
		return
	}
	if h.audit != nil {
		var actorID int64
		if actor := IdentityFromContext(r.Context()); actor != nil {
			actorID = actor.ID
		}
		record := shared.AuditLog{
			ActorID:  actorID,
			Action:   shared.AuditPermissionsUpdated,
			Entity:   "user",
			EntityID: strconv.FormatInt(userID, 10),
			Meta:     map[string]any{"requested": req.Permissions, "stored": final},
		}
		if err := h.audit.Submit(r.Context(), record); err != nil {
			h.logger.Warn("submit audit", slog.String("action", record.Action), slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, updatePermissionsResponse{UserID: userID, Permissions: final})
}
