package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/bemobi-ops/ops-console/internal/platform/httpx"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// Handler wires HTTP endpoints for authentication and user management.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	audit      shared.AuditSink
	rbac       rbac.Middleware
	validator  *validator.Validate
	loginLimit int
}

// NewHandler constructs a Handler instance. audit may be nil; loginLimit is
// the number of login attempts allowed per IP per minute, 0 disables it.
func NewHandler(logger *slog.Logger, service *Service, audit shared.AuditSink, mw rbac.Middleware, loginLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		service:    service,
		audit:      audit,
		rbac:       mw,
		validator:  validator.New(),
		loginLimit: loginLimit,
	}
}

// MountPublic registers the routes reachable without a token.
func (h *Handler) MountPublic(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginLimit > 0 {
			r.Use(httprate.LimitByIP(h.loginLimit, time.Minute))
		}
		r.Post("/login", h.handleLogin)
	})
}

// MountRoutes registers authenticated routes. The router must already run
// rbac.Middleware.Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireCapability(shared.PermUsuarios))
		r.Get("/users", h.listUsers)
		r.Post("/register", h.register)
		r.Post("/reset-password", h.resetPassword)
		r.Delete("/users/{id}", h.deleteUser)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if IsNotFound(err) {
			// The login form tells an unknown account from a wrong password.
			p := httpx.ProblemFor(r, err)
			p.Status = http.StatusUnauthorized
			p.Title = "Unauthorized"
			httpx.WriteProblem(w, p)
			return
		}
		if httpx.IsServerError(err) {
			h.logger.Error("auth login", slog.Any("error", err))
		}
		httpx.RespondError(w, r, err)
		return
	}
	h.logger.Info("auth login", slog.Int64("user_id", result.User.ID), slog.String("role", string(result.User.Role)))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity := rbac.IdentityFromContext(r.Context())
	if err := h.service.Logout(r.Context(), identity); err != nil {
		h.logger.Error("auth logout", slog.Any("error", err))
		httpx.RespondError(w, r, &shared.UpstreamError{Op: "revoke token", Kind: shared.ErrUpstreamUnavailable, Err: err})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := rbac.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, r, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, identity)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("auth list users", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

type registerRequest struct {
	Email    string    `json:"email" validate:"required"`
	Password string    `json:"password" validate:"required"`
	Name     string    `json:"name" validate:"required"`
	Role     rbac.Role `json:"role"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = rbac.RoleUser
	}
	profile, err := h.service.Register(r.Context(), RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		h.fail(w, r, "auth register", err)
		return
	}
	h.submitAudit(r, shared.AuditUserRegistered, profile.ID, map[string]any{"email": profile.Email, "role": profile.Role})
	httpx.JSON(w, http.StatusCreated, profile)
}

type resetPasswordRequest struct {
	UserID      int64  `json:"user_id" validate:"required,gt=0"`
	NewPassword string `json:"new_password" validate:"required"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.UserID, req.NewPassword); err != nil {
		h.fail(w, r, "auth reset password", err)
		return
	}
	h.submitAudit(r, shared.AuditPasswordReset, req.UserID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.RespondError(w, r, shared.ValidationError("invalid user id"))
		return
	}
	profile, err := h.service.DeleteUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "auth delete user", err)
		return
	}
	h.submitAudit(r, shared.AuditUserDeleted, userID, map[string]any{"email": profile.Email})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return shared.ValidationError("malformed request body")
	}
	if err := h.validator.Struct(dst); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return shared.ValidationError("invalid fields: %s", strings.Join(fields, ", "))
		}
		return shared.ValidationError("invalid request")
	}
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, r, err)
}

func (h *Handler) submitAudit(r *http.Request, action string, userID int64, meta map[string]any) {
	if h.audit == nil {
		return
	}
	var actorID int64
	if actor := rbac.IdentityFromContext(r.Context()); actor != nil {
		actorID = actor.ID
	}
	record := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	}
	if err := h.audit.Submit(r.Context(), record); err != nil {
		h.logger.Warn("submit audit", slog.String("action", action), slog.Any("error", err))
	}
}
