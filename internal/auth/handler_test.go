package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemobi-ops/ops-console/internal/auth"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
	_ "github.com/bemobi-ops/ops-console/testing"
)

type recordingSink struct {
	mu      sync.Mutex
	records []shared.AuditLog
}

func (s *recordingSink) Submit(_ context.Context, log shared.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, log)
	return nil
}

type harness struct {
	router  http.Handler
	service *auth.Service
	sink    *recordingSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := auth.NewMemoryRepository()
	tokens, err := auth.NewTokenManager("handler-secret", time.Hour)
	require.NoError(t, err)
	service := auth.NewService(repo, tokens, nil, auth.Options{})
	sink := &recordingSink{}
	mw := rbac.Middleware{Verifier: tokens}
	handler := auth.NewHandler(nil, service, sink, mw, 0)

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		handler.MountPublic(r)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate)
			handler.MountRoutes(r)
		})
	})

	for _, u := range []auth.RegisterInput{
		{Email: "admin@bemobi.com", Password: "secret1", Name: "Admin", Role: rbac.RoleAdmin},
		{Email: "ana@bemobi.com", Password: "secret1", Name: "Ana", Role: rbac.RoleUser},
	} {
		_, err := service.Register(context.Background(), u)
		require.NoError(t, err)
	}
	return &harness{router: r, service: service, sink: sink}
}

func (h *harness) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	h.router.ServeHTTP(res, req)
	return res
}

func (h *harness) login(t *testing.T, email string) string {
	t.Helper()
	res := h.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"secret1"}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var body struct {
		Token string        `json:"token"`
		User  rbac.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body.Token
}

func problemCode(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	var p struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &p))
	return p.Code
}

func TestLoginResponses(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"ana@bemobi.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"token"`)
	assert.NotContains(t, res.Body.String(), "password")

	res = h.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"ana@gmail.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "invalid_domain", problemCode(t, res))

	res = h.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"ghost@bemobi.com","password":"secret1"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "user_not_found", problemCode(t, res))

	res = h.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"ana@bemobi.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "invalid_credentials", problemCode(t, res))

	res = h.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"ana@bemobi.com"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "validation_failed", problemCode(t, res))
}

func TestOversizedBodiesAreRejected(t *testing.T) {
	h := newHarness(t)

	padded := `{"email":"ana@bemobi.com","password":"` + strings.Repeat("x", 2<<20) + `"}`
	res := h.do(t, http.MethodPost, "/api/auth/login", "", padded)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "validation_failed", problemCode(t, res))

	token := h.login(t, "admin@bemobi.com")
	body := `{"email":"long@bemobi.com","password":"` + strings.Repeat("a", 73) + `","name":"Long","role":"user"}`
	res = h.do(t, http.MethodPost, "/api/auth/register", token, body)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "validation_failed", problemCode(t, res))
}

func TestMeRequiresToken(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = h.do(t, http.MethodGet, "/api/auth/me", h.login(t, "ana@bemobi.com"), "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"email":"ana@bemobi.com"`)
}

func TestUserManagementRequiresUsuarios(t *testing.T) {
	h := newHarness(t)
	userToken := h.login(t, "ana@bemobi.com")

	res := h.do(t, http.MethodGet, "/api/auth/users", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = h.do(t, http.MethodGet, "/api/auth/users", userToken, "")
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = h.do(t, http.MethodPost, "/api/auth/register", userToken, `{"email":"x@bemobi.com","password":"secret1","name":"X"}`)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Empty(t, h.sink.records)
}

func TestAdminManagesUsers(t *testing.T) {
	h := newHarness(t)
	adminToken := h.login(t, "admin@bemobi.com")

	res := h.do(t, http.MethodPost, "/api/auth/register", adminToken, `{"email":"Bia@bemobi.com","password":"secret1","name":"Bia"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var created auth.Profile
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	assert.Equal(t, "bia@bemobi.com", created.Email)
	assert.Equal(t, rbac.RoleUser, created.Role)

	res = h.do(t, http.MethodPost, "/api/auth/register", adminToken, `{"email":"bia@bemobi.com","password":"secret1","name":"Bia"}`)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = h.do(t, http.MethodGet, "/api/auth/users", adminToken, "")
	require.Equal(t, http.StatusOK, res.Code)
	var users []auth.Profile
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &users))
	assert.Len(t, users, 3)
	assert.NotContains(t, res.Body.String(), "$2a$")

	id := strconv.FormatInt(created.ID, 10)
	res = h.do(t, http.MethodPost, "/api/auth/reset-password", adminToken, `{"user_id":`+id+`,"new_password":"changed1"}`)
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = h.do(t, http.MethodDelete, "/api/auth/users/1", adminToken, "")
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "protected_role", problemCode(t, res))

	res = h.do(t, http.MethodDelete, "/api/auth/users/"+id, adminToken, "")
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = h.do(t, http.MethodDelete, "/api/auth/users/"+id, adminToken, "")
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = h.do(t, http.MethodDelete, "/api/auth/users/abc", adminToken, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	actions := make([]string, 0, len(h.sink.records))
	for _, rec := range h.sink.records {
		actions = append(actions, rec.Action)
		assert.Equal(t, int64(1), rec.ActorID)
	}
	assert.Equal(t, []string{shared.AuditUserRegistered, shared.AuditPasswordReset, shared.AuditUserDeleted}, actions)
}

func TestLogoutWithoutDenylistSucceeds(t *testing.T) {
	h := newHarness(t)
	res := h.do(t, http.MethodPost, "/api/auth/logout", h.login(t, "ana@bemobi.com"), "")
	assert.Equal(t, http.StatusNoContent, res.Code)
}
