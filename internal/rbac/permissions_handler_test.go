package rbac

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

type recordingSink struct {
	logs []shared.AuditLog
}

func (r *recordingSink) Submit(_ context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func newPermissionsRouter(t *testing.T, store *fakeStore, sink *recordingSink) http.Handler {
	t.Helper()
	m := Middleware{Verifier: stubVerifier{
		"admin": {ID: 1, Role: RoleAdmin},
		"user":  {ID: 5, Role: RoleUser, Permissions: []string{"antifraude"}},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewPermissionsHandler(logger, NewService(store), sink, m)
	r := chi.NewRouter()
	r.Use(m.Authenticate)
	h.MountRoutes(r)
	return r
}

func TestPermissionsHandlerCatalog(t *testing.T) {
	router := newPermissionsRouter(t, newFakeStore(), &recordingSink{})
	req := httptest.NewRequest(http.MethodGet, "/permissions", nil)
	req.Header.Set("Authorization", "Bearer user")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body catalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Permissions, len(FullCatalog()))
	assert.Equal(t, "Gerenciar Usuários", body.Labels["usuarios"])
}

func TestPermissionsHandlerAdminTargetKeepsFullCatalog(t *testing.T) {
	store := newFakeStore()
	store.roles[2] = RoleAdmin
	sink := &recordingSink{}
	router := newPermissionsRouter(t, store, sink)

	req := httptest.NewRequest(http.MethodPut, "/users/2/permissions", strings.NewReader(`{"permissions":[]}`))
	req.Header.Set("Authorization", "Bearer admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body updatePermissionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, FullCatalog(), body.Permissions)
	require.Len(t, sink.logs, 1)
	assert.Equal(t, shared.AuditPermissionsUpdated, sink.logs[0].Action)
	assert.Equal(t, int64(1), sink.logs[0].ActorID)
}

func TestPermissionsHandlerRequiresUsuarios(t *testing.T) {
	store := newFakeStore()
	store.roles[2] = RoleUser
	router := newPermissionsRouter(t, store, &recordingSink{})

	req := httptest.NewRequest(http.MethodPut, "/users/2/permissions", strings.NewReader(`{"permissions":["bolepix"]}`))
	req.Header.Set("Authorization", "Bearer user")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.perms)
}

func TestPermissionsHandlerValidation(t *testing.T) {
	router := newPermissionsRouter(t, newFakeStore(), &recordingSink{})

	for _, tc := range []struct {
		path, body string
		status     int
	}{
		{"/users/abc/permissions", `{"permissions":[]}`, http.StatusBadRequest},
		{"/users/3/permissions", `{"permissions":`, http.StatusBadRequest},
		{"/users/3/permissions", `{"permissions":["bolepix"]}`, http.StatusNotFound},
	} {
		req := httptest.NewRequest(http.MethodPut, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Authorization", "Bearer admin")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.path)
	}
}
