package antifraud

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemobi-ops/ops-console/internal/platform/db/dbtest"
	"github.com/bemobi-ops/ops-console/internal/platform/httpx"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

type tokens map[string]*rbac.Identity

func (t tokens) Verify(token string) (*rbac.Identity, bool) {
	id, ok := t[token]
	return id, ok
}

func newRouter(q *dbtest.Querier) http.Handler {
	mw := rbac.Middleware{Verifier: tokens{
		"analyst": {ID: 2, Role: rbac.RoleUser, Permissions: []string{shared.PermAntifraude}},
		"other":   {ID: 3, Role: rbac.RoleUser, Permissions: []string{shared.PermBolepix}},
	}}
	h := NewHandler(nil, NewService(q, time.Second, nil, nil), mw)
	r := chi.NewRouter()
	r.Route("/api/antifraude", func(r chi.Router) {
		r.Use(mw.Authenticate)
		h.MountRoutes(r)
	})
	return r
}

func post(t *testing.T, router http.Handler, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/antifraude/", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestHandlerGatesBeforeQuerying(t *testing.T) {
	q := &dbtest.Querier{}
	router := newRouter(q)

	res := post(t, router, "", `{"table":"dts_light","document":"1"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = post(t, router, "other", `{"table":"dts_light","document":"1"}`)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = post(t, router, "analyst", `{"table":"dts_unknown","document":"1"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "unknown_resource")

	res = post(t, router, "analyst", `{"table":"dts_light"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	assert.Empty(t, q.Calls())
}

func TestHandlerReturnsRedactedArray(t *testing.T) {
	q := &dbtest.Querier{
		Columns: []string{"customer_document", "analysis_id", "status"},
		Data:    [][]any{{"1", "an-1", "DENIED"}},
	}
	res := post(t, newRouter(q), "analyst", `{"table":"dts_light","document":"1","start_date":"bad"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &rows))
	assert.Equal(t, []map[string]any{{"customer_document": "1", "status": "DENIED"}}, rows)
	assert.Equal(t, "created_at", res.Header().Get(httpx.SkippedHeader))
}

func TestHandlerEmptyResult(t *testing.T) {
	res := post(t, newRouter(&dbtest.Querier{Columns: []string{"x"}}), "analyst", `{"table":"dts_light","document":"1"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[]`, res.Body.String())
}

func TestHandlerHidesDatabaseErrors(t *testing.T) {
	q := &dbtest.Querier{Err: &pgconn.PgError{Code: "42703", Message: `column "customer_document" does not exist`}}
	res := post(t, newRouter(q), "analyst", `{"table":"dts_light","document":"1"}`)
	assert.Equal(t, http.StatusBadGateway, res.Code)
	assert.NotContains(t, res.Body.String(), "customer_document")
	assert.NotContains(t, res.Body.String(), "SELECT")
	assert.Contains(t, res.Body.String(), "query_failed")
}

func TestHandlerDatasets(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/antifraude/datasets", nil)
	req.Header.Set("Authorization", "Bearer analyst")
	res := httptest.NewRecorder()
	newRouter(&dbtest.Querier{}).ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	var names []string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &names))
	assert.Len(t, names, 19)
}
