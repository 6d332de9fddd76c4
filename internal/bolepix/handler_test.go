package bolepix

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

type stubFetcher struct {
	payload map[string]any
	err     error
	calls   int
}

func (s *stubFetcher) Payment(_ context.Context, _ Lookup) (map[string]any, error) {
	s.calls++
	return s.payload, s.err
}

type tokens map[string]*rbac.Identity

func (t tokens) Verify(token string) (*rbac.Identity, bool) {
	id, ok := t[token]
	return id, ok
}

func serve(t *testing.T, fetcher PaymentFetcher, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	mw := rbac.Middleware{Verifier: tokens{
		"ops":   {ID: 2, Role: rbac.RoleUser, Permissions: []string{shared.PermBolepix}},
		"fraud": {ID: 3, Role: rbac.RoleUser, Permissions: []string{shared.PermAntifraude}},
	}}
	r := chi.NewRouter()
	r.Route("/api/bolepix", func(r chi.Router) {
		r.Use(mw.Authenticate)
		NewHandler(nil, fetcher, mw).MountRoutes(r)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/bolepix", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

const validBody = `{"correlation_id":"c1","application_id":"a","workspace_id":"w","company_id":"co"}`

func TestLookupHandler(t *testing.T) {
	fetcher := &stubFetcher{payload: map[string]any{"status": "PAID", "payer_document": "123"}}

	res := serve(t, fetcher, "fraud", validBody)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = serve(t, fetcher, "ops", `{"correlation_id":"c1"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Zero(t, fetcher.calls)

	res = serve(t, fetcher, "ops", validBody)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":"PAID"}`, res.Body.String())
}

func TestLookupHandlerStatuses(t *testing.T) {
	cases := map[int]error{
		http.StatusGatewayTimeout:     &shared.UpstreamError{Op: "bolepix lookup", Kind: shared.ErrUpstreamTimeout},
		http.StatusServiceUnavailable: &shared.UpstreamError{Op: "bolepix lookup", Kind: shared.ErrUpstreamUnavailable},
		http.StatusNotFound:           shared.ErrNotFound,
		http.StatusBadGateway:         &shared.UpstreamError{Op: "bolepix lookup", Kind: shared.ErrUpstreamFailure, Status: 500},
	}
	for want, err := range cases {
		res := serve(t, &stubFetcher{err: err}, "ops", validBody)
		assert.Equal(t, want, res.Code)
	}

	res := serve(t, &stubFetcher{err: &shared.UpstreamError{Op: "bolepix lookup", Kind: shared.ErrUpstreamFailure, Status: 422}}, "ops", validBody)
	assert.Contains(t, res.Body.String(), `"code":"upstream_422"`)
}

func TestLookupHandlerCanceledWritesNothing(t *testing.T) {
	res := serve(t, &stubFetcher{err: fmt.Errorf("bolepix lookup: %w", context.Canceled)}, "ops", validBody)
	assert.Less(t, res.Code, http.StatusInternalServerError)
	assert.Empty(t, res.Body.String())
}
