package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `console_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `console_http_request_duration_seconds_bucket{route="/test"`)
}

func TestDomainMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordDenial(shared.PermAntifraude, "missing_capability")
	metrics.RecordDenial("", "missing_token")
	metrics.ObserveQuery("antifraude", 120*time.Millisecond, nil)
	metrics.ObserveQuery("antifraude", time.Second, &shared.UpstreamError{Op: "q", Kind: shared.ErrUpstreamTimeout})
	metrics.ObserveUpstream("bolepix", &shared.UpstreamError{Op: "get", Kind: shared.ErrUpstreamUnavailable})

	body := scrape(t, metrics)
	assert.Contains(t, body, `console_authz_denials_total{capability="antifraude",reason="missing_capability"} 1`)
	assert.Contains(t, body, `console_authz_denials_total{capability="none",reason="missing_token"} 1`)
	assert.Contains(t, body, `console_query_duration_seconds_count{endpoint="antifraude",outcome="ok"} 1`)
	assert.Contains(t, body, `console_query_duration_seconds_count{endpoint="antifraude",outcome="timeout"} 1`)
	assert.Contains(t, body, `console_upstream_calls_total{outcome="unavailable",provider="bolepix"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordDenial("x", "y")
	m.ObserveQuery("x", time.Second, errors.New("boom"))
	m.ObserveUpstream("x", nil)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
