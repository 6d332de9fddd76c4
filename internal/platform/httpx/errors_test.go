package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthenticated", shared.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", fmt.Errorf("%w: antifraude", shared.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"unknown resource", fmt.Errorf("%w %q", shared.ErrUnknownResource, "dts_unknown_table"), http.StatusBadRequest, "unknown_resource"},
		{"validation", shared.ValidationError("document is required"), http.StatusBadRequest, "validation_failed"},
		{"invalid domain", shared.ErrInvalidDomain, http.StatusBadRequest, "invalid_domain"},
		{"user not found", shared.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{"not found", shared.ErrNotFound, http.StatusNotFound, "not_found"},
		{"duplicate", shared.ErrDuplicateUser, http.StatusConflict, "duplicate_user"},
		{"protected", shared.ErrProtectedRole, http.StatusConflict, "protected_role"},
		{"timeout", &shared.UpstreamError{Op: "bolepix", Kind: shared.ErrUpstreamTimeout}, http.StatusGatewayTimeout, "upstream_timeout"},
		{"refused", &shared.UpstreamError{Op: "bolepix", Kind: shared.ErrUpstreamUnavailable}, http.StatusServiceUnavailable, "upstream_unavailable"},
		{"remote 5xx", &shared.UpstreamError{Op: "bolepix", Kind: shared.ErrUpstreamFailure, Status: 500}, http.StatusBadGateway, "upstream_500"},
		{"query", &shared.UpstreamError{Op: "antifraud", Kind: shared.ErrQueryFailure}, http.StatusBadGateway, "query_failed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			assert.Equal(t, tc.status, rec.Code)
			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.status, body.Status)
		})
	}
}

func TestRespondErrorNeverLeaksUpstreamCause(t *testing.T) {
	cause := errors.New(`ERROR: column "secret" does not exist (SQLSTATE 42703) SELECT * FROM refined_service_prevention.dts_light`)
	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodPost, "/api/antifraude", nil), &shared.UpstreamError{Op: "antifraud query", Kind: shared.ErrQueryFailure, Err: cause})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "SELECT")
	assert.NotContains(t, rec.Body.String(), "SQLSTATE")
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := BearerToken(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "Basic abc")
	_, ok = BearerToken(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "Bearer ")
	_, ok = BearerToken(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "bearer abc.def.ghi")
	token, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)
}

func TestDecodeJSONCapsBody(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ana"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "ana", dst.Name)

	big := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big)), &dst)
	var tooLarge *http.MaxBytesError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(MaxBodyBytes), tooLarge.Limit)

	err = DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`)), &dst)
	assert.Error(t, err)
}
