package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]*Identity

func (s stubVerifier) Verify(token string) (*Identity, bool) {
	identity, ok := s[token]
	return identity, ok
}

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	return s.revoked[id], s.err
}

type countingDenials struct {
	reasons []string
}

func (c *countingDenials) RecordDenial(_, reason string) {
	c.reasons = append(c.reasons, reason)
}

func newTestRouter(m Middleware, reached *bool) http.Handler {
	r := chi.NewRouter()
	r.Use(m.Authenticate)
	r.With(m.RequireCapability("antifraude")).Get("/antifraude", func(w http.ResponseWriter, r *http.Request) {
		*reached = IdentityFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestGatewayDistinguishes401From403(t *testing.T) {
	verifier := stubVerifier{
		"admin-token":   {ID: 1, Role: RoleAdmin, TokenID: "a"},
		"analyst-token": {ID: 2, Role: RoleUser, Permissions: []string{"antifraude"}, TokenID: "b"},
		"viewer-token":  {ID: 3, Role: RoleUser, Permissions: []string{"bolepix"}, TokenID: "c"},
		"revoked-token": {ID: 4, Role: RoleAdmin, TokenID: "d"},
	}
	denials := &countingDenials{}
	m := Middleware{Verifier: verifier, Revocations: stubRevocations{revoked: map[string]bool{"d": true}}, Denials: denials}

	cases := []struct {
		name    string
		header  string
		status  int
		reached bool
	}{
		{"no header", "", http.StatusUnauthorized, false},
		{"malformed", "Token abc", http.StatusUnauthorized, false},
		{"bad token", "Bearer forged", http.StatusUnauthorized, false},
		{"revoked", "Bearer revoked-token", http.StatusUnauthorized, false},
		{"missing capability", "Bearer viewer-token", http.StatusForbidden, false},
		{"granted", "Bearer analyst-token", http.StatusNoContent, true},
		{"admin", "Bearer admin-token", http.StatusNoContent, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var reached bool
			req := httptest.NewRequest(http.MethodGet, "/antifraude", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			newTestRouter(m, &reached).ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.reached, reached)
		})
	}
	assert.Contains(t, denials.reasons, "missing_capability")
	assert.Contains(t, denials.reasons, "revoked_token")
}

func TestAuthenticateFailsClosedWhenDenylistUnavailable(t *testing.T) {
	var reached bool
	m := Middleware{
		Verifier:    stubVerifier{"t": {ID: 1, Role: RoleAdmin, TokenID: "x"}},
		Revocations: stubRevocations{err: errors.New("dial tcp: connection refused")},
	}
	req := httptest.NewRequest(http.MethodGet, "/antifraude", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	newTestRouter(m, &reached).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, reached)
	assert.False(t, strings.Contains(rec.Body.String(), "connection refused"))
}

func TestRequireCapabilityWithoutAuthenticateIs401(t *testing.T) {
	m := Middleware{Verifier: stubVerifier{}}
	called := false
	h := m.RequireAny("bolepix", "antifraude")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}
