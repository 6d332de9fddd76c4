package rbac

import (
	"context"
	"fmt"
	"net/http"

	"log/slog"

	"github.com/bemobi-ops/ops-console/internal/platform/httpx"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// TokenVerifier validates a bearer token. It returns false for malformed,
// badly signed or expired tokens and never performs I/O.
type TokenVerifier interface {
	Verify(token string) (*Identity, bool)
}

// RevocationChecker reports whether a token id was revoked before expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// DenialRecorder counts rejected requests.
type DenialRecorder interface {
	RecordDenial(capability, reason string)
}

// Middleware wires authentication and capability checks for HTTP handlers.
type Middleware struct {
	Verifier    TokenVerifier
	Revocations RevocationChecker
	Logger      *slog.Logger
	Denials     DenialRecorder
}

// Authenticate resolves the bearer token into an Identity stored in the
// request context. Missing, invalid, expired or revoked tokens get 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := httpx.BearerToken(r)
		if !ok {
			m.deny(w, r, "", "missing_token", shared.ErrUnauthenticated)
			return
		}
		identity, ok := m.Verifier.Verify(token)
		if !ok || identity == nil {
			m.deny(w, r, "", "invalid_token", shared.ErrUnauthenticated)
			return
		}
		if m.Revocations != nil && identity.TokenID != "" {
			revoked, err := m.Revocations.IsRevoked(r.Context(), identity.TokenID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac revocation lookup", slog.Any("error", err))
				}
				httpx.RespondError(w, r, &shared.UpstreamError{Op: "revocation lookup", Kind: shared.ErrUpstreamUnavailable, Err: err})
				return
			}
			if revoked {
				m.deny(w, r, "", "revoked_token", shared.ErrUnauthenticated)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

// RequireCapability ensures the current identity holds tag. It must run after
// Authenticate: a request without identity gets 401, one without the
// capability gets 403.
func (m Middleware) RequireCapability(tag string) func(http.Handler) http.Handler {
	return m.RequireAny(tag)
}

// RequireAny ensures the current identity holds at least one of tags.
func (m Middleware) RequireAny(tags ...string) func(http.Handler) http.Handler {
	label := fmt.Sprint(tags)
	if len(tags) == 1 {
		label = tags[0]
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				m.deny(w, r, label, "unauthenticated", shared.ErrUnauthenticated)
				return
			}
			for _, tag := range tags {
				if HasCapability(identity, tag) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(w, r, label, "missing_capability", fmt.Errorf("%w: requires %s", shared.ErrForbidden, label))
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, capability, reason string, err error) {
	if m.Denials != nil {
		m.Denials.RecordDenial(capability, reason)
	}
	if m.Logger != nil {
		attrs := []any{slog.String("path", r.URL.Path), slog.String("reason", reason)}
		if capability != "" {
			attrs = append(attrs, slog.String("capability", capability))
		}
		if identity := IdentityFromContext(r.Context()); identity != nil {
			attrs = append(attrs, slog.Int64("user_id", identity.ID))
		}
		m.Logger.Warn("rbac denied", attrs...)
	}
	httpx.RespondError(w, r, err)
}
