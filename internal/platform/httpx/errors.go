package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Only
// messages built from sentinel errors reach the body; upstream and unknown
// errors get a fixed sentence plus the request id.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	WriteProblem(w, ProblemFor(r, err))
}

// ProblemFor builds the problem document for err.
func ProblemFor(r *http.Request, err error) ProblemDetail {
	var reqID string
	if r != nil {
		reqID = middleware.GetReqID(r.Context())
	}
	p := classify(err)
	p.RequestID = reqID
	return p
}

func classify(err error) ProblemDetail {
	var upstream *shared.UpstreamError
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		return ProblemDetail{Status: http.StatusUnauthorized, Title: "Unauthorized", Code: "unauthenticated", Detail: "a valid bearer token is required"}
	case errors.Is(err, shared.ErrInvalidCredentials):
		return ProblemDetail{Status: http.StatusUnauthorized, Title: "Unauthorized", Code: "invalid_credentials", Detail: "incorrect password"}
	case errors.Is(err, shared.ErrForbidden):
		return ProblemDetail{Status: http.StatusForbidden, Title: "Forbidden", Code: "forbidden", Detail: err.Error()}
	case errors.Is(err, shared.ErrInvalidDomain):
		return ProblemDetail{Status: http.StatusBadRequest, Title: "Validation Failed", Code: "invalid_domain", Detail: err.Error()}
	case errors.Is(err, shared.ErrUnknownResource):
		return ProblemDetail{Status: http.StatusBadRequest, Title: "Validation Failed", Code: "unknown_resource", Detail: err.Error()}
	case errors.Is(err, shared.ErrValidation):
		return ProblemDetail{Status: http.StatusBadRequest, Title: "Validation Failed", Code: "validation_failed", Detail: err.Error()}
	case errors.Is(err, shared.ErrUserNotFound):
		return ProblemDetail{Status: http.StatusNotFound, Title: "Not Found", Code: "user_not_found", Detail: "user not found"}
	case errors.Is(err, shared.ErrNotFound):
		return ProblemDetail{Status: http.StatusNotFound, Title: "Not Found", Code: "not_found", Detail: "no matching record"}
	case errors.Is(err, shared.ErrDuplicateUser):
		return ProblemDetail{Status: http.StatusConflict, Title: "Duplicate", Code: "duplicate_user", Detail: err.Error()}
	case errors.Is(err, shared.ErrProtectedRole):
		return ProblemDetail{Status: http.StatusConflict, Title: "Conflict", Code: "protected_role", Detail: err.Error()}
	case errors.Is(err, shared.ErrUpstreamTimeout):
		return ProblemDetail{Status: http.StatusGatewayTimeout, Title: "Gateway Timeout", Code: "upstream_timeout", Detail: "the upstream service did not answer in time, try again in a few minutes"}
	case errors.Is(err, shared.ErrUpstreamUnavailable):
		return ProblemDetail{Status: http.StatusServiceUnavailable, Title: "Service Unavailable", Code: "upstream_unavailable", Detail: "could not connect to the upstream service, it may be under maintenance"}
	case errors.Is(err, shared.ErrQueryFailure):
		return ProblemDetail{Status: http.StatusBadGateway, Title: "Bad Gateway", Code: "query_failed", Detail: "the database rejected the query, contact the data team with the request id"}
	case errors.As(err, &upstream):
		code := "upstream_failure"
		if upstream.Status != 0 {
			code = fmt.Sprintf("upstream_%d", upstream.Status)
		}
		return ProblemDetail{Status: http.StatusBadGateway, Title: "Bad Gateway", Code: code, Detail: "the upstream service returned an error"}
	case errors.Is(err, shared.ErrUpstreamFailure):
		return ProblemDetail{Status: http.StatusBadGateway, Title: "Bad Gateway", Code: "upstream_failure", Detail: "the upstream service returned an error"}
	default:
		return ProblemDetail{Status: http.StatusInternalServerError, Title: "Internal Error", Code: "internal"}
	}
}

// ErrorAttrs returns slog attributes for err, including the raw cause of an
// upstream failure. They are meant for logs, never for response bodies.
func ErrorAttrs(err error) []any {
	attrs := []any{slog.Any("error", err)}
	var upstream *shared.UpstreamError
	if errors.As(err, &upstream) && upstream.Cause() != nil {
		attrs = append(attrs, slog.Any("cause", upstream.Cause()))
	}
	return attrs
}

// IsServerError reports whether err maps to a 5xx response.
func IsServerError(err error) bool {
	return classify(err).Status >= http.StatusInternalServerError
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}
