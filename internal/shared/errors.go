package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound indicates the credential store has no matching user.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrInvalidCredentials indicates login failure on password comparison.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidDomain indicates the email is outside the corporate domain.
	ErrInvalidDomain = errors.New("email domain not allowed")
	// ErrDuplicateUser indicates the email is already registered.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrProtectedRole indicates an operation refused for admin accounts.
	ErrProtectedRole = errors.New("admin accounts cannot be deleted")
	// ErrUnauthenticated indicates a missing, invalid, expired or revoked token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the identity lacks the required capability.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownResource indicates a dataset name absent from the allowlist.
	ErrUnknownResource = fmt.Errorf("%w: unknown resource", ErrValidation)

	// ErrUpstreamTimeout classifies a collaborator that did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstreamUnavailable classifies a refused or unreachable collaborator.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamFailure classifies an error answer from a remote API.
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrQueryFailure classifies a database error while executing a statement.
	ErrQueryFailure = errors.New("query failure")
)

// UpstreamError wraps a database or external API failure. Err keeps the raw
// cause for logs only; it is never rendered into a response body.
type UpstreamError struct {
	Op     string
	Kind   error
	Status int
	Err    error
}

// Error implements error.
func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %v (remote status %d)", e.Op, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap exposes the classification so errors.Is works on Kind.
func (e *UpstreamError) Unwrap() error {
	return e.Kind
}

// Cause returns the underlying error for logging.
func (e *UpstreamError) Cause() error {
	return e.Err
}

// ValidationError builds an ErrValidation carrying a user-safe reason.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
