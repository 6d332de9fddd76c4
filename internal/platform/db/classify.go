package db

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

// Querier is the read surface shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
// Repositories depend on it so tests can substitute fakes.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Classify wraps a driver error into a shared.UpstreamError whose Kind
// distinguishes timeouts, unreachable servers and statement failures. A nil
// err stays nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return &shared.UpstreamError{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 57014 query_canceled covers statement_timeout.
		if pgErr.Code == "57014" {
			return shared.ErrUpstreamTimeout
		}
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
			return shared.ErrUpstreamUnavailable
		}
		return shared.ErrQueryFailure
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return shared.ErrUpstreamTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return shared.ErrUpstreamTimeout
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return shared.ErrUpstreamUnavailable
	}
	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return shared.ErrUpstreamUnavailable
	}
	return shared.ErrQueryFailure
}
