package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bemobi-ops/ops-console/internal/rbac"
)

const revocationPrefix = "auth:revoked:"

// Revocations is a Redis denylist of token ids. Entries expire together
// with the token they revoke.
type Revocations struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRevocations constructs a denylist on client.
func NewRevocations(client redis.UniversalClient) *Revocations {
	return &Revocations{client: client, now: time.Now}
}

// Revoke denylists tokenID until expiresAt. Already expired tokens are
// ignored.
func (r *Revocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revocationPrefix+tokenID, 1, ttl).Err()
}

// IsRevoked reports whether tokenID is denylisted.
func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ rbac.RevocationChecker = (*Revocations)(nil)
