package rbac

import (
	"context"
)

// PermissionStore persists permission sets. UpdatePermissions must load the
// user's role, call resolve and store its result atomically, returning
// shared.ErrUserNotFound when the user does not exist.
type PermissionStore interface {
	UpdatePermissions(ctx context.Context, userID int64, resolve func(Role) []string) ([]string, error)
}

// Service orchestrates permission updates.
type Service struct {
	store PermissionStore
}

// NewService constructs a Service backed by the provided store.
func NewService(store PermissionStore) *Service {
	return &Service{store: store}
}

// UpdatePermissions replaces the permission set of userID and returns what
// was stored. Admin targets ignore the request and are reset to the full
// catalog; for everyone else unknown tags are dropped.
func (s *Service) UpdatePermissions(ctx context.Context, userID int64, requested []string) ([]string, error) {
	return s.store.UpdatePermissions(ctx, userID, func(role Role) []string {
		return EffectivePermissions(role, requested)
	})
}
