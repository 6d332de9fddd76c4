package rbac

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

type fakeStore struct {
	mu    sync.Mutex
	roles map[int64]Role
	perms map[int64][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{roles: map[int64]Role{}, perms: map[int64][]string{}}
}

func (f *fakeStore) UpdatePermissions(_ context.Context, userID int64, resolve func(Role) []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	final := resolve(role)
	f.perms[userID] = final
	return final, nil
}

func TestUpdatePermissionsAdminOverride(t *testing.T) {
	store := newFakeStore()
	store.roles[1] = RoleAdmin
	svc := NewService(store)

	got, err := svc.UpdatePermissions(context.Background(), 1, []string{})
	require.NoError(t, err)
	assert.Equal(t, FullCatalog(), got)
	assert.Equal(t, FullCatalog(), store.perms[1])
}

func TestUpdatePermissionsFiltersUnknownTags(t *testing.T) {
	store := newFakeStore()
	store.roles[2] = RoleUser
	svc := NewService(store)

	got, err := svc.UpdatePermissions(context.Background(), 2, []string{"bolepix", "superpower", "antifraude"})
	require.NoError(t, err)
	assert.Equal(t, []string{"antifraude", "bolepix"}, got)
	assert.Equal(t, got, store.perms[2])
}

func TestUpdatePermissionsUnknownUser(t *testing.T) {
	svc := NewService(newFakeStore())
	_, err := svc.UpdatePermissions(context.Background(), 99, []string{"bolepix"})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}
