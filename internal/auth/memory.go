package auth

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// MemoryRepository is an in-process credential store. Writes are serialized
// by a single mutex and every read returns a copy.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*User
	byEmail map[string]int64
	now     func() time.Time
}

// NewMemoryRepository returns an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[int64]*User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func clone(u *User) *User {
	c := *u
	c.Permissions = slices.Clone(u.Permissions)
	return &c
}

// Create inserts a new user.
func (m *MemoryRepository) Create(_ context.Context, user User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return nil, shared.ErrDuplicateUser
	}
	m.nextID++
	now := m.now().UTC()
	stored := clone(&user)
	stored.ID = m.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Permissions == nil {
		stored.Permissions = []string{}
	}
	m.byID[stored.ID] = stored
	m.byEmail[stored.Email] = stored.ID
	return clone(stored), nil
}

// FindByEmail fetches a user by email.
func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return clone(m.byID[id]), nil
}

// FindByID fetches a user by id.
func (m *MemoryRepository) FindByID(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return clone(u), nil
}

// List returns all users ordered by id.
func (m *MemoryRepository) List(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]User, 0, len(m.byID))
	for _, u := range m.byID {
		users = append(users, *clone(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// UpdatePassword replaces the password hash.
func (m *MemoryRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return shared.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = m.now().UTC()
	return nil
}

// UpdatePermissions resolves and stores the permission set under the lock.
func (m *MemoryRepository) UpdatePermissions(_ context.Context, id int64, resolve func(rbac.Role) []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	final := resolve(u.Role)
	if final == nil {
		final = []string{}
	}
	u.Permissions = slices.Clone(final)
	u.UpdatedAt = m.now().UTC()
	return final, nil
}

// Delete runs guard and removes the user under the lock.
func (m *MemoryRepository) Delete(_ context.Context, id int64, guard func(User) error) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	if guard != nil {
		if err := guard(*clone(u)); err != nil {
			return nil, err
		}
	}
	delete(m.byID, id)
	delete(m.byEmail, u.Email)
	return clone(u), nil
}

var _ Repository = (*MemoryRepository)(nil)
