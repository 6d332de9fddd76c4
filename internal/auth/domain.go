package auth

import (
	"time"

	"github.com/bemobi-ops/ops-console/internal/rbac"
)

// User represents a console account as stored in the credential store.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         rbac.Role
	Permissions  []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view of a User. It never carries the password hash
// and admins always list the full catalog.
type Profile struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        rbac.Role `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Profile projects u into its public view.
func (u User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Permissions: rbac.EffectivePermissions(u.Role, u.Permissions),
		CreatedAt:   u.CreatedAt,
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string        `json:"token"`
	User  rbac.Identity `json:"user"`
}

// RegisterInput carries a new account request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     rbac.Role
}
