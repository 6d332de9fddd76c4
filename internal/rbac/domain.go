package rbac

import (
	"slices"
	"time"
)

// Role is the coarse account type.
type Role string

const (
	// RoleAdmin always holds the full capability catalog.
	RoleAdmin Role = "admin"
	// RoleUser holds exactly the capabilities granted to it.
	RoleUser Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Capability is one entry of the catalog.
type Capability struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
}

// Identity describes the authenticated actor as carried by a session token.
type Identity struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	Permissions []string  `json:"permissions"`
	TokenID     string    `json:"-"`
	IssuedAt    time.Time `json:"-"`
	ExpiresAt   time.Time `json:"-"`
}

// IsAdmin reports whether the identity bypasses capability checks.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// HasCapability is true unconditionally for admins; otherwise tag must be
// present in the identity's permission set.
func HasCapability(identity *Identity, tag string) bool {
	if identity == nil {
		return false
	}
	if identity.Role == RoleAdmin {
		return true
	}
	return slices.Contains(identity.Permissions, tag)
}
