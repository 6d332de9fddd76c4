package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Email        string    `yaml:"email"`
	Name         string    `yaml:"name"`
	Role         rbac.Role `yaml:"role"`
	Password     string    `yaml:"password"`
	PasswordHash string    `yaml:"password_hash"`
	Permissions  []string  `yaml:"permissions"`
}

// SeedFromFile creates the users listed in a YAML file, skipping emails
// that already exist. Entries may carry a plain password or a bcrypt
// password_hash. It returns the number of users created.
func (s *Service) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("auth: read seed file: %w", err)
	}
	return s.Seed(ctx, data)
}

// Seed is SeedFromFile over an in-memory document.
func (s *Service) Seed(ctx context.Context, data []byte) (int, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("auth: parse seed file: %w", err)
	}
	created := 0
	for i, entry := range file.Users {
		user, err := s.seedUser(entry)
		if err != nil {
			return created, fmt.Errorf("auth: seed entry %d: %w", i, err)
		}
		if _, err := s.repo.FindByEmail(ctx, user.Email); err == nil {
			continue
		} else if !errors.Is(err, shared.ErrUserNotFound) {
			return created, err
		}
		if _, err := s.repo.Create(ctx, user); err != nil {
			if errors.Is(err, shared.ErrDuplicateUser) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *Service) seedUser(entry seedUser) (User, error) {
	email := normalizeEmail(entry.Email)
	if err := s.checkDomain(email); err != nil {
		return User{}, err
	}
	role := entry.Role
	if role == "" {
		role = rbac.RoleUser
	}
	if !role.Valid() {
		return User{}, shared.ValidationError("unknown role %q", role)
	}
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		name = email
	}
	hash := strings.TrimSpace(entry.PasswordHash)
	switch {
	case hash != "":
		cost, err := bcrypt.Cost([]byte(hash))
		if err != nil {
			return User{}, shared.ValidationError("password_hash is not a bcrypt hash")
		}
		if cost < s.cost {
			return User{}, shared.ValidationError("password_hash cost %d is below %d", cost, s.cost)
		}
	case entry.Password != "":
		if err := validatePassword(entry.Password); err != nil {
			return User{}, err
		}
		h, err := bcrypt.GenerateFromPassword([]byte(entry.Password), s.cost)
		if err != nil {
			return User{}, err
		}
		hash = string(h)
	default:
		return User{}, shared.ValidationError("password or password_hash is required")
	}
	return User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		Permissions:  rbac.EffectivePermissions(role, entry.Permissions),
	}, nil
}
