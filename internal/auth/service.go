package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// Account rules.
const (
	DefaultDomain     = "bemobi.com"
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

// Options configures a Service.
type Options struct {
	AllowedDomain string
	BcryptCost    int
}

// Revoker denylists token ids until they expire.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Service wraps authentication and user management rules.
type Service struct {
	repo        Repository
	tokens      *TokenManager
	revocations Revoker
	email       *regexp.Regexp
	cost        int
}

// NewService constructs a new Service. revocations may be nil, in which case
// Logout is a no-op.
func NewService(repo Repository, tokens *TokenManager, revocations Revoker, opts Options) *Service {
	domain := strings.TrimSpace(opts.AllowedDomain)
	if domain == "" {
		domain = DefaultDomain
	}
	cost := opts.BcryptCost
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:        repo,
		tokens:      tokens,
		revocations: revocations,
		email:       regexp.MustCompile(`^[^\s@]+@` + regexp.QuoteMeta(cases.Fold().String(domain)) + `$`),
		cost:        cost,
	}
}

// normalizeEmail trims and case-folds; a Caser is not safe for concurrent
// use so one is built per call.
func normalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

func (s *Service) checkDomain(email string) error {
	if !s.email.MatchString(email) {
		return shared.ErrInvalidDomain
	}
	return nil
}

// Login validates credentials and issues a session token. The domain is
// checked before the credential store is consulted.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if err := s.checkDomain(email); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	token, identity, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, fmt.Errorf("auth: issue token: %w", err)
	}
	return &LoginResult{Token: token, User: *identity}, nil
}

// Logout denylists the identity's token until it expires.
func (s *Service) Logout(ctx context.Context, identity *rbac.Identity) error {
	if s.revocations == nil || identity == nil {
		return nil
	}
	return s.revocations.Revoke(ctx, identity.TokenID, identity.ExpiresAt)
}

func validatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return shared.ValidationError("password must have at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return shared.ValidationError("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// Register creates a new account. Admins are stored with the full catalog,
// users with an empty permission set.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	email := normalizeEmail(in.Email)
	if err := s.checkDomain(email); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, shared.ValidationError("name is required")
	}
	if !in.Role.Valid() {
		return nil, shared.ValidationError("unknown role %q", in.Role)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	var perms []string
	if in.Role == rbac.RoleAdmin {
		perms = rbac.FullCatalog()
	}
	created, err := s.repo.Create(ctx, User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         in.Role,
		Permissions:  perms,
	})
	if err != nil {
		return nil, err
	}
	profile := created.Profile()
	return &profile, nil
}

// ResetPassword replaces the password of userID. Tokens issued before the
// reset stay valid until they expire.
func (s *Service) ResetPassword(ctx context.Context, userID int64, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// DeleteUser removes userID. Admin accounts are refused.
func (s *Service) DeleteUser(ctx context.Context, userID int64) (*Profile, error) {
	deleted, err := s.repo.Delete(ctx, userID, func(u User) error {
		if u.Role == rbac.RoleAdmin {
			return shared.ErrProtectedRole
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	profile := deleted.Profile()
	return &profile, nil
}

// ListUsers returns every account without password hashes.
func (s *Service) ListUsers(ctx context.Context) ([]Profile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Profile, len(users))
	for i, u := range users {
		out[i] = u.Profile()
	}
	return out, nil
}

// IsNotFound reports whether err means the user does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrUserNotFound)
}
