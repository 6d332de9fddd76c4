package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bemobi-ops/ops-console/internal/rbac"
)

// DefaultTokenTTL is the session lifetime.
const DefaultTokenTTL = 8 * time.Hour

// Claims is the session token payload.
type Claims struct {
	UserID      int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        rbac.Role `json:"role"`
	Permissions []string  `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager constructs a TokenManager. A non-positive ttl means
// DefaultTokenTTL.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for user and returns it with the identity it carries.
func (m *TokenManager) Issue(user User) (string, *rbac.Identity, error) {
	now := m.now().UTC().Truncate(time.Second)
	identity := &rbac.Identity{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		Permissions: rbac.EffectivePermissions(user.Role, user.Permissions),
		TokenID:     uuid.NewString(),
		IssuedAt:    now,
		ExpiresAt:   now.Add(m.ttl),
	}
	claims := Claims{
		UserID:      identity.ID,
		Email:       identity.Email,
		Name:        identity.Name,
		Role:        identity.Role,
		Permissions: identity.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        identity.TokenID,
			IssuedAt:  jwt.NewNumericDate(identity.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(identity.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, identity, nil
}

// Verify checks signature, algorithm and expiry and returns the identity
// the token carries. It performs no I/O.
func (m *TokenManager) Verify(token string) (*rbac.Identity, bool) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if !claims.Role.Valid() {
		return nil, false
	}
	identity := &rbac.Identity{
		ID:          claims.UserID,
		Email:       claims.Email,
		Name:        claims.Name,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if identity.Permissions == nil {
		identity.Permissions = []string{}
	}
	return identity, true
}

var _ rbac.TokenVerifier = (*TokenManager)(nil)
