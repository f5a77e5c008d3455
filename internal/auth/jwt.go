// Package auth issues and verifies the portal's signed identity tokens.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/enerconnect/portal/internal/app/domain/user"
	"github.com/enerconnect/portal/internal/app/policy"
	"github.com/enerconnect/portal/internal/errors"
)

// Claims is the token payload carried by every authenticated request.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewManager creates a Manager. A zero ttl defaults to one hour.
func NewManager(secret string, ttl time.Duration, issuer string) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, issuer: issuer}
}

// Generate signs a token for u.
func (m *Manager) Generate(u user.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Internal("Could not issue token.", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token, returning the embedded
// identity. It fails closed: any parse, signature or expiry problem yields
// an authentication error.
func (m *Manager) Verify(tokenString string) (policy.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("Invalid token.")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return policy.Identity{}, errors.Unauthorized("Invalid or expired token.")
	}

	if claims.UserID == "" {
		return policy.Identity{}, errors.Unauthorized("Invalid or expired token.")
	}
	return policy.Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
