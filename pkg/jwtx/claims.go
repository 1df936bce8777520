package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes. Services override these through configuration.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType separates access tokens from refresh tokens so one can never be
// presented in place of the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims carried by every token this service issues.
type Claims struct {
	jwt.RegisteredClaims

	// Type is "access" or "refresh".
	Type TokenType `json:"typ"`

	// Email of the authenticated user at issue time.
	Email string `json:"email,omitempty"`
}

// NewClaims builds claims for subject valid from now until now+ttl.
func NewClaims(typ TokenType, subject, email, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Type:  typ,
		Email: email,
	}
}

// NewJTI returns a unique identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// RequireType returns ErrWrongType unless the claims are of the given type.
func (c Claims) RequireType(want TokenType) error {
	if c.Type != want {
		return ErrWrongType
	}
	return nil
}
