package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrUnknownKID = errors.New("jwtx: unknown kid")
	ErrWrongType  = errors.New("jwtx: wrong token type")
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures the expectations a verifier enforces.
type VerifyOptions struct {
	// Issuer the token must have. Empty means "don't care".
	Issuer string

	// Leeway allows small clock skew when validating exp/nbf/iat.
	Leeway time.Duration

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// VerifyType verifies token with v and requires claims of type want.
// A token of another type fails with ErrWrongType.
func VerifyType(v Verifier, token string, want TokenType) (Claims, error) {
	claims, err := v.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	if err := claims.RequireType(want); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

type keySetVerifier struct {
	keys   *KeySet
	parser *jwt.Parser
}

// NewVerifier returns a Verifier that checks signatures against keys.
// Expired tokens fail with ErrExpired; every other failure wraps ErrMalformed.
func NewVerifier(keys *KeySet, opts VerifyOptions) Verifier {
	popts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{AlgorithmEdDSA, AlgorithmES256}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		popts = append(popts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Now != nil {
		popts = append(popts, jwt.WithTimeFunc(opts.Now))
	}
	return &keySetVerifier{keys: keys, parser: jwt.NewParser(popts...)}
}

func (v *keySetVerifier) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, v.keyFunc)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	default:
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}

func (v *keySetVerifier) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrUnknownKID
	}
	alg, key, err := v.keys.Get(kid)
	if err != nil {
		return nil, err
	}
	if t.Method.Alg() != alg {
		return nil, fmt.Errorf("jwtx: algorithm mismatch for kid %s", kid)
	}
	return key, nil
}
