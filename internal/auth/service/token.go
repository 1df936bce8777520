package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
)

// TokenService issues and refreshes stateless session credentials. Nothing
// about a session is stored server side.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *TokenService) ttls() (time.Duration, time.Duration) {
	access, refresh := s.AccessTTL, s.RefreshTTL
	if access <= 0 {
		access = jwtx.DefaultAccessTokenTTL
	}
	if refresh <= 0 {
		refresh = jwtx.DefaultRefreshTokenTTL
	}
	return access, refresh
}

// Issue signs a new access/refresh pair for user.
func (s *TokenService) Issue(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	now := s.now()
	accessTTL, refreshTTL := s.ttls()

	access := jwtx.NewClaims(jwtx.TokenTypeAccess, user.ID, user.Email, s.Issuer, accessTTL, now)
	refresh := jwtx.NewClaims(jwtx.TokenTypeRefresh, user.ID, user.Email, s.Issuer, refreshTTL, now)

	accessToken, err := s.KeyManager.Sign(access)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := s.KeyManager.Sign(refresh)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  access.ExpiresAt.Time,
		RefreshExpiresAt: refresh.ExpiresAt.Time,
	}, nil
}

// VerifyAccess checks signature, expiry and type of an access token and
// returns its subject. It applies the same check as httpx.AuthnMiddleware,
// for callers outside an HTTP request.
func (s *TokenService) VerifyAccess(token string) (string, error) {
	claims, err := jwtx.VerifyType(s.KeyManager.Verifier, token, jwtx.TokenTypeAccess)
	switch {
	case err == nil:
		return claims.Subject, nil
	case errors.Is(err, jwtx.ErrExpired):
		return "", ErrTokenExpired
	default:
		return "", fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
}

// Refresh exchanges a valid refresh token for a new pair. The user must
// still exist, be verified and not be locked.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, domain.User, error) {
	claims, err := jwtx.VerifyType(s.KeyManager.Verifier, refreshToken, jwtx.TokenTypeRefresh)
	if err != nil {
		return domain.TokenPair{}, domain.User{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, domain.User{}, ErrUserNotFound
		}
		return domain.TokenPair{}, domain.User{}, err
	}
	if !user.IsVerified {
		return domain.TokenPair{}, domain.User{}, ErrUserNotFound
	}
	if user.IsLocked {
		return domain.TokenPair{}, domain.User{}, ErrAccountLocked
	}

	pair, err := s.Issue(ctx, user)
	if err != nil {
		return domain.TokenPair{}, domain.User{}, err
	}
	return pair, user, nil
}
