package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/notify"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/pkg/cryptox"
	"github.com/aussiebroadwan/fastlink/pkg/idx"
	"github.com/aussiebroadwan/fastlink/pkg/slogx"
)

const MinPasswordLength = 6

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// AuthResult is what a completed sign-in flow hands back.
type AuthResult struct {
	User   domain.User
	Tokens domain.TokenPair
}

// AuthService runs the send-code, verify-code, issue-session flows for
// registration, login and password reset, plus password and PIN login.
type AuthService struct {
	Store    store.Store
	Ledger   *OTPLedger
	Notifier notify.Notifier
	Tokens   *TokenService
	Now      func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func normalizeAndValidateEmail(email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", invalid("Email is required")
	}
	if !domain.ValidEmail(email) {
		return "", invalid("Please enter a valid email address")
	}
	return email, nil
}

// lookupVerified returns the verified user for email, or ErrNoAccount.
func (s *AuthService) lookupVerified(ctx context.Context, users store.Users, email string) (domain.User, error) {
	user, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNoAccount
		}
		return domain.User{}, err
	}
	if !user.IsVerified {
		return domain.User{}, ErrNoAccount
	}
	return user, nil
}

// sendCode creates a code and delivers it. A code that could not be
// delivered is deleted.
func (s *AuthService) sendCode(ctx context.Context, email string, typ domain.OTPType) error {
	log := slogx.FromContext(ctx)

	otp, err := s.Ledger.Create(ctx, email, typ)
	if err != nil {
		return err
	}

	if err := s.Notifier.SendOTP(ctx, otp.Email, typ, otp.Code); err != nil {
		log.Error("otp delivery failed", "email", otp.Email, "otp_type", string(typ), "error", err)
		if derr := s.Ledger.Consume(ctx, otp); derr != nil {
			log.Error("failed to discard undelivered otp", "otp_id", otp.ID, "error", derr)
		}
		return fmt.Errorf("%w: %w", ErrNotifierFailed, err)
	}

	log.Info("otp sent", "email", otp.Email, "otp_type", string(typ))
	return nil
}

// verifyCode finds the active code for (email, type) and verifies it.
func (s *AuthService) verifyCode(ctx context.Context, email string, typ domain.OTPType, code string) (domain.OTP, error) {
	otp, err := s.Ledger.FindActive(ctx, email, typ)
	if err != nil {
		return domain.OTP{}, err
	}
	if err := s.Ledger.Verify(ctx, otp, strings.TrimSpace(code)); err != nil {
		slogx.FromContext(ctx).Info("otp verification failed",
			"email", email, "otp_type", string(typ), "reason", err.Error())
		return domain.OTP{}, err
	}
	return otp, nil
}

// SendRegistrationOTP starts registration. A verified account with the same
// email fails with ErrUserExists.
func (s *AuthService) SendRegistrationOTP(ctx context.Context, email string) error {
	email, err := normalizeAndValidateEmail(email)
	if err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case err == nil && user.IsVerified:
		return ErrUserExists
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	return s.sendCode(ctx, email, domain.OTPTypeRegister)
}

// VerifyRegistrationOTP finishes registration: the user is created (or an
// unverified one promoted) as verified and a session is issued.
func (s *AuthService) VerifyRegistrationOTP(ctx context.Context, email, code string) (AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return AuthResult{}, invalid("Email and OTP are required")
	}

	otp, err := s.verifyCode(ctx, email, domain.OTPTypeRegister, code)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now()
	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Users().GetUserByEmail(ctx, email)
		switch {
		case errors.Is(err, store.ErrNotFound):
			user = domain.User{
				ID:         idx.NewAt(now).String(),
				Email:      email,
				IsVerified: true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Users().CreateUser(ctx, user); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			user = existing
			user.IsVerified = true
			user.UpdatedAt = now
			if err := tx.Users().UpdateUser(ctx, user); err != nil {
				return err
			}
		}
		return tx.OTPs().DeleteOTP(ctx, otp.ID)
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("complete registration: %w", err)
	}

	return s.issue(ctx, user)
}

// SendLoginOTP starts an OTP login for a verified, unlocked account.
func (s *AuthService) SendLoginOTP(ctx context.Context, email string) error {
	email, err := normalizeAndValidateEmail(email)
	if err != nil {
		return err
	}

	user, err := s.lookupVerified(ctx, s.Store.Users(), email)
	if err != nil {
		return err
	}
	if user.IsLocked {
		return ErrAccountLocked
	}

	return s.sendCode(ctx, email, domain.OTPTypeLogin)
}

// VerifyLoginOTP finishes an OTP login. The login counter is reset.
func (s *AuthService) VerifyLoginOTP(ctx context.Context, email, code string) (AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return AuthResult{}, invalid("Email and OTP are required")
	}

	user, err := s.lookupVerified(ctx, s.Store.Users(), email)
	if err != nil {
		if errors.Is(err, ErrNoAccount) {
			return AuthResult{}, ErrUserNotFound
		}
		return AuthResult{}, err
	}
	if user.IsLocked {
		return AuthResult{}, ErrAccountLocked
	}

	otp, err := s.verifyCode(ctx, email, domain.OTPTypeLogin, code)
	if err != nil {
		return AuthResult{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if user.LoginAttempts > 0 {
			user.LoginAttempts = 0
			user.UpdatedAt = s.now()
			if err := tx.Users().UpdateUser(ctx, user); err != nil {
				return err
			}
		}
		return tx.OTPs().DeleteOTP(ctx, otp.ID)
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("complete login: %w", err)
	}

	return s.issue(ctx, user)
}

// SendPasswordResetOTP starts a password reset. Locked accounts may reset;
// a successful reset unlocks them.
func (s *AuthService) SendPasswordResetOTP(ctx context.Context, email string) error {
	email, err := normalizeAndValidateEmail(email)
	if err != nil {
		return err
	}
	if _, err := s.lookupVerified(ctx, s.Store.Users(), email); err != nil {
		return err
	}
	return s.sendCode(ctx, email, domain.OTPTypePasswordReset)
}

// VerifyPasswordResetOTP sets a new password. No session is issued.
func (s *AuthService) VerifyPasswordResetOTP(ctx context.Context, email, code, newPassword string) error {
	email = domain.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" || newPassword == "" {
		return invalid("Email, OTP, and new password are required")
	}
	if len(newPassword) < MinPasswordLength {
		return invalid("Password must be at least 6 characters long")
	}

	otp, err := s.verifyCode(ctx, email, domain.OTPTypePasswordReset, code)
	if err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := s.lookupVerified(ctx, tx.Users(), email)
		if err != nil {
			if errors.Is(err, ErrNoAccount) {
				return ErrUserNotFound
			}
			return err
		}
		user.PasswordHash = hash
		user.LoginAttempts = 0
		user.IsLocked = false
		user.UpdatedAt = s.now()
		user.SyncProfileCompleted()
		if err := tx.Users().UpdateUser(ctx, user); err != nil {
			return err
		}
		return tx.OTPs().DeleteOTP(ctx, otp.ID)
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	slogx.FromContext(ctx).Info("password reset", "email", email)
	return nil
}

// LoginWithPassword signs in with email and password.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, invalid("Email and password are required")
	}
	return s.loginWithSecret(ctx, email, password, func(u domain.User) string { return u.PasswordHash })
}

// LoginWithPIN signs in with email and PIN.
func (s *AuthService) LoginWithPIN(ctx context.Context, email, pin string) (AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || pin == "" {
		return AuthResult{}, invalid("Email and PIN are required")
	}
	if !pinPattern.MatchString(pin) {
		return AuthResult{}, invalid("PIN must be 4-6 digits")
	}
	return s.loginWithSecret(ctx, email, pin, func(u domain.User) string { return u.PINHash })
}

// loginWithSecret checks secret against the hash picked from the user. A
// mismatch counts toward the lockout; a match resets the counter.
func (s *AuthService) loginWithSecret(ctx context.Context, email, secret string, hashOf func(domain.User) string) (AuthResult, error) {
	log := slogx.FromContext(ctx)

	user, err := s.lookupVerified(ctx, s.Store.Users(), email)
	if err != nil {
		return AuthResult{}, err
	}
	if user.IsLocked {
		return AuthResult{}, ErrAccountLocked
	}
	hash := hashOf(user)
	if hash == "" {
		return AuthResult{}, ErrCredentialNotSet
	}

	if err := cryptox.VerifyPassword(secret, hash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			return AuthResult{}, err
		}
		updated, err := s.Store.Users().RecordFailedLogin(ctx, user.ID, domain.MaxLoginAttempts)
		if err != nil {
			return AuthResult{}, err
		}
		log.Info("login failed", "user_id", user.ID, "attempts", updated.LoginAttempts)
		if updated.IsLocked {
			log.Warn("account locked", "user_id", user.ID)
			return AuthResult{}, ErrAccountLocked
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if user.LoginAttempts > 0 {
		user.LoginAttempts = 0
		user.UpdatedAt = s.now()
		if err := s.Store.Users().UpdateUser(ctx, user); err != nil {
			return AuthResult{}, err
		}
	}

	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user domain.User) (AuthResult, error) {
	pair, err := s.Tokens.Issue(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	slogx.FromContext(ctx).Info("session issued", "user_id", user.ID)
	return AuthResult{User: user, Tokens: pair}, nil
}
