package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/pkg/cryptox"
	"github.com/aussiebroadwan/fastlink/pkg/idx"
)

const (
	DefaultOTPTTL         = 10 * time.Minute
	DefaultOTPMaxAttempts = 5
)

// OTPLedger owns the lifecycle of one-time codes: at most one usable code
// per (email, type), and every verification attempt is counted before the
// code is compared.
type OTPLedger struct {
	Store       store.Store
	Now         func() time.Time
	TTL         time.Duration
	MaxAttempts int
	Codes       func() (string, error)
}

func NewOTPLedger(s store.Store) *OTPLedger {
	return &OTPLedger{
		Store:       s,
		Now:         time.Now,
		TTL:         DefaultOTPTTL,
		MaxAttempts: DefaultOTPMaxAttempts,
		Codes:       cryptox.GenerateOTPCode,
	}
}

func (l *OTPLedger) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

func (l *OTPLedger) maxAttempts() int {
	if l.MaxAttempts <= 0 {
		return DefaultOTPMaxAttempts
	}
	return l.MaxAttempts
}

// Create replaces any unused code for (email, type) with a fresh one.
func (l *OTPLedger) Create(ctx context.Context, email string, typ domain.OTPType) (domain.OTP, error) {
	if !typ.Valid() {
		return domain.OTP{}, fmt.Errorf("unknown otp type %q", typ)
	}
	gen := l.Codes
	if gen == nil {
		gen = cryptox.GenerateOTPCode
	}
	code, err := gen()
	if err != nil {
		return domain.OTP{}, err
	}

	ttl := l.TTL
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	now := l.now()
	otp := domain.OTP{
		ID:        idx.NewAt(now).String(),
		Email:     domain.NormalizeEmail(email),
		Code:      code,
		Type:      typ,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err = l.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.OTPs().DeleteUnusedOTPs(ctx, otp.Email, typ); err != nil {
			return err
		}
		return tx.OTPs().CreateOTP(ctx, otp)
	})
	if err != nil {
		return domain.OTP{}, fmt.Errorf("create otp: %w", err)
	}
	return otp, nil
}

// FindActive returns the newest unused code for (email, type).
func (l *OTPLedger) FindActive(ctx context.Context, email string, typ domain.OTPType) (domain.OTP, error) {
	otp, err := l.Store.OTPs().FindActiveOTP(ctx, domain.NormalizeEmail(email), typ)
	if errors.Is(err, store.ErrNotFound) {
		return domain.OTP{}, ErrOTPNotFound
	}
	return otp, err
}

// Verify checks code against otp. The checks run in a fixed order: used,
// expired, attempt limit, then one attempt is consumed atomically before
// the constant-time compare. A match marks the record used.
func (l *OTPLedger) Verify(ctx context.Context, otp domain.OTP, code string) error {
	limit := l.maxAttempts()

	switch {
	case otp.Used:
		return ErrOTPAlreadyUsed
	case otp.IsExpired(l.now()):
		return ErrOTPExpired
	case otp.Attempts >= limit:
		return ErrOTPAttemptsExceeded
	}

	repo := l.Store.OTPs()
	if _, err := repo.IncrementOTPAttempts(ctx, otp.ID, limit); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return ErrOTPAttemptsExceeded
		case errors.Is(err, store.ErrNotFound):
			return ErrOTPNotFound
		}
		return fmt.Errorf("increment otp attempts: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return ErrOTPCodeMismatch
	}

	if err := repo.MarkOTPUsed(ctx, otp.ID); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return ErrOTPAlreadyUsed
		case errors.Is(err, store.ErrNotFound):
			return ErrOTPNotFound
		}
		return fmt.Errorf("mark otp used: %w", err)
	}
	return nil
}

// Consume deletes a record once its flow has completed.
func (l *OTPLedger) Consume(ctx context.Context, otp domain.OTP) error {
	return l.Store.OTPs().DeleteOTP(ctx, otp.ID)
}
