package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by guarded updates whose guard did not hold
	// (an OTP already at its attempt limit, or already used).
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx-scoped store cannot start a nested transaction.
type Store interface {
	Users() Users
	OTPs() OTPs
	JobOrders() JobOrders
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects a normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts a new user. ErrAlreadyExists on a duplicate email.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser writes every mutable column and bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	// RecordFailedLogin increments login_attempts and locks the account once
	// it reaches maxAttempts. Returns the updated user.
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int) (domain.User, error)

	DeleteUser(ctx context.Context, id string) error
}

// OTPs is the persistence half of the OTP ledger.
type OTPs interface {
	CreateOTP(ctx context.Context, otp domain.OTP) error

	// FindActiveOTP returns the newest unused record for (email, type).
	FindActiveOTP(ctx context.Context, email string, typ domain.OTPType) (domain.OTP, error)

	// DeleteUnusedOTPs removes every unused record for (email, type).
	DeleteUnusedOTPs(ctx context.Context, email string, typ domain.OTPType) error

	// IncrementOTPAttempts atomically bumps attempts while attempts < max and
	// returns the new count. ErrConflict when the guard fails.
	IncrementOTPAttempts(ctx context.Context, id string, max int) (int, error)

	// MarkOTPUsed flips used to true. ErrConflict if it was already used.
	MarkOTPUsed(ctx context.Context, id string) error

	DeleteOTP(ctx context.Context, id string) error

	// DeleteExpiredOTPs reaps records whose expiry has passed.
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

type JobOrders interface {
	CreateJobOrder(ctx context.Context, jo domain.JobOrder) error
	GetJobOrder(ctx context.Context, id string) (domain.JobOrder, error)

	// ListJobOrders returns newest first.
	ListJobOrders(ctx context.Context) ([]domain.JobOrder, error)

	UpdateJobOrder(ctx context.Context, jo domain.JobOrder) error
	DeleteJobOrder(ctx context.Context, id string) error
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// ListSigningKeys returns keys that expire after now, newest first.
	ListSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error)

	// DeleteExpiredSigningKeys removes keys past their expiry.
	DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error)
}
