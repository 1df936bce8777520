package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserExists    = errors.New("user already exists")
	ErrNoAccount     = errors.New("no account found with this email")
	ErrUserNotFound  = errors.New("user not found")
	ErrAccountLocked = errors.New("account is locked")
	ErrNotVerified   = errors.New("email not verified")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCredentialNotSet   = errors.New("credential not set")

	// ErrNotifierFailed is returned when a code could not be delivered. The
	// code is discarded so it can never be verified.
	ErrNotifierFailed = errors.New("failed to send verification code")

	ErrJobOrderNotFound = errors.New("job order not found")
)

// ErrInvalidOTP is the parent of every OTP verification failure. Clients
// only ever see this one.
var ErrInvalidOTP = errors.New("invalid or expired verification code")

var (
	ErrOTPNotFound         = fmt.Errorf("%w: no active code", ErrInvalidOTP)
	ErrOTPAlreadyUsed      = fmt.Errorf("%w: already used", ErrInvalidOTP)
	ErrOTPExpired          = fmt.Errorf("%w: expired", ErrInvalidOTP)
	ErrOTPAttemptsExceeded = fmt.Errorf("%w: attempts exceeded", ErrInvalidOTP)
	ErrOTPCodeMismatch     = fmt.Errorf("%w: code mismatch", ErrInvalidOTP)
)

var (
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenMalformed      = errors.New("token malformed")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// ValidationError is bad client input. Message is shown to the caller as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
