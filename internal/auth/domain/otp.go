package domain

import "time"

// OTPType names the flow an OTP belongs to.
type OTPType string

const (
	OTPTypeRegister      OTPType = "register"
	OTPTypeLogin         OTPType = "login"
	OTPTypePasswordReset OTPType = "password_reset"
)

func (t OTPType) Valid() bool {
	switch t {
	case OTPTypeRegister, OTPTypeLogin, OTPTypePasswordReset:
		return true
	}
	return false
}

// OTP is a one-time code record. The ULID id sorts by creation.
type OTP struct {
	ID        string
	Email     string
	Code      string
	Type      OTPType
	Attempts  int
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the record is past its expiry at now.
func (o OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// FlowState tracks where a flow is. Password reset ends at FlowVerified.
type FlowState string

const (
	FlowIdle          FlowState = "idle"
	FlowCodeSent      FlowState = "code_sent"
	FlowVerified      FlowState = "verified"
	FlowSessionIssued FlowState = "session_issued"
)
