package domain

import (
	"regexp"
	"strings"
	"time"
)

// MaxLoginAttempts is the number of failed password or PIN logins after
// which an account is locked.
const MaxLoginAttempts = 5

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type User struct {
	ID               string
	Email            string // normalized
	Name             string
	PasswordHash     string // argon2id PHC, empty until set
	PINHash          string // argon2id PHC, empty until set
	IsVerified       bool
	IsLocked         bool
	LoginAttempts    int
	ProfileCompleted bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasCompletedProfile is derived from the backing fields on every call.
func (u User) HasCompletedProfile() bool {
	return u.Name != "" && u.PasswordHash != "" && u.PINHash != ""
}

// SyncProfileCompleted sets the persisted flag from HasCompletedProfile.
// Every write that touches name, password or PIN goes through it.
func (u *User) SyncProfileCompleted() {
	u.ProfileCompleted = u.HasCompletedProfile()
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
