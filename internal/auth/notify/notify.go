// Package notify delivers OTP codes to users.
package notify

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
)

var ErrDeliveryFailed = errors.New("notify: delivery failed")

// Notifier sends a one-time code for the given flow.
type Notifier interface {
	SendOTP(ctx context.Context, email string, typ domain.OTPType, code string) error
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}
