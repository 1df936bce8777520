package notify

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
)

// LogNotifier writes codes to the log instead of sending mail. Development
// and end-to-end tests read codes from the "otp_issued" entries.
type LogNotifier struct {
	Logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) SendOTP(ctx context.Context, email string, typ domain.OTPType, code string) error {
	msg, err := Render(email, typ, code)
	if err != nil {
		return err
	}
	n.Logger.InfoContext(ctx, "otp_issued",
		"email", email,
		"otp_type", string(typ),
		"code", code,
		"subject", msg.Subject,
	)
	return nil
}
