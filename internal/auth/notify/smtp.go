package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends multipart text/HTML mail through an SMTP relay.
type SMTPNotifier struct {
	cfg    SMTPConfig
	logger *slog.Logger

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{cfg: cfg, logger: logger, sendMail: smtp.SendMail}
}

func (n *SMTPNotifier) SendOTP(ctx context.Context, email string, typ domain.OTPType, code string) error {
	msg, err := Render(email, typ, code)
	if err != nil {
		return err
	}
	body, err := n.encode(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	if err := n.sendMail(addr, auth, n.cfg.From, []string{email}, body); err != nil {
		n.logger.ErrorContext(ctx, "smtp send failed", "email", email, "otp_type", string(typ), "error", err)
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	n.logger.InfoContext(ctx, "otp email sent", "email", email, "otp_type", string(typ))
	return nil
}

func (n *SMTPNotifier) encode(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	parts := []struct{ contentType, body string }{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
