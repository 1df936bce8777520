package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
)

type flowCopy struct {
	Subject  string
	Title    string
	Tagline  string
	Intro    string
	Warning  string
	Accent   string
	ValidFor string
}

var flows = map[domain.OTPType]flowCopy{
	domain.OTPTypeRegister: {
		Subject: "Welcome to FastLink - Verify Your Email",
		Title:   "Welcome to FastLink!",
		Tagline: "Complete your registration with the verification code below",
		Intro:   "Thank you for joining FastLink. To complete your registration, please use the verification code below.",
		Warning: "Never share this code with anyone. FastLink will never ask for your verification code via phone or email.",
		Accent:  "#667eea",
	},
	domain.OTPTypeLogin: {
		Subject: "FastLink - Your Login Verification Code",
		Title:   "FastLink Login",
		Tagline: "Secure access to your account",
		Intro:   "Someone requested to sign in to your FastLink account. Use the verification code below to continue.",
		Warning: "If you didn't request this login, someone may be trying to access your account.",
		Accent:  "#667eea",
	},
	domain.OTPTypePasswordReset: {
		Subject: "FastLink - Password Reset Verification",
		Title:   "Password Reset",
		Tagline: "Reset your FastLink password",
		Intro:   "We received a request to reset the password for your FastLink account. Use the verification code below to set a new password.",
		Warning: "If you didn't request a password reset, please ignore this email. Your password will not change.",
		Accent:  "#e74c3c",
	},
}

type templateData struct {
	flowCopy
	Email string
	Code  string
}

// Render builds the email for an OTP of the given type.
func Render(email string, typ domain.OTPType, code string) (Message, error) {
	fc, ok := flows[typ]
	if !ok {
		return Message{}, fmt.Errorf("notify: unknown otp type %q", typ)
	}
	fc.ValidFor = "10 minutes"
	data := templateData{flowCopy: fc, Email: email, Code: code}

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, "otp.txt.tmpl", data); err != nil {
		return Message{}, err
	}
	if err := htmlTemplates.ExecuteTemplate(&html, "otp.html.tmpl", data); err != nil {
		return Message{}, err
	}

	return Message{To: email, Subject: fc.Subject, Text: text.String(), HTML: html.String()}, nil
}
