package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/pkg/httpx"
)

const (
	TransportBearer = "bearer"
	TransportCookie = "cookie"
	TransportBoth   = "both"

	RefreshCookieName = "refreshToken"
	RefreshCookiePath = "/api/v1/auth"

	accessCookieMaxAge  = 24 * time.Hour
	refreshCookieMaxAge = 30 * 24 * time.Hour
)

// BodyTokens are the tokens a transport wants echoed in the JSON body.
type BodyTokens struct {
	AccessToken  string
	RefreshToken string
}

// SessionTransport decides how a session credential travels between server
// and client. The auth flows never see it.
type SessionTransport interface {
	// Issue hands pair to the client and returns what belongs in the body.
	Issue(w http.ResponseWriter, pair domain.TokenPair) BodyTokens

	// RefreshToken picks the refresh credential from the request. fromBody
	// is the value the client put in the JSON body, if any.
	RefreshToken(r *http.Request, fromBody string) string

	// Clear drops whatever Issue left on the client.
	Clear(w http.ResponseWriter)
}

// NewSessionTransport returns the transport for mode. secure sets the
// Secure attribute on cookies.
func NewSessionTransport(mode string, secure bool) (SessionTransport, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case TransportBearer:
		return BearerTransport{}, nil
	case TransportCookie:
		return CookieTransport{Secure: secure}, nil
	case TransportBoth, "":
		return bothTransport{cookie: CookieTransport{Secure: secure}}, nil
	}
	return nil, fmt.Errorf("unknown session transport %q", mode)
}

// BearerTransport returns tokens in the body. The client stores them and
// sends the access token in the Authorization header.
type BearerTransport struct{}

func (BearerTransport) Issue(_ http.ResponseWriter, pair domain.TokenPair) BodyTokens {
	return BodyTokens{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}

func (BearerTransport) RefreshToken(_ *http.Request, fromBody string) string {
	return strings.TrimSpace(fromBody)
}

func (BearerTransport) Clear(http.ResponseWriter) {}

// CookieTransport keeps tokens in HttpOnly cookies so scripts never see
// them. The refresh cookie is only sent to the auth endpoints.
type CookieTransport struct {
	Secure bool
}

func (t CookieTransport) Issue(w http.ResponseWriter, pair domain.TokenPair) BodyTokens {
	http.SetCookie(w, t.cookie(httpx.AccessCookieName, pair.AccessToken, "/", accessCookieMaxAge))
	http.SetCookie(w, t.cookie(RefreshCookieName, pair.RefreshToken, RefreshCookiePath, refreshCookieMaxAge))
	return BodyTokens{}
}

func (t CookieTransport) RefreshToken(r *http.Request, fromBody string) string {
	if c, err := r.Cookie(RefreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(fromBody)
}

func (t CookieTransport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, t.cookie(httpx.AccessCookieName, "", "/", -1))
	http.SetCookie(w, t.cookie(RefreshCookieName, "", RefreshCookiePath, -1))
}

func (t CookieTransport) cookie(name, value, path string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if maxAge < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(maxAge.Seconds())
	}
	return c
}

// bothTransport sets cookies and also returns tokens in the body, so
// browser and non-browser clients can share one deployment.
type bothTransport struct {
	cookie CookieTransport
}

func (t bothTransport) Issue(w http.ResponseWriter, pair domain.TokenPair) BodyTokens {
	t.cookie.Issue(w, pair)
	return BearerTransport{}.Issue(w, pair)
}

func (t bothTransport) RefreshToken(r *http.Request, fromBody string) string {
	if v := strings.TrimSpace(fromBody); v != "" {
		return v
	}
	return t.cookie.RefreshToken(r, "")
}

func (t bothTransport) Clear(w http.ResponseWriter) { t.cookie.Clear(w) }
