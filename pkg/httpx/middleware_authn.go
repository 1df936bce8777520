package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
	"github.com/aussiebroadwan/fastlink/pkg/slogx"
)

// AccessCookieName is the cookie that carries the access token when the
// cookie transport is enabled.
const AccessCookieName = "accessToken"

// AccessTokenFromRequest returns the bearer token, falling back to the
// access cookie.
func AccessTokenFromRequest(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")); raw != "" {
			return raw
		}
	}
	if c, err := r.Cookie(AccessCookieName); err == nil {
		return c.Value
	}
	return ""
}

// AuthnMiddleware verifies the access token and attaches the user id and
// claims to the request context. Failures carry NO_TOKEN, TOKEN_EXPIRED or
// INVALID_TOKEN so clients know whether a refresh is worth trying.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := AccessTokenFromRequest(r)
			if raw == "" {
				writeAuthnError(w, "Access token is required", CodeNoToken)
				return
			}

			claims, err := jwtx.VerifyType(v, raw, jwtx.TokenTypeAccess)
			switch {
			case err == nil:
			case errors.Is(err, jwtx.ErrExpired):
				writeAuthnError(w, "Token has expired", CodeTokenExpired)
				return
			default:
				log.Warn("jwt verify failed", "err", err)
				writeAuthnError(w, "Invalid token", CodeInvalidToken)
				return
			}

			ctx = contextWithAuth(ctx, claims)
			ctx = slogx.WithUserID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 header plus the JSON envelope.
func writeAuthnError(w http.ResponseWriter, message, code string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+message+`"`)
	WriteErrorCode(w, http.StatusUnauthorized, message, code)
}
