package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/fastlink/internal/auth/service"
	"github.com/aussiebroadwan/fastlink/pkg/httpx"
	"github.com/aussiebroadwan/fastlink/pkg/slogx"
)

const (
	msgInvalidBody   = "Invalid request body"
	msgInternalError = "Internal server error"
	msgUserNotFound  = "User not found"
)

// writeServiceError maps service errors onto the failure envelope. Unknown
// errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.WriteError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, service.ErrInvalidOTP):
		httpx.WriteError(w, http.StatusBadRequest, "Invalid or expired verification code")
	case errors.Is(err, service.ErrUserExists):
		httpx.WriteError(w, http.StatusConflict, "User already exists. Please sign in instead.")
	case errors.Is(err, service.ErrNoAccount):
		httpx.WriteError(w, http.StatusNotFound, "No account found with this email. Please register first.")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, service.ErrAccountLocked):
		httpx.WriteError(w, http.StatusForbidden, "Account is locked. Please contact administrator")
	case errors.Is(err, service.ErrNotVerified):
		httpx.WriteError(w, http.StatusForbidden, "Email not verified")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrCredentialNotSet):
		httpx.WriteError(w, http.StatusBadRequest, "This sign-in method has not been set up for this account")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
	case errors.Is(err, service.ErrJobOrderNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Job order not found")
	case errors.Is(err, service.ErrNotifierFailed):
		httpx.WriteError(w, http.StatusBadGateway, "Failed to send verification email")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, msgInternalError)
	}
}

// requireUserID returns the authenticated subject, or writes 401.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		httpx.WriteErrorCode(w, http.StatusUnauthorized, "Invalid token", httpx.CodeInvalidToken)
		return "", false
	}
	return userID, true
}
