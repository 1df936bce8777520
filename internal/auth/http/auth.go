package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	"github.com/aussiebroadwan/fastlink/internal/auth/service"
	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
	"github.com/aussiebroadwan/fastlink/pkg/httpx"
	"github.com/aussiebroadwan/fastlink/pkg/slogx"
)

const msgCodeSent = "Verification code sent to your email"

// AuthHandler serves the passwordless flows, password and PIN login, and
// the session endpoints.
type AuthHandler struct {
	AuthService  *service.AuthService
	TokenService *service.TokenService
	UserService  *service.UserService
	Transport    SessionTransport
}

// HandleSendRegistrationOTP godoc
//
//	@Summary		Send registration code
//	@Description	Emails a 6-digit code to start registration. Fails with 409 when a verified account already uses the email.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.EmailRequest		true	"Email"
//	@Success		200		{object}	authsdk.SendCodeResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		409		{object}	httpx.ErrorResponse
//	@Failure		502		{object}	httpx.ErrorResponse
//	@Router			/api/v1/auth/send-registration-otp [post].
func (h *AuthHandler) HandleSendRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, h.AuthService.SendRegistrationOTP, msgCodeSent, "")
}

// HandleSendLoginOTP godoc
//
//	@Summary	Send login code
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.EmailRequest		true	"Email"
//	@Success	200		{object}	authsdk.SendCodeResponse
//	@Failure	403		{object}	httpx.ErrorResponse	"Account locked"
//	@Failure	404		{object}	httpx.ErrorResponse	"No account"
//	@Router		/api/v1/auth/send-login-otp [post].
func (h *AuthHandler) HandleSendLoginOTP(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, h.AuthService.SendLoginOTP, msgCodeSent, "")
}

// HandleSendPasswordResetOTP godoc
//
//	@Summary	Send password reset code
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.EmailRequest		true	"Email"
//	@Success	200		{object}	authsdk.SendCodeResponse
//	@Failure	404		{object}	httpx.ErrorResponse	"No account"
//	@Router		/api/v1/auth/send-password-reset-otp [post].
func (h *AuthHandler) HandleSendPasswordResetOTP(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, h.AuthService.SendPasswordResetOTP,
		"Password reset code sent to your email", "No account found with this email")
}

// sendCode runs a send step. noAccount overrides the 404 message when set.
func (h *AuthHandler) sendCode(w http.ResponseWriter, r *http.Request, send func(context.Context, string) error, message, noAccount string) {
	var req authsdk.EmailRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := send(r.Context(), req.Email); err != nil {
		if noAccount != "" && errors.Is(err, service.ErrNoAccount) {
			httpx.WriteError(w, http.StatusNotFound, noAccount)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SendCodeResponse{
		Success: true,
		Message: message,
		Email:   domain.NormalizeEmail(req.Email),
	})
}

// HandleVerifyRegistrationOTP godoc
//
//	@Summary	Verify registration code
//	@Description	Creates the verified account and issues a session.
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.VerifyOTPRequest	true	"Email and code"
//	@Success	201		{object}	authsdk.AuthResponse
//	@Failure	400		{object}	httpx.ErrorResponse	"Invalid or expired verification code"
//	@Router		/api/v1/auth/verify-registration-otp [post].
func (h *AuthHandler) HandleVerifyRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyOTPRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.AuthService.VerifyRegistrationOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusCreated, "Registration successful", res)
}

// HandleVerifyLoginOTP godoc
//
//	@Summary	Verify login code
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.VerifyOTPRequest	true	"Email and code"
//	@Success	200		{object}	authsdk.AuthResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Router		/api/v1/auth/verify-login-otp [post].
func (h *AuthHandler) HandleVerifyLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyOTPRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.AuthService.VerifyLoginOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusOK, "Login successful", res)
}

// HandleVerifyPasswordResetOTP godoc
//
//	@Summary	Reset password with a code
//	@Description	Sets a new password and unlocks the account. No session is issued.
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.ResetPasswordRequest	true	"Email, code and new password"
//	@Success	200		{object}	httpx.MessageResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Router		/api/v1/auth/verify-password-reset-otp [post].
func (h *AuthHandler) HandleVerifyPasswordResetOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.AuthService.VerifyPasswordResetOTP(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Password reset successful")
}

// HandleLoginPassword godoc
//
//	@Summary	Sign in with password
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.PasswordLoginRequest	true	"Credentials"
//	@Success	200		{object}	authsdk.AuthResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Failure	403		{object}	httpx.ErrorResponse	"Account locked"
//	@Router		/api/v1/auth/login-password [post].
func (h *AuthHandler) HandleLoginPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.PasswordLoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.AuthService.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusOK, "Login successful", res)
}

// HandleLoginPIN godoc
//
//	@Summary	Sign in with PIN
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.PINLoginRequest	true	"Credentials"
//	@Success	200		{object}	authsdk.AuthResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Router		/api/v1/auth/login-pin [post].
func (h *AuthHandler) HandleLoginPIN(w http.ResponseWriter, r *http.Request) {
	var req authsdk.PINLoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.AuthService.LoginWithPIN(r.Context(), req.Email, req.PIN)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, message string, res service.AuthResult) {
	body := h.Transport.Issue(w, res.Tokens)
	httpx.NoCache(w)
	httpx.WriteJSON(w, status, authsdk.AuthResponse{
		Success:      true,
		Message:      message,
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		User:         toUser(res.User),
	})
}

// HandleRefresh godoc
//
//	@Summary		Refresh session
//	@Description	Exchanges a refresh token (body or refreshToken cookie) for a new pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	false	"Refresh token"
//	@Success		200		{object}	authsdk.RefreshResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Router			/api/v1/auth/refresh-token [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	token := h.Transport.RefreshToken(r, req.RefreshToken)
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	pair, user, err := h.TokenService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "User not found or not verified")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("session refreshed", "user_id", user.ID)

	body := h.Transport.Issue(w, pair)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		Success:      true,
		Message:      "Token refreshed successfully",
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	})
}

// HandleSignOut godoc
//
//	@Summary	Sign out
//	@Description	Clears session cookies. Tokens held by bearer clients simply expire.
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	httpx.MessageResponse
//	@Router		/api/v1/auth/sign-out [post].
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	h.Transport.Clear(w)
	httpx.WriteMessage(w, http.StatusOK, "User signed out successfully")
}

// HandleValidateToken godoc
//
//	@Summary	Validate access token
//	@Description	Returns the current user when the token is valid and the account usable.
//	@Tags		Auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	authsdk.ValidateTokenResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Failure	403	{object}	httpx.ErrorResponse	"Account locked or email not verified"
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/api/v1/auth/validate-token [get].
func (h *AuthHandler) HandleValidateToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.UserService.CurrentSession(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountLocked):
			httpx.WriteError(w, http.StatusForbidden, "Account is locked")
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateTokenResponse{
		Success: true,
		Valid:   true,
		Message: "Token is valid",
		User:    toUser(user),
	})
}
