package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient calls the FastLink API without any session state. Use a
// Session for anything that needs to stay signed in.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

const apiPrefix = "/api/v1"

// GetLiveness calls /livez.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.call(ctx, http.MethodGet, "/livez", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReadiness calls /readyz. A degraded service returns an *APIError
// with status 503.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.call(ctx, http.MethodGet, "/readyz", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) sendCode(ctx context.Context, path, email string) (*SendCodeResponse, error) {
	var out SendCodeResponse
	if err := c.call(ctx, http.MethodPost, apiPrefix+path, EmailRequest{Email: email}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendRegistrationOTP emails a registration code.
func (c *SDKClient) SendRegistrationOTP(ctx context.Context, email string) (*SendCodeResponse, error) {
	return c.sendCode(ctx, "/auth/send-registration-otp", email)
}

// SendLoginOTP emails a login code to a verified account.
func (c *SDKClient) SendLoginOTP(ctx context.Context, email string) (*SendCodeResponse, error) {
	return c.sendCode(ctx, "/auth/send-login-otp", email)
}

// SendPasswordResetOTP emails a password reset code.
func (c *SDKClient) SendPasswordResetOTP(ctx context.Context, email string) (*SendCodeResponse, error) {
	return c.sendCode(ctx, "/auth/send-password-reset-otp", email)
}

// VerifyPasswordResetOTP sets a new password. It does not sign in.
func (c *SDKClient) VerifyPasswordResetOTP(ctx context.Context, email, otp, newPassword string) (*MessageResponse, error) {
	var out MessageResponse
	req := ResetPasswordRequest{Email: email, OTP: otp, NewPassword: newPassword}
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/auth/verify-password-reset-otp", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyRegistrationOTP finishes registration. Prefer the Session method,
// which also keeps the issued tokens.
func (c *SDKClient) VerifyRegistrationOTP(ctx context.Context, email, otp string) (*AuthResponse, error) {
	var out AuthResponse
	req := VerifyOTPRequest{Email: email, OTP: otp}
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/auth/verify-registration-otp", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyLoginOTP finishes an OTP login.
func (c *SDKClient) VerifyLoginOTP(ctx context.Context, email, otp string) (*AuthResponse, error) {
	var out AuthResponse
	req := VerifyOTPRequest{Email: email, OTP: otp}
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/auth/verify-login-otp", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginWithPassword signs in with email and password.
func (c *SDKClient) LoginWithPassword(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	req := PasswordLoginRequest{Email: email, Password: password}
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/auth/login-password", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginWithPIN signs in with email and PIN.
func (c *SDKClient) LoginWithPIN(ctx context.Context, email, pin string) (*AuthResponse, error) {
	var out AuthResponse
	req := PINLoginRequest{Email: email, PIN: pin}
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/auth/login-pin", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a new pair. With cookie
// sessions refreshToken is empty and the cookie jar supplies it.
func (c *SDKClient) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var out RefreshResponse
	req := RefreshRequest{RefreshToken: refreshToken}
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/auth/refresh-token", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateToken checks an access token and returns the current user.
func (c *SDKClient) ValidateToken(ctx context.Context, accessToken string) (*ValidateTokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, apiPrefix+"/auth/validate-token", nil, accessToken)
	if err != nil {
		return nil, err
	}
	var out ValidateTokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignOut asks the server to clear session cookies.
func (c *SDKClient) SignOut(ctx context.Context) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, apiPrefix+"/auth/sign-out", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
