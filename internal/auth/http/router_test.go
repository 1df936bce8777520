package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/domain"
	authhttp "github.com/aussiebroadwan/fastlink/internal/auth/http"
	"github.com/aussiebroadwan/fastlink/internal/auth/service"
	"github.com/aussiebroadwan/fastlink/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
	"github.com/aussiebroadwan/fastlink/pkg/cryptox"
	"github.com/aussiebroadwan/fastlink/pkg/httpx"
	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-pepper")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (b *codeBox) SendOTP(_ context.Context, email string, typ domain.OTPType, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.codes[email+"/"+string(typ)] = code
	return nil
}

func (b *codeBox) code(t *testing.T, email string, typ domain.OTPType) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.codes[email+"/"+string(typ)]
	require.True(t, ok, "no code sent to %s", email)
	return c
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type server struct {
	router *authhttp.Router
	box    *codeBox
	store  *sqlite.Store
}

func newServer(t *testing.T, transport string) *server {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    "fastlink-test",
		NumKeys:   1,
	})
	require.NoError(t, err)

	box := &codeBox{codes: map[string]string{}}
	tokens := &service.TokenService{KeyManager: km, Store: st, Issuer: "fastlink-test"}
	tr, err := authhttp.NewSessionTransport(transport, false)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := authhttp.NewRouter(km.KeySet, km.Verifier, "test", st, logger, "http://app.test")
	r.Transport = tr
	r.TokenService = tokens
	r.AuthService = &service.AuthService{Store: st, Ledger: service.NewOTPLedger(st), Notifier: box, Tokens: tokens}
	r.UserService = &service.UserService{Store: st}
	r.JobOrderService = &service.JobOrderService{Store: st}
	r.ApplyRoutes()

	return &server{router: r, box: box, store: st}
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	cookies []*http.Cookie
}

func (s *server) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// register runs the registration flow over HTTP and returns the session.
func (s *server) register(t *testing.T, email string) authsdk.AuthResponse {
	t.Helper()

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/send-registration-otp", body: authsdk.EmailRequest{Email: email}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/verify-registration-otp", body: authsdk.VerifyOTPRequest{
		Email: email,
		OTP:   s.box.code(t, email, domain.OTPTypeRegister),
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authsdk.AuthResponse](t, rec)
}

func TestRegisterFlow(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/send-registration-otp", body: authsdk.EmailRequest{Email: " New@X.com "}})
	require.Equal(t, http.StatusOK, rec.Code)
	sent := decode[authsdk.SendCodeResponse](t, rec)
	require.True(t, sent.Success)
	require.Equal(t, "Verification code sent to your email", sent.Message)
	require.Equal(t, "new@x.com", sent.Email)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/verify-registration-otp", body: authsdk.VerifyOTPRequest{
		Email: "new@x.com",
		OTP:   s.box.code(t, "new@x.com", domain.OTPTypeRegister),
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	res := decode[authsdk.AuthResponse](t, rec)
	require.Equal(t, "Registration successful", res.Message)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.True(t, res.User.IsVerified)
	require.False(t, res.User.HasCompletedProfile)
	require.Empty(t, rec.Result().Cookies())

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/auth/validate-token", token: res.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[authsdk.ValidateTokenResponse](t, rec)
	require.True(t, v.Valid)
	require.Equal(t, res.User.ID, v.User.ID)
}

func TestSendErrors(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)
	s.register(t, "taken@x.com")

	tests := []struct {
		name    string
		path    string
		email   string
		status  int
		message string
	}{
		{"register conflict", "/api/v1/auth/send-registration-otp", "taken@x.com", http.StatusConflict, "User already exists. Please sign in instead."},
		{"invalid email", "/api/v1/auth/send-registration-otp", "nope", http.StatusBadRequest, "Please enter a valid email address"},
		{"missing email", "/api/v1/auth/send-login-otp", "", http.StatusBadRequest, "Email is required"},
		{"login unknown", "/api/v1/auth/send-login-otp", "ghost@x.com", http.StatusNotFound, "No account found with this email. Please register first."},
		{"reset unknown", "/api/v1/auth/send-password-reset-otp", "ghost@x.com", http.StatusNotFound, "No account found with this email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, call{method: http.MethodPost, path: tt.path, body: authsdk.EmailRequest{Email: tt.email}})
			require.Equal(t, tt.status, rec.Code)
			e := decode[httpx.ErrorResponse](t, rec)
			require.False(t, e.Success)
			require.Equal(t, tt.message, e.Message)
		})
	}
}

func TestVerifyWrongCode(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/send-registration-otp", body: authsdk.EmailRequest{Email: "a@x.com"}})
	require.Equal(t, http.StatusOK, rec.Code)

	code := s.box.code(t, "a@x.com", domain.OTPTypeRegister)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/verify-registration-otp", body: authsdk.VerifyOTPRequest{Email: "a@x.com", OTP: wrong}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid or expired verification code", decode[httpx.ErrorResponse](t, rec).Message)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/verify-registration-otp", body: authsdk.VerifyOTPRequest{Email: "a@x.com"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Email and OTP are required", decode[httpx.ErrorResponse](t, rec).Message)
}

func TestNotifierFailure(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)
	s.box.err = errors.New("smtp down")

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/send-registration-otp", body: authsdk.EmailRequest{Email: "a@x.com"}})
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAuthnCodes(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, httpx.CodeNoToken, decode[httpx.ErrorResponse](t, rec).Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", token: "not.a.jwt"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, httpx.CodeInvalidToken, decode[httpx.ErrorResponse](t, rec).Code)

	// A refresh token is not accepted where an access token is expected.
	res := s.register(t, "a@x.com")
	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", token: res.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateTokenAccountState(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)
	res := s.register(t, "a@x.com")
	ctx := context.Background()

	u, err := s.store.Users().GetUserByID(ctx, res.User.ID)
	require.NoError(t, err)
	u.IsLocked = true
	require.NoError(t, s.store.Users().UpdateUser(ctx, u))

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/auth/validate-token", token: res.AccessToken})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "Account is locked", decode[httpx.ErrorResponse](t, rec).Message)

	require.NoError(t, s.store.Users().DeleteUser(ctx, u.ID))
	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/auth/validate-token", token: res.AccessToken})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "User not found", decode[httpx.ErrorResponse](t, rec).Message)
}

func TestRefresh(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)
	res := s.register(t, "a@x.com")

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh-token", body: authsdk.RefreshRequest{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Refresh token is required", decode[httpx.ErrorResponse](t, rec).Message)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh-token", body: authsdk.RefreshRequest{RefreshToken: res.AccessToken}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh-token", body: authsdk.RefreshRequest{RefreshToken: res.RefreshToken}})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[authsdk.RefreshResponse](t, rec)
	require.Equal(t, "Token refreshed successfully", out.Message)
	require.NotEmpty(t, out.AccessToken)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", token: out.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCookieTransport(t *testing.T) {
	s := newServer(t, authhttp.TransportCookie)

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/send-registration-otp", body: authsdk.EmailRequest{Email: "c@x.com"}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/verify-registration-otp", body: authsdk.VerifyOTPRequest{
		Email: "c@x.com",
		OTP:   s.box.code(t, "c@x.com", domain.OTPTypeRegister),
	}})
	require.Equal(t, http.StatusCreated, rec.Code)

	res := decode[authsdk.AuthResponse](t, rec)
	require.Empty(t, res.AccessToken)
	require.Empty(t, res.RefreshToken)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	access, refresh := cookies[httpx.AccessCookieName], cookies[authhttp.RefreshCookieName]
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	require.True(t, access.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, access.SameSite)
	require.Equal(t, "/", access.Path)
	require.Equal(t, 86400, access.MaxAge)
	require.Equal(t, authhttp.RefreshCookiePath, refresh.Path)
	require.Equal(t, 30*86400, refresh.MaxAge)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/auth/validate-token", cookies: []*http.Cookie{access}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh-token", cookies: []*http.Cookie{refresh}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 2)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/sign-out"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "User signed out successfully", decode[httpx.MessageResponse](t, rec).Message)
	for _, c := range rec.Result().Cookies() {
		require.Empty(t, c.Value)
		require.Less(t, c.MaxAge, 0)
	}
}

func TestPasswordResetThenLogin(t *testing.T) {
	s := newServer(t, authhttp.TransportBoth)
	res := s.register(t, "p@x.com")

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users/complete-profile", token: res.AccessToken,
		body: authsdk.CompleteProfileRequest{Name: "Pat", Password: "old-secret", PIN: "1234"}})
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[authsdk.UserResponse](t, rec)
	require.Equal(t, "Profile completed successfully", profile.Message)
	require.True(t, profile.Data.HasCompletedProfile)
	require.True(t, profile.Data.ProfileCompleted)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/send-password-reset-otp", body: authsdk.EmailRequest{Email: "p@x.com"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Password reset code sent to your email", decode[authsdk.SendCodeResponse](t, rec).Message)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/verify-password-reset-otp", body: authsdk.ResetPasswordRequest{
		Email:       "p@x.com",
		OTP:         s.box.code(t, "p@x.com", domain.OTPTypePasswordReset),
		NewPassword: "new-secret",
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Password reset successful", decode[httpx.MessageResponse](t, rec).Message)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login-password", body: authsdk.PasswordLoginRequest{Email: "p@x.com", Password: "old-secret"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login-password", body: authsdk.PasswordLoginRequest{Email: "p@x.com", Password: "new-secret"}})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authsdk.AuthResponse](t, rec)
	require.NotEmpty(t, login.AccessToken)
	require.Len(t, rec.Result().Cookies(), 2)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login-pin", body: authsdk.PINLoginRequest{Email: "p@x.com", PIN: "1234"}})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)
	a := s.register(t, "a@x.com")
	b := s.register(t, "b@x.com")

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/users", token: a.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[authsdk.UserListResponse](t, rec).Data, 2)

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/users/password", token: a.AccessToken,
		body: authsdk.UpdatePasswordRequest{NewPassword: "secret1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Password created successfully", decode[httpx.MessageResponse](t, rec).Message)

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/users/password", token: a.AccessToken,
		body: authsdk.UpdatePasswordRequest{NewPassword: "secret2"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Current password is required to update", decode[httpx.ErrorResponse](t, rec).Message)

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/users/pin", token: a.AccessToken,
		body: authsdk.UpdatePINRequest{NewPIN: "12"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	name := "Bee"
	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/users/" + b.User.ID, token: a.AccessToken,
		body: authsdk.UpdateUserRequest{Name: &name}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Bee", decode[authsdk.UserResponse](t, rec).Data.Name)

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/users/" + b.User.ID, token: a.AccessToken,
		body: authsdk.UpdateUserRequest{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "No valid updates provided", decode[httpx.ErrorResponse](t, rec).Message)

	rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/users/" + b.User.ID, token: a.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[authsdk.UserResponse](t, rec)
	require.Equal(t, "User deleted successfully", deleted.Message)
	require.Nil(t, deleted.Data)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/" + b.User.ID, token: a.AccessToken})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobOrderEndpoints(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)
	a := s.register(t, "a@x.com")

	orderNo := "JO-1"
	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/job-orders", token: a.AccessToken,
		body: authsdk.JobOrderRequest{
			OrderNo:  &orderNo,
			Customer: &authsdk.JobOrderCustomer{Company: "Acme", Attachments: []string{"a.pdf"}},
		}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[authsdk.JobOrderResponse](t, rec)
	require.Equal(t, "Job order created", created.Message)
	require.Equal(t, "pending", created.JobOrder.Status)
	require.Equal(t, a.User.ID, created.JobOrder.CreatedBy)

	id := created.JobOrder.ID
	status := "completed"
	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/job-orders/" + id, token: a.AccessToken,
		body: authsdk.JobOrderRequest{Status: &status}})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[authsdk.JobOrderResponse](t, rec)
	require.Equal(t, "completed", updated.JobOrder.Status)
	require.Equal(t, "Acme", updated.JobOrder.Customer.Company)

	bad := "lost"
	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/job-orders/" + id, token: a.AccessToken,
		body: authsdk.JobOrderRequest{Status: &bad}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/job-orders", token: a.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[authsdk.JobOrderListResponse](t, rec).JobOrders, 1)

	rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/job-orders/" + id, token: a.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/job-orders/" + id, token: a.AccessToken})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Job order not found", decode[httpx.ErrorResponse](t, rec).Message)
}

func TestHealth(t *testing.T) {
	s := newServer(t, authhttp.TransportBearer)

	rec := s.do(t, call{method: http.MethodGet, path: "/livez"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, rec).Status)

	rec = s.do(t, call{method: http.MethodGet, path: "/readyz"})
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[authsdk.HealthResponse](t, rec)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Empty(t, ready.Checks.OTPStore)
}

func TestReadyzOTPStoreDown(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Issuer: "x", NumKeys: 1})
	require.NoError(t, err)

	tests := []struct {
		name   string
		pinger authhttp.Pinger
		status int
		check  string
	}{
		{"reachable", fakePinger{}, http.StatusOK, "ok"},
		{"down", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "error: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := authhttp.ReadyzHandler(time.Now(), "test", st, km.KeySet, tt.pinger)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			require.Equal(t, tt.status, rec.Code)
			res := decode[authsdk.HealthResponse](t, rec)
			require.Equal(t, tt.check, res.Checks.OTPStore)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(t, authhttp.TransportCookie)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/refresh-token", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestNewSessionTransport(t *testing.T) {
	for _, mode := range []string{"bearer", "cookie", "both", "", "BOTH"} {
		_, err := authhttp.NewSessionTransport(mode, true)
		require.NoError(t, err, mode)
	}
	_, err := authhttp.NewSessionTransport("header", true)
	require.Error(t, err)
}
