package authsdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SessionState tracks Initialize. It moves forward only:
// Uninitialized -> Hydrating -> Validating -> Ready or Failed.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateHydrating
	StateValidating
	StateReady  // signed in
	StateFailed // not signed in
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateValidating:
		return "validating"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Transport selects how the session credential travels.
type Transport int

const (
	// TransportBearer keeps tokens in memory (and in the StateStore) and
	// sends the access token in the Authorization header.
	TransportBearer Transport = iota

	// TransportCookie relies on HttpOnly cookies held by a cookie jar. The
	// session never reads the tokens.
	TransportCookie
)

// Flow names for the pending-flow scratch state.
const (
	FlowRegister      = "register"
	FlowLogin         = "login"
	FlowPasswordReset = "password_reset"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
	refreshKey        = "refresh"
)

type SessionOption func(*Session)

// WithStateStore persists the session through st. Defaults to memory.
func WithStateStore(st StateStore) SessionOption {
	return func(s *Session) { s.store = st }
}

// WithTransport picks bearer (default) or cookie sessions.
func WithTransport(t Transport) SessionOption {
	return func(s *Session) { s.transport = t }
}

// WithHydrationPoll bounds how long Initialize waits for the StateStore to
// load. Defaults to 10 x 100ms.
func WithHydrationPoll(attempts int, interval time.Duration) SessionOption {
	return func(s *Session) {
		s.pollAttempts = attempts
		s.pollInterval = interval
	}
}

// WithOnExpired registers fn to run when a refresh fails and the session
// is dropped.
func WithOnExpired(fn func()) SessionOption {
	return func(s *Session) { s.onExpired = fn }
}

// WithLogger sets where the session reports failures it cannot return,
// such as a state file that could not be written. Defaults to slog.Default.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// Session keeps a user signed in. It restores saved state, validates it
// with the server, and refreshes expired access tokens. Concurrent callers
// that hit an expired token share one refresh.
//
// A Session is safe for concurrent use.
type Session struct {
	client       *SDKClient
	store        StateStore
	transport    Transport
	pollAttempts int
	pollInterval time.Duration
	onExpired    func()
	logger       *slog.Logger

	hydrated chan struct{}
	refresh  singleflight.Group

	mu           sync.RWMutex
	state        SessionState
	initialized  bool
	loading      bool
	accessToken  string
	refreshToken string
	user         *User
	pendingEmail string
	pendingFlow  string

	// generation changes whenever a new credential is adopted. A caller
	// that saw an older generation knows its failure is already handled.
	generation uint64
}

// NewSession creates a session over client and starts loading saved state.
// With TransportCookie a cookie jar is installed on the client's
// HTTPClient if it has none.
func NewSession(client *SDKClient, opts ...SessionOption) *Session {
	s := &Session{
		client:       client,
		store:        NewMemoryStateStore(),
		pollAttempts: 10,
		pollInterval: 100 * time.Millisecond,
		hydrated:     make(chan struct{}),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.transport == TransportCookie && client.HTTPClient.Jar == nil {
		jar, _ := cookiejar.New(nil) // never fails without options
		client.HTTPClient.Jar = jar
	}

	go s.hydrate()
	return s
}

func (s *Session) hydrate() {
	defer close(s.hydrated)

	st, err := s.store.Load(context.Background())
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A sign-in that finished first wins over saved state.
	if s.generation != 0 {
		return
	}
	if s.transport == TransportBearer {
		s.accessToken = st.AccessToken
		s.refreshToken = st.RefreshToken
	}
	s.user = st.User
	s.pendingEmail = st.PendingEmail
	s.pendingFlow = st.PendingFlow
}

func (s *Session) isHydrated() bool {
	select {
	case <-s.hydrated:
		return true
	default:
		return false
	}
}

// waitHydrated polls for hydration. Running out of attempts is not an
// error; the session simply starts empty.
func (s *Session) waitHydrated(ctx context.Context) error {
	for i := 0; i < s.pollAttempts && !s.isHydrated(); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.hydrated:
		case <-time.After(s.pollInterval):
		}
	}
	return nil
}

// Initialize restores the session: it waits for saved state, validates
// it, and tries one refresh if validation fails. Calling it again, or
// while it runs, returns immediately. Only ctx errors are returned; any
// other failure leaves the session signed out.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized || s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.state = StateHydrating
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.initialized = true
		s.loading = false
		if s.state != StateReady {
			s.state = StateFailed
		}
		s.mu.Unlock()
	}()

	if err := s.waitHydrated(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = StateValidating
	gen := s.generation
	s.mu.Unlock()

	if !s.hasCredential() {
		s.clear(ctx)
		return nil
	}

	if err := s.validate(ctx); err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := s.refreshOnce(ctx, gen); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.clear(ctx)
		return nil
	}

	if err := s.validate(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.clear(ctx)
	}
	return nil
}

// validate asks the server who the credential belongs to.
func (s *Session) validate(ctx context.Context) error {
	res, err := s.client.ValidateToken(ctx, s.bearer())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.user = res.User
	s.state = StateReady
	s.mu.Unlock()

	s.save(ctx)
	return nil
}

// Refresh renews the credential. Concurrent calls share one request.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refreshOnce(ctx, s.currentGeneration())
}

// refreshOnce refreshes unless the credential changed since seen, which
// means another caller already refreshed.
func (s *Session) refreshOnce(ctx context.Context, seen uint64) error {
	ch := s.refresh.DoChan(refreshKey, func() (any, error) {
		if s.currentGeneration() != seen {
			return nil, nil
		}
		// Waiters share the result, so one caller's cancellation must
		// not fail the others.
		return nil, s.doRefresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) doRefresh(ctx context.Context) error {
	s.mu.RLock()
	token := s.refreshToken
	s.mu.RUnlock()

	if s.transport == TransportBearer && token == "" {
		s.expire(ctx)
		return ErrSessionExpired
	}

	res, err := s.client.RefreshToken(ctx, token)
	if err != nil {
		// Outages and rate limits keep the session; the next call retries.
		if apiErr, ok := AsAPIError(err); !ok || apiErr.IsTransient() {
			return err
		}
		s.expire(ctx)
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	s.mu.Lock()
	if s.transport == TransportBearer {
		s.accessToken = res.AccessToken
		s.refreshToken = res.RefreshToken
	}
	s.generation++
	s.mu.Unlock()

	return s.persist(ctx)
}

// expire drops the session after a failed refresh.
func (s *Session) expire(ctx context.Context) {
	s.clear(ctx)
	if s.onExpired != nil {
		s.onExpired()
	}
}

// Do sends req with the session credential. A 401 TOKEN_EXPIRED triggers
// one refresh and one retry, whose result is returned as is. Request
// bodies must be replayable (http.NewRequest sets GetBody for the common
// readers).
func (s *Session) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	gen := s.currentGeneration()

	resp, err := s.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	apiErr, ok := parseErrorResponse(resp, body).(*APIError)
	if !ok || !apiErr.IsTokenExpired() {
		return resp, nil
	}

	if err := s.refreshOnce(ctx, gen); err != nil {
		return nil, err
	}

	retry, err := rewind(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, retry)
}

func (s *Session) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	r := req.Clone(ctx)
	if token := s.bearer(); token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.HTTPClient.Do(r)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func rewind(ctx context.Context, req *http.Request) (*http.Request, error) {
	r := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("authsdk: request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r.Body = body
	return r, nil
}

// doJSON sends an authenticated JSON request and decodes the reply.
func (s *Session) doJSON(ctx context.Context, method, path string, in, out any, expectedStatus int) error {
	req, err := s.client.newRequest(ctx, method, apiPrefix+path, in)
	if err != nil {
		return err
	}
	resp, err := s.Do(ctx, req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, expectedStatus)
}

// ============================================================================
// Sign-in flows
// ============================================================================

// VerifyRegistrationOTP finishes registration and signs in.
func (s *Session) VerifyRegistrationOTP(ctx context.Context, email, otp string) (*User, error) {
	res, err := s.client.VerifyRegistrationOTP(ctx, email, otp)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, res)
}

// VerifyLoginOTP finishes an OTP login and signs in.
func (s *Session) VerifyLoginOTP(ctx context.Context, email, otp string) (*User, error) {
	res, err := s.client.VerifyLoginOTP(ctx, email, otp)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, res)
}

func (s *Session) LoginWithPassword(ctx context.Context, email, password string) (*User, error) {
	res, err := s.client.LoginWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, res)
}

func (s *Session) LoginWithPIN(ctx context.Context, email, pin string) (*User, error) {
	res, err := s.client.LoginWithPIN(ctx, email, pin)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, res)
}

// adopt takes over a freshly issued session and ends any pending flow.
func (s *Session) adopt(ctx context.Context, res *AuthResponse) (*User, error) {
	s.mu.Lock()
	if s.transport == TransportBearer {
		s.accessToken = res.AccessToken
		s.refreshToken = res.RefreshToken
	}
	s.user = res.User
	s.state = StateReady
	s.pendingEmail = ""
	s.pendingFlow = ""
	s.generation++
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return res.User, err
	}
	return res.User, nil
}

// SignOut clears the server cookies and all local state. Local state is
// cleared even when the server call fails.
func (s *Session) SignOut(ctx context.Context) error {
	_, err := s.client.SignOut(ctx)
	s.clear(ctx)
	return err
}

// ============================================================================
// State
// ============================================================================

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Initialized reports whether Initialize has finished.
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Loading reports whether Initialize is running.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a user is signed in. Until saved state
// has loaded it falls back to checking for an access cookie.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	signedIn := s.user != nil
	s.mu.RUnlock()

	if signedIn {
		return true
	}
	if !s.isHydrated() {
		return s.hasCookie(accessCookieName)
	}
	return false
}

// AccessToken returns the current access token. It is always empty with
// TransportCookie.
func (s *Session) AccessToken() string { return s.bearer() }

func (s *Session) bearer() string {
	if s.transport != TransportBearer {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Session) hasCredential() bool {
	if s.transport == TransportCookie {
		return s.hasCookie(accessCookieName) || s.hasCookie(refreshCookieName)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != "" || s.refreshToken != ""
}

// hasCookie looks for a live cookie the jar would send to the auth API.
// Expired cookies are never returned by the jar.
func (s *Session) hasCookie(name string) bool {
	jar := s.client.HTTPClient.Jar
	if jar == nil {
		return false
	}
	u, err := url.Parse(s.client.url(apiPrefix + "/auth/refresh-token"))
	if err != nil {
		return false
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}

// clear forgets the user and credential, locally and in the StateStore.
// A pending flow survives: no session was established to complete it.
func (s *Session) clear(ctx context.Context) {
	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.state = StateFailed
	pending := s.pendingEmail != "" || s.pendingFlow != ""
	s.mu.Unlock()

	if jar := s.client.HTTPClient.Jar; jar != nil && s.transport == TransportCookie {
		if u, err := url.Parse(s.client.url("/")); err == nil {
			jar.SetCookies(u, []*http.Cookie{
				{Name: accessCookieName, Path: "/", MaxAge: -1},
				{Name: refreshCookieName, Path: apiPrefix + "/auth", MaxAge: -1},
			})
		}
	}

	if pending {
		s.save(ctx)
		return
	}
	if err := s.store.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear session state", "error", err)
	}
}

// save persists the session where the caller has no error to return.
func (s *Session) save(ctx context.Context) {
	if err := s.persist(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to save session state", "error", err)
	}
}

func (s *Session) persist(ctx context.Context) error {
	s.mu.RLock()
	st := PersistedState{
		User:         s.user,
		PendingEmail: s.pendingEmail,
		PendingFlow:  s.pendingFlow,
	}
	if s.transport == TransportBearer {
		st.AccessToken = s.accessToken
		st.RefreshToken = s.refreshToken
	}
	s.mu.RUnlock()

	return s.store.Save(ctx, st)
}

// ============================================================================
// Pending flow
// ============================================================================

// SetPendingEmail remembers the address a code was sent to, so a verify
// screen can pick it up after a restart.
func (s *Session) SetPendingEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	s.pendingEmail = email
	s.mu.Unlock()
	return s.persist(ctx)
}

// SetPendingFlow remembers which flow (FlowRegister, FlowLogin or
// FlowPasswordReset) is waiting for a code.
func (s *Session) SetPendingFlow(ctx context.Context, flow string) error {
	s.mu.Lock()
	s.pendingFlow = flow
	s.mu.Unlock()
	return s.persist(ctx)
}

// Pending returns the pending email and flow.
func (s *Session) Pending() (email, flow string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingEmail, s.pendingFlow
}

func (s *Session) ClearPending(ctx context.Context) error {
	s.mu.Lock()
	s.pendingEmail = ""
	s.pendingFlow = ""
	s.mu.Unlock()
	return s.persist(ctx)
}
