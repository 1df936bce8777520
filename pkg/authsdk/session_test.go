package authsdk_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// fakeAPI mimics the auth endpoints closely enough to drive a Session.
// Exactly one access and one refresh token are valid at a time.
type fakeAPI struct {
	cookie bool

	mu      sync.Mutex
	access  string
	refresh string
	issued  int
	lastPut string

	rejectRefresh bool
	alwaysExpired bool
	barrier       *sync.WaitGroup

	refreshes atomic.Int32
	validates atomic.Int32
	meHits    atomic.Int32
}

var testUser = authsdk.User{ID: "u1", Email: "ada@example.com", Name: "Ada", IsVerified: true}

func newFakeAPI(t *testing.T, cookie bool) (*fakeAPI, *httptest.Server) {
	f := &fakeAPI{cookie: cookie, access: "access-0", refresh: "refresh-0"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login-password", f.login)
	mux.HandleFunc("POST /api/v1/auth/refresh-token", f.refreshToken)
	mux.HandleFunc("POST /api/v1/auth/sign-out", f.signOut)
	mux.HandleFunc("GET /api/v1/auth/validate-token", f.validateToken)
	mux.HandleFunc("GET /api/v1/users/me", f.me)
	mux.HandleFunc("PUT /api/v1/users/profile", f.updateProfile)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

// expire invalidates the access token in circulation.
func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "revoked"
}

func (f *fakeAPI) mint(w http.ResponseWriter) (string, string) {
	f.issued++
	f.access = fmt.Sprintf("access-%d", f.issued)
	f.refresh = fmt.Sprintf("refresh-%d", f.issued)
	if f.cookie {
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: f.access, Path: "/", HttpOnly: true})
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: f.refresh, Path: "/api/v1/auth", HttpOnly: true})
		return "", ""
	}
	return f.access, f.refresh
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if c, err := r.Cookie("accessToken"); token == "" && err == nil {
		token = c.Value
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.alwaysExpired && token != "" && token == f.access
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func expired(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false, "message": "Token expired", "code": authsdk.CodeTokenExpired,
	})
}

func (f *fakeAPI) login(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	access, refresh := f.mint(w)
	f.mu.Unlock()
	u := testUser
	writeJSON(w, http.StatusOK, authsdk.AuthResponse{
		Success: true, Message: "Login successful", AccessToken: access, RefreshToken: refresh, User: &u,
	})
}

func (f *fakeAPI) refreshToken(w http.ResponseWriter, r *http.Request) {
	f.refreshes.Add(1)

	var req authsdk.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if c, err := r.Cookie("refreshToken"); req.RefreshToken == "" && err == nil {
		req.RefreshToken = c.Value
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectRefresh || req.RefreshToken != f.refresh {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false, "message": "Invalid or expired refresh token",
		})
		return
	}
	access, refresh := f.mint(w)
	writeJSON(w, http.StatusOK, authsdk.RefreshResponse{
		Success: true, Message: "Token refreshed successfully", AccessToken: access, RefreshToken: refresh,
	})
}

func (f *fakeAPI) signOut(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "accessToken", Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: "refreshToken", Path: "/api/v1/auth", MaxAge: -1})
	writeJSON(w, http.StatusOK, authsdk.MessageResponse{Success: true, Message: "User signed out successfully"})
}

func (f *fakeAPI) validateToken(w http.ResponseWriter, r *http.Request) {
	f.validates.Add(1)
	if !f.authorized(r) {
		expired(w)
		return
	}
	u := testUser
	writeJSON(w, http.StatusOK, authsdk.ValidateTokenResponse{Success: true, Valid: true, Message: "Token is valid", User: &u})
}

func (f *fakeAPI) me(w http.ResponseWriter, r *http.Request) {
	f.meHits.Add(1)
	if !f.authorized(r) {
		f.mu.Lock()
		barrier := f.barrier
		f.mu.Unlock()
		if barrier != nil {
			barrier.Done()
			barrier.Wait()
		}
		expired(w)
		return
	}
	u := testUser
	writeJSON(w, http.StatusOK, authsdk.UserResponse{Success: true, Message: "Current user retrieved successfully", Data: &u})
}

func (f *fakeAPI) updateProfile(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		expired(w)
		return
	}
	var req authsdk.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return
	}
	f.mu.Lock()
	f.lastPut = req.Name
	f.mu.Unlock()

	u := testUser
	u.Name = req.Name
	writeJSON(w, http.StatusOK, authsdk.UserResponse{Success: true, Message: "Profile updated successfully", Data: &u})
}

func signedIn(t *testing.T, srv *httptest.Server, opts ...authsdk.SessionOption) *authsdk.Session {
	t.Helper()
	s := authsdk.NewSession(authsdk.NewSDKClient(srv.URL), opts...)
	_, err := s.LoginWithPassword(context.Background(), testUser.Email, "Sup3rSecret!")
	require.NoError(t, err)
	return s
}

func TestSessionLoginPersists(t *testing.T) {
	_, srv := newFakeAPI(t, false)
	store := authsdk.NewMemoryStateStore()
	s := signedIn(t, srv, authsdk.WithStateStore(store))

	require.True(t, s.IsAuthenticated())
	require.Equal(t, authsdk.StateReady, s.State())
	require.Equal(t, "access-1", s.AccessToken())
	require.Equal(t, testUser.Email, s.User().Email)

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-1", st.AccessToken)
	require.Equal(t, "refresh-1", st.RefreshToken)
	require.Equal(t, testUser.ID, st.User.ID)
}

func TestSessionRefreshesExpiredToken(t *testing.T) {
	f, srv := newFakeAPI(t, false)
	store := authsdk.NewMemoryStateStore()
	s := signedIn(t, srv, authsdk.WithStateStore(store))
	f.expire()

	user, err := s.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, testUser.ID, user.ID)
	require.EqualValues(t, 1, f.refreshes.Load())
	require.EqualValues(t, 2, f.meHits.Load())
	require.Equal(t, "access-2", s.AccessToken())

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "refresh-2", st.RefreshToken)
}

func TestSessionConcurrentExpiryRefreshesOnce(t *testing.T) {
	f, srv := newFakeAPI(t, false)
	s := signedIn(t, srv)
	f.expire()

	// Both requests must see the expired token before either refreshes.
	var barrier sync.WaitGroup
	barrier.Add(2)
	f.mu.Lock()
	f.barrier = &barrier
	f.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Me(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, f.refreshes.Load())
	require.EqualValues(t, 4, f.meHits.Load())
}

func TestSessionRefreshRejected(t *testing.T) {
	f, srv := newFakeAPI(t, false)
	store := authsdk.NewMemoryStateStore()
	var expiredCalls atomic.Int32
	s := signedIn(t, srv,
		authsdk.WithStateStore(store),
		authsdk.WithOnExpired(func() { expiredCalls.Add(1) }),
	)
	f.expire()
	f.mu.Lock()
	f.rejectRefresh = true
	f.mu.Unlock()

	_, err := s.Me(context.Background())
	require.ErrorIs(t, err, authsdk.ErrSessionExpired)

	apiErr, ok := authsdk.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	require.False(t, s.IsAuthenticated())
	require.Nil(t, s.User())
	require.Empty(t, s.AccessToken())
	require.Equal(t, authsdk.StateFailed, s.State())
	require.EqualValues(t, 1, expiredCalls.Load())

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, authsdk.PersistedState{}, st)
}

func TestSessionRetriesOnlyOnce(t *testing.T) {
	f, srv := newFakeAPI(t, false)
	s := signedIn(t, srv)
	f.mu.Lock()
	f.alwaysExpired = true
	f.mu.Unlock()

	_, err := s.Me(context.Background())
	apiErr, ok := authsdk.AsAPIError(err)
	require.True(t, ok)
	require.True(t, apiErr.IsTokenExpired())
	require.EqualValues(t, 1, f.refreshes.Load())
	require.EqualValues(t, 2, f.meHits.Load())
}

func TestSessionReplaysBodyAfterRefresh(t *testing.T) {
	f, srv := newFakeAPI(t, false)
	s := signedIn(t, srv)
	f.expire()

	user, err := s.UpdateProfile(context.Background(), "Grace")
	require.NoError(t, err)
	require.Equal(t, "Grace", user.Name)
	require.Equal(t, "Grace", s.User().Name)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, "Grace", f.lastPut)
}

func TestSessionDoPassesOtherUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false, "message": "Invalid token", "code": authsdk.CodeInvalidToken,
		})
	}))
	t.Cleanup(srv.Close)

	s := authsdk.NewSession(authsdk.NewSDKClient(srv.URL))
	_, err := s.Me(context.Background())

	apiErr, ok := authsdk.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, authsdk.CodeInvalidToken, apiErr.Code)
	require.Equal(t, "Invalid token", apiErr.Message)
	require.NotErrorIs(t, err, authsdk.ErrSessionExpired)
}

func TestSessionInitialize(t *testing.T) {
	tests := []struct {
		name          string
		saved         authsdk.PersistedState
		rejectRefresh bool
		wantState     authsdk.SessionState
		wantRefreshes int32
		wantValidates int32
	}{
		{
			name:      "nothing saved",
			wantState: authsdk.StateFailed,
		},
		{
			name:          "valid access token",
			saved:         authsdk.PersistedState{AccessToken: "access-0", RefreshToken: "refresh-0"},
			wantState:     authsdk.StateReady,
			wantValidates: 1,
		},
		{
			name:          "stale access token",
			saved:         authsdk.PersistedState{AccessToken: "stale", RefreshToken: "refresh-0"},
			wantState:     authsdk.StateReady,
			wantRefreshes: 1,
			wantValidates: 2,
		},
		{
			name:          "refresh rejected",
			saved:         authsdk.PersistedState{AccessToken: "stale", RefreshToken: "refresh-0"},
			rejectRefresh: true,
			wantState:     authsdk.StateFailed,
			wantRefreshes: 1,
			wantValidates: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeAPI(t, false)
			f.mu.Lock()
			f.rejectRefresh = tt.rejectRefresh
			f.mu.Unlock()

			ctx := context.Background()
			store := authsdk.NewMemoryStateStore()
			require.NoError(t, store.Save(ctx, tt.saved))

			s := authsdk.NewSession(authsdk.NewSDKClient(srv.URL), authsdk.WithStateStore(store))
			require.NoError(t, s.Initialize(ctx))

			require.True(t, s.Initialized())
			require.False(t, s.Loading())
			require.Equal(t, tt.wantState, s.State())
			require.Equal(t, tt.wantState == authsdk.StateReady, s.IsAuthenticated())
			require.Equal(t, tt.wantRefreshes, f.refreshes.Load())
			require.Equal(t, tt.wantValidates, f.validates.Load())

			if tt.wantState == authsdk.StateFailed {
				st, err := store.Load(ctx)
				require.NoError(t, err)
				require.Equal(t, authsdk.PersistedState{}, st)
			}

			// Only the first call does any work.
			require.NoError(t, s.Initialize(ctx))
			require.Equal(t, tt.wantValidates, f.validates.Load())
		})
	}
}

func TestSessionInitializeFromFile(t *testing.T) {
	f, srv := newFakeAPI(t, false)
	ctx := context.Background()

	store := authsdk.NewFileStateStore(t.TempDir() + "/session.json")
	require.NoError(t, store.Save(ctx, authsdk.PersistedState{AccessToken: "access-0", RefreshToken: "refresh-0"}))

	s := authsdk.NewSession(authsdk.NewSDKClient(srv.URL), authsdk.WithStateStore(store))
	require.NoError(t, s.Initialize(ctx))
	require.Equal(t, authsdk.StateReady, s.State())
	require.Equal(t, testUser.ID, s.User().ID)
	require.EqualValues(t, 1, f.validates.Load())

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, testUser.Email, st.User.Email)
}

func TestSessionInitializeCanceled(t *testing.T) {
	_, srv := newFakeAPI(t, false)
	store := &blockingStore{release: make(chan struct{})}
	t.Cleanup(func() { close(store.release) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := authsdk.NewSession(authsdk.NewSDKClient(srv.URL), authsdk.WithStateStore(store))
	require.ErrorIs(t, s.Initialize(ctx), context.Canceled)
	require.Equal(t, authsdk.StateFailed, s.State())
}

// blockingStore never finishes loading until released.
type blockingStore struct {
	authsdk.MemoryStateStore
	release chan struct{}
}

func (b *blockingStore) Load(ctx context.Context) (authsdk.PersistedState, error) {
	<-b.release
	return b.MemoryStateStore.Load(ctx)
}

func TestSessionCookieHeuristicBeforeHydration(t *testing.T) {
	_, srv := newFakeAPI(t, true)
	store := &blockingStore{release: make(chan struct{})}
	t.Cleanup(func() { close(store.release) })

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: "access-0", Path: "/"}})

	client := authsdk.NewSDKClient(srv.URL)
	client.HTTPClient.Jar = jar

	s := authsdk.NewSession(client,
		authsdk.WithStateStore(store),
		authsdk.WithTransport(authsdk.TransportCookie),
		authsdk.WithHydrationPoll(2, 10*time.Millisecond),
	)
	require.True(t, s.IsAuthenticated())

	// Hydration never completes, so Initialize gives up waiting and
	// validates the cookie.
	require.NoError(t, s.Initialize(context.Background()))
	require.Equal(t, authsdk.StateReady, s.State())
	require.Equal(t, testUser.ID, s.User().ID)
}

func TestSessionCookieTransport(t *testing.T) {
	f, srv := newFakeAPI(t, true)
	ctx := context.Background()
	store := authsdk.NewMemoryStateStore()

	s := signedIn(t, srv, authsdk.WithStateStore(store), authsdk.WithTransport(authsdk.TransportCookie))
	require.Empty(t, s.AccessToken())
	require.True(t, s.IsAuthenticated())

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, st.AccessToken)
	require.Empty(t, st.RefreshToken)
	require.NotNil(t, st.User)

	f.expire()
	_, err = s.Me(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, f.refreshes.Load())

	require.NoError(t, s.SignOut(ctx))
	require.False(t, s.IsAuthenticated())

	// The jar no longer carries a credential.
	_, err = s.Me(ctx)
	require.Error(t, err)
}

func TestSessionPendingFlow(t *testing.T) {
	_, srv := newFakeAPI(t, false)
	ctx := context.Background()
	store := authsdk.NewMemoryStateStore()
	s := authsdk.NewSession(authsdk.NewSDKClient(srv.URL), authsdk.WithStateStore(store))
	require.NoError(t, s.Initialize(ctx))

	require.NoError(t, s.SetPendingEmail(ctx, testUser.Email))
	require.NoError(t, s.SetPendingFlow(ctx, authsdk.FlowLogin))

	email, flow := s.Pending()
	require.Equal(t, testUser.Email, email)
	require.Equal(t, authsdk.FlowLogin, flow)

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, authsdk.FlowLogin, st.PendingFlow)

	// Signing in ends the flow.
	_, err = s.LoginWithPassword(ctx, testUser.Email, "Sup3rSecret!")
	require.NoError(t, err)
	email, flow = s.Pending()
	require.Empty(t, email)
	require.Empty(t, flow)
}

func TestSessionPendingSurvivesRestart(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
	}{
		{"no credential", "", ""},
		{"stale credential", "access-stale", "refresh-stale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeAPI(t, false)
			ctx := context.Background()
			path := t.TempDir() + "/session.json"

			first := authsdk.NewSession(authsdk.NewSDKClient(srv.URL), authsdk.WithStateStore(authsdk.NewFileStateStore(path)))
			require.NoError(t, first.Initialize(ctx))
			require.NoError(t, first.SetPendingEmail(ctx, testUser.Email))
			require.NoError(t, first.SetPendingFlow(ctx, authsdk.FlowLogin))
			if tt.access != "" {
				require.NoError(t, authsdk.NewFileStateStore(path).Save(ctx, authsdk.PersistedState{
					AccessToken:  tt.access,
					RefreshToken: tt.refresh,
					PendingEmail: testUser.Email,
					PendingFlow:  authsdk.FlowLogin,
				}))
			}

			// Every restart that fails to sign in keeps the flow on disk.
			for range 2 {
				s := authsdk.NewSession(authsdk.NewSDKClient(srv.URL), authsdk.WithStateStore(authsdk.NewFileStateStore(path)))
				require.NoError(t, s.Initialize(ctx))
				require.Equal(t, authsdk.StateFailed, s.State())

				email, flow := s.Pending()
				require.Equal(t, testUser.Email, email)
				require.Equal(t, authsdk.FlowLogin, flow)

				st, err := authsdk.NewFileStateStore(path).Load(ctx)
				require.NoError(t, err)
				require.Equal(t, authsdk.PersistedState{PendingEmail: testUser.Email, PendingFlow: authsdk.FlowLogin}, st)
			}
		})
	}
}

// failingStore loads fine but cannot write.
type failingStore struct {
	authsdk.MemoryStateStore
}

func (*failingStore) Save(context.Context, authsdk.PersistedState) error {
	return errors.New("disk full")
}

func TestSessionLogsSaveFailure(t *testing.T) {
	_, srv := newFakeAPI(t, true)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: "access-0", Path: "/"}})

	client := authsdk.NewSDKClient(srv.URL)
	client.HTTPClient.Jar = jar

	s := authsdk.NewSession(client,
		authsdk.WithStateStore(&failingStore{}),
		authsdk.WithTransport(authsdk.TransportCookie),
		authsdk.WithLogger(logger),
	)
	require.NoError(t, s.Initialize(context.Background()))
	require.Equal(t, authsdk.StateReady, s.State())
	require.Contains(t, buf.String(), "failed to save session state")
	require.Contains(t, buf.String(), "disk full")
}

func TestSessionStateString(t *testing.T) {
	require.Equal(t, "ready", authsdk.StateReady.String())
	require.Equal(t, "SessionState(42)", authsdk.SessionState(42).String())
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name          string
		err           *authsdk.APIError
		wantExpired   bool
		wantTransient bool
	}{
		{"token expired", &authsdk.APIError{StatusCode: 401, Code: authsdk.CodeTokenExpired}, true, false},
		{"invalid token", &authsdk.APIError{StatusCode: 401, Code: authsdk.CodeInvalidToken}, false, false},
		{"rate limited", &authsdk.APIError{StatusCode: 429, Code: authsdk.CodeRateLimited}, false, true},
		{"bad gateway", &authsdk.APIError{StatusCode: 502}, false, true},
		{"conflict", &authsdk.APIError{StatusCode: 409}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantExpired, tt.err.IsTokenExpired())
			require.Equal(t, tt.wantTransient, tt.err.IsTransient())

			wrapped := fmt.Errorf("call: %w", tt.err)
			got, ok := authsdk.AsAPIError(wrapped)
			require.True(t, ok)
			require.Same(t, tt.err, got)
		})
	}

	_, ok := authsdk.AsAPIError(errors.New("boom"))
	require.False(t, ok)
}
