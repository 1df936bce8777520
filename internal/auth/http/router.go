package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/service"
	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/pkg/httpx"
	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
	"github.com/aussiebroadwan/fastlink/pkg/slogx"

	_ "github.com/aussiebroadwan/fastlink/api/fastlink" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// APIPrefix is prepended to every application route.
const APIPrefix = "/api/v1"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	// OTPStore is pinged by /readyz when OTPs live outside the database.
	OTPStore Pinger

	// Transport decides how session tokens travel. Defaults to both.
	Transport SessionTransport

	AuthService     *service.AuthService
	TokenService    *service.TokenService
	UserService     *service.UserService
	JobOrderService *service.JobOrderService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	corsOrigins ...string,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// CORS runs inside the logger so preflights are logged too.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(corsOrigins...),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	if r.Transport == nil {
		r.Transport = bothTransport{cookie: CookieTransport{Secure: true}}
	}

	r.registerAuth()
	r.registerUsers()
	r.registerJobOrders()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			FastLink API
//	@version		0.1.0
//	@description	Passwordless authentication (emailed one-time codes), user profiles and job orders.
//	@description
//	@description				Sessions are JWT access/refresh pairs delivered in the body, in HttpOnly cookies, or both.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/fastlink
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}". Cookie clients send the accessToken cookie instead.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authed wraps h with authentication and a per-user rate limit.
func (r *Router) authed(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:  r.AuthService,
		TokenService: r.TokenService,
		UserService:  r.UserService,
		Transport:    r.Transport,
	}

	// Code and credential endpoints are limited by IP + email to slow down
	// guessing and mail bombing.
	byEmail := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, httpx.RateLimitByIPAndField(httpx.StrictLimit, "email"))
	}

	r.Mux.Handle("POST "+APIPrefix+"/auth/send-registration-otp", byEmail(h.HandleSendRegistrationOTP))
	r.Mux.Handle("POST "+APIPrefix+"/auth/verify-registration-otp", byEmail(h.HandleVerifyRegistrationOTP))
	r.Mux.Handle("POST "+APIPrefix+"/auth/send-login-otp", byEmail(h.HandleSendLoginOTP))
	r.Mux.Handle("POST "+APIPrefix+"/auth/verify-login-otp", byEmail(h.HandleVerifyLoginOTP))
	r.Mux.Handle("POST "+APIPrefix+"/auth/send-password-reset-otp", byEmail(h.HandleSendPasswordResetOTP))
	r.Mux.Handle("POST "+APIPrefix+"/auth/verify-password-reset-otp", byEmail(h.HandleVerifyPasswordResetOTP))
	r.Mux.Handle("POST "+APIPrefix+"/auth/login-password", byEmail(h.HandleLoginPassword))
	r.Mux.Handle("POST "+APIPrefix+"/auth/login-pin", byEmail(h.HandleLoginPIN))

	r.Mux.Handle("POST "+APIPrefix+"/auth/refresh-token",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST "+APIPrefix+"/auth/sign-out",
		httpx.Chain(http.HandlerFunc(h.HandleSignOut),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET "+APIPrefix+"/auth/validate-token", r.authed(h.HandleValidateToken, httpx.LenientLimit))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService, Transport: r.Transport}

	r.Mux.Handle("GET "+APIPrefix+"/users", r.authed(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("GET "+APIPrefix+"/users/me", r.authed(h.HandleMe, httpx.LenientLimit))
	r.Mux.Handle("DELETE "+APIPrefix+"/users/me", r.authed(h.HandleDeleteMe, httpx.ModerateLimit))
	r.Mux.Handle("POST "+APIPrefix+"/users/complete-profile", r.authed(h.HandleCompleteProfile, httpx.ModerateLimit))
	r.Mux.Handle("PUT "+APIPrefix+"/users/profile", r.authed(h.HandleUpdateProfile, httpx.ModerateLimit))

	// Current password/PIN checks are guessable, so these get the strict profile.
	r.Mux.Handle("PUT "+APIPrefix+"/users/password", r.authed(h.HandleUpdatePassword, httpx.StrictLimit))
	r.Mux.Handle("PUT "+APIPrefix+"/users/pin", r.authed(h.HandleUpdatePIN, httpx.StrictLimit))

	r.Mux.Handle("GET "+APIPrefix+"/users/{id}", r.authed(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PUT "+APIPrefix+"/users/{id}", r.authed(h.HandleUpdate, httpx.ModerateLimit))
	r.Mux.Handle("DELETE "+APIPrefix+"/users/{id}", r.authed(h.HandleDelete, httpx.ModerateLimit))
}

func (r *Router) registerJobOrders() {
	h := &JobOrdersHandler{JobOrderService: r.JobOrderService}

	r.Mux.Handle("GET "+APIPrefix+"/job-orders", r.authed(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("POST "+APIPrefix+"/job-orders", r.authed(h.HandleCreate, httpx.ModerateLimit))
	r.Mux.Handle("GET "+APIPrefix+"/job-orders/{id}", r.authed(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PUT "+APIPrefix+"/job-orders/{id}", r.authed(h.HandleUpdate, httpx.ModerateLimit))
	r.Mux.Handle("DELETE "+APIPrefix+"/job-orders/{id}", r.authed(h.HandleDelete, httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	// Monitoring may poll often.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.OTPStore),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
