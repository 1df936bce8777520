package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/fastlink/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: RequestsPerWindow refill over Window,
// and up to Burst may be spent at once.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Profiles used by the router. Each one can be tuned with
// RATELIMIT_{STRICT,MODERATE,LENIENT}_{REQUESTS,WINDOW_SEC,BURST}.
var (
	// StrictLimit guards code delivery and credential checks.
	StrictLimit = ParseRateLimitFromEnv("STRICT", RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5})

	// ModerateLimit covers refresh and authenticated writes.
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20})

	// LenientLimit covers reads, sign-out and health checks.
	LenientLimit = ParseRateLimitFromEnv("LENIENT", RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100})
)

// ParseRateLimitFromEnv overlays RATELIMIT_<prefix>_REQUESTS, _WINDOW_SEC
// and _BURST onto def. Values that are not positive integers are ignored.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnvInt(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	return n, err == nil && n > 0
}

// KeyExtractor picks the bucket a request is charged to. An empty key
// means the request is not limited.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the client address: the first X-Forwarded-For
// hop, then X-Real-IP, then RemoteAddr.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func userKeyExtractor(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// BodyFieldKeyExtractor reads a string field from a JSON body, or a form
// value otherwise, trimmed and lower-cased so one address maps to one
// bucket. A JSON body is put back for the handler.
func BodyFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil || !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			if err := r.ParseForm(); err != nil {
				return ""
			}
			return strings.ToLower(strings.TrimSpace(r.FormValue(field)))
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var fields map[string]any
		if json.Unmarshal(raw, &fields) != nil {
			return ""
		}
		v, _ := fields[field].(string)
		return strings.ToLower(strings.TrimSpace(v))
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketSet holds one limiter per key. A bucket idle for longer than it
// takes to refill is indistinguishable from a new one, so sweep drops it.
type bucketSet struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newBucketSet(cfg RateLimitConfig) *bucketSet {
	perSecond := float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()
	refill := time.Duration(math.Ceil(float64(cfg.Burst)/perSecond)) * time.Second
	return &bucketSet{
		limit:     rate.Limit(perSecond),
		burst:     cfg.Burst,
		idle:      max(refill, time.Minute),
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (s *bucketSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > s.idle {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > s.idle {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// RateLimitMiddleware charges each request to the bucket chosen by key and
// answers 429 RATE_LIMITED with Retry-After once the bucket is empty.
func RateLimitMiddleware(cfg RateLimitConfig, key KeyExtractor) Middleware {
	buckets := newBucketSet(cfg)
	limit := strconv.Itoa(cfg.RequestsPerWindow)
	window := cfg.Window.String()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key, request not limited", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			res := buckets.get(k, now).ReserveN(now, 1)
			if wait := res.DelayFrom(now); wait > 0 {
				res.CancelAt(now)
				retryAfter := max(int(math.Ceil(wait.Seconds())), 1)

				slogx.FromContext(r.Context()).Warn("rate limit exceeded",
					"key", k,
					"path", r.URL.Path,
					"retry_after", retryAfter,
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", limit)
				w.Header().Set("X-RateLimit-Window", window)
				WriteErrorCode(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", CodeRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser limits per authenticated user and address; it must run
// after AuthnMiddleware.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", userKeyExtractor, IPKeyExtractor))
}

// RateLimitByIPAndField limits per address and a JSON body field, such as
// the email a code is sent to.
func RateLimitByIPAndField(cfg RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", IPKeyExtractor, BodyFieldKeyExtractor(field)))
}
