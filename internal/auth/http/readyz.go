package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/store"
	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
	"github.com/aussiebroadwan/fastlink/pkg/httpx"
	"github.com/aussiebroadwan/fastlink/pkg/jwtx"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database, the signing keys and, when configured, the Redis OTP store.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"one or more checks failed"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeySet,
	otpStore Pinger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK
		degrade := func() {
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			degrade()
		}

		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			degrade()
		}

		if otpStore != nil {
			checks.OTPStore = "ok"
			if err := otpStore.Ping(r.Context()); err != nil {
				checks.OTPStore = "error: " + err.Error()
				degrade()
			}
		}

		httpx.WriteJSON(w, statusCode, authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
