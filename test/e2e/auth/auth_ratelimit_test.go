package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitSendCode verifies code endpoints allow five requests per
// minute for the same address.
func TestRateLimitSendCode(t *testing.T) {
	svc := setupServiceWithDefaultRateLimits(t)
	client := authsdk.NewSDKClient(svc.BaseURL)

	for i := range 5 {
		_, err := client.SendLoginOTP(t.Context(), "limited@example.com")
		requireStatus(t, err, http.StatusNotFound)
		t.Logf("request %d answered normally", i+1)
	}

	_, err := client.SendLoginOTP(t.Context(), "limited@example.com")
	apiErr := requireStatus(t, err, http.StatusTooManyRequests)
	require.True(t, apiErr.IsTransient())

	// Another address is counted separately.
	_, err = client.SendLoginOTP(t.Context(), "other@example.com")
	requireStatus(t, err, http.StatusNotFound)
}

func TestRateLimitHealthEndpoints(t *testing.T) {
	svc := setupServiceWithDefaultRateLimits(t)
	client := authsdk.NewSDKClient(svc.BaseURL)

	for i := range 30 {
		health, err := client.GetLiveness(t.Context())
		require.NoError(t, err, "liveness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)
	}
}
