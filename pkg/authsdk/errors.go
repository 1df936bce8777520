package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Codes carried in the error envelope of authentication failures.
const (
	CodeNoToken      = "NO_TOKEN"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeInvalidToken = "INVALID_TOKEN"
	CodeRateLimited  = "RATE_LIMITED"
)

// ErrSessionExpired is returned when the session could not be refreshed.
// Local state has been cleared; the caller should send the user back to
// sign in.
var ErrSessionExpired = errors.New("authsdk: session expired")

// APIError is a failure envelope returned by the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// IsTokenExpired reports whether a refresh is worth trying.
func (e *APIError) IsTokenExpired() bool {
	return e.StatusCode == http.StatusUnauthorized && e.Code == CodeTokenExpired
}

// IsTransient reports whether the same request may succeed later.
func (e *APIError) IsTransient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies
// that are not the JSON envelope fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return apiErr
}
