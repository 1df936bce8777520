/*
Package authsdk is the Go client for the FastLink API.

# SDKClient vs Session

The package is organized around two types:

  - SDKClient: stateless calls to the public endpoints (health, sending and
    verifying codes, logins, refresh)
  - Session: keeps a user signed in and calls the authenticated endpoints

Codes are sent with the SDKClient:

	client := authsdk.NewSDKClient("https://api.example.com")

	if _, err := client.SendRegistrationOTP(ctx, "ada@example.com"); err != nil {
		return err
	}

Everything that issues or uses a session goes through a Session:

	session := authsdk.NewSession(client,
		authsdk.WithStateStore(authsdk.NewFileStateStore(path)),
	)
	if err := session.Initialize(ctx); err != nil {
		return err
	}

	user, err := session.VerifyRegistrationOTP(ctx, "ada@example.com", code)

	orders, err := session.ListJobOrders(ctx)

# Transports

With TransportBearer (the default) the session keeps the access and refresh
tokens, saves them in its StateStore, and sends the access token as a
Bearer header. With TransportCookie the server's HttpOnly cookies live in a
cookie jar on the client's HTTPClient and the session never sees a token;
only the cached user is saved.

# Initialization

NewSession starts loading saved state in the background. Initialize waits
for it (10 x 100ms by default, see WithHydrationPoll), validates the saved
credential with the server and, if that fails, refreshes once and validates
again. Initialize is safe to call more than once; only the first call does
any work. Until saved state has loaded, IsAuthenticated falls back to
checking for an access cookie.

# Token Refresh

A request that fails with 401 TOKEN_EXPIRED is refreshed and retried
exactly once. Concurrent requests that expire together share a single
refresh call. When the refresh is rejected the session is cleared and the
error wraps ErrSessionExpired:

	_, err := session.Me(ctx)
	if errors.Is(err, authsdk.ErrSessionExpired) {
		// sign in again
	}

Server outages (5xx, 429, network errors) during refresh are returned as is
and the session is kept.

# Error Handling

API failures are returned as *APIError:

	if apiErr, ok := authsdk.AsAPIError(err); ok {
		switch apiErr.StatusCode {
		case http.StatusConflict:
			// account exists, sign in instead
		case http.StatusTooManyRequests:
			// back off
		}
	}

# Thread Safety

SDKClient and Session are safe for concurrent use.
*/
package authsdk
