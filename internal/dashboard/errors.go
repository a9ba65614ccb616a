package dashboard

import (
	"errors"
	"fmt"
)

// ErrSessionExpired is wrapped by fetch errors caused by the dashboard
// answering with its login page instead of data.
var ErrSessionExpired = errors.New("dashboard session expired")

// AuthCause says why a login failed.
type AuthCause int

const (
	AuthNetwork  AuthCause = iota // request never got a response
	AuthRejected                  // dashboard answered but did not accept the credentials
)

func (c AuthCause) String() string {
	switch c {
	case AuthNetwork:
		return "network"
	case AuthRejected:
		return "rejected"
	}
	return "unknown"
}

// AuthError is returned by Client.Login.
type AuthError struct {
	Cause      AuthCause
	StatusCode int // set for AuthRejected
	Err        error
}

func (e *AuthError) Error() string {
	if e.Cause == AuthRejected {
		return fmt.Sprintf("dashboard login rejected (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("dashboard login failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchCause says why a status fetch failed.
type FetchCause int

const (
	FetchNetwork     FetchCause = iota // request never got a response
	FetchHTTPStatus                    // non-2xx response
	FetchAuthExpired                   // dashboard served its login page
	FetchDecode                        // 2xx response that is neither JSON nor a login page
)

func (c FetchCause) String() string {
	switch c {
	case FetchNetwork:
		return "network"
	case FetchHTTPStatus:
		return "http_status"
	case FetchAuthExpired:
		return "auth_expired"
	case FetchDecode:
		return "decode"
	}
	return "unknown"
}

// FetchError is returned by Session.Fetch.
type FetchError struct {
	Cause      FetchCause
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Cause {
	case FetchHTTPStatus:
		return fmt.Sprintf("dashboard fetch: unexpected status %d", e.StatusCode)
	case FetchAuthExpired:
		return "dashboard fetch: " + ErrSessionExpired.Error()
	}
	return fmt.Sprintf("dashboard fetch (%s): %v", e.Cause, e.Err)
}

func (e *FetchError) Unwrap() error {
	if e.Cause == FetchAuthExpired {
		return ErrSessionExpired
	}
	return e.Err
}
