package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
)

// Session is one authenticated dashboard login. It is not safe for
// concurrent fetches; the poller uses at most one at a time.
type Session struct {
	client  *Client
	http    *http.Client
	creds   Credentials
	expired atomic.Bool
}

// StoreID returns the store this session is logged in as.
func (s *Session) StoreID() string { return s.creds.StoreID }

// Expired reports whether a fetch saw the login page, meaning the dashboard
// no longer honours this session's cookies.
func (s *Session) Expired() bool { return s.expired.Load() }

type statusEnvelope struct {
	ReturnHTML json.RawMessage `json:"return_html"`
}

// Fetch posts the store and zone indices and returns the HTML fragment from
// the response envelope. A missing or empty fragment is returned as "" with
// no error: an idle store has nothing to show.
func (s *Session) Fetch(ctx context.Context, storeIndex, zoneIndex string) (string, error) {
	form := url.Values{
		"store_idx":   {storeIndex},
		"store_z_idx": {zoneIndex},
	}
	resp, err := postForm(ctx, s.http, s.client.endpoint(StatusPath), form)
	if err != nil {
		return "", &FetchError{Cause: FetchNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{Cause: FetchNetwork, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{Cause: FetchHTTPStatus, StatusCode: resp.StatusCode}
	}

	var env statusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		if looksLikeLoginPage(body) {
			s.expired.Store(true)
			return "", &FetchError{Cause: FetchAuthExpired, StatusCode: resp.StatusCode}
		}
		return "", &FetchError{Cause: FetchDecode, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode status envelope: %w", err)}
	}

	var fragment string
	if len(env.ReturnHTML) > 0 {
		// A null or non-string field is treated like a missing one.
		_ = json.Unmarshal(env.ReturnHTML, &fragment)
	}
	return fragment, nil
}

// looksLikeLoginPage recognises the dashboard's login form or its
// redirect-to-login script.
func looksLikeLoginPage(body []byte) bool {
	lower := bytes.ToLower(body)
	for _, marker := range [][]byte{
		[]byte("proc_store_login"),
		[]byte(`name="store_pw"`),
		[]byte(redirectMarker),
	} {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}
