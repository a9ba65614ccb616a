// Package dashboard talks to the remote store-management dashboard: it logs
// a store in and fetches the occupancy fragment with the resulting session.
package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultBaseURL = "https://taggugo.kr"

	ZoneOptionsPath = "/dashboard/proc/store_zone_options.php"
	LoginPath       = "/dashboard/proc/proc_store_login.php"
	StatusPath      = "/dashboard/proc/ajax_use_state_audio.php"

	// loginConfirm is the fixed value the login form sends as store_id_chk.
	loginConfirm = "1"

	// redirectMarker appears in the login response body when the dashboard
	// accepts credentials but answers with a script redirect.
	redirectMarker = "location.replace"

	maxBodyBytes = 4 << 20
)

// Credentials identify one store on the dashboard.
type Credentials struct {
	StoreID    string
	Password   string
	Zone       string
	StoreIndex string
	ZoneIndex  string
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL      string
	Timeout      time.Duration // bound on each login/fetch request
	ProbeTimeout time.Duration // bound on the zone probe
	Transport    http.RoundTripper
}

// Client creates dashboard sessions. It holds no per-store state; cookies
// live on the Session returned by Login.
type Client struct {
	base         *url.URL
	timeout      time.Duration
	probeTimeout time.Duration
	transport    http.RoundTripper
}

func NewClient(opts Options) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse dashboard url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("dashboard url %q needs a scheme and host", raw)
	}

	c := &Client{
		base:         base,
		timeout:      opts.Timeout,
		probeTimeout: opts.ProbeTimeout,
		transport:    opts.Transport,
	}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = 3 * time.Second
	}
	if c.transport == nil {
		c.transport = http.DefaultTransport
	}
	c.transport = otelhttp.NewTransport(c.transport)
	return c, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// LoginResult classifies a login response. The dashboard reports success
// inconsistently, so the raw response is mapped to one of these before
// anything else looks at it.
type LoginResult int

const (
	Authenticated LoginResult = iota
	Rejected
	NetworkFailure
)

func (r LoginResult) String() string {
	switch r {
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	case NetworkFailure:
		return "network_failure"
	}
	return "unknown"
}

// classifyLogin treats a 2xx status or a script redirect in the body as
// success.
func classifyLogin(status int, body []byte) LoginResult {
	if status >= 200 && status < 300 {
		return Authenticated
	}
	if bytes.Contains(body, []byte(redirectMarker)) {
		return Authenticated
	}
	return Rejected
}

// Login runs the zone probe and the login form submission with a fresh
// cookie jar. The returned Session carries the jar for later fetches.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, &AuthError{Cause: AuthNetwork, Err: err}
	}
	hc := &http.Client{
		Jar:       jar,
		Transport: c.transport,
		Timeout:   c.timeout,
	}

	c.probeZone(ctx, hc, creds.StoreID)

	result, status, err := c.submitLogin(ctx, hc, creds)
	switch result {
	case Authenticated:
		log.Printf("[dashboard] logged in as store %s (zone %q)", creds.StoreID, creds.Zone)
		return &Session{
			client: c,
			http:   hc,
			creds:  creds,
		}, nil
	case Rejected:
		return nil, &AuthError{Cause: AuthRejected, StatusCode: status}
	default:
		return nil, &AuthError{Cause: AuthNetwork, Err: err}
	}
}

// probeZone asks the dashboard for the store's zone options. Some
// deployments do not serve this endpoint, so any failure is only logged.
func (c *Client) probeZone(ctx context.Context, hc *http.Client, storeID string) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	u := c.endpoint(ZoneOptionsPath) + "?" + url.Values{"store_id": {storeID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Printf("[dashboard] zone probe skipped: %v", err)
		return
	}
	resp, err := hc.Do(req)
	if err != nil {
		log.Printf("[dashboard] zone probe failed (ignored): %v", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode >= 300 {
		log.Printf("[dashboard] zone probe returned %d (ignored)", resp.StatusCode)
	}
}

func (c *Client) submitLogin(ctx context.Context, hc *http.Client, creds Credentials) (LoginResult, int, error) {
	form := url.Values{
		"store_id":     {creds.StoreID},
		"store_pw":     {creds.Password},
		"store_id_chk": {loginConfirm},
		"store_zone":   {creds.Zone},
	}
	resp, err := postForm(ctx, hc, c.endpoint(LoginPath), form)
	if err != nil {
		return NetworkFailure, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return NetworkFailure, resp.StatusCode, err
	}
	return classifyLogin(resp.StatusCode, body), resp.StatusCode, nil
}

func postForm(ctx context.Context, hc *http.Client, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	return hc.Do(req)
}
