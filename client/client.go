// Package client is an embeddable SDK for the auth service. A Client
// owns one session: it keeps the current token pair behind a mutex,
// decorates outgoing requests with the access token, and on expiry runs
// a single-flight refresh so that any number of concurrently failing
// requests produce exactly one refresh-token call. There is no package
// level state; every Client is an independent session with an explicit
// ClearAuth teardown.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultRefreshTimeout = 15 * time.Second

	maxErrorBody = 8 << 10
)

const (
	pathLogin              = "/v1/auth/login"
	pathRegister           = "/v1/auth/register"
	pathRefresh            = "/v1/auth/refresh-token"
	pathLogout             = "/v1/auth/logout"
	pathSendCode           = "/v1/auth/send-verification-code"
	pathForgotPassword     = "/v1/auth/forgot-password"
	pathResetPassword      = "/v1/auth/reset-password"
	pathChangePassword     = "/v1/auth/change-password"
	pathSessions           = "/v1/auth/sessions"
	pathVerificationStatus = "/v1/auth/verification-status"
	pathAccountStatus      = "/v1/auth/account-status"
)

// ErrNotAuthenticated means an operation needed a refresh token and the
// client holds none. Log in (or SetTokens) first.
var ErrNotAuthenticated = errors.New("client: not authenticated")

// Options configure a Client. Only BaseURL is required.
type Options struct {
	// BaseURL is the server root, e.g. "https://api.example.com".
	BaseURL string

	// HTTPClient carries the transport, timeout and cookie jar used for
	// every call. Defaults to a plain client with a 30s timeout.
	HTTPClient *http.Client

	// RefreshTimeout bounds one refresh round trip. The refresh runs on
	// its own context so an abandoned waiter never cancels it; this is
	// the only thing that does. Defaults to 15s.
	RefreshTimeout time.Duration

	// OnAuthExpired, when set, is called once each time the session is
	// definitively lost (refresh rejected, token reuse flagged, session
	// revoked). Tokens are already cleared when it runs; the usual
	// reaction is to send the user back to login. Keep it fast, it runs
	// on the failing request's goroutine.
	OnAuthExpired func()
}

// Client is a session-holding API client. Safe for concurrent use.
type Client struct {
	baseURL        string
	http           *http.Client
	authed         *http.Client
	refreshTimeout time.Duration
	onAuthExpired  func()

	mu   sync.RWMutex
	pair TokenPair
	user *User

	sf singleflight.Group
}

// New builds a Client. The returned client is logged out; call Login or
// SetTokens before hitting authenticated endpoints.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("client: base URL is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	refreshTimeout := opts.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = defaultRefreshTimeout
	}

	c := &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           hc,
		refreshTimeout: refreshTimeout,
		onAuthExpired:  opts.OnAuthExpired,
	}
	c.authed = &http.Client{
		Transport: c.Transport(),
		Timeout:   hc.Timeout,
		Jar:       hc.Jar,
	}
	return c, nil
}

// SetTokens resumes a previously persisted session. The next request
// made with an expired access token refreshes as usual; setting only
// RefreshToken is fine, the first call will mint an access token.
func (c *Client) SetTokens(pair TokenPair) {
	c.mu.Lock()
	c.pair = pair
	c.mu.Unlock()
}

// Tokens returns a copy of the current pair. Persist it to resume the
// session in a later process.
func (c *Client) Tokens() TokenPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pair
}

// AccessToken returns the current access token, or "" when logged out.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pair.AccessToken
}

// CurrentUser returns the profile captured at login, or nil.
func (c *Client) CurrentUser() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// ClearAuth drops tokens and profile without telling the server and
// without firing OnAuthExpired. Logout calls it; it is exported for
// callers that tear a session down themselves.
func (c *Client) ClearAuth() {
	c.mu.Lock()
	c.pair = TokenPair{}
	c.user = nil
	c.mu.Unlock()
}

// authLost clears local state and fires OnAuthExpired, but only for the
// caller that actually transitions the client from holding tokens to
// holding none. Concurrent losers of the same race stay silent.
func (c *Client) authLost() {
	c.mu.Lock()
	had := c.pair.AccessToken != "" || c.pair.RefreshToken != ""
	c.pair = TokenPair{}
	c.user = nil
	c.mu.Unlock()

	if had && c.onAuthExpired != nil {
		c.onAuthExpired()
	}
}

func (c *Client) storeTokens(pair TokenPair) {
	c.mu.Lock()
	c.pair = pair
	c.mu.Unlock()
}

func (c *Client) storeAuth(pair TokenPair, user User) {
	c.mu.Lock()
	c.pair = pair
	c.user = &user
	c.mu.Unlock()
}

func (c *Client) refreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pair.RefreshToken
}

// call sends one JSON request and decodes the answer into out (which
// may be nil). Authenticated calls go through the refreshing transport.
func (c *Client) call(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build %s: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	hc := c.http
	if authed {
		hc = c.authed
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(b, apiErr); err != nil || (apiErr.Code == "" && apiErr.Message == "") {
		apiErr.Code = ""
		apiErr.Message = strings.TrimSpace(string(b))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
