// Package integration boots the whole application on the in-memory
// store and drives it over HTTP through the public client package, the
// way a real deployment is used. Verification codes normally leave the
// system through email; the tests read them back out of the store
// instead, standing in for the user's mailbox.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tastebase/auth/client"
	"github.com/tastebase/auth/internal/bootstrap"
	"github.com/tastebase/auth/internal/config"
	"github.com/tastebase/auth/internal/domain/repository"
)

// baseConfig is the common deployment shape for these tests: in-memory
// storage, a three-strike lockout and a near-zero resend cooldown so
// flows can run back to back. The master key is a raw 32-byte string.
const baseConfig = `
app:
  app_env: dev
storage:
  driver: memory
jwt:
  issuer: authd-int
  audience: tastebase
  access_ttl: 15m
refresh:
  ttl: 720h
  grace_window: 30s
lockout:
  threshold: 3
  duration: 1h
codes:
  ttl: 10m
  cooldown: 1ms
register:
  auto_login: true
security:
  master_key: "integration-test-master-key-32b!"
`

// verifiedSignupConfig turns registration into the code-first flow and
// leaves new accounts logged out after signup.
const verifiedSignupConfig = `
app:
  app_env: dev
storage:
  driver: memory
jwt:
  issuer: authd-int
  audience: tastebase
codes:
  ttl: 10m
  cooldown: 1ms
register:
  auto_login: false
  require_verification: true
security:
  master_key: "integration-test-master-key-32b!"
`

// shortGraceConfig shrinks the refresh grace window far enough that a
// test can sleep past it.
const shortGraceConfig = `
app:
  app_env: dev
storage:
  driver: memory
jwt:
  issuer: authd-int
  audience: tastebase
refresh:
  grace_window: 50ms
register:
  auto_login: true
security:
  master_key: "integration-test-master-key-32b!"
`

// revokeAllConfig additionally escalates a detected replay to an
// account-wide wipe.
const revokeAllConfig = `
app:
  app_env: dev
storage:
  driver: memory
jwt:
  issuer: authd-int
  audience: tastebase
refresh:
  grace_window: 50ms
  replay_revokes_all: true
register:
  auto_login: true
security:
  master_key: "integration-test-master-key-32b!"
`

// rateLimitedConfig allows two login attempts per source per minute.
const rateLimitedConfig = `
app:
  app_env: dev
storage:
  driver: memory
jwt:
  issuer: authd-int
  audience: tastebase
register:
  auto_login: true
rate:
  enabled: true
  window: 1m
  max_requests: 1000
  login:
    limit: 2
    window: 1m
security:
  master_key: "integration-test-master-key-32b!"
`

// resendCooldownConfig uses a realistic one-hour cooldown so a second
// send inside it must be refused.
const resendCooldownConfig = `
app:
  app_env: dev
storage:
  driver: memory
jwt:
  issuer: authd-int
  audience: tastebase
codes:
  ttl: 10m
  cooldown: 1h
security:
  master_key: "integration-test-master-key-32b!"
`

// world is one booted application plus the HTTP server in front of it.
type world struct {
	t   *testing.T
	app *bootstrap.App
	srv *httptest.Server
}

// boot loads cfg as if it were config.yaml, wires the application and
// serves its handler on a loopback listener.
func boot(t *testing.T, cfg string) *world {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	loaded, err := config.Load(path)
	require.NoError(t, err)

	app, err := bootstrap.New(context.Background(), loaded)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	srv := httptest.NewServer(app.Handler)
	t.Cleanup(srv.Close)

	return &world{t: t, app: app, srv: srv}
}

// client builds a fresh SDK client against the server. When onLost is
// not nil it counts auth-lost notifications.
func (w *world) client(onLost *atomic.Int32) *client.Client {
	w.t.Helper()
	opts := client.Options{BaseURL: w.srv.URL}
	if onLost != nil {
		opts.OnAuthExpired = func() { onLost.Add(1) }
	}
	c, err := client.New(opts)
	require.NoError(w.t, err)
	return c
}

// login signs c in and fails the test on any error.
func (w *world) login(c *client.Client, identifier, pw, device string) *client.AuthResponse {
	w.t.Helper()
	resp, err := c.Login(context.Background(), client.LoginRequest{
		Identifier: identifier,
		Password:   pw,
		DeviceInfo: device,
	})
	require.NoError(w.t, err)
	return resp
}

// code reads the live one-time code for target out of the store.
func (w *world) code(target string, kind repository.CodeType) string {
	w.t.Helper()
	vc, err := w.app.DAL.Codes().GetActive(context.Background(), target, kind)
	require.NoError(w.t, err)
	return vc.Code
}

// refresh posts a raw refresh request outside the SDK so tests can
// replay arbitrary tokens. On 200 the rotated pair comes back, on
// anything else the error code.
func (w *world) refresh(token string) (int, client.TokenPair, string) {
	w.t.Helper()
	body, err := json.Marshal(map[string]string{"refresh_token": token})
	require.NoError(w.t, err)
	resp, err := http.Post(w.srv.URL+"/v1/auth/refresh-token", "application/json", bytes.NewReader(body))
	require.NoError(w.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(w.t, err)
	if resp.StatusCode == http.StatusOK {
		var pair client.TokenPair
		require.NoError(w.t, json.Unmarshal(raw, &pair))
		return resp.StatusCode, pair, ""
	}
	var e struct {
		Code string `json:"code"`
	}
	require.NoError(w.t, json.Unmarshal(raw, &e))
	return resp.StatusCode, client.TokenPair{}, e.Code
}

// apiStatus returns the HTTP status carried by an APIError, or zero.
func apiStatus(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
