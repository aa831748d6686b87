package router_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tastebase/auth/internal/domain/repository"
	authctrl "github.com/tastebase/auth/internal/http/controllers/auth"
	"github.com/tastebase/auth/internal/http/controllers/discovery"
	healthctrl "github.com/tastebase/auth/internal/http/controllers/health"
	sessionctrl "github.com/tastebase/auth/internal/http/controllers/session"
	authdto "github.com/tastebase/auth/internal/http/dto/auth"
	sessdto "github.com/tastebase/auth/internal/http/dto/session"
	"github.com/tastebase/auth/internal/http/router"
	authsvc "github.com/tastebase/auth/internal/http/services/auth"
	"github.com/tastebase/auth/internal/jwt"
	"github.com/tastebase/auth/internal/metrics"
	"github.com/tastebase/auth/internal/rate"
	"github.com/tastebase/auth/internal/session"
	"github.com/tastebase/auth/internal/store/adapters/memory"
	"github.com/tastebase/auth/internal/verification"
)

// ---------------------------------------------------------------------------
// stubs: every service succeeds with a fixed answer; the router tests care
// about wiring, middleware order and status codes, not business logic
// ---------------------------------------------------------------------------

type okLogin struct{}

func (okLogin) Login(context.Context, authdto.LoginRequest, string) (*authdto.LoginResponse, error) {
	return &authdto.LoginResponse{
		TokenResponse: authdto.TokenResponse{AccessToken: "acc", TokenType: "Bearer"},
		User:          authdto.UserResponse{ID: "u1"},
	}, nil
}

func (okLogin) Status(context.Context, string) (*authdto.AccountStatusResponse, error) {
	return &authdto.AccountStatusResponse{}, nil
}

type okRegister struct{}

func (okRegister) Register(context.Context, authdto.RegisterRequest, string) (*authdto.RegisterResponse, error) {
	return &authdto.RegisterResponse{User: authdto.UserResponse{ID: "u1"}}, nil
}

type okLogout struct{}

func (okLogout) Logout(context.Context, authsvc.LogoutInput) (int, error) { return 1, nil }

type okForgot struct{}

func (okForgot) Forgot(context.Context, string) error { return nil }

type okReset struct{}

func (okReset) Reset(context.Context, authdto.ResetPasswordRequest) (*authdto.ResetPasswordResponse, error) {
	return &authdto.ResetPasswordResponse{Message: "ok"}, nil
}

type okChange struct{}

func (okChange) Change(context.Context, string, string, authdto.ChangePasswordRequest) (*authdto.ChangePasswordResponse, error) {
	return &authdto.ChangePasswordResponse{Message: "ok"}, nil
}

type okDevices struct{}

func (okDevices) List(context.Context, string, string) (*sessdto.DevicesResponse, error) {
	return &sessdto.DevicesResponse{Devices: []sessdto.DeviceResponse{}, Total: 0}, nil
}

func (okDevices) RevokeOne(context.Context, string, string) error { return nil }

type okSessions struct {
	session.Manager
}

func (okSessions) Refresh(context.Context, string) (*session.TokenPair, error) {
	return &session.TokenPair{
		AccessToken:     "acc",
		AccessExpiresAt: time.Now().Add(time.Minute),
		RefreshToken:    "ref",
		TokenType:       "Bearer",
	}, nil
}

type okCodes struct {
	verification.Service
}

func (okCodes) Issue(context.Context, string, repository.CodeType) (*verification.Issued, error) {
	return &verification.Issued{ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

func (okCodes) Active(context.Context, string, repository.CodeType) (*verification.ActiveInfo, error) {
	return &verification.ActiveInfo{}, nil
}

type stubValidator struct {
	err error
}

func (s *stubValidator) Validate(context.Context, string) (*jwt.AccessClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	claims := &jwt.AccessClaims{SessionID: "sess-1"}
	claims.Subject = "u1"
	return claims, nil
}

type allowLimiter struct{}

func (allowLimiter) Allow(context.Context, string) (rate.Result, error) {
	return rate.Result{Allowed: true, Remaining: 99}, nil
}

type denyLimiter struct{ retryAfter time.Duration }

func (d denyLimiter) Allow(context.Context, string) (rate.Result, error) {
	return rate.Result{Allowed: false, RetryAfter: d.retryAfter, WindowTTL: d.retryAfter}, nil
}

// newDeps assembles a full router over stubs; tests mutate the deps they
// care about before building the handler.
func newDeps(t *testing.T) router.Deps {
	t.Helper()

	issuer, err := jwt.NewIssuer(jwt.Options{Issuer: "authd-test", Audience: "clients", AccessTTL: time.Minute})
	require.NoError(t, err)

	services := authsvc.Services{
		Register:       okRegister{},
		Login:          okLogin{},
		Logout:         okLogout{},
		Forgot:         okForgot{},
		Reset:          okReset{},
		ChangePassword: okChange{},
	}

	return router.Deps{
		Auth:      authctrl.NewControllers(services, okSessions{}, okCodes{}),
		Devices:   sessionctrl.NewDevicesController(okDevices{}),
		Health:    healthctrl.NewHealthController(memory.New(), issuer, nil),
		JWKS:      discovery.NewJWKSController(issuer),
		Validator: &stubValidator{},
	}
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func send(h http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestRouteTable(t *testing.T) {
	h := router.New(newDeps(t))

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		authed bool
		want   int
	}{
		{"login", http.MethodPost, "/v1/auth/login", `{"identifier":"maria","password":"hunter2hunter2"}`, false, http.StatusOK},
		{"register", http.MethodPost, "/v1/auth/register", `{"username":"nova","password":"longenough1"}`, false, http.StatusCreated},
		{"refresh", http.MethodPost, "/v1/auth/refresh-token", `{"refresh_token":"ref-1"}`, false, http.StatusOK},
		{"send code", http.MethodPost, "/v1/auth/send-verification-code", `{"identifier":"maria@example.com"}`, false, http.StatusOK},
		{"forgot", http.MethodPost, "/v1/auth/forgot-password", `{"identifier":"maria@example.com"}`, false, http.StatusAccepted},
		{"reset", http.MethodPost, "/v1/auth/reset-password", `{"identifier":"maria@example.com","reset_code":"123456","new_password":"freshfresh1","confirm_password":"freshfresh1"}`, false, http.StatusOK},
		{"verification status", http.MethodGet, "/v1/auth/verification-status?identifier=maria@example.com", "", false, http.StatusOK},
		{"account status", http.MethodGet, "/v1/auth/account-status?identifier=maria", "", false, http.StatusOK},
		{"logout", http.MethodPost, "/v1/auth/logout", "", true, http.StatusOK},
		{"change password", http.MethodPost, "/v1/auth/change-password", `{"old_password":"oldoldold1","new_password":"newnewnew1","confirm_password":"newnewnew1"}`, true, http.StatusOK},
		{"sessions", http.MethodGet, "/v1/auth/sessions", "", true, http.StatusOK},
		{"revoke session", http.MethodDelete, "/v1/auth/sessions/sess-2", "", true, http.StatusOK},
		{"healthz", http.MethodGet, "/healthz", "", false, http.StatusOK},
		{"readyz", http.MethodGet, "/readyz", "", false, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", false, http.StatusOK},
		{"jwks", http.MethodGet, "/.well-known/jwks.json", "", false, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bearer := ""
			if tc.authed {
				bearer = "tok"
			}
			rec := send(h, tc.method, tc.path, tc.body, bearer)
			require.Equal(t, tc.want, rec.Code, "body: %s", rec.Body.String())
		})
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := router.New(newDeps(t))

	t.Run("unknown route", func(t *testing.T) {
		rec := get(h, "/v1/auth/frobnicate")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "ROUTE_NOT_FOUND")
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := get(h, "/v1/auth/login")
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		require.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
	})
}

func TestAuthenticatedGroup(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		h := router.New(newDeps(t))
		rec := send(h, http.MethodGet, "/v1/auth/sessions", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "TOKEN_MISSING")
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("expired token", func(t *testing.T) {
		d := newDeps(t)
		d.Validator = &stubValidator{err: jwt.ErrTokenExpired}
		h := router.New(d)

		rec := send(h, http.MethodGet, "/v1/auth/sessions", "", "stale")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("garbage token", func(t *testing.T) {
		d := newDeps(t)
		d.Validator = &stubValidator{err: jwt.ErrTokenInvalid}
		h := router.New(d)

		rec := send(h, http.MethodGet, "/v1/auth/sessions", "", "ghost")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "TOKEN_INVALID")
	})

	t.Run("public routes skip validation", func(t *testing.T) {
		d := newDeps(t)
		d.Validator = &stubValidator{err: jwt.ErrTokenInvalid}
		h := router.New(d)

		rec := send(h, http.MethodPost, "/v1/auth/login",
			`{"identifier":"maria","password":"hunter2hunter2"}`, "garbage")
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGlobalLimiterSparesOperationalEndpoints(t *testing.T) {
	d := newDeps(t)
	d.GlobalLimiter = denyLimiter{retryAfter: 30 * time.Second}
	h := router.New(d)

	t.Run("api throttled", func(t *testing.T) {
		rec := send(h, http.MethodPost, "/v1/auth/login",
			`{"identifier":"maria","password":"hunter2hunter2"}`, "")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "30", rec.Header().Get("Retry-After"))
		require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("health exempt", func(t *testing.T) {
		require.Equal(t, http.StatusOK, get(h, "/healthz").Code)
		require.Equal(t, http.StatusOK, get(h, "/readyz").Code)
		require.Equal(t, http.StatusOK, get(h, "/metrics").Code)
	})
}

func TestLoginLimiterFeedsLoginCounter(t *testing.T) {
	require.NoError(t, metrics.Register(nil))

	d := newDeps(t)
	d.LoginLimiter = denyLimiter{retryAfter: 10 * time.Second}
	h := router.New(d)

	rec := send(h, http.MethodPost, "/v1/auth/login",
		`{"identifier":"maria","password":"hunter2hunter2"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other endpoints keep working; the limiter is scoped to login
	rec = send(h, http.MethodPost, "/v1/auth/register",
		`{"username":"nova","password":"longenough1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	// the rejection lands in the login counter for lockout tuning
	scrape := get(h, "/metrics").Body.String()
	require.Contains(t, scrape, `auth_logins_total{result="rate_limited"}`)
}

func TestRequestIDEchoed(t *testing.T) {
	h := router.New(newDeps(t))

	t.Run("generated", func(t *testing.T) {
		rec := get(h, "/healthz")
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", "req-7f")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, "req-7f", rec.Header().Get("X-Request-ID"))
	})
}

func TestCORSForConfiguredOrigins(t *testing.T) {
	d := newDeps(t)
	d.CORSOrigins = []string{"https://app.tastebase.dev"}
	h := router.New(d)

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
		req.Header.Set("Origin", "https://app.tastebase.dev")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "https://app.tastebase.dev", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("foreign origin gets no grant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("actual request carries the grant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://app.tastebase.dev")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "https://app.tastebase.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disabled without configured origins", func(t *testing.T) {
		plain := router.New(newDeps(t))
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://app.tastebase.dev")
		rec := httptest.NewRecorder()
		plain.ServeHTTP(rec, req)

		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		require.Empty(t, rec.Header().Get("Vary"))
	})
}

func TestJWKSDocument(t *testing.T) {
	h := router.New(newDeps(t))

	rec := get(h, "/.well-known/jwks.json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age")
	require.Contains(t, rec.Body.String(), `"keys"`)
}
