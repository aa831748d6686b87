// Package router assembles the HTTP surface: the middleware stack, the
// public and authenticated auth routes, and the operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authctrl "github.com/tastebase/auth/internal/http/controllers/auth"
	"github.com/tastebase/auth/internal/http/controllers/discovery"
	healthctrl "github.com/tastebase/auth/internal/http/controllers/health"
	sessionctrl "github.com/tastebase/auth/internal/http/controllers/session"
	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/http/middlewares"
	"github.com/tastebase/auth/internal/metrics"
	"github.com/tastebase/auth/internal/rate"
)

// Deps carries everything the router mounts. Nil limiters disable that
// limit; the middleware collapses to a pass-through.
type Deps struct {
	Auth    *authctrl.Controllers
	Devices *sessionctrl.DevicesController
	Health  *healthctrl.HealthController
	JWKS    *discovery.JWKSController

	Validator middlewares.TokenValidator

	// CORSOrigins is the browser origin allowlist; empty disables CORS
	// headers entirely.
	CORSOrigins []string

	GlobalLimiter  rate.Limiter
	LoginLimiter   rate.Limiter
	CodeLimiter    rate.Limiter
	ForgotLimiter  rate.Limiter
	RefreshLimiter rate.Limiter
}

// New builds the full handler tree.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middlewares.WithRequestID())
	r.Use(middlewares.WithLogging())
	r.Use(middlewares.WithRecover())
	if len(d.CORSOrigins) > 0 {
		r.Use(middlewares.WithCORS(d.CORSOrigins))
	}
	r.Use(middlewares.WithMetrics())
	r.Use(middlewares.WithRateLimit(middlewares.RateLimitConfig{
		Limiter:   d.GlobalLimiter,
		Whitelist: []string{"/healthz", "/readyz", "/metrics"},
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Per-endpoint limiters. Login tracks its rejections in the login
	// counter so lockout tuning can see throttled attempts too; code and
	// forgot key on IP+identifier so one caller cannot starve a target.
	loginRL := middlewares.WithRateLimit(middlewares.RateLimitConfig{
		Limiter: d.LoginLimiter,
		OnLimited: func() {
			metrics.LoginsTotal.WithLabelValues("rate_limited").Inc()
		},
	})
	codeRL := middlewares.WithRateLimit(middlewares.RateLimitConfig{
		Limiter: d.CodeLimiter,
		KeyFunc: middlewares.IPAndJSONFieldKey("identifier"),
	})
	forgotRL := middlewares.WithRateLimit(middlewares.RateLimitConfig{
		Limiter: d.ForgotLimiter,
		KeyFunc: middlewares.IPAndJSONFieldKey("identifier"),
	})
	refreshRL := middlewares.WithRateLimit(middlewares.RateLimitConfig{
		Limiter: d.RefreshLimiter,
	})

	r.Route("/v1/auth", func(r chi.Router) {
		r.With(loginRL).Post("/login", d.Auth.Login.Login)
		r.Post("/register", d.Auth.Register.Register)
		r.With(refreshRL).Post("/refresh-token", d.Auth.Refresh.Refresh)
		r.With(codeRL).Post("/send-verification-code", d.Auth.Code.SendCode)
		r.With(forgotRL).Post("/forgot-password", d.Auth.Forgot.Forgot)
		r.Post("/reset-password", d.Auth.Reset.Reset)
		r.Get("/verification-status", d.Auth.Code.VerificationStatus)
		r.Get("/account-status", d.Auth.Login.AccountStatus)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireAuth(d.Validator))
			r.Post("/logout", d.Auth.Logout.Logout)
			r.Post("/change-password", d.Auth.ChangePassword.Change)
			r.Get("/sessions", d.Devices.List)
			r.Delete("/sessions/{id}", d.Devices.RevokeOne)
		})
	})

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/.well-known/jwks.json", d.JWKS.JWKS)

	return r
}
