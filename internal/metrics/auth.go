// Package metrics holds the Prometheus collectors. They live in a
// standalone package so services and HTTP middleware can share them
// without import cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by result (ok, bad_credentials, locked, rate_limited).",
	}, []string{"result"})

	RefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_total",
		Help: "Refresh calls by outcome (rotated, grace_replay, reuse_detected, no_match, invalid, revoked, expired).",
	}, []string{"outcome"})

	TokenReuseTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_reuse_total",
		Help: "Refresh-token replays outside the grace window.",
	})

	LockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_lockouts_total",
		Help: "Accounts locked after consecutive login failures.",
	})

	CodesIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_codes_issued_total",
		Help: "Verification codes issued by type.",
	}, []string{"type"})

	CodesConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_codes_consumed_total",
		Help: "Verification code consumptions by result (ok, invalid).",
	}, []string{"result"})

	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auth_sessions_active",
		Help: "Sessions opened minus sessions revoked by this process (approximate).",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Requests processed by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests currently in flight by method and route.",
	}, []string{"method", "route"})
)

// Register adds every collector to the registry (default when nil);
// double registration is tolerated so tests can call this freely.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		LoginsTotal,
		RefreshTotal,
		TokenReuseTotal,
		LockoutsTotal,
		CodesIssuedTotal,
		CodesConsumedTotal,
		SessionsActive,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPInflight,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
