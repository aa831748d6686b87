// Package bootstrap turns configuration into a running application:
// storage, keys, services, controllers, the HTTP handler, and the
// housekeeping sweeper.
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"

	"github.com/tastebase/auth/internal/config"
	"github.com/tastebase/auth/internal/credential"
	"github.com/tastebase/auth/internal/email"
	httpserver "github.com/tastebase/auth/internal/http"
	authctrl "github.com/tastebase/auth/internal/http/controllers/auth"
	"github.com/tastebase/auth/internal/http/controllers/discovery"
	healthctrl "github.com/tastebase/auth/internal/http/controllers/health"
	sessionctrl "github.com/tastebase/auth/internal/http/controllers/session"
	"github.com/tastebase/auth/internal/http/router"
	authsvc "github.com/tastebase/auth/internal/http/services/auth"
	sessionsvc "github.com/tastebase/auth/internal/http/services/session"
	"github.com/tastebase/auth/internal/jwt"
	"github.com/tastebase/auth/internal/metrics"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/rate"
	"github.com/tastebase/auth/internal/security/password"
	"github.com/tastebase/auth/internal/security/secretbox"
	"github.com/tastebase/auth/internal/session"
	"github.com/tastebase/auth/internal/store"
	"github.com/tastebase/auth/internal/store/adapters/pg"
	"github.com/tastebase/auth/internal/verification"
)

const sweepInterval = 10 * time.Minute

// App is the wired application. The exported fields exist for the CLI,
// which reuses the same wiring for its subcommands.
type App struct {
	Config   *config.Config
	DAL      store.DataAccessLayer
	Redis    *rdb.Client // nil unless cache.kind is redis
	Issuer   *jwt.Issuer
	Sessions session.Manager
	Codes    verification.Service
	Handler  nethttp.Handler
}

// New wires every component for the configuration. The caller owns the
// returned App and must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.L().With(logger.Component("bootstrap"))

	dal, err := store.Open(ctx, store.Config{
		Driver:          cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxConns:        cfg.Storage.Postgres.MaxConns,
		MinConns:        cfg.Storage.Postgres.MinConns,
		ConnMaxLifetime: parseDur(cfg.Storage.Postgres.ConnMaxLifetime),
		Migrate:         cfg.Flags.Migrate,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open store: %w", err)
	}
	log.Info("store ready", logger.String("driver", cfg.Storage.Driver))

	var redisClient *rdb.Client
	if cfg.Cache.Kind == "redis" {
		redisClient = rdb.NewClient(&rdb.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			dal.Close()
			return nil, fmt.Errorf("bootstrap: redis ping: %w", err)
		}
		log.Info("redis ready", logger.String("addr", cfg.Cache.Redis.Addr))
	}

	issuer, err := jwt.NewIssuer(jwt.Options{
		Issuer:      cfg.JWT.Issuer,
		Audience:    cfg.JWT.Audience,
		AccessTTL:   cfg.AccessTTL(),
		Alg:         cfg.JWT.Alg,
		KID:         cfg.JWT.KID,
		Ed25519Seed: cfg.JWT.Ed25519Seed,
		HS256Secret: cfg.JWT.HS256Secret,
	})
	if err != nil {
		closeAll(dal, redisClient)
		return nil, fmt.Errorf("bootstrap: issuer: %w", err)
	}

	masterKey := cfg.Security.MasterKey
	if masterKey == "" {
		masterKey = ephemeralKey()
		log.Warn("security.master_key not set; sealed refresh tokens will not survive a restart")
	}
	box, err := secretbox.New(masterKey)
	if err != nil {
		closeAll(dal, redisClient)
		return nil, fmt.Errorf("bootstrap: secretbox: %w", err)
	}

	var sender email.Sender = email.LogSender{}
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(email.SMTPOptions{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			From:               cfg.SMTP.From,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			TLS:                cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
		log.Info("smtp delivery enabled", logger.String("host", cfg.SMTP.Host))
	}

	verifier := credential.NewVerifier(credential.Deps{
		DAL:           dal,
		LockThreshold: cfg.Lockout.Threshold,
		LockDuration:  cfg.Lockout.Duration,
	})
	codes := verification.NewService(verification.Deps{
		DAL:   dal,
		Email: sender,
		// no SMS provider is wired yet; phone codes land in the log
		SMS: email.LogSender{},
		Opts: verification.Options{
			TTL:         cfg.Codes.TTL,
			Cooldown:    cfg.Codes.Cooldown,
			MaxAttempts: cfg.Codes.MaxAttempts,
			Length:      cfg.Codes.Length,
		},
	})
	sessions := session.NewManager(session.Deps{
		DAL:    dal,
		Issuer: issuer,
		Box:    box,
		Opts: session.Options{
			RefreshTTL:       cfg.RefreshTTL(),
			GraceWindow:      cfg.Refresh.GraceWindow,
			ReplayRevokesAll: cfg.Refresh.ReplayRevokesAll,
		},
	})

	denylist, err := password.LoadDenylist(cfg.Security.PasswordDenylistPath)
	if err != nil {
		closeAll(dal, redisClient)
		return nil, fmt.Errorf("bootstrap: password denylist: %w", err)
	}
	policy := password.Policy{
		MinLength:     cfg.Security.PasswordPolicy.MinLength,
		RequireUpper:  cfg.Security.PasswordPolicy.RequireUpper,
		RequireLower:  cfg.Security.PasswordPolicy.RequireLower,
		RequireDigit:  cfg.Security.PasswordPolicy.RequireDigit,
		RequireSymbol: cfg.Security.PasswordPolicy.RequireSymbol,
	}

	services := authsvc.NewServices(authsvc.Deps{
		DAL:                 dal,
		Verifier:            verifier,
		Sessions:            sessions,
		Codes:               codes,
		Policy:              policy,
		Denylist:            denylist,
		RequireVerification: cfg.Register.RequireVerification,
		AutoLogin:           cfg.Register.AutoLogin,
	})
	devices := sessionsvc.NewDevicesService(sessionsvc.DevicesDeps{
		DAL:      dal,
		Sessions: sessions,
	})

	if err := metrics.Register(nil); err != nil {
		closeAll(dal, redisClient)
		return nil, fmt.Errorf("bootstrap: metrics: %w", err)
	}
	if pgStore, ok := dal.(*pg.Store); ok {
		registerPoolCollector(pgStore)
	}

	var checkCache func(context.Context) error
	if redisClient != nil {
		rc := redisClient
		checkCache = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	var global, login, code, forgot, refresh rate.Limiter
	if cfg.Rate.Enabled {
		factory := rate.NewFactory(redisClient, cfg.Cache.Redis.Prefix+"rl:")
		global = factory.New("global", cfg.Rate.MaxRequests, parseDur(cfg.Rate.Window))
		login = factory.New("login", cfg.Rate.Login.Limit, parseDur(cfg.Rate.Login.Window))
		code = factory.New("code", cfg.Rate.Code.Limit, parseDur(cfg.Rate.Code.Window))
		forgot = factory.New("forgot", cfg.Rate.Forgot.Limit, parseDur(cfg.Rate.Forgot.Window))
		refresh = factory.New("refresh", cfg.Rate.Refresh.Limit, parseDur(cfg.Rate.Refresh.Window))
	}

	handler := router.New(router.Deps{
		Auth:    authctrl.NewControllers(services, sessions, codes),
		Devices: sessionctrl.NewDevicesController(devices),
		Health:  healthctrl.NewHealthController(dal, issuer, checkCache),
		JWKS:    discovery.NewJWKSController(issuer),

		Validator:   sessions,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,

		GlobalLimiter:  global,
		LoginLimiter:   login,
		CodeLimiter:    code,
		ForgotLimiter:  forgot,
		RefreshLimiter: refresh,
	})

	return &App{
		Config:   cfg,
		DAL:      dal,
		Redis:    redisClient,
		Issuer:   issuer,
		Sessions: sessions,
		Codes:    codes,
		Handler:  handler,
	}, nil
}

// Run starts the sweeper and serves HTTP until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	go a.sweep(ctx)
	return httpserver.Serve(ctx, a.Config.Server.Addr, a.Handler)
}

// Close releases the store and cache connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.DAL.Close()
}

// sweep periodically drops expired sessions and dead verification codes.
// The refresh path also deletes expired rows lazily; this pass catches
// sessions nobody ever touches again.
func (a *App) sweep(ctx context.Context) {
	log := logger.L().With(logger.Component("bootstrap.sweeper"))
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sctx, cancel := context.WithTimeout(ctx, time.Minute)
			if n, err := a.Sessions.CleanupExpired(sctx); err != nil {
				log.Warn("session sweep failed", logger.Err(err))
			} else if n > 0 {
				log.Info("expired sessions dropped", logger.Count(n))
			}
			if _, err := a.Codes.Sweep(sctx); err != nil {
				log.Warn("code sweep failed", logger.Err(err))
			}
			cancel()
		}
	}
}

func registerPoolCollector(s *pg.Store) {
	c := metrics.NewPoolCollector(s.Pool)
	if err := prometheus.DefaultRegisterer.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			logger.L().Warn("pool collector registration failed", logger.Err(err))
		}
	}
}

func closeAll(dal store.DataAccessLayer, redis *rdb.Client) {
	if redis != nil {
		_ = redis.Close()
	}
	dal.Close()
}

// parseDur trusts config.Load to have validated the string.
func parseDur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func ephemeralKey() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}
