// Package pg is the PostgreSQL storage backend, on pgxpool directly.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebase/auth/internal/domain/repository"
)

// Config tunes the connection pool.
type Config struct {
	DSN             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// Store is an open PostgreSQL backend.
type Store struct {
	pool *pgxpool.Pool

	userRepo    *userRepo
	sessionRepo *sessionRepo
	codeRepo    *codeRepo
	attemptRepo *attemptRepo
}

// Open connects, pings, and optionally applies the embedded migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	} else {
		poolCfg.MinConns = 2
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	s := &Store{pool: pool}
	s.userRepo = &userRepo{pool: pool}
	s.sessionRepo = &sessionRepo{pool: pool}
	s.codeRepo = &codeRepo{pool: pool}
	s.attemptRepo = &attemptRepo{pool: pool}

	if cfg.Migrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Users() repository.UserRepository                 { return s.userRepo }
func (s *Store) Sessions() repository.SessionRepository           { return s.sessionRepo }
func (s *Store) Codes() repository.CodeRepository                 { return s.codeRepo }
func (s *Store) LoginAttempts() repository.LoginAttemptRepository { return s.attemptRepo }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *Store) Close()                         { s.pool.Close() }

// Pool exposes the underlying pool for migrations run out of band.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// isUniqueViolation reports a 23505 constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var (
	_ repository.UserRepository         = (*userRepo)(nil)
	_ repository.SessionRepository      = (*sessionRepo)(nil)
	_ repository.CodeRepository         = (*codeRepo)(nil)
	_ repository.LoginAttemptRepository = (*attemptRepo)(nil)
)
