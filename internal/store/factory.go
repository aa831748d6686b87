package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tastebase/auth/internal/store/adapters/memory"
	"github.com/tastebase/auth/internal/store/adapters/pg"
)

// Config selects and tunes the storage backend.
type Config struct {
	// memory | postgres
	Driver string
	DSN    string

	// postgres pool tuning; zero values keep pgxpool defaults
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration

	// run embedded migrations on open
	Migrate bool
}

// Open builds the DataAccessLayer for the configured driver.
func Open(ctx context.Context, cfg Config) (DataAccessLayer, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), nil
	case "postgres":
		return pg.Open(ctx, pg.Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			Migrate:         cfg.Migrate,
		})
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
