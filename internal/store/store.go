// Package store wires the repository interfaces to a concrete backend.
// Services depend on DataAccessLayer and never on a driver.
package store

import (
	"context"

	"github.com/tastebase/auth/internal/domain/repository"
)

// DataAccessLayer bundles every repository behind one handle.
type DataAccessLayer interface {
	Users() repository.UserRepository
	Sessions() repository.SessionRepository
	Codes() repository.CodeRepository
	LoginAttempts() repository.LoginAttemptRepository

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close()
}
