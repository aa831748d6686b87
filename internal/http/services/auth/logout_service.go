package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tastebase/auth/internal/audit"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/session"
)

// LogoutDeps contains dependencies for the logout service.
type LogoutDeps struct {
	Sessions session.Manager
}

type logoutService struct {
	deps LogoutDeps
}

// NewLogoutService creates a new logout service.
func NewLogoutService(deps LogoutDeps) LogoutService {
	return &logoutService{deps: deps}
}

// Logout is idempotent: revoking a session that is already dead counts as
// success with zero revocations.
func (s *logoutService) Logout(ctx context.Context, in LogoutInput) (int, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.logout"),
		logger.Op("Logout"),
		logger.UserID(in.UserID),
	)

	if in.AllDevices {
		n, err := s.deps.Sessions.RevokeAll(ctx, in.UserID)
		if err != nil {
			return 0, fmt.Errorf("logout: %w", err)
		}
		audit.Record(ctx, audit.SessionsWiped,
			logger.UserID(in.UserID), logger.Count(n), logger.String("cause", "logout_all"))
		return n, nil
	}

	if err := s.deps.Sessions.Revoke(ctx, in.SessionID); err != nil {
		if errors.Is(err, session.ErrSessionRevoked) {
			log.Debug("session already gone, treating as logged out")
			return 0, nil
		}
		return 0, fmt.Errorf("logout: %w", err)
	}
	audit.Record(ctx, audit.SessionRevoked,
		logger.UserID(in.UserID), logger.SessionID(in.SessionID), logger.String("cause", "logout"))
	return 1, nil
}
