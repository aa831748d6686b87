package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tastebase/auth/internal/domain/repository"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/store"
	"github.com/tastebase/auth/internal/validation"
	"github.com/tastebase/auth/internal/verification"
)

// ForgotDeps contains dependencies for the forgot-password service.
type ForgotDeps struct {
	DAL   store.DataAccessLayer
	Codes verification.Service
}

type forgotService struct {
	deps ForgotDeps
}

// NewForgotService creates a new forgot-password service.
func NewForgotService(deps ForgotDeps) ForgotService {
	return &forgotService{deps: deps}
}

// Forgot issues a password_reset code when the identifier belongs to an
// active account. Unknown identifiers, disabled accounts, cooldowns and
// delivery failures all come back as nil so the response cannot be used
// to enumerate accounts; only a malformed identifier is an error.
func (s *forgotService) Forgot(ctx context.Context, identifier string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.forgot"),
		logger.Op("Forgot"),
	)

	kind, value, err := validation.CodeTarget(identifier)
	if err != nil {
		log.Debug("forgot rejected: bad identifier")
		return fmt.Errorf("%w: email or phone", ErrInvalidIdentifier)
	}
	log = log.With(logger.Identifier(value))

	user, err := s.deps.DAL.Users().GetByIdentifier(ctx, kind, value)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Info("forgot for unknown identifier, answering generically")
			return nil
		}
		return fmt.Errorf("forgot: lookup: %w", err)
	}
	if !user.IsActive {
		log.Info("forgot for disabled account, answering generically")
		return nil
	}

	if _, err := s.deps.Codes.Issue(ctx, value, repository.CodeTypePasswordReset); err != nil {
		var cooldown *verification.CooldownError
		if errors.As(err, &cooldown) {
			log.Debug("forgot inside cooldown, answering generically")
			return nil
		}
		// delivery trouble is ours, not the caller's
		log.Error("reset code issue failed", logger.Err(err))
		return nil
	}

	log.Info("reset code issued")
	return nil
}
