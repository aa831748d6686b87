package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/tastebase/auth/internal/audit"
	"github.com/tastebase/auth/internal/domain/repository"
	dto "github.com/tastebase/auth/internal/http/dto/auth"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/security/password"
	"github.com/tastebase/auth/internal/session"
	"github.com/tastebase/auth/internal/store"
	"github.com/tastebase/auth/internal/validation"
	"github.com/tastebase/auth/internal/verification"
)

// ResetDeps contains dependencies for the reset-password service.
type ResetDeps struct {
	DAL      store.DataAccessLayer
	Codes    verification.Service
	Sessions session.Manager
	Policy   password.Policy
	Denylist *password.Denylist
}

type resetService struct {
	deps ResetDeps
}

// NewResetService creates a new reset-password service.
func NewResetService(deps ResetDeps) ResetService {
	return &resetService{deps: deps}
}

func (s *resetService) Reset(ctx context.Context, in dto.ResetPasswordRequest) (*dto.ResetPasswordResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.reset"),
		logger.Op("Reset"),
	)

	in.ResetCode = strings.TrimSpace(in.ResetCode)
	if in.ResetCode == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return nil, ErrMissingFields
	}
	if in.NewPassword != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	kind, value, err := validation.CodeTarget(in.Identifier)
	if err != nil {
		log.Debug("reset rejected: bad identifier")
		return nil, fmt.Errorf("%w: email or phone", ErrInvalidIdentifier)
	}
	log = log.With(logger.Identifier(value))

	// strength is checked before the code burns so a weak choice does not
	// cost the caller a fresh code
	if err := checkStrength(s.deps.Policy, s.deps.Denylist, in.NewPassword); err != nil {
		log.Debug("reset rejected: weak password")
		return nil, err
	}

	if err := s.deps.Codes.Consume(ctx, value, repository.CodeTypePasswordReset, in.ResetCode); err != nil {
		log.Debug("reset rejected: code consume failed", logger.Err(err))
		return nil, err
	}

	user, err := s.deps.DAL.Users().GetByIdentifier(ctx, kind, value)
	if err != nil {
		if repository.IsNotFound(err) {
			// the account vanished between issue and consume; reads the
			// same as any other bad code
			return nil, verification.ErrCodeInvalid
		}
		return nil, fmt.Errorf("reset: lookup: %w", err)
	}
	log = log.With(logger.UserID(user.ID))

	hash, err := password.Hash(password.Default, in.NewPassword)
	if err != nil {
		log.Error("password hash failed", logger.Err(err))
		return nil, fmt.Errorf("reset: hash: %w", err)
	}
	if err := s.deps.DAL.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("reset: update hash: %w", err)
	}

	// a proven reset also clears lockout state
	if err := s.deps.DAL.Users().ResetLoginFailures(ctx, user.ID); err != nil {
		log.Warn("failure reset failed", logger.Err(err))
	}

	// every prior session dies with the old password
	revoked, err := s.deps.Sessions.RevokeAll(ctx, user.ID)
	if err != nil {
		log.Error("session revocation failed after reset", logger.Err(err))
		return nil, fmt.Errorf("reset: revoke sessions: %w", err)
	}

	audit.Record(ctx, audit.PasswordReset,
		logger.UserID(user.ID), logger.Identifier(value), logger.Count(revoked))
	return &dto.ResetPasswordResponse{
		Message:         "Password updated. Please log in again.",
		SessionsRevoked: revoked,
	}, nil
}
