package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tastebase/auth/internal/audit"
	"github.com/tastebase/auth/internal/domain/repository"
	dto "github.com/tastebase/auth/internal/http/dto/auth"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/security/password"
	"github.com/tastebase/auth/internal/session"
	"github.com/tastebase/auth/internal/store"
)

// ErrInvalidOldPassword means the re-verification of the current password
// failed. It deliberately reads like a credential failure.
var ErrInvalidOldPassword = errors.New("old password does not match")

// ChangePasswordDeps contains dependencies for the change-password service.
type ChangePasswordDeps struct {
	DAL      store.DataAccessLayer
	Sessions session.Manager
	Policy   password.Policy
	Denylist *password.Denylist
}

type changePasswordService struct {
	deps ChangePasswordDeps
}

// NewChangePasswordService creates a new change-password service.
func NewChangePasswordService(deps ChangePasswordDeps) ChangePasswordService {
	return &changePasswordService{deps: deps}
}

// Change re-verifies the old password, swaps the hash, revokes every other
// session and rotates the calling session in place so the caller keeps a
// live pair under the new password.
func (s *changePasswordService) Change(ctx context.Context, userID, sessionID string, in dto.ChangePasswordRequest) (*dto.ChangePasswordResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.change_password"),
		logger.Op("Change"),
		logger.UserID(userID),
	)

	if in.OldPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return nil, ErrMissingFields
	}

	user, err := s.deps.DAL.Users().GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidOldPassword
		}
		return nil, fmt.Errorf("change password: lookup: %w", err)
	}

	if !password.Verify(in.OldPassword, user.PasswordHash) {
		log.Debug("change rejected: old password mismatch")
		return nil, ErrInvalidOldPassword
	}

	if in.NewPassword != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if err := checkStrength(s.deps.Policy, s.deps.Denylist, in.NewPassword); err != nil {
		log.Debug("change rejected: weak password")
		return nil, err
	}

	hash, err := password.Hash(password.Default, in.NewPassword)
	if err != nil {
		log.Error("password hash failed", logger.Err(err))
		return nil, fmt.Errorf("change password: hash: %w", err)
	}
	if err := s.deps.DAL.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return nil, fmt.Errorf("change password: update hash: %w", err)
	}

	revoked, err := s.deps.Sessions.RevokeOthers(ctx, userID, sessionID)
	if err != nil {
		log.Error("session revocation failed after change", logger.Err(err))
		return nil, fmt.Errorf("change password: revoke others: %w", err)
	}

	pair, err := s.deps.Sessions.Reissue(ctx, sessionID)
	if err != nil {
		// the hash already changed; the caller falls back to a fresh login
		log.Error("session reissue failed after change", logger.Err(err))
		return nil, err
	}

	audit.Record(ctx, audit.PasswordChanged,
		logger.UserID(userID), logger.SessionID(sessionID), logger.Count(revoked))
	return &dto.ChangePasswordResponse{
		TokenResponse:   dto.NewTokenResponse(pair),
		Message:         "Password updated.",
		SessionsRevoked: revoked,
	}, nil
}
