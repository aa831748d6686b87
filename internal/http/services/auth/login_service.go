package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tastebase/auth/internal/audit"
	"github.com/tastebase/auth/internal/credential"
	"github.com/tastebase/auth/internal/domain/repository"
	dto "github.com/tastebase/auth/internal/http/dto/auth"
	"github.com/tastebase/auth/internal/metrics"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/session"
)

// LoginDeps contains dependencies for the login service.
type LoginDeps struct {
	Verifier credential.Verifier
	Sessions session.Manager
}

type loginService struct {
	deps LoginDeps
}

// NewLoginService creates a new login service.
func NewLoginService(deps LoginDeps) LoginService {
	return &loginService{deps: deps}
}

func (s *loginService) Login(ctx context.Context, in dto.LoginRequest, ipAddress string) (*dto.LoginResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("Login"),
	)

	kind := repository.IdentifierKind(strings.ToLower(strings.TrimSpace(in.IdentifierType)))
	if kind != "" && !kind.Valid() {
		log.Debug("login rejected: unknown identifier_type")
		return nil, fmt.Errorf("%w: identifier_type", ErrInvalidIdentifier)
	}

	user, err := s.deps.Verifier.Verify(ctx, credential.VerifyInput{
		Identifier: in.Identifier,
		Kind:       kind,
		Password:   in.Password,
		IPAddress:  ipAddress,
		DeviceInfo: in.DeviceInfo,
	})
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrAccountLocked):
			metrics.LoginsTotal.WithLabelValues("locked").Inc()
		case errors.Is(err, credential.ErrInvalidCredentials):
			metrics.LoginsTotal.WithLabelValues("bad_credentials").Inc()
			audit.Record(ctx, audit.LoginFailed,
				logger.Identifier(in.Identifier), logger.ClientIP(ipAddress))
		}
		return nil, err
	}
	log = log.With(logger.UserID(user.ID))

	pair, err := s.deps.Sessions.Issue(ctx, user, in.DeviceInfo, ipAddress)
	if err != nil {
		log.Error("session issue failed", logger.Err(err))
		return nil, ErrTokenIssueFailed
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	audit.Record(ctx, audit.LoginSucceeded,
		logger.UserID(user.ID), logger.SessionID(pair.SessionID), logger.ClientIP(ipAddress))
	return &dto.LoginResponse{
		TokenResponse: dto.NewTokenResponse(pair),
		User:          dto.NewUserResponse(user),
	}, nil
}

func (s *loginService) Status(ctx context.Context, identifier string) (*dto.AccountStatusResponse, error) {
	st, err := s.deps.Verifier.Status(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &dto.AccountStatusResponse{Locked: st.Locked, LockedUntil: st.LockedUntil}, nil
}
