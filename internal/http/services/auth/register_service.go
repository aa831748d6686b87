package auth

import (
	"context"
	"errors"
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

// Register errors.
var (
	ErrCodeRequired        = errors.New("verification code required")
	ErrDuplicateIdentifier = errors.New("username, email or phone already taken")
)

// RegisterDeps contains dependencies for the register service.
type RegisterDeps struct {
	DAL      store.DataAccessLayer
	Sessions session.Manager
	Codes    verification.Service
	Policy   password.Policy
	Denylist *password.Denylist

	// RequireVerification demands a consumed registration code for the
	// email/phone being claimed.
	RequireVerification bool

	// AutoLogin opens a session for the new account and returns its pair.
	AutoLogin bool
}

type registerService struct {
	deps RegisterDeps
}

// NewRegisterService creates a new register service.
func NewRegisterService(deps RegisterDeps) RegisterService {
	return &registerService{deps: deps}
}

func (s *registerService) Register(ctx context.Context, in dto.RegisterRequest, ipAddress string) (*dto.RegisterResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.register"),
		logger.Op("Register"),
	)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.VerificationCode = strings.TrimSpace(in.VerificationCode)
	in.Region = strings.TrimSpace(in.Region)

	if in.Username == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	username, err := validation.NormalizeUsername(in.Username)
	if err != nil {
		log.Debug("register rejected: bad username")
		return nil, fmt.Errorf("%w: username", ErrInvalidIdentifier)
	}

	var email, phone *string
	if in.Email != "" {
		v, err := validation.NormalizeEmail(in.Email)
		if err != nil {
			log.Debug("register rejected: bad email")
			return nil, fmt.Errorf("%w: email", ErrInvalidIdentifier)
		}
		email = &v
	}
	if in.Phone != "" {
		v, err := validation.NormalizePhone(in.Phone)
		if err != nil {
			log.Debug("register rejected: bad phone")
			return nil, fmt.Errorf("%w: phone", ErrInvalidIdentifier)
		}
		phone = &v
	}

	if s.deps.RequireVerification && email == nil && phone == nil {
		return nil, fmt.Errorf("%w: email or phone", ErrMissingFields)
	}

	if err := checkStrength(s.deps.Policy, s.deps.Denylist, in.Password); err != nil {
		log.Debug("register rejected: weak password")
		return nil, err
	}

	// the code burns against the primary contact: email when given,
	// phone otherwise
	target := ""
	if email != nil {
		target = *email
	} else if phone != nil {
		target = *phone
	}

	verified := false
	switch {
	case s.deps.RequireVerification && in.VerificationCode == "":
		return nil, ErrCodeRequired
	case in.VerificationCode != "" && target != "":
		if err := s.deps.Codes.Consume(ctx, target, repository.CodeTypeRegister, in.VerificationCode); err != nil {
			log.Debug("register rejected: code consume failed", logger.Err(err))
			return nil, err
		}
		verified = true
	}

	hash, err := password.Hash(password.Default, in.Password)
	if err != nil {
		log.Error("password hash failed", logger.Err(err))
		return nil, fmt.Errorf("register: hash: %w", err)
	}

	user, err := s.deps.DAL.Users().Create(ctx, repository.CreateUserInput{
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Region:       in.Region,
		IsVerified:   verified,
	})
	if err != nil {
		if repository.IsConflict(err) {
			log.Debug("register rejected: duplicate identifier")
			return nil, ErrDuplicateIdentifier
		}
		return nil, fmt.Errorf("register: create: %w", err)
	}
	log = log.With(logger.UserID(user.ID))

	resp := &dto.RegisterResponse{User: dto.NewUserResponse(user)}
	if s.deps.AutoLogin {
		pair, err := s.deps.Sessions.Issue(ctx, user, in.DeviceInfo, ipAddress)
		if err != nil {
			// the account exists; a failed auto-login only costs the
			// client an explicit login
			log.Error("auto-login failed", logger.Err(err))
		} else {
			tr := dto.NewTokenResponse(pair)
			resp.TokenResponse = &tr
		}
	}

	audit.Record(ctx, audit.AccountCreated,
		logger.UserID(user.ID), logger.ClientIP(ipAddress))
	return resp, nil
}
