// Package credential verifies passwords and enforces the failure lockout.
// It answers "who is this" and nothing else; sessions and tokens are the
// session package's business.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tastebase/auth/internal/audit"
	"github.com/tastebase/auth/internal/domain/repository"
	"github.com/tastebase/auth/internal/metrics"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/security/password"
	"github.com/tastebase/auth/internal/store"
	"github.com/tastebase/auth/internal/validation"
)

var (
	ErrMissingFields      = errors.New("identifier and password required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
)

// LockedError carries the lock deadline; it unwraps to ErrAccountLocked.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// VerifyInput is one credential check. Kind pins the identifier to a
// specific field when the client declares identifier_type; left empty, the
// identifier is classified by shape. IPAddress and DeviceInfo feed the
// audit trail only.
type VerifyInput struct {
	Identifier string
	Kind       repository.IdentifierKind
	Password   string
	IPAddress  string
	DeviceInfo string
}

// AccountStatus is the shape-constant answer for status probes: unknown
// identifiers return the zero value rather than an error, so the endpoint
// cannot be used to enumerate accounts.
type AccountStatus struct {
	Locked      bool       `json:"locked"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// Verifier checks credentials with lockout accounting.
type Verifier interface {
	Verify(ctx context.Context, in VerifyInput) (*repository.User, error)
	Status(ctx context.Context, identifier string) (*AccountStatus, error)
}

// Deps contains dependencies for the verifier.
type Deps struct {
	DAL           store.DataAccessLayer
	LockThreshold int
	LockDuration  time.Duration
}

type verifier struct {
	deps Deps
}

func NewVerifier(deps Deps) Verifier {
	return &verifier{deps: deps}
}

// decoyHash is verified against when the identifier is unknown, so the
// unknown-user path costs the same as a wrong password.
var (
	decoyOnce sync.Once
	decoyHash string
)

func decoy() string {
	decoyOnce.Do(func() {
		h, err := password.Hash(password.Default, "decoy-timing-equalizer")
		if err == nil {
			decoyHash = h
		}
	})
	return decoyHash
}

func (v *verifier) Verify(ctx context.Context, in VerifyInput) (*repository.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("credential.verifier"),
		logger.Op("Verify"),
	)

	in.Identifier = strings.TrimSpace(in.Identifier)
	if in.Identifier == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	kind, value, err := resolveIdentifier(in.Kind, in.Identifier)
	if err != nil {
		// malformed identifiers take the unknown-user path
		password.Verify(in.Password, decoy())
		v.recordAttempt(ctx, log, in, nil, false, "unknown_user")
		return nil, ErrInvalidCredentials
	}
	log = log.With(logger.Identifier(value))

	users := v.deps.DAL.Users()
	u, err := users.GetByIdentifier(ctx, kind, value)
	if err != nil {
		if repository.IsNotFound(err) {
			password.Verify(in.Password, decoy())
			v.recordAttempt(ctx, log, in, nil, false, "unknown_user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("credential: lookup: %w", err)
	}
	log = log.With(logger.UserID(u.ID))

	now := time.Now().UTC()
	if u.LockedUntil != nil && now.Before(*u.LockedUntil) {
		log.Debug("login rejected: account locked")
		v.recordAttempt(ctx, log, in, &u.ID, false, "locked")
		return nil, &LockedError{Until: u.LockedUntil.UTC()}
	}

	if !password.Verify(in.Password, u.PasswordHash) {
		count, lockedUntil, ferr := users.RecordLoginFailure(ctx, u.ID, v.deps.LockThreshold, v.deps.LockDuration)
		if ferr != nil {
			log.Warn("failure accounting failed", logger.Err(ferr))
		}
		v.recordAttempt(ctx, log, in, &u.ID, false, "bad_password")
		if lockedUntil != nil {
			metrics.LockoutsTotal.Inc()
			audit.Record(ctx, audit.AccountLocked,
				logger.UserID(u.ID), logger.Count(count), logger.ClientIP(in.IPAddress))
			return nil, &LockedError{Until: lockedUntil.UTC()}
		}
		log.Debug("login rejected: bad password", logger.Count(count))
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		log.Debug("login rejected: account inactive")
		v.recordAttempt(ctx, log, in, &u.ID, false, "inactive")
		return nil, ErrInvalidCredentials
	}

	if u.FailedLoginCount > 0 || u.LockedUntil != nil {
		if err := users.ResetLoginFailures(ctx, u.ID); err != nil {
			log.Warn("failure reset failed", logger.Err(err))
		}
	}
	v.recordAttempt(ctx, log, in, &u.ID, true, "")
	return u, nil
}

// resolveIdentifier normalizes an identifier, honoring a declared kind when
// present instead of classifying by shape.
func resolveIdentifier(kind repository.IdentifierKind, raw string) (repository.IdentifierKind, string, error) {
	switch kind {
	case "":
		return validation.ClassifyIdentifier(raw)
	case repository.IdentifierEmail:
		v, err := validation.NormalizeEmail(raw)
		return kind, v, err
	case repository.IdentifierPhone:
		v, err := validation.NormalizePhone(raw)
		return kind, v, err
	case repository.IdentifierUsername:
		v, err := validation.NormalizeUsername(raw)
		return kind, v, err
	default:
		return "", "", fmt.Errorf("unknown identifier kind %q", kind)
	}
}

func (v *verifier) Status(ctx context.Context, identifier string) (*AccountStatus, error) {
	kind, value, err := validation.ClassifyIdentifier(identifier)
	if err != nil {
		return &AccountStatus{}, nil
	}
	u, err := v.deps.DAL.Users().GetByIdentifier(ctx, kind, value)
	if err != nil {
		if repository.IsNotFound(err) {
			return &AccountStatus{}, nil
		}
		return nil, fmt.Errorf("credential: lookup: %w", err)
	}
	st := &AccountStatus{}
	if u.LockedUntil != nil && time.Now().UTC().Before(*u.LockedUntil) {
		t := u.LockedUntil.UTC()
		st.Locked = true
		st.LockedUntil = &t
	}
	return st, nil
}

// recordAttempt appends to the persisted login trail; failures here
// never fail the login.
func (v *verifier) recordAttempt(ctx context.Context, log *zap.Logger, in VerifyInput, userID *string, success bool, reason string) {
	err := v.deps.DAL.LoginAttempts().Record(ctx, repository.LoginAttempt{
		Identifier: in.Identifier,
		UserID:     userID,
		Success:    success,
		Reason:     reason,
		IPAddress:  in.IPAddress,
		DeviceInfo: in.DeviceInfo,
	})
	if err != nil {
		log.Warn("audit record failed", logger.Err(err))
	}
}
