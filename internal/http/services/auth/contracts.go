// Package auth contains the per-operation services behind the auth
// endpoints. Each service is an interface plus a Deps struct; controllers
// compose them and translate the sentinel errors to HTTP.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dto "github.com/tastebase/auth/internal/http/dto/auth"
	"github.com/tastebase/auth/internal/security/password"
)

// Sentinels shared across the auth services. Flow-specific ones live next
// to their service.
var (
	ErrMissingFields     = errors.New("missing required fields")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrPasswordMismatch  = errors.New("new password and confirmation do not match")
	ErrWeakPassword      = errors.New("weak password")
	ErrTokenIssueFailed  = errors.New("failed to issue tokens")
)

// WeakPasswordError lists the policy rules the password missed; it unwraps
// to ErrWeakPassword.
type WeakPasswordError struct {
	Reasons []string
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("weak password: %s", strings.Join(e.Reasons, ", "))
}

func (e *WeakPasswordError) Unwrap() error { return ErrWeakPassword }

// checkStrength runs the configured policy plus the denylist.
func checkStrength(policy password.Policy, denylist *password.Denylist, plain string) error {
	if ok, reasons := policy.Validate(plain); !ok {
		return &WeakPasswordError{Reasons: reasons}
	}
	if denylist.Contains(plain) {
		return &WeakPasswordError{Reasons: []string{"denylisted"}}
	}
	return nil
}

// RegisterService creates accounts.
type RegisterService interface {
	Register(ctx context.Context, in dto.RegisterRequest, ipAddress string) (*dto.RegisterResponse, error)
}

// LoginService authenticates credentials and opens sessions.
type LoginService interface {
	Login(ctx context.Context, in dto.LoginRequest, ipAddress string) (*dto.LoginResponse, error)
	// Status is the shape-constant account probe: unknown identifiers
	// answer exactly like healthy ones.
	Status(ctx context.Context, identifier string) (*dto.AccountStatusResponse, error)
}

// LogoutService revokes sessions for an authenticated caller.
type LogoutService interface {
	Logout(ctx context.Context, in LogoutInput) (int, error)
}

// LogoutInput identifies what to revoke. UserID and SessionID come from the
// caller's access token, never from the body.
type LogoutInput struct {
	UserID     string
	SessionID  string
	AllDevices bool
}

// ForgotService starts the password-reset flow.
type ForgotService interface {
	// Forgot never reveals whether the identifier is registered: every
	// outcome except a malformed identifier reads as accepted.
	Forgot(ctx context.Context, identifier string) error
}

// ResetService completes the password-reset flow.
type ResetService interface {
	Reset(ctx context.Context, in dto.ResetPasswordRequest) (*dto.ResetPasswordResponse, error)
}

// ChangePasswordService rotates a password for an authenticated caller.
type ChangePasswordService interface {
	Change(ctx context.Context, userID, sessionID string, in dto.ChangePasswordRequest) (*dto.ChangePasswordResponse, error)
}
