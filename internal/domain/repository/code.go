package repository

import (
	"context"
	"time"
)

// CodeType names the flow a verification code belongs to. Codes are keyed
// by (target, type); issuing a new code voids the previous one for that key.
type CodeType string

const (
	CodeTypeRegister      CodeType = "register"
	CodeTypePasswordReset CodeType = "password_reset"

	// CodeTypeLogin is issued for OTP sign-in. Nothing server-side consumes
	// it yet; it exists so clients building that flow can already send codes.
	CodeTypeLogin CodeType = "login"
)

// Valid reports whether t is a known code type.
func (t CodeType) Valid() bool {
	switch t {
	case CodeTypeRegister, CodeTypePasswordReset, CodeTypeLogin:
		return true
	}
	return false
}

// VerificationCode is a one-time code sent to an email or phone target.
type VerificationCode struct {
	ID          string
	Target      string
	Type        CodeType
	Code        string
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ConsumedAt  *time.Time
}

// Live reports whether the code can still be consumed at the given time.
func (c *VerificationCode) Live(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt) && c.Attempts < c.MaxAttempts
}

// UpsertCodeInput contains the data to issue a verification code.
type UpsertCodeInput struct {
	ID          string
	Target      string
	Type        CodeType
	Code        string
	MaxAttempts int
	ExpiresAt   time.Time
}

// CodeRepository defines operations on verification codes.
type CodeRepository interface {
	// Upsert stores a new code for (target, type), voiding any previous
	// code for the same key in the same operation.
	Upsert(ctx context.Context, input UpsertCodeInput) (*VerificationCode, error)

	// Consume atomically checks code against the live entry for
	// (target, type) and marks it consumed on match. On mismatch the
	// attempt counter is incremented, and the entry stops matching once
	// attempts reach max_attempts. Every failure mode, including a missing
	// or expired entry, returns ErrNotFound so callers cannot tell them
	// apart.
	Consume(ctx context.Context, target string, codeType CodeType, code string) error

	// GetActive returns the live code for (target, type), or ErrNotFound.
	GetActive(ctx context.Context, target string, codeType CodeType) (*VerificationCode, error)

	// DeleteExpired removes consumed and expired codes older than now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
