package repository

import (
	"context"
	"time"
)

// Session is one device's refresh lineage. The raw refresh token is never
// stored: RefreshTokenHash and PreviousTokenHash hold digests, and
// CurrentTokenEnc holds the current raw token sealed with the master key so
// a benign replay of the previous token can be answered with the live pair.
type Session struct {
	ID                string
	UserID            string
	RefreshTokenHash  string
	PreviousTokenHash *string
	CurrentTokenEnc   string
	RotatedAt         *time.Time
	DeviceInfo        string
	IPAddress         string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	IsActive          bool
	RevokedAt         *time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CreateSessionInput contains the data to create a session.
type CreateSessionInput struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	CurrentTokenEnc  string
	DeviceInfo       string
	IPAddress        string
	ExpiresAt        time.Time
}

// RotateSessionInput advances a session's refresh lineage by one step.
// OldHash is the expected current hash; rotation only applies if it still
// matches (compare-and-swap).
type RotateSessionInput struct {
	SessionID       string
	OldHash         string
	NewHash         string
	CurrentTokenEnc string
	RotatedAt       time.Time
	ExpiresAt       time.Time
}

// SessionRepository defines operations on sessions.
type SessionRepository interface {
	// Create inserts a new session.
	Create(ctx context.Context, input CreateSessionInput) (*Session, error)

	// GetByID looks a session up by id, active or not.
	// Returns ErrNotFound if missing.
	GetByID(ctx context.Context, sessionID string) (*Session, error)

	// GetByTokenHash finds the session whose current or previous hash
	// equals tokenHash. Returns ErrNotFound if no session matches.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Rotate applies input if and only if the session is active and its
	// current hash still equals input.OldHash; the old hash becomes the
	// previous hash and RotatedAt/ExpiresAt are updated. Returns
	// ErrPreconditionFailed when the hash no longer matches (a concurrent
	// rotation won) and ErrNotFound when the session is missing or revoked.
	Rotate(ctx context.Context, input RotateSessionInput) (*Session, error)

	// Revoke marks the session inactive. Revoking an already revoked
	// session is a no-op; the first revocation's timestamp is kept.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeAllByUser marks all of the user's active sessions inactive and
	// returns how many were revoked.
	RevokeAllByUser(ctx context.Context, userID string) (int, error)

	// ListByUser returns the user's active, unexpired sessions,
	// most recently created first.
	ListByUser(ctx context.Context, userID string) ([]Session, error)

	// DeleteExpired removes sessions whose expiry is before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Delete removes a single session row. Missing rows are not an error.
	Delete(ctx context.Context, sessionID string) error
}
