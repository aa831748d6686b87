package repository

import (
	"context"
	"time"
)

// LoginAttempt is one audit row for a credential check. Attempts are
// recorded for unknown identifiers too, so the identifier is stored as
// presented rather than as a user id.
type LoginAttempt struct {
	ID         string
	Identifier string
	UserID     *string
	Success    bool
	Reason     string // empty on success: "bad_password", "locked", "inactive", "unknown_user"
	IPAddress  string
	DeviceInfo string
	CreatedAt  time.Time
}

// LoginAttemptRepository defines operations on the login audit trail.
type LoginAttemptRepository interface {
	// Record appends one attempt. Failures here must not fail the login.
	Record(ctx context.Context, attempt LoginAttempt) error

	// ListByIdentifier returns the most recent attempts for an identifier,
	// newest first, at most limit rows.
	ListByIdentifier(ctx context.Context, identifier string, limit int) ([]LoginAttempt, error)

	// DeleteBefore removes attempts recorded before the cutoff and returns
	// how many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
