package repository

import (
	"context"
	"time"
)

// IdentifierKind names the credential field a login identifier refers to.
type IdentifierKind string

const (
	IdentifierUsername IdentifierKind = "username"
	IdentifierEmail    IdentifierKind = "email"
	IdentifierPhone    IdentifierKind = "phone"
)

// Valid reports whether k is a known identifier kind.
func (k IdentifierKind) Valid() bool {
	switch k {
	case IdentifierUsername, IdentifierEmail, IdentifierPhone:
		return true
	}
	return false
}

// User is an identity record.
type User struct {
	ID           string
	Username     string
	Email        *string
	Phone        *string
	PasswordHash string
	Region       string // opaque partition tag, stored and echoed as-is
	IsActive     bool
	IsVerified   bool
	IsPaid       bool

	// Lockout state, mutated only through RecordLoginFailure /
	// ResetLoginFailures.
	FailedLoginCount int
	LockedUntil      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUserInput contains the data to create a user.
type CreateUserInput struct {
	Username     string
	Email        *string
	Phone        *string
	PasswordHash string
	Region       string
	IsVerified   bool
}

// ListUsersFilter narrows a user listing.
type ListUsersFilter struct {
	Limit  int    // default 50, max 200
	Offset int
	Search string // optional match on username/email/phone
}

// UserRepository defines operations on users.
type UserRepository interface {
	// GetByID looks a user up by id. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, userID string) (*User, error)

	// GetByIdentifier looks a user up by the given identifier field.
	// Returns ErrNotFound if missing or if kind is unknown.
	GetByIdentifier(ctx context.Context, kind IdentifierKind, value string) (*User, error)

	// Create inserts a new user. Returns ErrConflict when username, email,
	// or phone is already taken.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetVerified flips the is_verified flag.
	SetVerified(ctx context.Context, userID string, verified bool) error

	// RecordLoginFailure atomically increments failed_login_count and, when
	// the count reaches threshold, sets locked_until = now + lockFor.
	// Returns the post-increment count and the lock deadline if one was set.
	RecordLoginFailure(ctx context.Context, userID string, threshold int, lockFor time.Duration) (int, *time.Time, error)

	// ResetLoginFailures zeroes failed_login_count and clears locked_until.
	ResetLoginFailures(ctx context.Context, userID string) error

	// List returns users matching the filter, newest first.
	List(ctx context.Context, filter ListUsersFilter) ([]User, error)
}
