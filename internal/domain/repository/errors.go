package repository

import "errors"

// Common repository errors.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation (duplicate username,
	// email, phone, or token hash).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input failed a storage-level check.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPreconditionFailed indicates an optimistic concurrency check did
	// not hold (e.g. a session rotation lost the race to a concurrent one).
	ErrPreconditionFailed = errors.New("precondition failed")
)

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsPreconditionFailed reports whether err is ErrPreconditionFailed.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}
