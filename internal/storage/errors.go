package storage

import "errors"

// Domain error kinds. Services and repositories return these (usually
// wrapped with context); the HTTP layer maps them to status codes and
// the unit of work lets them pass through unchanged.
var (
	// ErrNotFound marks a requested entity as absent where absence is a
	// business-rule violation (updates, watchlist removals). Pure reads
	// return (nil, nil) instead.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists marks a uniqueness violation: anime name, user
	// login, duplicate watchlist entry.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDatabase wraps unanticipated storage failures after the unit
	// of work has rolled back. Callers treat it as opaque.
	ErrDatabase = errors.New("database error")

	// ErrHashing marks a password hashing primitive failure, distinct
	// from a normal wrong-password outcome.
	ErrHashing = errors.New("hashing error")
)

// IsDomainError reports whether err is one of the business-meaningful
// kinds that must propagate through the unit of work unchanged.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrHashing)
}
