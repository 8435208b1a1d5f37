package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	// ErrNotFound indicates a missing account, session, or bank account.
	ErrNotFound = errors.New("not_found")
	// ErrConflict indicates a state invariant violation (duplicate open
	// session, double close, concurrent close race loser).
	ErrConflict = errors.New("conflict")
	// ErrInvalid indicates malformed or out-of-range input.
	ErrInvalid = errors.New("invalid")
	// ErrInvalidRange indicates a date window where from > to.
	ErrInvalidRange = errors.New("invalid_range")
)
