package timeclock

import "errors"

// Sentinel errors surfaced to the API layer. Callers must not persist any
// state when one of these is returned.
var (
	// ErrInvalidTransition means the requested action is not legal for the
	// user's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingRecord means the operation referenced a user that does not
	// exist in the store.
	ErrMissingRecord = errors.New("user record not found")
)
