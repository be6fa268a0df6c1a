// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist. Blank keys and
// tokens resolve to this as well.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness violation, e.g. a thread for the same
// scope was inserted by a concurrent request.
var ErrConflict = errors.New("conflict: resource already exists")

// ErrValidation indicates malformed caller input that cannot be treated as
// "not found".
var ErrValidation = errors.New("validation failed")

// ErrStorageUnavailable indicates the backing store failed for reasons other
// than absence or uniqueness.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ThreadRaceError is returned when a thread insert lost a uniqueness race and
// the single follow-up lookup did not produce the winning row.
type ThreadRaceError struct {
	AskSessionID string
	UserID       string // empty for shared threads
	Shared       bool
	Err          error
}

func (e *ThreadRaceError) Error() string {
	scope := "shared"
	if !e.Shared {
		scope = "user " + e.UserID
	}
	return fmt.Sprintf("thread race for session %s (%s): %v", e.AskSessionID, scope, e.Err)
}

// Unwrap exposes only the conflict sentinel. The failed re-fetch usually
// reports ErrNotFound, and a race must never read as a missing session.
func (e *ThreadRaceError) Unwrap() error { return ErrConflict }

// Cause returns the error of the follow-up lookup.
func (e *ThreadRaceError) Cause() error { return e.Err }
