package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Callers match them
// with errors.Is; mutation boundaries translate them into structured
// responses instead of letting them escape as faults.
var (
	// ErrNotFound covers both true absence and forbidden access for point
	// lookups. The two cases are deliberately indistinguishable so that
	// object identifiers cannot be enumerated.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned only for operations where the target's
	// existence is already known to the caller (moderation transitions,
	// grant management), so distinguishing denial from absence leaks nothing.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation covers malformed input: bad vote values, malformed
	// criteria configuration, conflicting scope fields.
	ErrValidation = errors.New("validation failed")

	// ErrConflict covers uniqueness violations: duplicate vote, duplicate
	// award, duplicate grant.
	ErrConflict = errors.New("conflict")
)

// ValidationError wraps ErrValidation with a field-level message.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
