package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreCorruption marks a table that is unreadable or structurally
	// invalid. Operations that hit it never rewrite the table.
	ErrStoreCorruption = errors.New("work store corrupted or unavailable")
	// ErrNoMatchingRow is returned by Report when no in_progress row carries
	// the reported item's fields. Callers treat it as informational.
	ErrNoMatchingRow = errors.New("no matching in-progress row")
	// ErrInvalidTransition is returned when a status change is outside the
	// allowed lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTableExists is returned by Create when a table is already present.
	ErrTableExists = errors.New("work table already exists")
)

// CorruptionError describes why a table could not be used.
type CorruptionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("work store %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *CorruptionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStoreCorruption}
	}
	return []error{ErrStoreCorruption, e.Err}
}

// ErrorKind classifies the error for callers that map errors to exit paths.
func (e *CorruptionError) ErrorKind() string { return "store_corruption" }

func corruption(path, reason string, err error) error {
	return &CorruptionError{Path: path, Reason: reason, Err: err}
}
