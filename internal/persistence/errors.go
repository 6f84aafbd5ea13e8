package persistence

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound reports a lookup that matched no row. A miss on a known
// identity is a data-integrity fault for callers, not a crash.
var ErrNotFound = errors.New("record not found")

// ValidationError reports recoverable bad input (malformed task name,
// duplicate name, inverted interval). Callers may re-prompt and retry.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports a status value outside the defined
// set. It cannot be produced through the CLI surface; seeing one means
// a programming error.
type InvalidTransitionError struct {
	Status Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid task status %d", int(e.Status))
}

// PersistenceError wraps a failed store operation. Fatal to the
// current operation; retry policy belongs to the caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// scanMiss maps an empty single-row scan to ErrNotFound and anything
// else to a PersistenceError.
func scanMiss(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return persistErr(op, err)
}
