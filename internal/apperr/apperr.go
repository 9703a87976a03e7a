// Package apperr defines the error kinds returned by the household core.
// Callers match them with errors.Is; the wrapped chain keeps the cause.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: a code, household, chore or user id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrValidation: the input is malformed (empty name, bad code, unknown enum).
	ErrValidation = errors.New("validation error")
	// ErrConflict: join-code generation kept colliding past the retry bound.
	ErrConflict = errors.New("conflict")
	// ErrStoreUnavailable: the backing store failed. The only retryable kind.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// NotFound returns an ErrNotFound error describing what was missing.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Invalid returns an ErrValidation error with the given message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Unavailable wraps a store failure for operation op.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Retryable reports whether the caller may retry err unchanged, with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
