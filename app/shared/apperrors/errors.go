// Package apperrors defines the error taxonomy shared by every module.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a missing or malformed input. No state changed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown team, service, tick, flag or event.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition marks an operation attempted in the wrong game state.
	ErrPrecondition = errors.New("precondition failed")
	// ErrInvariantViolation marks a uniqueness constraint hit outside the
	// documented idempotent paths. The store is already inconsistent.
	ErrInvariantViolation = errors.New("invariant violation")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// IsDomain reports whether err belongs to the taxonomy rather than to the
// infrastructure.
func IsDomain(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPrecondition)
}
