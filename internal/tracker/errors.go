package tracker

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrFormat     = errors.New("format error")
)

// ValidationError reports bad input to an engine operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FormatError reports a malformed import payload.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid import data: %s: %v", e.Reason, e.Err)
	}
	return "invalid import data: " + e.Reason
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
