package idtheory

import (
	"errors"

	"github.com/theory-cloud/idtheory/pkg/state"
)

// ErrorType identifies the category of a generator error.
type ErrorType string

const (
	ErrorTypeTailExhausted ErrorType = "tail_exhausted"
	ErrorTypeInvalidConfig ErrorType = "invalid_configuration"
)

// Error represents a generator error.
//
// Failures of the clock, entropy source or node provider are not wrapped;
// they reach the caller unchanged.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "idtheory error"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

func WrapError(cause error, errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message, Cause: cause}
}

// IsTailExhausted reports whether err means the generator ran out of tail
// values for the current tick. Retrying after the clock advances succeeds.
func IsTailExhausted(err error) bool {
	return hasType(err, ErrorTypeTailExhausted) || errors.Is(err, state.ErrTailExhausted)
}

// IsInvalidConfig reports whether err was caused by a rejected configuration.
func IsInvalidConfig(err error) bool {
	return hasType(err, ErrorTypeInvalidConfig)
}

func hasType(err error, errorType ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errorType
}
