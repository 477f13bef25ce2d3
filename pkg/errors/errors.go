// Package errors provides the domain error types shared across the outreach
// service.
//
// Sentinel errors describe the condition; callers check them with errors.Is
// or the Is* helpers, and the transport layer maps them onto error codes.
//
// Usage:
//
//	import oerrors "github.com/otherjamesbrown/penf-outreach/pkg/errors"
//
//	if oerrors.IsValidation(err) {
//	    // reject the request
//	}
package errors

import (
	"errors"
	"strings"
)

// Domain errors.
var (
	// ErrValidation indicates a required input was missing or malformed.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates a backing dependency could not be reached.
	ErrUnavailable = errors.New("unavailable")

	// ErrInvalidConfig indicates configuration or rule tables failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError reports which required fields were missing from a request.
type ValidationError struct {
	Fields []string
}

// NewValidationError creates a ValidationError for the given field names.
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "missing required field"
	}
	return "missing required field: " + strings.Join(e.Fields, ", ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable reports whether any error in err's chain is ErrUnavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsInvalidConfig reports whether any error in err's chain is ErrInvalidConfig.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
