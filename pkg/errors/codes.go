package errors

import (
	"context"
	"errors"
	"net/http"
)

// ErrorCode identifies a class of failure surfaced to API callers.
type ErrorCode string

const (
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeInvalidRequest   ErrorCode = "invalid_request"
	CodeMethodNotAllowed ErrorCode = "method_not_allowed"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeInternalError    ErrorCode = "internal_error"
	CodeUnavailable      ErrorCode = "unavailable"
	CodeCancelled        ErrorCode = "cancelled"
)

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code       ErrorCode
	HTTPStatus int
	Retryable  bool
	// Message is the body returned to HTTP clients.
	Message string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	CodeValidationFailed: {
		Code:       CodeValidationFailed,
		HTTPStatus: http.StatusBadRequest,
		Message:    "Missing required fields",
	},
	CodeInvalidRequest: {
		Code:       CodeInvalidRequest,
		HTTPStatus: http.StatusBadRequest,
		Message:    "Invalid request body",
	},
	CodeMethodNotAllowed: {
		Code:       CodeMethodNotAllowed,
		HTTPStatus: http.StatusMethodNotAllowed,
		Message:    "Method not allowed",
	},
	CodeRateLimited: {
		Code:       CodeRateLimited,
		HTTPStatus: http.StatusTooManyRequests,
		Retryable:  true,
		Message:    "Too many requests",
	},
	CodeInternalError: {
		Code:       CodeInternalError,
		HTTPStatus: http.StatusInternalServerError,
		Message:    "Failed to select optimal channel",
	},
	CodeUnavailable: {
		Code:       CodeUnavailable,
		HTTPStatus: http.StatusServiceUnavailable,
		Retryable:  true,
		Message:    "Service temporarily unavailable",
	},
	CodeCancelled: {
		Code:       CodeCancelled,
		HTTPStatus: 499,
		Message:    "Request cancelled",
	},
}

// HTTPStatus returns the HTTP status for a code, or 500 if unknown.
func HTTPStatus(code ErrorCode) int {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for a code.
func Message(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Message
	}
	return ErrorCodeRegistry[CodeInternalError].Message
}

// IsRetryable returns true if the given error code represents a transient failure.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// Classify maps an error onto the code used to report it.
// Unrecognized errors are internal errors.
func Classify(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return CodeValidationFailed
	case IsUnavailable(err):
		return CodeUnavailable
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	default:
		return CodeInternalError
	}
}
