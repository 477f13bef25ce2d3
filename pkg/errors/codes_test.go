package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeValidationFailed, http.StatusBadRequest},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternalError, http.StatusInternalServerError},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := HTTPStatus(tt.code); got != tt.want {
				t.Errorf("HTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := Message(CodeValidationFailed); got != "Missing required fields" {
		t.Errorf("validation message = %q", got)
	}
	if got := Message(CodeInternalError); got != "Failed to select optimal channel" {
		t.Errorf("internal message = %q", got)
	}
	if got := Message("nope"); got != Message(CodeInternalError) {
		t.Errorf("unknown code message = %q, want internal error message", got)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorCode{CodeRateLimited, CodeUnavailable}
	permanent := []ErrorCode{CodeValidationFailed, CodeInvalidRequest, CodeInternalError, "unknown"}

	for _, code := range retryable {
		if !IsRetryable(code) {
			t.Errorf("IsRetryable(%q) = false, want true", code)
		}
	}
	for _, code := range permanent {
		if IsRetryable(code) {
			t.Errorf("IsRetryable(%q) = true, want false", code)
		}
	}
}

func TestErrorCodeRegistry_Complete(t *testing.T) {
	for code, info := range ErrorCodeRegistry {
		if info.Code != code {
			t.Errorf("registry entry %q has Code %q", code, info.Code)
		}
		if info.Message == "" {
			t.Errorf("registry entry %q has empty Message", code)
		}
		if info.HTTPStatus == 0 {
			t.Errorf("registry entry %q has no HTTPStatus", code)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"validation", NewValidationError("customerId"), CodeValidationFailed},
		{"unavailable", fmt.Errorf("ping: %w", ErrUnavailable), CodeUnavailable},
		{"cancelled", context.Canceled, CodeCancelled},
		{"other", errors.New("boom"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
