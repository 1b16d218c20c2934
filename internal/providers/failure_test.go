package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantKind      FailureKind
		wantRetriable bool
	}{
		{"unauthorized", 401, FailureAuthError, false},
		{"forbidden", 403, FailureAuthError, false},
		{"request timeout", 408, FailureTimeout, true},
		{"rate limited", 429, FailureRateLimited, true},
		{"internal error", 500, FailureBackendUnavailable, true},
		{"bad gateway", 502, FailureBackendUnavailable, true},
		{"service unavailable", 503, FailureBackendUnavailable, true},
		{"bad request", 400, FailureInvalidResponse, false},
		{"not found", 404, FailureInvalidResponse, false},
		{"unprocessable", 422, FailureInvalidResponse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ClassifyHTTPStatus("test-provider", tt.status, "boom")

			if f.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", f.Kind, tt.wantKind)
			}
			if f.Retriable != tt.wantRetriable {
				t.Errorf("Retriable = %v, want %v", f.Retriable, tt.wantRetriable)
			}
			if f.ProviderID != "test-provider" {
				t.Errorf("ProviderID = %v, want test-provider", f.ProviderID)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind FailureKind
	}{
		{"deadline exceeded", context.DeadlineExceeded, FailureTimeout},
		{"canceled", context.Canceled, FailureTimeout},
		{"wrapped deadline", fmt.Errorf("request failed: %w", context.DeadlineExceeded), FailureTimeout},
		{"generic transport error", errors.New("connection refused"), FailureBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ClassifyError("p", tt.err)
			if f.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", f.Kind, tt.wantKind)
			}
		})
	}
}

func TestClassifyError_PreservesFailure(t *testing.T) {
	orig := NewFailure("p", FailureRateLimited, "slow down")
	wrapped := fmt.Errorf("call failed: %w", orig)

	f := ClassifyError("other", wrapped)
	if f != orig {
		t.Error("ClassifyError should return the original *Failure when present")
	}
}

func TestFailure_Error(t *testing.T) {
	f := NewFailure("gemini", FailureTimeout, "deadline exceeded")

	msg := f.Error()
	if msg == "" {
		t.Fatal("Error() should not be empty")
	}

	var asErr *Failure
	if !errors.As(error(f), &asErr) {
		t.Error("Failure should satisfy errors.As")
	}
}

func TestAsFailure(t *testing.T) {
	f := NewFailure("p", FailureAuthError, "bad key")

	got, ok := AsFailure(fmt.Errorf("wrapped: %w", f))
	if !ok || got.Kind != FailureAuthError {
		t.Errorf("AsFailure() = %v, %v; want original failure", got, ok)
	}

	if _, ok := AsFailure(errors.New("plain")); ok {
		t.Error("AsFailure() on plain error should return false")
	}
}
