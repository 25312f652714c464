package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestNewCLIError creates and validates a CLI error
func TestNewCLIError(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewCLIError(ErrorTypeValidation, "Test error", cause)

	if err.Type != ErrorTypeValidation {
		t.Errorf("Expected type %s, got %s", ErrorTypeValidation, err.Type)
	}
	if err.Error() != "Test error: underlying error" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Cause should be reachable through Unwrap")
	}
}

// TestFetchFailureError validates page load failures
func TestFetchFailureError(t *testing.T) {
	cause := errors.New("connection reset")
	err := FetchFailureError(3, cause)

	if err.Type != ErrorTypeFetchFailure {
		t.Errorf("Expected type %s, got %s", ErrorTypeFetchFailure, err.Type)
	}
	if !strings.Contains(err.Error(), "page 3") {
		t.Errorf("Expected page number in message, got %q", err.Error())
	}
	if !err.Retryable() {
		t.Error("Fetch failures should be retryable")
	}
	if !IsType(fmt.Errorf("wrapped: %w", err), ErrorTypeFetchFailure) {
		t.Error("IsType should see through wrapping")
	}
}

// TestResourceLoadError validates media failures
func TestResourceLoadError(t *testing.T) {
	err := ResourceLoadError("https://cdn.example.com/a.png", errors.New("404"))

	if err.Type != ErrorTypeResourceLoad {
		t.Errorf("Expected type %s, got %s", ErrorTypeResourceLoad, err.Type)
	}
	if !err.HasSuggestion() {
		t.Error("Expected retry suggestion")
	}
}

// TestWatcherUnavailableNotRetryable validates the degrade error
func TestWatcherUnavailableNotRetryable(t *testing.T) {
	err := WatcherUnavailableError(nil)
	if err.Retryable() {
		t.Error("Watcher unavailability is not retryable")
	}
}

// TestFromStatus validates HTTP status mapping
func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{401, ErrorTypeAuth},
		{403, ErrorTypeForbidden},
		{404, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServer},
		{503, ErrorTypeServer},
		{418, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		err := FromStatus(tt.status, "feed")
		if err.Type != tt.want {
			t.Errorf("FromStatus(%d): got %s, want %s", tt.status, err.Type, tt.want)
		}
		if err.StatusCode != tt.status {
			t.Errorf("FromStatus(%d): status code not recorded", tt.status)
		}
	}
}

// TestCategorizeError validates categorization of plain errors
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeNetwork},
		{"dns", errors.New("lookup api: no such host"), ErrorTypeNetwork},
		{"deadline", fmt.Errorf("get feed: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"timeout text", errors.New("i/o timeout"), ErrorTypeTimeout},
		{"cli error", FetchFailureError(1, nil), ErrorTypeFetchFailure},
		{"other", errors.New("boom"), ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err).Type; got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if CategorizeError(nil) != nil {
		t.Error("CategorizeError(nil) should be nil")
	}
}

// TestFormatError validates user-facing formatting
func TestFormatError(t *testing.T) {
	out := FormatError(RateLimitError(30))

	if !strings.Contains(out, "(rate_limit)") {
		t.Errorf("Expected error type in output, got %q", out)
	}
	if !strings.Contains(out, "Suggestion:") {
		t.Errorf("Expected suggestion in output, got %q", out)
	}
	if !strings.Contains(out, "Retry in: 30 seconds") {
		t.Errorf("Expected retry hint in output, got %q", out)
	}
	if FormatError(nil) != "" {
		t.Error("FormatError(nil) should be empty")
	}
}
