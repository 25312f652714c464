package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType categorizes different error types
type ErrorType string

const (
	// Network errors
	ErrorTypeNetwork ErrorType = "network"
	ErrorTypeTimeout ErrorType = "timeout"

	// Authentication errors
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeForbidden      ErrorType = "forbidden"
	ErrorTypeSessionExpired ErrorType = "session_expired"

	// Server errors
	ErrorTypeServer    ErrorType = "server"
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// Progressive loading errors
	ErrorTypeFetchFailure       ErrorType = "fetch_failure"
	ErrorTypeResourceLoad       ErrorType = "resource_load"
	ErrorTypeWatcherUnavailable ErrorType = "watcher_unavailable"

	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// CLIError represents a structured error with context
type CLIError struct {
	Type       ErrorType
	Message    string
	Cause      error
	Suggestion string
	StatusCode int
	RetryAfter int
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Cause != nil && e.Type != ErrorTypeUnknown {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// WithSuggestion adds a helpful suggestion to the error
func (e *CLIError) WithSuggestion(suggestion string) *CLIError {
	e.Suggestion = suggestion
	return e
}

// HasSuggestion returns true if the error has a suggestion
func (e *CLIError) HasSuggestion() bool {
	return e.Suggestion != ""
}

// Unwrap returns the underlying error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether repeating the operation may succeed
func (e *CLIError) Retryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeServer, ErrorTypeRateLimit,
		ErrorTypeFetchFailure, ErrorTypeResourceLoad:
		return true
	}
	return false
}

// NewCLIError creates a new CLI error
func NewCLIError(errorType ErrorType, message string, cause error) *CLIError {
	return &CLIError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err is, or wraps, a CLIError of the given type
func IsType(err error, errorType ErrorType) bool {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Type == errorType
	}
	return false
}

// NetworkError creates a network error
func NetworkError(message string) *CLIError {
	err := NewCLIError(ErrorTypeNetwork, message, nil)
	err.Suggestion = "Check your internet connection and try again."
	return err
}

// TimeoutError creates a timeout error
func TimeoutError() *CLIError {
	err := NewCLIError(ErrorTypeTimeout, "Request timed out", nil)
	err.Suggestion = "The server is taking too long to respond. Try again in a moment."
	return err
}

// AuthError creates an authentication error
func AuthError(message string) *CLIError {
	err := NewCLIError(ErrorTypeAuth, message, nil)
	err.Suggestion = "Log in with 'sidechain-cli auth login'; the reader shares its session."
	return err
}

// SessionExpiredError creates a session expired error
func SessionExpiredError() *CLIError {
	err := NewCLIError(ErrorTypeSessionExpired, "Your session has expired", nil)
	err.Suggestion = "Run 'sidechain-cli auth login' to refresh your session."
	return err
}

// ForbiddenError creates a forbidden error
func ForbiddenError() *CLIError {
	err := NewCLIError(ErrorTypeForbidden, "Access denied", nil)
	err.Suggestion = "Contact an administrator if you believe this is an error."
	return err
}

// ValidationError creates a validation error
func ValidationError(field, reason string) *CLIError {
	message := fmt.Sprintf("Validation error: %s - %s", field, reason)
	return NewCLIError(ErrorTypeValidation, message, nil)
}

// ServerError creates a server error
func ServerError() *CLIError {
	err := NewCLIError(ErrorTypeServer, "Server error", nil)
	err.Suggestion = "The server encountered an error. Try again in a few moments."
	return err
}

// NotFoundError creates a not found error
func NotFoundError(resourceType, identifier string) *CLIError {
	return NewCLIError(ErrorTypeNotFound,
		fmt.Sprintf("%s not found: %s", resourceType, identifier),
		nil)
}

// RateLimitError creates a rate limit error
func RateLimitError(retryAfter int) *CLIError {
	err := NewCLIError(ErrorTypeRateLimit,
		"Rate limit exceeded. Too many requests.",
		nil)
	err.RetryAfter = retryAfter
	err.Suggestion = fmt.Sprintf("Please wait %d seconds before trying again.", retryAfter)
	return err
}

// FetchFailureError wraps a failed page load. The list keeps what it has and
// the next trigger may retry.
func FetchFailureError(page int, cause error) *CLIError {
	err := NewCLIError(ErrorTypeFetchFailure,
		fmt.Sprintf("Failed to load page %d", page),
		cause)
	err.Suggestion = "Scroll to the end again or press 'r' to retry."
	return err
}

// ResourceLoadError wraps a failed media download
func ResourceLoadError(src string, cause error) *CLIError {
	err := NewCLIError(ErrorTypeResourceLoad,
		fmt.Sprintf("Failed to load media %s", src),
		cause)
	err.Suggestion = "Select the item and press 'r' to retry the download."
	return err
}

// WatcherUnavailableError reports that visibility observation is not
// available and loading falls back to eager mode
func WatcherUnavailableError(cause error) *CLIError {
	err := NewCLIError(ErrorTypeWatcherUnavailable,
		"Visibility observation unavailable, loading eagerly",
		cause)
	return err
}

// FromStatus converts a non-2xx HTTP status into a CLIError
func FromStatus(status int, message string) *CLIError {
	var err *CLIError
	switch {
	case status == http.StatusUnauthorized:
		err = AuthError("Invalid credentials")
	case status == http.StatusForbidden:
		err = ForbiddenError()
	case status == http.StatusNotFound:
		err = NotFoundError("Resource", message)
	case status == http.StatusTooManyRequests:
		err = RateLimitError(60)
	case status >= 500:
		err = ServerError()
	default:
		err = NewCLIError(ErrorTypeUnknown, fmt.Sprintf("Unexpected response: %d %s", status, message), nil)
	}
	err.StatusCode = status
	return err
}

// CategorizeError converts a standard error into a CLIError
func CategorizeError(err error) *CLIError {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError()
	}

	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "connection refused"):
		return NetworkError("Could not connect to server. Make sure it's running.")
	case strings.Contains(errMsg, "no such host"):
		return NetworkError("Could not resolve server address.")
	case strings.Contains(errMsg, "timeout"):
		return TimeoutError()
	default:
		return NewCLIError(ErrorTypeUnknown, errMsg, err)
	}
}

// FormatError returns a user-friendly error message
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	cliErr := CategorizeError(err)
	var sb strings.Builder

	sb.WriteString("Error")
	if cliErr.Type != ErrorTypeUnknown {
		sb.WriteString(" (")
		sb.WriteString(string(cliErr.Type))
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(cliErr.Error())
	sb.WriteString("\n")

	if cliErr.HasSuggestion() {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(cliErr.Suggestion)
		sb.WriteString("\n")
	}

	if cliErr.Type == ErrorTypeRateLimit && cliErr.RetryAfter > 0 {
		sb.WriteString(fmt.Sprintf("\nRetry in: %d seconds\n", cliErr.RetryAfter))
	}

	return sb.String()
}
