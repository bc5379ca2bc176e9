package domain

import (
	"errors"
	"fmt"
	"time"
)

// Application errors
var (
	// ErrAuthFailed means Siigo rejected our credentials, or authentication
	// retries were exhausted
	ErrAuthFailed = errors.New("siigo authentication failed")

	// ErrRateLimited means the provider returned 429; transient, retried
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrServiceUnavailable means transport retries were exhausted
	ErrServiceUnavailable = errors.New("external service unavailable")

	// ErrInvalidInput means the payload failed validation
	ErrInvalidInput = errors.New("invalid input data")

	// ErrIncompleteRow means a spreadsheet row has too few columns to map
	ErrIncompleteRow = errors.New("incomplete sheet row")

	// ErrEmailNotSent means the welcome email could not be delivered; the
	// registration itself is still considered successful
	ErrEmailNotSent = errors.New("welcome email could not be sent")

	// ErrInternal is the generic internal error
	ErrInternal = errors.New("internal error")
)

// BillingError carries a non-retryable Siigo API failure: the HTTP status and
// the provider's own message, surfaced verbatim to the caller.
type BillingError struct {
	StatusCode  int
	Message     string
	OriginalErr error
}

// Error implements the error interface
func (e *BillingError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("siigo error [%d]: %s: %v", e.StatusCode, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("siigo error [%d]: %s", e.StatusCode, e.Message)
}

// Unwrap returns the original error
func (e *BillingError) Unwrap() error {
	return e.OriginalErr
}

// NewBillingError creates a new billing provider error
func NewBillingError(statusCode int, message string, err error) *BillingError {
	return &BillingError{
		StatusCode:  statusCode,
		Message:     message,
		OriginalErr: err,
	}
}

// RateLimitError is a 429 from the provider, carrying the server-supplied
// wait hint when one was present.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// Is reports rate-limit errors as ErrRateLimited
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors represents a set of validation failures
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}
	return fmt.Sprintf("validation failed: %d errors", len(e))
}

// Is reports validation errors as ErrInvalidInput
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add appends a validation failure
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors reports whether any failure was recorded
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields returns the failing field names
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}
