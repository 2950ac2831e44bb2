// Package goorderr provides error types shared by the code host clients and
// their callers.
package goorderr

import (
	"errors"
	"fmt"
	"time"
)

// RetryableError wraps an error of an operation that failed temporarily,
// e.g. because the API ratelimit was exceeded or the host returned a 5xx
// status code.
type RetryableError struct {
	Err error
	// After is the earliest point in time the operation should be retried.
	// It is the zero value if it can be retried anytime.
	After time.Time
}

func NewRetryableError(originalErr error, retryAfter time.Time) *RetryableError {
	return &RetryableError{
		Err:   originalErr,
		After: retryAfter,
	}
}

func NewRetryableAnytimeError(originalErr error) *RetryableError {
	return &RetryableError{
		Err: originalErr,
	}
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func (e *RetryableError) Error() string {
	if e.After.IsZero() {
		return fmt.Sprintf("retryable error: %s", e.Err)
	}

	return fmt.Sprintf("retryable error (after %s): %s", e.After.Format(time.RFC3339), e.Err)
}

// IsRetryable returns true if err wraps a RetryableError.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}
