// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds surfaced by the balance engine. Callers match them with errors.Is.
var (
	// ErrNotFound means a referenced account, snapshot or income entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation means an input was rejected before any I/O happened.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence means a store read or write failed.
	ErrPersistence = errors.New("persistence failure")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry of the whole call.
// Store failures and deadlines are worth retrying because a rebuild is
// idempotent; missing data and bad input are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, context.Canceled) {
		return false
	}

	return errors.Is(err, ErrPersistence) || errors.Is(err, context.DeadlineExceeded)
}
