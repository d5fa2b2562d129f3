package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client and the cursor strategies built on it.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during backoff.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrMalformedResponse is returned when a response body cannot be decoded
	// as JSON after any permitted decode retries.
	ErrMalformedResponse = errors.New("malformed response body")
)

// APIError carries the last HTTP status and raw body of a failed exchange so
// fatal failures stay diagnosable.
type APIError struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sendgrid error (status %d): %v: %s", e.StatusCode, e.Err, e.Body)
	}
	return fmt.Sprintf("sendgrid error (status %d): %s", e.StatusCode, e.Body)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}
