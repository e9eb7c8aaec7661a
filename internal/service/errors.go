package service

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNoValidResponse is returned when the endpoint answered with no choices.
	ErrNoValidResponse = errors.New("no valid response from the model")

	// ErrUnexpected is returned when a turn fails for an unforeseen reason.
	ErrUnexpected = errors.New("an unexpected error occurred")
)

// ValidationError reports input that was rejected before any request was made.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RateLimitedError reports a turn denied by the per-session rate gate.
type RateLimitedError struct {
	Wait time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("please wait %.1f seconds before sending another message", e.Wait.Seconds())
}

// RetryAfterSeconds rounds the wait up to whole seconds, at least one.
func (e *RateLimitedError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.Wait.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
