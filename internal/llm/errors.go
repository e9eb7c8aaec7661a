package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
)

// ErrorKind categorises completion failures.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindTransport         ErrorKind = "transport_error"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// CompletionError is the failure half of a completion result. Every error
// returned by a Client is a *CompletionError.
type CompletionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CompletionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CompletionError) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *CompletionError {
	return &CompletionError{
		Kind:    KindTimeout,
		Message: "request timed out",
		Err:     err,
	}
}

// NewTransportError creates a transport error.
func NewTransportError(err error) *CompletionError {
	return &CompletionError{
		Kind:    KindTransport,
		Message: "completion endpoint unreachable",
		Err:     err,
	}
}

// NewMalformedResponseError creates a malformed response error.
func NewMalformedResponseError(detail string, err error) *CompletionError {
	return &CompletionError{
		Kind:    KindMalformedResponse,
		Message: "invalid response from completion endpoint: " + detail,
		Err:     err,
	}
}

// KindOf returns the kind of a completion error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var completionErr *CompletionError
	if errors.As(err, &completionErr) {
		return completionErr.Kind
	}
	return ""
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsTransport checks if an error is a transport error.
func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}

// IsMalformedResponse checks if an error is a malformed response error.
func IsMalformedResponse(err error) bool {
	return KindOf(err) == KindMalformedResponse
}

// classifyTransportError maps a failed HTTP exchange to timeout or transport.
func classifyTransportError(err error) *CompletionError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}
	return NewTransportError(err)
}

// isDecodeError reports whether err came from parsing a response body.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}
