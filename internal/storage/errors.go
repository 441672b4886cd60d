package storage

import (
	"fmt"
	"net/http"
)

// maxErrorBody bounds the response body kept in a TransportError.
const maxErrorBody = 512

// TransportError is returned when the store could not be reached or answered
// with a non-2xx status.
type TransportError struct {
	// Operation is the failed operation (OpList, OpPut, ...).
	Operation string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Body holds at most the first 512 bytes of the response body.
	Body string

	// Err is the network error, if any.
	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("r2 %s failed: %v", e.Operation, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("r2 %s failed: %d %s", e.Operation, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("r2 %s failed: %d %s", e.Operation, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// newStatusError builds a TransportError from a non-2xx response body.
func newStatusError(op string, status int, body []byte) *TransportError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &TransportError{Operation: op, StatusCode: status, Body: string(body)}
}

// ParseError is returned when a response did not have the expected structure.
type ParseError struct {
	Operation string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("r2 %s: unexpected response: %v", e.Operation, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
