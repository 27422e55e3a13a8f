package client

import (
	"context"
	"errors"
	"fmt"
)

// UnknownServerError is the message used when the endpoint reports failure without a reason
const UnknownServerError = "Unknown server error"

// TransportError is a failed attempt that never produced a usable response:
// network failure, timeout, non-2xx status or an unparseable body
type TransportError struct {
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Body != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a response whose body explicitly reports failure
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "Server returned error: " + e.Message
}

// RetriesExhaustedError is the terminal failure of a batch after all attempts
type RetriesExhaustedError struct {
	BatchIndex int
	Attempts   int
	Err        error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("Batch %d import failed after %d attempts: %v", e.BatchIndex, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

// GetTransportError extracts TransportError from err if possible
func GetTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	ok := errors.As(err, &te)
	return te, ok
}

// GetServerError extracts ServerError from err if possible
func GetServerError(err error) (*ServerError, bool) {
	var se *ServerError
	ok := errors.As(err, &se)
	return se, ok
}

// IsTimeout reports whether err is a per-attempt timeout
func IsTimeout(err error) bool {
	te, ok := GetTransportError(err)
	if !ok || te.Err == nil {
		return false
	}
	if errors.Is(te.Err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(te.Err, &ne) && ne.Timeout()
}
