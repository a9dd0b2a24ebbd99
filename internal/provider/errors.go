package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a provider call failed. The batch engine
// treats every kind the same way at chunk granularity (fail the chunk,
// continue the batch); the kind exists so operators can tell a payload
// that was too large from a rate limit or a dead network.
type ErrorKind string

const (
	KindSizeExceeded ErrorKind = "size_exceeded"
	KindRateLimited  ErrorKind = "rate_limited"
	KindTransport    ErrorKind = "transport"
	KindOther        ErrorKind = "other"
)

// Error is a classified provider failure.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status when applicable, 0 otherwise
	Message string
	Err     error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classification from err, or KindOther when err is
// not a provider error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}
