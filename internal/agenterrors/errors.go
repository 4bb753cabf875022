// Package agenterrors provides the unified error taxonomy used across the
// agent's sources, sinks, and runtime.
package agenterrors

import (
	"errors"
	"fmt"
)

// Kind classifies the failure so callers can decide whether to retry, fail
// over, or give up.
type Kind string

const (
	Configuration        Kind = "CONFIGURATION"
	CredentialsNotFound  Kind = "CREDENTIALS_NOT_FOUND"
	DependencyUnavailable Kind = "DEPENDENCY_UNAVAILABLE"
	TransientTransport   Kind = "TRANSIENT_TRANSPORT"
	FatalTransport       Kind = "FATAL_TRANSPORT"
	ParseError           Kind = "PARSE_ERROR"
	ResolutionError       Kind = "RESOLUTION_ERROR"
	Timeout              Kind = "TIMEOUT"
	Cancelled            Kind = "CANCELLED"
)

// Error is a structured error carrying a Kind, a human message, optional
// Details, and the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a key/value pair, creating the Details map on demand.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newErr(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Configuration(message string, err error) *Error {
	return newErr(Configuration, message, err)
}

func CredentialsNotFoundErr(profile string, err error) *Error {
	return newErr(CredentialsNotFound, "credentials not found", err).WithDetail("profile", profile)
}

func DependencyUnavailableErr(name string, err error) *Error {
	return newErr(DependencyUnavailable, "dependency unavailable", err).WithDetail("dependency", name)
}

func TransientTransportErr(operation string, err error) *Error {
	return newErr(TransientTransport, "transient transport failure", err).WithDetail("operation", operation)
}

func FatalTransportErr(operation string, err error) *Error {
	return newErr(FatalTransport, "fatal transport failure", err).WithDetail("operation", operation)
}

func ParseErr(line string, err error) *Error {
	e := newErr(ParseError, "failed to parse record", err)
	if len(line) > 256 {
		line = line[:256]
	}
	return e.WithDetail("line", line)
}

func ResolutionErr(name string, err error) *Error {
	return newErr(ResolutionError, "failed to resolve identifier", err).WithDetail("name", name)
}

func TimeoutErr(operation string) *Error {
	return newErr(Timeout, "operation timed out", nil).WithDetail("operation", operation)
}

func CancelledErr(operation string) *Error {
	return newErr(Cancelled, "operation cancelled", nil).WithDetail("operation", operation)
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As extracts the *Error from err's chain, if present.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
