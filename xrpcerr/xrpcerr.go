// Package xrpcerr defines the labeler's wire error taxonomy: a single
// mapping from internal error kinds to HTTP status and WebSocket frame
// error strings, applied at the service shell.
package xrpcerr

import "net/http"

// Kind identifies a class of error exposed on the wire as {error, message}
// (HTTP) or as a framed error (WebSocket).
type Kind string

const (
	InvalidRequest       Kind = "InvalidRequest"
	AuthRequired         Kind = "AuthRequired"
	MissingJwt           Kind = "MissingJwt"
	BadJwt               Kind = "BadJwt"
	JwtExpired           Kind = "JwtExpired"
	BadJwtAudience       Kind = "BadJwtAudience"
	BadJwtLexiconMethod  Kind = "BadJwtLexiconMethod"
	BadJwtSignature      Kind = "BadJwtSignature"
	FutureCursor         Kind = "FutureCursor"
	ConsumerTooSlow      Kind = "ConsumerTooSlow"
	MethodNotImplemented Kind = "MethodNotImplemented"
	InternalServerError  Kind = "InternalServerError"
	ServiceUnavailable   Kind = "ServiceUnavailable"
)

// Status returns the HTTP status code a Kind maps to.
func Status(kind Kind) int {
	switch kind {
	case InvalidRequest:
		return http.StatusBadRequest
	case AuthRequired, MissingJwt, BadJwt, JwtExpired, BadJwtAudience, BadJwtLexiconMethod, BadJwtSignature:
		return http.StatusUnauthorized
	case FutureCursor, ConsumerTooSlow:
		return http.StatusBadRequest
	case MethodNotImplemented:
		return http.StatusNotImplemented
	case ServiceUnavailable:
		return http.StatusServiceUnavailable
	case InternalServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is a wire-mappable error: a Kind plus a human-readable message and
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind, wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// As extracts an *Error from err via errors.As semantics, without pulling
// in the errors package's heavier machinery for this narrow case.
func As(err error) (*Error, bool) {
	for err != nil {
		if xe, ok := err.(*Error); ok {
			return xe, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
