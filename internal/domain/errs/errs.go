// Package errs provides structured error types and helpers for the gateway.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies an error category.
type Code string

const (
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeNetwork indicates a transient store or transport failure.
	CodeNetwork Code = "network"
	// CodeNotFound indicates a missing match or resource.
	CodeNotFound Code = "not_found"
	// CodeUnavailable indicates the service or a channel is temporarily unavailable.
	CodeUnavailable Code = "unavailable"
)

// E captures structured error information produced across the gateway stack.
type E struct {
	Op      string
	Code    Code
	Message string
	MatchID string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the operation and error code.
func New(op string, code Code, opts ...Option) *E {
	e := &E{
		Op:      strings.TrimSpace(op),
		Code:    code,
		Message: "",
		MatchID: "",
		cause:   nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithMatch records the match id the error concerns.
func WithMatch(matchID string) Option {
	trimmed := strings.TrimSpace(matchID)
	return func(e *E) {
		e.MatchID = trimmed
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	op := e.Op
	if op == "" {
		op = "unknown"
	}
	parts = append(parts, "op="+op)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.MatchID != "" {
		parts = append(parts, "match="+e.MatchID)
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// ClientMessage returns the human-readable text suitable for a client-facing
// error frame. Structured metadata and causes are never exposed.
func (e *E) ClientMessage() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// CodeOf extracts the error code from err, or empty when err carries none.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err denotes a missing match.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsTransient reports whether err denotes a retryable store failure.
func IsTransient(err error) bool { return CodeOf(err) == CodeNetwork }
