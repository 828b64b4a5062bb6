package core

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure for transport mapping.
type Kind string

const (
	KindInvalidArgument     Kind = "invalid_argument"
	KindUnknownTool         Kind = "unknown_tool"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindNotFound            Kind = "not_found"
	KindNotConfigured       Kind = "not_configured"
	KindInternal            Kind = "internal_error"
)

// CodedError is implemented by domain errors that carry a machine-readable code.
type CodedError interface {
	error
	ErrorCode() string
}

// Error is the domain error used across casehub.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) ErrorCode() string {
	return string(e.Kind)
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err. A nil err yields nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err. Uncoded errors are internal, except
// context deadline and cancellation which count as upstream failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var coded CodedError
	if errors.As(err, &coded) {
		return Kind(coded.ErrorCode())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUpstreamUnavailable
	}
	return KindInternal
}

// IsSoft reports whether err is reported inside a tool result rather than
// as a JSON-RPC error.
func IsSoft(err error) bool {
	switch KindOf(err) {
	case KindUpstreamUnavailable, KindNotFound, KindNotConfigured:
		return true
	}
	return false
}
