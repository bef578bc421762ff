package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig      Kind = "config"
	KindClientInput Kind = "client_input"
	KindQuota       Kind = "quota"
	KindUpstream    Kind = "upstream"
	KindTransport   Kind = "transport"
	KindPlatform    Kind = "platform"
	KindBootstrap   Kind = "bootstrap"
	KindStorage     Kind = "storage"
	KindUnknown     Kind = "unknown"
)

// Error is the single failure shape shared by the admission pipeline.
// Message is safe to show to callers; Cause is for logs only.
type Error struct {
	Kind    Kind
	Op      string
	Code    string
	Message string
	Fields  map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCode sets the machine readable code and returns the same error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithField attaches an extra top-level response field.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// Coded builds an error with a machine readable code, optionally keeping the cause.
func Coded(kind Kind, op, code, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind == kind
	}
	return false
}

// HasCode reports whether the first typed error in the chain carries code.
func HasCode(err error, code string) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Code == code
	}
	return false
}

// As returns the first typed error in the chain, if any.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
