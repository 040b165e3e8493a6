package eval

import (
	"fmt"

	"github.com/montylang/monty/resource"
)

// ExcType is the fixed set of guest exception types (spec.md §7 "a fixed
// set").
type ExcType string

const (
	ExcTypeError           ExcType = "TypeError"
	ExcNameError           ExcType = "NameError"
	ExcValueError          ExcType = "ValueError"
	ExcKeyError            ExcType = "KeyError"
	ExcIndexError          ExcType = "IndexError"
	ExcAttributeError      ExcType = "AttributeError"
	ExcZeroDivisionError   ExcType = "ZeroDivisionError"
	ExcStopIteration       ExcType = "StopIteration"
	ExcNotImplementedError ExcType = "NotImplementedError"
	ExcRuntimeError        ExcType = "RuntimeError"
)

// GuestException is a catchable error raised by guest code or by a
// builtin/method dispatch rejecting its arguments (spec.md §4.6 "Exception
// model", §7 stratum 2). It implements error so try/except can recognize
// it with a type assertion distinct from resource.Error, which is never
// catchable.
type GuestException struct {
	Type      ExcType
	Message   string
	Traceback []TraceEntry
}

func NewGuestException(t ExcType, format string, args ...interface{}) *GuestException {
	return &GuestException{Type: t, Message: fmt.Sprintf(format, args...)}
}

func (e *GuestException) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Matches reports whether e's type is t, used by except clauses.
func (e *GuestException) Matches(t ExcType) bool { return e.Type == t }

// RuntimeError is the wire-level error taxonomy returned to the host
// (spec.md §6.4): a guest exception, a resource error, or an internal
// bug. Exactly one of the three fields is non-nil.
type RuntimeError struct {
	Guest    *GuestException
	Resource resource.Error
	Internal error
}

func (e *RuntimeError) Error() string {
	switch {
	case e.Guest != nil:
		return e.Guest.Error()
	case e.Resource != nil:
		return e.Resource.Error()
	default:
		return "internal error: " + e.Internal.Error()
	}
}

// Unwrap exposes whichever concrete error is set, so callers can use
// errors.As against *GuestException or resource.Error.
func (e *RuntimeError) Unwrap() error {
	switch {
	case e.Guest != nil:
		return e.Guest
	case e.Resource != nil:
		return e.Resource
	default:
		return e.Internal
	}
}

func asRuntimeError(err error) *RuntimeError {
	if err == nil {
		return nil
	}
	switch v := err.(type) {
	case *RuntimeError:
		return v
	case *GuestException:
		return &RuntimeError{Guest: v}
	case resource.Error:
		return &RuntimeError{Resource: v}
	default:
		return &RuntimeError{Internal: v}
	}
}
