package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.  Handlers map kinds to HTTP status
// codes; the zero Kind means an internal error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthorization
	KindNotFound
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindExternal:
		return "external_service"
	}
	return "internal"
}

// Error is a classified failure whose Message is safe to show callers.
// Err, when set, is the underlying cause and is never shown.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed or semantically invalid input.
func ValidationError(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// ConflictError reports an overlap or a duplicate.
func ConflictError(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// AuthorizationError reports an actor acting outside their ownership.
func AuthorizationError(format string, args ...any) *Error {
	return newError(KindAuthorization, format, args...)
}

// NotFoundError reports a missing or invisible resource.
func NotFoundError(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// ExternalError wraps a gateway failure.
func ExternalError(err error, format string, args ...any) *Error {
	e := newError(KindExternal, format, args...)
	e.Err = err
	return e
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// Message returns the caller-safe message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
