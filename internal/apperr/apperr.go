// Package apperr classifies errors into the kinds the API layer knows how
// to answer. Business-rule violations are detected before any mutating
// statement runs; only Infrastructure errors may follow partial work (and
// roll it back).
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation: missing or malformed input, user-correctable.
	Validation Kind = iota
	// NotFound: the referenced entity does not exist.
	NotFound
	// Forbidden: authenticated but not authorized for the target entity.
	Forbidden
	// AlreadyExists: the entity or edge is already present.
	AlreadyExists
	// InvalidState: the operation would violate an invariant
	// (self-follow, deleting the last car, no active car).
	InvalidState
	// Infrastructure: storage or connection failure. Logged with detail,
	// surfaced to the client generically.
	Infrastructure
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case AlreadyExists:
		return "already_exists"
	case InvalidState:
		return "invalid_state"
	default:
		return "infrastructure"
	}
}

// Error carries a kind, a client-safe message, and an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error (usually a storage failure) with a kind and
// a client-safe message. Wrapping nil returns nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Infra is shorthand for the common "storage round trip failed" case.
func Infra(msg string, err error) error {
	return Wrap(Infrastructure, msg, err)
}

// KindOf extracts the kind from an error chain. Unclassified errors are
// treated as Infrastructure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Infrastructure
}

// Message returns the client-safe message for an error chain. For
// unclassified (infrastructure) errors it returns a generic message so
// internal detail never leaks to the caller.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Infrastructure {
		return e.Msg
	}
	return "internal server error"
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
