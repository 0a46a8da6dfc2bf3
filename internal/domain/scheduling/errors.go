package scheduling

import (
	"errors"
	"fmt"
)

// Kind discriminates scheduling failures so callers never need to match on
// message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindPolicyViolation
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindPolicyViolation:
		return "policy_violation"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "conflict"}
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrPolicyViolation = &Error{Kind: KindPolicyViolation, Message: "policy violation"}
	ErrValidation      = &Error{Kind: KindValidation, Message: "validation failed"}
)

// Error is a typed scheduling failure carrying a user-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
