package application

import (
	"errors"
	"fmt"
)

// Kind classifies application failures for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindDuplicate
	KindPolicyViolation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindDuplicate:
		return "duplicate"
	case KindPolicyViolation:
		return "policy_violation"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

var (
	ErrDuplicate       = &Error{Kind: KindDuplicate}
	ErrPolicyViolation = &Error{Kind: KindPolicyViolation}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrInternal        = &Error{Kind: KindInternal}

	// ErrUserNotFound is returned by FindUserByID; it is not client-facing.
	ErrUserNotFound = errors.New("user not found")
)

// internalMessage is the only text an Internal error ever shows a client.
const internalMessage = "internal server error"

// Error is a typed rejection with a fixed client-facing Message. Err keeps
// the underlying cause for logs and is never rendered.
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

// Is matches any *Error of the same Kind, so errors.Is(err, ErrUnauthorized)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func internalError(cause error) *Error {
	return newError(KindInternal, internalMessage, cause)
}

// KindOf reports the Kind of err, defaulting to KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage is the message safe to show a client for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return internalMessage
}
