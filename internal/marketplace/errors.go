package marketplace

import (
	"errors"
	"fmt"
)

// Kind classifies marketplace failures so callers can branch on them.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindServiceNotFound        Kind = "service_not_found"
	KindForbidden              Kind = "forbidden"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindDuplicateReview        Kind = "duplicate_review"
	KindOrderNotCompleted      Kind = "order_not_completed"
	KindSelfOrderForbidden     Kind = "self_order_forbidden"
	KindInvalidRating          Kind = "invalid_rating"
	KindInvalidReason          Kind = "invalid_reason"
	KindAlreadyDisputed        Kind = "already_disputed"
	KindInvalidInput           Kind = "invalid_input"
)

// Error is a domain failure carrying its kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden)
// holds regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound               = &Error{Kind: KindNotFound, Message: "not found"}
	ErrServiceNotFound        = &Error{Kind: KindServiceNotFound, Message: "service not found"}
	ErrForbidden              = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition, Message: "invalid status transition"}
	ErrDuplicateReview        = &Error{Kind: KindDuplicateReview, Message: "review already exists for this order"}
	ErrOrderNotCompleted      = &Error{Kind: KindOrderNotCompleted, Message: "can only review completed orders"}
	ErrSelfOrderForbidden     = &Error{Kind: KindSelfOrderForbidden, Message: "you cannot order your own service"}
	ErrInvalidRating          = &Error{Kind: KindInvalidRating, Message: "rating must be between 1 and 5"}
	ErrInvalidReason          = &Error{Kind: KindInvalidReason, Message: "dispute reason must be at least 10 characters"}
	ErrAlreadyDisputed        = &Error{Kind: KindAlreadyDisputed, Message: "review already disputed"}
	ErrInvalidInput           = &Error{Kind: KindInvalidInput, Message: "invalid input"}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a domain error, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
