package services

import (
	"errors"
	"fmt"
)

// Kind classifies a workflow error so callers can map it to a response
// without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAuthorization
	KindInvalidState
	KindValidation
	KindNoCapacity
	KindExternalService
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation"
	case KindNoCapacity:
		return "no_capacity"
	case KindExternalService:
		return "external_service"
	}
	return "unknown"
}

// Error is the typed error returned by every workflow operation. Business
// rule violations surface synchronously and abort the transition; they are
// never retried automatically.
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

// KindOf returns the classification of err, or KindUnknown for errors that
// did not originate in the workflow core.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NoCapacity(format string, args ...any) *Error {
	return &Error{Kind: KindNoCapacity, Msg: fmt.Sprintf(format, args...)}
}

func External(msg string, err error) *Error {
	return &Error{Kind: KindExternalService, Msg: msg, Err: err}
}

// Store-level sentinels. Repositories return these from conditional writes;
// services translate them into the taxonomy above.
var (
	// ErrVersionConflict means another transition committed first.
	ErrVersionConflict = errors.New("application version conflict")
	// ErrOfficerAtCapacity means the in-transaction workload recheck found
	// the chosen officer already at cap.
	ErrOfficerAtCapacity = errors.New("officer at capacity")
)
