package domain

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the typed outcome of every auth and admin operation. Msg is safe to
// show to clients; Err is the cause and stays server side.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind and message so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

var (
	ErrInvalidCredentials = newErr(KindAuthentication, "invalid credentials")
	ErrWrongPassword      = newErr(KindAuthentication, "current password is incorrect")
	ErrUnauthenticated    = newErr(KindAuthentication, "unauthorized")
	ErrInvalidToken       = newErr(KindAuthentication, "invalid token")

	ErrForbidden     = newErr(KindAuthorization, "forbidden")
	ErrSuspended     = newErr(KindAuthorization, "account suspended")
	ErrSelfDelete    = newErr(KindAuthorization, "cannot delete your own account")
	ErrDeleteAdmin   = newErr(KindAuthorization, "cannot delete an admin account")
	ErrSuspendAdmin  = newErr(KindAuthorization, "cannot suspend an admin account")
	ErrSelfDemote    = newErr(KindAuthorization, "cannot change your own role")
	ErrSelfSuspend   = newErr(KindAuthorization, "cannot suspend your own account")
	ErrPromoteBanned = newErr(KindValidation, "unsuspend the user before granting admin")

	ErrUserNotFound = newErr(KindNotFound, "user not found")
	ErrEmailTaken   = newErr(KindConflict, "email already registered")

	ErrStoreUnavailable = newErr(KindUnavailable, "store unavailable")
	ErrNoUpdates        = newErr(KindValidation, "no updates provided")
	ErrInvalidRole      = newErr(KindValidation, "invalid role")
)

func Validation(msg string) error { return newErr(KindValidation, msg) }

// Internal wraps an unexpected failure; the cause is never sent to clients.
func Internal(msg string, err error) error { return &Error{Kind: KindInternal, Msg: msg, Err: err} }

// Unavailable wraps a transient store failure.
func Unavailable(err error) error {
	return &Error{Kind: KindUnavailable, Msg: ErrStoreUnavailable.Msg, Err: err}
}

// KindOf returns KindInternal for anything that is not a *Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// PartialError reports a privileged mutation that committed while its audit
// entry could not be written. Result holds what the mutation produced.
type PartialError struct {
	Action AdminAction
	Result any
	Err    error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s committed but audit log write failed: %v", e.Action, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
