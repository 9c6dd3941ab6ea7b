package domain

import "errors"

// Error taxonomy. Services wrap these with context; handlers map them to
// HTTP status codes with errors.Is.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("not allowed")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrResolutionFailure = errors.New("could not resolve user")
	ErrProvider          = errors.New("identity provider error")
	ErrStore             = errors.New("store error")

	// ErrAlreadyRegistered is returned by the identity provider when an
	// invitation targets an email that already has an account.
	ErrAlreadyRegistered = errors.New("email already registered")
)

// Specific errors
var (
	ErrLastOwner      = &wrapped{msg: "cannot remove the last owner", base: ErrConflict}
	ErrTenantNotFound = &wrapped{msg: "tenant not found", base: ErrNotFound}
	ErrMemberNotFound = &wrapped{msg: "membership not found", base: ErrNotFound}
)

type wrapped struct {
	msg  string
	base error
}

func (e *wrapped) Error() string { return e.msg }

func (e *wrapped) Unwrap() error { return e.base }
