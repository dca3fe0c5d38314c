package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("invalid input")
	ErrDuplicateUser    = errors.New("a user with this username or email already exists")
	ErrDuplicateSerial  = errors.New("serial number must be unique")
	ErrAssigneeNotFound = errors.New("assigned user not found")
	ErrLastAdmin        = errors.New("cannot delete the last administrator")
	ErrSelfDelete       = errors.New("you cannot delete your own administrator account")

	ErrUnauthenticated    = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrForbidden = errors.New("access denied")
	ErrNotFound  = errors.New("not found")

	ErrStorageDisabled = errors.New("attachment storage is not configured")
)

// kindError carries a caller-facing message while still matching its kind
// with errors.Is.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func withMessage(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return withMessage(ErrValidation, format, args...)
}

func notFound(resource string) error {
	return withMessage(ErrNotFound, "%s not found", resource)
}
