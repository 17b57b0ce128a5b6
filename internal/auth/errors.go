package auth

import (
	"github.com/pkg/errors"
)

// ErrInvalidCredentialsFormat is returned when credentials cannot possibly match a stored user.
var ErrInvalidCredentialsFormat = errors.New("invalid credentials format")

// A BackendError wraps a failure of the credential store.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return "auth backend: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying store error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Cause implements the pkg/errors causer.
func (e *BackendError) Cause() error {
	return e.Err
}

// An UpgradeError is returned by Authenticate when the password was verified
// but the upgraded hash could not be persisted. The user is authenticated and
// is returned alongside the error; the previous hash is still stored.
type UpgradeError struct {
	Err error
}

func (e *UpgradeError) Error() string {
	return "verified but failed to upgrade password hash: " + e.Err.Error()
}

// Unwrap returns the underlying BackendError.
func (e *UpgradeError) Unwrap() error {
	return e.Err
}

func backend(op string, err error) error {
	return &BackendError{Op: op, Err: err}
}
