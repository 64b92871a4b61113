package domain

import "errors"

// ErrNotLoggedIn is returned when an operation needs an authenticated user.
var ErrNotLoggedIn = errors.New("not logged in")

// ValidationError represents a local input failure. It never reaches the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// AuthError represents a failed sign-in, sign-up or sign-out.
// Message is safe to show to the user.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RemoteOperationError represents a failed document or blob operation.
type RemoteOperationError struct {
	Op  string
	Err error
}

func (e *RemoteOperationError) Error() string {
	if e.Err == nil {
		return "failed to " + e.Op
	}
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *RemoteOperationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var a *AuthError
	return errors.As(err, &a)
}

// IsRemote reports whether err is a RemoteOperationError.
func IsRemote(err error) bool {
	var r *RemoteOperationError
	return errors.As(err, &r)
}
