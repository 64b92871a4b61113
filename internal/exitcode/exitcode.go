// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"context"
	"errors"

	"todoapp/internal/domain"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, validation, unknown task).
	UserError = 1

	// AuthError indicates an auth or config error.
	AuthError = 2

	// BackendError indicates a backend, API or network error.
	BackendError = 3
)

// For classifies err. A nil error is Success.
func For(err error) int {
	switch {
	case err == nil:
		return Success
	case domain.IsValidation(err), errors.Is(err, context.Canceled):
		return UserError
	case errors.Is(err, domain.ErrNotLoggedIn), domain.IsAuth(err):
		return AuthError
	default:
		return BackendError
	}
}
