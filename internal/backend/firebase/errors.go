package firebase

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"todoapp/internal/domain"
	"todoapp/internal/platform"
)

// sessionExpired is reported when the session can no longer be used and
// the user has to sign in again.
const sessionExpired = "session expired (run: todoapp login)"

// wrapError maps transport and API errors to user-friendly errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, domain.ErrNotLoggedIn) {
		return domain.ErrNotLoggedIn
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("request timed out")
	}

	// The Secure Token service refused the refresh token, e.g. because it
	// was revoked or the account was disabled.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &domain.AuthError{Message: sessionExpired, Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return &domain.AuthError{Message: sessionExpired, Err: err}
		case http.StatusForbidden:
			return errors.New("permission denied")
		case http.StatusNotFound:
			return platform.ErrNotFound
		}
	}

	return err
}
