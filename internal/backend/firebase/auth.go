package firebase

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"

	"todoapp/internal/domain"
	"todoapp/internal/platform"
)

// authClient implements platform.Auth with email/password accounts.
type authClient struct {
	toolkit *identitytoolkit.Service
	sess    *session
	timeout time.Duration
	feed    *platform.IdentityFeed
}

func newAuthClient(toolkit *identitytoolkit.Service, sess *session, timeout time.Duration) *authClient {
	return &authClient{
		toolkit: toolkit,
		sess:    sess,
		timeout: timeout,
		feed:    platform.NewIdentityFeed(sess.current()),
	}
}

// SignIn implements platform.Auth.
func (a *authClient) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return domain.Identity{}, authError(err)
	}
	return a.begin(resp.IdToken, resp.RefreshToken, resp.ExpiresIn, resp.LocalId, resp.Email)
}

// SignUp implements platform.Auth.
func (a *authClient) SignUp(ctx context.Context, email, password string) (domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.toolkit.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return domain.Identity{}, authError(err)
	}
	return a.begin(resp.IdToken, resp.RefreshToken, resp.ExpiresIn, resp.LocalId, resp.Email)
}

// SignOut implements platform.Auth. Firebase ID tokens cannot be revoked
// from the client, so signing out forgets the local session.
func (a *authClient) SignOut(ctx context.Context) error {
	if err := a.sess.clear(); err != nil {
		return err
	}
	a.feed.Publish(nil)
	return nil
}

// OnIdentityChange implements platform.Auth.
func (a *authClient) OnIdentityChange(fn func(*domain.Identity)) platform.Unsubscribe {
	return a.feed.Subscribe(fn)
}

func (a *authClient) begin(idToken, refreshToken string, expiresIn int64, localID, email string) (domain.Identity, error) {
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	tok := &oauth2.Token{
		AccessToken:  idToken,
		TokenType:    "Bearer",
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(time.Duration(expiresIn) * time.Second),
	}

	id := domain.Identity{ID: localID, Email: email}
	if id.ID == "" {
		fromToken, err := identityFromToken(idToken)
		if err != nil {
			return domain.Identity{}, err
		}
		id = fromToken
	}

	if err := a.sess.start(tok, id); err != nil {
		return domain.Identity{}, err
	}
	a.feed.Publish(&id)
	return id, nil
}

// authError maps Identity Toolkit error codes to user-facing messages.
// Anything else is returned as a transport error.
func authError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return wrapError(err)
	}
	code, _, _ := strings.Cut(apiErr.Message, " ")
	switch code {
	case "EMAIL_EXISTS":
		return &domain.AuthError{Message: "email already in use", Err: err}
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return &domain.AuthError{Message: "invalid email or password", Err: err}
	case "INVALID_EMAIL":
		return &domain.AuthError{Message: "invalid email address", Err: err}
	case "WEAK_PASSWORD":
		return &domain.AuthError{Message: "password must be at least 6 characters long", Err: err}
	case "USER_DISABLED":
		return &domain.AuthError{Message: "this account has been disabled", Err: err}
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return &domain.AuthError{Message: "too many attempts, try again later", Err: err}
	}
	return wrapError(err)
}
