package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"todoapp/internal/domain"
	"todoapp/internal/platform"
)

type account struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
}

// authClient implements platform.Auth with accounts stored in the
// database and a signed session token in the session file.
type authClient struct {
	db          *sqlx.DB
	secret      []byte
	sessionPath string
	timeout     time.Duration
	now         func() time.Time
	feed        *platform.IdentityFeed

	mu sync.Mutex
}

func newAuthClient(db *sqlx.DB, secret []byte, sessionPath string, timeout time.Duration, now func() time.Time) (*authClient, error) {
	current, err := loadSession(sessionPath, secret)
	if err != nil {
		// An unreadable or expired session means signed out.
		current = nil
		if rmErr := removeSession(sessionPath); rmErr != nil {
			return nil, rmErr
		}
	}
	return &authClient{
		db:          db,
		secret:      secret,
		sessionPath: sessionPath,
		timeout:     timeout,
		now:         now,
		feed:        platform.NewIdentityFeed(current),
	}, nil
}

// SignIn implements platform.Auth.
func (a *authClient) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var acc account
	err := a.db.GetContext(ctx, &acc,
		`SELECT id, email, password_hash FROM accounts WHERE email = $1`, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Identity{}, &domain.AuthError{Message: "invalid email or password", Err: err}
	}
	if err != nil {
		return domain.Identity{}, wrapError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return domain.Identity{}, &domain.AuthError{Message: "invalid email or password", Err: err}
	}
	return a.begin(domain.Identity{ID: acc.ID, Email: acc.Email})
}

// SignUp implements platform.Auth.
func (a *authClient) SignUp(ctx context.Context, email, password string) (domain.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Identity{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	acc := account{ID: uuid.NewString(), Email: normalizeEmail(email), PasswordHash: string(hash)}
	_, err = a.db.NamedExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash) VALUES (:id, :email, :password_hash)`, acc)
	if isUniqueViolation(err) {
		return domain.Identity{}, &domain.AuthError{Message: "email already in use", Err: err}
	}
	if err != nil {
		return domain.Identity{}, wrapError(err)
	}
	return a.begin(domain.Identity{ID: acc.ID, Email: acc.Email})
}

// SignOut implements platform.Auth.
func (a *authClient) SignOut(ctx context.Context) error {
	a.mu.Lock()
	err := removeSession(a.sessionPath)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	a.feed.Publish(nil)
	return nil
}

// OnIdentityChange implements platform.Auth.
func (a *authClient) OnIdentityChange(fn func(*domain.Identity)) platform.Unsubscribe {
	return a.feed.Subscribe(fn)
}

func (a *authClient) begin(id domain.Identity) (domain.Identity, error) {
	token, err := issueToken(a.secret, id, a.now())
	if err != nil {
		return domain.Identity{}, err
	}
	a.mu.Lock()
	err = saveSession(a.sessionPath, token)
	a.mu.Unlock()
	if err != nil {
		return domain.Identity{}, err
	}
	a.feed.Publish(&id)
	return id, nil
}

// requireUser returns the signed-in user's id, or domain.ErrNotLoggedIn.
func requireUser(feed *platform.IdentityFeed) (string, error) {
	id := feed.Current()
	if id == nil {
		return "", domain.ErrNotLoggedIn
	}
	return id.ID, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
