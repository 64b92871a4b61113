package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"todoapp/internal/domain"
)

// session holds the signed-in user's tokens. The ID token travels as the
// oauth2 access token; the refresh token renews it through the Secure
// Token endpoint.
type session struct {
	path string
	conf *oauth2.Config
	ctx  context.Context // carries the HTTP client used for refreshes

	mu       sync.Mutex
	src      oauth2.TokenSource
	identity *domain.Identity
}

func newSession(path string, conf *oauth2.Config, base *http.Client) *session {
	return &session{
		path: path,
		conf: conf,
		ctx:  context.WithValue(context.Background(), oauth2.HTTPClient, base),
	}
}

// restore loads the stored session. A missing file means signed out.
func (s *session) restore() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(s.path), err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return fmt.Errorf("invalid %s: %w", filepath.Base(s.path), err)
	}
	id, err := identityFromToken(tok.AccessToken)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", filepath.Base(s.path), err)
	}

	s.mu.Lock()
	s.setLocked(&tok, id)
	s.mu.Unlock()
	return nil
}

// start stores a freshly issued token and makes id current.
func (s *session) start(tok *oauth2.Token, id domain.Identity) error {
	if err := s.save(tok); err != nil {
		return err
	}
	s.mu.Lock()
	s.setLocked(tok, id)
	s.mu.Unlock()
	return nil
}

// clear forgets the session and deletes the stored file.
func (s *session) clear() error {
	s.mu.Lock()
	s.src = nil
	s.identity = nil
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// current returns the signed-in identity or nil.
func (s *session) current() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Token implements oauth2.TokenSource.
func (s *session) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	src := s.src
	s.mu.Unlock()
	if src == nil {
		return nil, domain.ErrNotLoggedIn
	}
	return src.Token()
}

func (s *session) setLocked(tok *oauth2.Token, id domain.Identity) {
	refresher := &savingSource{s: s, src: s.conf.TokenSource(s.ctx, tok)}
	s.src = oauth2.ReuseTokenSource(tok, refresher)
	s.identity = &id
}

func (s *session) save(tok *oauth2.Token) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// savingSource persists every refreshed token so the next process starts
// with it.
type savingSource struct {
	s   *session
	src oauth2.TokenSource
}

func (r *savingSource) Token() (*oauth2.Token, error) {
	tok, err := r.src.Token()
	if err != nil {
		return nil, err
	}
	if err := r.s.save(tok); err != nil {
		slog.Warn("could not persist refreshed session", "error", err)
	}
	return tok, nil
}

// identityFromToken reads the user from ID token claims. The signature is
// not checked here; Firestore verifies the token on every request.
func identityFromToken(raw string) (domain.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return domain.Identity{}, fmt.Errorf("parse id token: %w", err)
	}
	uid, _ := claims["user_id"].(string)
	if uid == "" {
		uid, _ = claims.GetSubject()
	}
	if uid == "" {
		return domain.Identity{}, errors.New("id token has no user")
	}
	email, _ := claims["email"].(string)
	return domain.Identity{ID: uid, Email: email}, nil
}
