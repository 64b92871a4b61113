// Package postgres implements platform.Platform on a self-hosted PostgreSQL
// database. Documents live in one JSONB table and change notifications
// travel over LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"todoapp/internal/config"
	"todoapp/internal/platform"
)

// Options configures a Client.
type Options struct {
	DatabaseURL string
	JWTSecret   string
	SessionPath string
	BlobBaseURL string
	Timeout     time.Duration

	// Now is the clock used for session tokens. Defaults to time.Now.
	Now func() time.Time
}

// Client implements platform.Platform.
type Client struct {
	db      *sqlx.DB
	url     string
	timeout time.Duration

	auth  *authClient
	docs  *docStore
	blobs *blobStore

	mu     sync.Mutex
	closed bool
}

// New opens the database named in the configuration, applies the schema
// and restores the stored session, if any.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	return Open(ctx, Options{
		DatabaseURL: cfg.DatabaseURL,
		JWTSecret:   cfg.JWTSecret,
		SessionPath: cfg.SessionPath(),
		BlobBaseURL: cfg.BlobBaseURL,
		Timeout:     cfg.APITimeout,
	})
}

// Open creates a client with explicit options.
func Open(ctx context.Context, opts Options) (*Client, error) {
	if opts.DatabaseURL == "" {
		return nil, errors.New("database url is required")
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultAPITimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	db, err := sqlx.ConnectContext(connectCtx, "pgx", opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c := &Client{db: db, url: opts.DatabaseURL, timeout: opts.Timeout}
	if err := c.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	auth, err := newAuthClient(db, []byte(opts.JWTSecret), opts.SessionPath, opts.Timeout, opts.Now)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.auth = auth
	c.docs = newDocStore(db, opts.DatabaseURL, auth.feed, opts.Timeout)
	c.blobs = &blobStore{db: db, feed: auth.feed, baseURL: opts.BlobBaseURL, timeout: opts.Timeout}
	return c, nil
}

// Auth implements platform.Platform.
func (c *Client) Auth() platform.Auth { return c.auth }

// Documents implements platform.Platform.
func (c *Client) Documents() platform.Documents { return c.docs }

// Blobs implements platform.Platform.
func (c *Client) Blobs() platform.Blobs { return c.blobs }

// Close stops every live query and closes the database pool.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.docs.stopAll()
	return c.db.Close()
}
