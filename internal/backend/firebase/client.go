// Package firebase implements platform.Platform on Firebase Auth, Cloud
// Firestore and Cloud Storage for Firebase, acting as the signed-in end user.
package firebase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/firestore/v1"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"todoapp/internal/config"
	"todoapp/internal/platform"
)

const (
	// TokenEndpoint exchanges refresh tokens for fresh ID tokens.
	TokenEndpoint = "https://securetoken.googleapis.com/v1/token"

	// StorageEndpoint is the Firebase Storage REST API.
	StorageEndpoint = "https://firebasestorage.googleapis.com"
)

// Options configures a Client. Endpoint fields are for tests; empty means
// the production endpoint.
type Options struct {
	APIKey        string
	ProjectID     string
	StorageBucket string
	SessionPath   string
	Timeout       time.Duration
	PollInterval  time.Duration

	HTTPClient        *http.Client
	AuthEndpoint      string
	TokenEndpoint     string
	FirestoreEndpoint string
	StorageEndpoint   string
}

// Client implements platform.Platform.
type Client struct {
	auth    *authClient
	docs    *docStore
	storage *blobStore
}

// New creates a client from the loaded configuration and restores the
// stored session, if any.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	return NewWithOptions(ctx, Options{
		APIKey:        cfg.Firebase.APIKey,
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Firebase.StorageBucket,
		SessionPath:   cfg.SessionPath(),
		Timeout:       cfg.APITimeout,
		PollInterval:  cfg.PollInterval,
	})
}

// NewWithOptions creates a client with explicit options.
func NewWithOptions(ctx context.Context, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultAPITimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	tokenURL := opts.TokenEndpoint
	if tokenURL == "" {
		tokenURL = TokenEndpoint
	}
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL + "?key=" + url.QueryEscape(opts.APIKey),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	sess := newSession(opts.SessionPath, conf, base)
	if err := sess.restore(); err != nil {
		return nil, err
	}

	// Every Firestore and Storage request carries the current ID token.
	authed := &http.Client{
		Transport: &oauth2.Transport{Source: sess, Base: base.Transport},
	}

	toolkitOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.AuthEndpoint != "" {
		toolkitOpts = append(toolkitOpts, option.WithEndpoint(opts.AuthEndpoint))
	}
	if opts.HTTPClient != nil {
		toolkitOpts = append(toolkitOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	toolkit, err := identitytoolkit.NewService(ctx, toolkitOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	fsOpts := []option.ClientOption{option.WithHTTPClient(authed)}
	if opts.FirestoreEndpoint != "" {
		fsOpts = append(fsOpts, option.WithEndpoint(opts.FirestoreEndpoint))
	}
	fs, err := firestore.NewService(ctx, fsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore service: %w", err)
	}

	storageURL := opts.StorageEndpoint
	if storageURL == "" {
		storageURL = StorageEndpoint
	}

	return &Client{
		auth: newAuthClient(toolkit, sess, opts.Timeout),
		docs: newDocStore(fs, authed, opts.ProjectID, opts.Timeout, opts.PollInterval),
		storage: &blobStore{
			http:    authed,
			base:    storageURL,
			bucket:  opts.StorageBucket,
			timeout: opts.Timeout,
		},
	}, nil
}

// Auth implements platform.Platform.
func (c *Client) Auth() platform.Auth { return c.auth }

// Documents implements platform.Platform.
func (c *Client) Documents() platform.Documents { return c.docs }

// Blobs implements platform.Platform.
func (c *Client) Blobs() platform.Blobs { return c.storage }

// Close stops every live query.
func (c *Client) Close() error {
	c.docs.stopAll()
	return nil
}
