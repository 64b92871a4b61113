// Package config handles the configuration directory, its files and
// environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// AppName is the application directory name.
	AppName = "todoapp"

	// FirebaseFile holds the Firebase web app settings.
	FirebaseFile = "firebase.json"

	// SessionFile is the stored sign-in session.
	SessionFile = "session.json"

	// BackendFirebase talks to Firebase Auth, Firestore and Storage.
	BackendFirebase = "firebase"

	// BackendPostgres talks to a self-hosted PostgreSQL database.
	BackendPostgres = "postgres"
)

// Defaults for tunables that can be overridden from the environment.
const (
	DefaultAPITimeout   = 10 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Firebase holds the web app settings from the Firebase console.
type Firebase struct {
	APIKey        string `json:"apiKey"`
	ProjectID     string `json:"projectId"`
	StorageBucket string `json:"storageBucket"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend is BackendFirebase or BackendPostgres.
	Backend string

	// Firebase settings, from firebase.json and FIREBASE_* variables.
	Firebase Firebase

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// JWTSecret signs session tokens of the postgres backend.
	JWTSecret string

	// BlobBaseURL is the public URL blobs are served from (postgres backend).
	BlobBaseURL string

	// APITimeout bounds every remote call.
	APITimeout time.Duration

	// PollInterval is how often polled live queries refresh.
	PollInterval time.Duration
}

// New creates a Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/todoapp or $HOME/.config/todoapp.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:          dir,
		Backend:      BackendFirebase,
		APITimeout:   DefaultAPITimeout,
		PollInterval: DefaultPollInterval,
	}, nil
}

// Load creates a Config and applies firebase.json and the environment.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	if err := cfg.loadFirebaseFile(); err != nil {
		return nil, err
	}

	cfg.Backend = strings.ToLower(getEnv("TODOAPP_BACKEND", cfg.Backend))
	cfg.DatabaseURL = getEnv("TODOAPP_DATABASE_URL", cfg.DatabaseURL)
	cfg.JWTSecret = getEnv("TODOAPP_JWT_SECRET", cfg.JWTSecret)
	cfg.BlobBaseURL = getEnv("TODOAPP_BLOB_BASE_URL", cfg.BlobBaseURL)
	cfg.Firebase.APIKey = getEnv("FIREBASE_API_KEY", cfg.Firebase.APIKey)
	cfg.Firebase.ProjectID = getEnv("FIREBASE_PROJECT_ID", cfg.Firebase.ProjectID)
	cfg.Firebase.StorageBucket = getEnv("FIREBASE_STORAGE_BUCKET", cfg.Firebase.StorageBucket)

	if cfg.APITimeout, err = getEnvDuration("TODOAPP_API_TIMEOUT", cfg.APITimeout); err != nil {
		return nil, fmt.Errorf("parse TODOAPP_API_TIMEOUT: %w", err)
	}
	if cfg.PollInterval, err = getEnvDuration("TODOAPP_POLL_INTERVAL", cfg.PollInterval); err != nil {
		return nil, fmt.Errorf("parse TODOAPP_POLL_INTERVAL: %w", err)
	}

	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFirebase:
		if c.Firebase.APIKey == "" || c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase apiKey and projectId are required (set them in %s)", c.FirebasePath())
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("TODOAPP_DATABASE_URL is required for the postgres backend")
		}
		if c.JWTSecret == "" {
			return errors.New("TODOAPP_JWT_SECRET is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// FirebasePath returns the path to the Firebase settings file.
func (c *Config) FirebasePath() string {
	return filepath.Join(c.Dir, FirebaseFile)
}

// SessionPath returns the path to the stored session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSession checks if the session file exists.
func (c *Config) HasSession() bool {
	_, err := os.Stat(c.SessionPath())
	return err == nil
}

// RemoveSession deletes the session file. A missing file is not an error.
func (c *Config) RemoveSession() error {
	err := os.Remove(c.SessionPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Config) loadFirebaseFile() error {
	data, err := os.ReadFile(c.FirebasePath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", FirebaseFile, err)
	}
	if err := json.Unmarshal(data, &c.Firebase); err != nil {
		return fmt.Errorf("invalid %s: %w", FirebaseFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}
