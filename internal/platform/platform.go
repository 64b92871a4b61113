// Package platform defines the backend-agnostic capabilities the app consumes.
// Auth, document and blob calls all go through these interfaces.
// Nothing above this package imports a backend SDK directly.
package platform

import (
	"context"
	"errors"

	"todoapp/internal/domain"
)

// ErrNotFound is returned by Documents.Get when the document does not exist.
var ErrNotFound = errors.New("not found")

// Unsubscribe releases a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Platform bundles the three capabilities of a backend.
type Platform interface {
	Auth() Auth
	Documents() Documents
	Blobs() Blobs

	// Close releases connections held by the backend.
	Close() error
}

// Auth wraps the backend authentication service.
type Auth interface {
	// SignIn authenticates an existing account.
	// Fails with *domain.AuthError on bad credentials or network failure.
	SignIn(ctx context.Context, email, password string) (domain.Identity, error)

	// SignUp creates an account and signs it in.
	// Fails with *domain.AuthError on duplicate account or network failure.
	SignUp(ctx context.Context, email, password string) (domain.Identity, error)

	// SignOut ends the current session.
	SignOut(ctx context.Context) error

	// OnIdentityChange registers fn for identity changes. fn is called
	// immediately with the current identity (nil when signed out) and then
	// once per change, never concurrently with itself.
	OnIdentityChange(fn func(*domain.Identity)) Unsubscribe
}

// Documents is a schemaless collection/id keyed store.
type Documents interface {
	// Get returns ErrNotFound (wrapped) when the document is absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set creates or replaces a document.
	Set(ctx context.Context, collection, id string, fields Fields) error

	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, patch Fields) error

	// Delete removes a document.
	Delete(ctx context.Context, collection, id string) error

	// LiveQuery delivers the full matching result set immediately and then
	// again whenever it changes. Deliveries are serial.
	LiveQuery(collection string, filter Filter, fn func([]Document)) Unsubscribe
}

// Blobs is a path keyed binary store.
type Blobs interface {
	// Put stores data at path and returns its storage address.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)

	// Resolve turns an address returned by Put into a retrievable URL.
	Resolve(ctx context.Context, address string) (string, error)
}

// Filter is an equality match on one document field.
type Filter struct {
	Field string
	Value string
}

// Matches reports whether doc satisfies the filter.
func (f Filter) Matches(doc Document) bool {
	if f.Field == "" {
		return true
	}
	return doc.String(f.Field) == f.Value
}
