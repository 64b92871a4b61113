// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"todoapp/internal/domain"
	"todoapp/internal/platform"
)

// FakePlatform is an in-memory implementation of platform.Platform for
// testing. Identity changes and live queries are delivered synchronously
// from the call that caused them.
type FakePlatform struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount // email -> account
	nextUser int
	current  *domain.Identity
	idSubs   map[int]func(*domain.Identity)
	docs     map[string]map[string]platform.Fields // collection -> id -> fields
	queries  map[int]*fakeQuery
	blobs    map[string][]byte
	nextSub  int
	closed   bool

	// idDeliver and queryDeliver serialize callbacks the way a real
	// backend does. They are separate so an identity callback may open a
	// live query.
	idDeliver    sync.Mutex
	queryDeliver sync.Mutex

	// Writes counts Set, Update and Delete calls that reached the store.
	Writes int

	// Error injection for testing
	SignInErr  error
	SignUpErr  error
	SignOutErr error
	GetErr     error
	SetErr     error
	UpdateErr  error
	DeleteErr  error
	PutErr     error
	ResolveErr error
}

type fakeAccount struct {
	identity domain.Identity
	password string
}

type fakeQuery struct {
	collection string
	filter     platform.Filter
	fn         func([]platform.Document)
}

// NewFakePlatform creates an empty FakePlatform with nobody signed in.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		accounts: make(map[string]fakeAccount),
		idSubs:   make(map[int]func(*domain.Identity)),
		docs:     make(map[string]map[string]platform.Fields),
		queries:  make(map[int]*fakeQuery),
		blobs:    make(map[string][]byte),
	}
}

// Auth implements platform.Platform.
func (f *FakePlatform) Auth() platform.Auth { return f }

// Documents implements platform.Platform.
func (f *FakePlatform) Documents() platform.Documents { return f }

// Blobs implements platform.Platform.
func (f *FakePlatform) Blobs() platform.Blobs { return f }

// Close implements platform.Platform.
func (f *FakePlatform) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakePlatform) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// AddAccount registers an account and returns its identity. Ids are
// assigned in order: u1, u2, ...
func (f *FakePlatform) AddAccount(email, password string) domain.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addAccountLocked(email, password)
}

func (f *FakePlatform) addAccountLocked(email, password string) domain.Identity {
	f.nextUser++
	id := domain.Identity{ID: fmt.Sprintf("u%d", f.nextUser), Email: email}
	f.accounts[email] = fakeAccount{identity: id, password: password}
	return id
}

// SignInAs makes id the current identity without a password check.
func (f *FakePlatform) SignInAs(id domain.Identity) {
	f.setCurrent(&id)
}

// IdentitySubscribers returns the number of live identity subscriptions.
func (f *FakePlatform) IdentitySubscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.idSubs)
}

// ActiveQueries returns the number of live queries.
func (f *FakePlatform) ActiveQueries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// PutDocument stores a document without counting it as a write.
func (f *FakePlatform) PutDocument(collection, id string, fields platform.Fields) {
	f.mu.Lock()
	f.putLocked(collection, id, fields.Clone())
	f.mu.Unlock()
	f.notify(collection)
}

// Document returns a stored document.
func (f *FakePlatform) Document(collection, id string) (platform.Fields, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields, ok := f.docs[collection][id]
	if !ok {
		return nil, false
	}
	return fields.Clone(), true
}

// Count returns the number of documents in collection.
func (f *FakePlatform) Count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[collection])
}

// Blob returns stored blob bytes.
func (f *FakePlatform) Blob(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[path]
	return b, ok
}

// SignIn implements platform.Auth.
func (f *FakePlatform) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	if f.SignInErr != nil {
		return domain.Identity{}, f.SignInErr
	}
	f.mu.Lock()
	acct, ok := f.accounts[email]
	f.mu.Unlock()
	if !ok || acct.password != password {
		return domain.Identity{}, &domain.AuthError{Message: "invalid email or password"}
	}
	f.setCurrent(&acct.identity)
	return acct.identity, nil
}

// SignUp implements platform.Auth.
func (f *FakePlatform) SignUp(ctx context.Context, email, password string) (domain.Identity, error) {
	if f.SignUpErr != nil {
		return domain.Identity{}, f.SignUpErr
	}
	f.mu.Lock()
	if _, exists := f.accounts[email]; exists {
		f.mu.Unlock()
		return domain.Identity{}, &domain.AuthError{Message: "email already in use"}
	}
	id := f.addAccountLocked(email, password)
	f.mu.Unlock()
	f.setCurrent(&id)
	return id, nil
}

// SignOut implements platform.Auth.
func (f *FakePlatform) SignOut(ctx context.Context) error {
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	f.setCurrent(nil)
	return nil
}

// OnIdentityChange implements platform.Auth.
func (f *FakePlatform) OnIdentityChange(fn func(*domain.Identity)) platform.Unsubscribe {
	f.idDeliver.Lock()
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.idSubs[id] = fn
	current := copyIdentity(f.current)
	f.mu.Unlock()
	fn(current)
	f.idDeliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.idSubs, id)
			f.mu.Unlock()
		})
	}
}

func (f *FakePlatform) setCurrent(id *domain.Identity) {
	f.idDeliver.Lock()
	defer f.idDeliver.Unlock()

	f.mu.Lock()
	f.current = copyIdentity(id)
	ids := make([]int, 0, len(f.idSubs))
	for k := range f.idSubs {
		ids = append(ids, k)
	}
	sort.Ints(ids)
	subs := make([]func(*domain.Identity), len(ids))
	for i, k := range ids {
		subs[i] = f.idSubs[k]
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(copyIdentity(id))
	}
}

// Get implements platform.Documents.
func (f *FakePlatform) Get(ctx context.Context, collection, id string) (platform.Document, error) {
	if f.GetErr != nil {
		return platform.Document{}, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fields, ok := f.docs[collection][id]
	if !ok {
		return platform.Document{}, fmt.Errorf("%s/%s: %w", collection, id, platform.ErrNotFound)
	}
	return platform.Document{ID: id, Fields: fields.Clone()}, nil
}

// Set implements platform.Documents.
func (f *FakePlatform) Set(ctx context.Context, collection, id string, fields platform.Fields) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.mu.Lock()
	f.Writes++
	f.putLocked(collection, id, fields.Clone())
	f.mu.Unlock()
	f.notify(collection)
	return nil
}

// Update implements platform.Documents.
func (f *FakePlatform) Update(ctx context.Context, collection, id string, patch platform.Fields) error {
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	existing, ok := f.docs[collection][id]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, platform.ErrNotFound)
	}
	f.Writes++
	merged := existing.Clone()
	for k, v := range patch {
		merged[k] = v
	}
	f.docs[collection][id] = merged
	f.mu.Unlock()
	f.notify(collection)
	return nil
}

// Delete implements platform.Documents.
func (f *FakePlatform) Delete(ctx context.Context, collection, id string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	f.Writes++
	delete(f.docs[collection], id)
	f.mu.Unlock()
	f.notify(collection)
	return nil
}

// LiveQuery implements platform.Documents.
func (f *FakePlatform) LiveQuery(collection string, filter platform.Filter, fn func([]platform.Document)) platform.Unsubscribe {
	q := &fakeQuery{collection: collection, filter: filter, fn: fn}

	f.queryDeliver.Lock()
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.queries[id] = q
	snapshot := f.queryLocked(q)
	f.mu.Unlock()
	fn(snapshot)
	f.queryDeliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.queries, id)
			f.mu.Unlock()
		})
	}
}

// Put implements platform.Blobs.
func (f *FakePlatform) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if f.PutErr != nil {
		return "", f.PutErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = append([]byte(nil), data...)
	return "fake://" + path, nil
}

// Resolve implements platform.Blobs.
func (f *FakePlatform) Resolve(ctx context.Context, address string) (string, error) {
	if f.ResolveErr != nil {
		return "", f.ResolveErr
	}
	return "https://blobs.example.com/" + address[len("fake://"):], nil
}

func (f *FakePlatform) putLocked(collection, id string, fields platform.Fields) {
	if f.docs[collection] == nil {
		f.docs[collection] = make(map[string]platform.Fields)
	}
	f.docs[collection][id] = fields
}

// queryLocked returns matching documents sorted by id.
func (f *FakePlatform) queryLocked(q *fakeQuery) []platform.Document {
	var out []platform.Document
	for id, fields := range f.docs[q.collection] {
		doc := platform.Document{ID: id, Fields: fields.Clone()}
		if q.filter.Matches(doc) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// notify re-delivers every live query on collection.
func (f *FakePlatform) notify(collection string) {
	f.queryDeliver.Lock()
	defer f.queryDeliver.Unlock()

	f.mu.Lock()
	ids := make([]int, 0, len(f.queries))
	for id, q := range f.queries {
		if q.collection == collection {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	type delivery struct {
		fn   func([]platform.Document)
		docs []platform.Document
	}
	deliveries := make([]delivery, 0, len(ids))
	for _, id := range ids {
		q := f.queries[id]
		deliveries = append(deliveries, delivery{fn: q.fn, docs: f.queryLocked(q)})
	}
	f.mu.Unlock()

	for _, d := range deliveries {
		d.fn(d.docs)
	}
}

func copyIdentity(id *domain.Identity) *domain.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
