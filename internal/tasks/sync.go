// Package tasks keeps a user's task list in sync with the document store.
//
// The list is owned by the backend: every live-query delivery replaces it
// wholesale, and mutations never touch it locally. A task created by Add
// shows up only when the subscription re-delivers.
package tasks

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"todoapp/internal/auth"
	"todoapp/internal/domain"
	"todoapp/internal/platform"
)

// Document layout of the task collection.
const (
	Collection = "todos"

	FieldText      = "text"
	FieldCompleted = "completed"
	FieldOwner     = "userId"
	FieldCreatedAt = "createdAt"
)

// UserSource is the subset of auth.Provider the synchronizer consumes.
type UserSource interface {
	Subscribe(fn func(auth.State)) func()
}

// ConfirmFunc asks the user to confirm deleting t.
type ConfirmFunc func(t domain.Task) bool

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithClock sets the source of createdAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// WithIDs sets the generator for new task ids.
func WithIDs(newID func() string) Option {
	return func(s *Synchronizer) { s.newID = newID }
}

// Synchronizer exposes the live task list and its mutations.
type Synchronizer struct {
	docs  platform.Documents
	users UserSource
	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	user      *domain.Identity
	tasks     []domain.Task
	loaded    bool
	gen       uint64
	query     platform.Unsubscribe
	authUnsub func()
	subs      map[int]func([]domain.Task)
	nextID    int

	// notify serializes subscriber callbacks.
	notify sync.Mutex
}

// New creates an unmounted synchronizer.
func New(docs platform.Documents, users UserSource, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		docs:  docs,
		users: users,
		now:   time.Now,
		newID: uuid.NewString,
		subs:  make(map[int]func([]domain.Task)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount binds the synchronizer to the auth state. A live query is open
// whenever a user is signed in.
func (s *Synchronizer) Mount() {
	s.mu.Lock()
	if s.authUnsub != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	unsub := s.users.Subscribe(s.onAuth)

	s.mu.Lock()
	s.authUnsub = unsub
	s.mu.Unlock()
}

// Unmount releases the auth binding and the live query and clears the list.
func (s *Synchronizer) Unmount() {
	s.mu.Lock()
	authUnsub := s.authUnsub
	s.authUnsub = nil
	s.mu.Unlock()
	if authUnsub != nil {
		authUnsub()
	}
	s.switchUser(nil)
}

// Tasks returns the current list, newest first.
func (s *Synchronizer) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Task(nil), s.tasks...)
}

// Remaining returns the number of open tasks.
func (s *Synchronizer) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

// Subscribe registers fn for list replacements. If a delivery has already
// arrived fn is called with the current list before Subscribe returns.
func (s *Synchronizer) Subscribe(fn func([]domain.Task)) func() {
	s.notify.Lock()
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	loaded := s.loaded
	list := append([]domain.Task(nil), s.tasks...)
	s.mu.Unlock()
	if loaded {
		fn(list)
	}
	s.notify.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Wait blocks until the live query has delivered at least once.
func (s *Synchronizer) Wait(ctx context.Context) ([]domain.Task, error) {
	ready := make(chan []domain.Task, 1)
	unsub := s.Subscribe(func(list []domain.Task) {
		select {
		case ready <- list:
		default:
		}
	})
	defer unsub()

	select {
	case list := <-ready:
		return list, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Add persists a new open task. Empty text fails locally.
func (s *Synchronizer) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &domain.ValidationError{Field: FieldText, Message: "please enter a task"}
	}
	user := s.currentUser()
	if user == nil {
		return domain.ErrNotLoggedIn
	}

	fields := platform.Fields{
		FieldText:      text,
		FieldCompleted: false,
		FieldOwner:     user.ID,
		FieldCreatedAt: s.now().UTC(),
	}
	if err := s.docs.Set(ctx, Collection, s.newID(), fields); err != nil {
		return &domain.RemoteOperationError{Op: "add task", Err: err}
	}
	return nil
}

// Toggle flips completed on the stored task. The list is left alone;
// the next delivery carries the change.
func (s *Synchronizer) Toggle(ctx context.Context, t domain.Task) error {
	if s.currentUser() == nil {
		return domain.ErrNotLoggedIn
	}
	patch := platform.Fields{FieldCompleted: !t.Completed}
	if err := s.docs.Update(ctx, Collection, t.ID, patch); err != nil {
		return &domain.RemoteOperationError{Op: "update task", Err: err}
	}
	return nil
}

// Remove deletes the task once confirm approves it. A nil confirm or a
// refusal deletes nothing, and an id missing from the list fails locally.
// The task stays listed until the next delivery.
func (s *Synchronizer) Remove(ctx context.Context, id string, confirm ConfirmFunc) error {
	if s.currentUser() == nil {
		return domain.ErrNotLoggedIn
	}
	t, ok := s.find(id)
	if !ok {
		return &domain.ValidationError{Field: "id", Message: "task not found"}
	}
	if confirm == nil || !confirm(t) {
		return nil
	}
	if err := s.docs.Delete(ctx, Collection, id); err != nil {
		return &domain.RemoteOperationError{Op: "delete task", Err: err}
	}
	return nil
}

func (s *Synchronizer) find(id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// currentUser returns the user the live query is bound to. An unmounted
// synchronizer asks the auth provider instead, so one-off mutations work
// without opening a query.
func (s *Synchronizer) currentUser() *domain.Identity {
	s.mu.Lock()
	mounted := s.authUnsub != nil
	user := s.user
	s.mu.Unlock()
	if mounted {
		return user
	}

	states := make(chan auth.State, 1)
	unsub := s.users.Subscribe(func(st auth.State) {
		select {
		case states <- st:
		default:
		}
	})
	unsub()
	select {
	case st := <-states:
		if st.LoggedIn() {
			return st.CurrentUser
		}
	default:
	}
	return nil
}

func (s *Synchronizer) onAuth(st auth.State) {
	if st.LoggedIn() {
		s.switchUser(st.CurrentUser)
		return
	}
	s.switchUser(nil)
}

// switchUser closes the current query and opens one for user, if any.
func (s *Synchronizer) switchUser(user *domain.Identity) {
	s.notify.Lock()
	s.mu.Lock()
	if sameUser(s.user, user) {
		s.mu.Unlock()
		s.notify.Unlock()
		return
	}
	old := s.query
	s.query = nil
	s.gen++
	gen := s.gen
	s.user = nil
	if user != nil {
		u := *user
		s.user = &u
	}
	wasLoaded := s.loaded
	s.tasks = nil
	s.loaded = false
	subs := s.snapshotLocked()
	s.mu.Unlock()
	if wasLoaded {
		for _, fn := range subs {
			fn(nil)
		}
	}
	s.notify.Unlock()

	if old != nil {
		old()
	}
	if user == nil {
		return
	}

	filter := platform.Filter{Field: FieldOwner, Value: user.ID}
	unsub := s.docs.LiveQuery(Collection, filter, func(docs []platform.Document) {
		s.deliver(gen, docs)
	})

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		unsub()
		return
	}
	s.query = unsub
	s.mu.Unlock()
}

func (s *Synchronizer) deliver(gen uint64, docs []platform.Document) {
	list := fromDocuments(docs)

	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		slog.Debug("dropped stale task delivery", "count", len(docs))
		return
	}
	s.tasks = list
	s.loaded = true
	subs := s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(append([]domain.Task(nil), list...))
	}
}

func (s *Synchronizer) snapshotLocked() []func([]domain.Task) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func([]domain.Task), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

// fromDocuments converts a snapshot and orders it newest first.
func fromDocuments(docs []platform.Document) []domain.Task {
	list := make([]domain.Task, 0, len(docs))
	for _, d := range docs {
		list = append(list, domain.Task{
			ID:        d.ID,
			Text:      d.String(FieldText),
			Completed: d.Bool(FieldCompleted),
			OwnerID:   d.String(FieldOwner),
			CreatedAt: d.Time(FieldCreatedAt),
		})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

func sameUser(a, b *domain.Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
