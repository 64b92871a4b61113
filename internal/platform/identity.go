package platform

import (
	"sort"
	"sync"

	"todoapp/internal/domain"
)

// IdentityFeed fans identity changes out to OnIdentityChange subscribers.
// Backends embed one and publish after every sign-in, sign-up and sign-out.
type IdentityFeed struct {
	mu      sync.Mutex
	current *domain.Identity
	subs    map[int]func(*domain.Identity)
	nextID  int

	// deliver serializes callbacks.
	deliver sync.Mutex
}

// NewIdentityFeed creates a feed whose current identity is initial.
func NewIdentityFeed(initial *domain.Identity) *IdentityFeed {
	return &IdentityFeed{
		current: copyIdentity(initial),
		subs:    make(map[int]func(*domain.Identity)),
	}
}

// Current returns the last published identity.
func (f *IdentityFeed) Current() *domain.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyIdentity(f.current)
}

// Subscribe registers fn and calls it with the current identity before
// returning.
func (f *IdentityFeed) Subscribe(fn func(*domain.Identity)) Unsubscribe {
	f.deliver.Lock()
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	current := copyIdentity(f.current)
	f.mu.Unlock()
	fn(current)
	f.deliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Publish records id as current and notifies every subscriber in
// registration order.
func (f *IdentityFeed) Publish(id *domain.Identity) {
	f.deliver.Lock()
	defer f.deliver.Unlock()

	f.mu.Lock()
	f.current = copyIdentity(id)
	ids := make([]int, 0, len(f.subs))
	for k := range f.subs {
		ids = append(ids, k)
	}
	sort.Ints(ids)
	subs := make([]func(*domain.Identity), len(ids))
	for i, k := range ids {
		subs[i] = f.subs[k]
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(copyIdentity(id))
	}
}

// Len returns the number of subscribers.
func (f *IdentityFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func copyIdentity(id *domain.Identity) *domain.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
