// Package nav implements the authentication-driven navigation gate.
package nav

import (
	"sort"
	"sync"

	"todoapp/internal/auth"
	"todoapp/internal/domain"
)

// State is the gate's position.
type State int

const (
	// Loading means the first identity notification has not arrived.
	// Nothing is rendered.
	Loading State = iota

	// Unauthenticated shows the Login and Register screens.
	Unauthenticated

	// Authenticated shows the Tasks and Profile tabs.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Screen names a destination inside a flow.
type Screen string

const (
	ScreenLogin    Screen = "Login"
	ScreenRegister Screen = "Register"
	TabTasks       Screen = "Tasks"
	TabProfile     Screen = "Profile"
)

// Screens returns the destinations reachable in s, first one being the
// entry point.
func (s State) Screens() []Screen {
	switch s {
	case Unauthenticated:
		return []Screen{ScreenLogin, ScreenRegister}
	case Authenticated:
		return []Screen{TabTasks, TabProfile}
	default:
		return nil
	}
}

// Resolve maps an auth state onto a gate state. The gate has no other input.
func Resolve(s auth.State) State {
	switch {
	case s.IsLoading:
		return Loading
	case s.CurrentUser == nil:
		return Unauthenticated
	default:
		return Authenticated
	}
}

// StateSource is the subset of auth.Provider the gate consumes.
type StateSource interface {
	Subscribe(fn func(auth.State)) func()
}

// Gate mirrors the auth state and notifies on transitions.
type Gate struct {
	mu     sync.Mutex
	state  State
	user   *domain.Identity
	subs   map[int]func(State)
	nextID int
	unsub  func()
}

// NewGate creates a gate bound to src for the gate's lifetime.
func NewGate(src StateSource) *Gate {
	g := &Gate{subs: make(map[int]func(State))}
	unsub := src.Subscribe(g.apply)
	g.mu.Lock()
	g.unsub = unsub
	g.mu.Unlock()
	return g
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// User returns the mirrored user, nil unless Authenticated.
func (g *Gate) User() *domain.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// Subscribe registers fn for transitions. fn is not called with the
// current state; read State first.
func (g *Gate) Subscribe(fn func(State)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
		})
	}
}

// Close detaches the gate from its source.
func (g *Gate) Close() {
	g.mu.Lock()
	unsub := g.unsub
	g.unsub = nil
	g.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (g *Gate) apply(s auth.State) {
	next := Resolve(s)

	g.mu.Lock()
	prev := g.state
	g.state = next
	g.user = nil
	if next == Authenticated {
		u := *s.CurrentUser
		g.user = &u
	}
	var subs []func(State)
	if next != prev {
		ids := make([]int, 0, len(g.subs))
		for id := range g.subs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			subs = append(subs, g.subs[id])
		}
	}
	g.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
