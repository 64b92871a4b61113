// Package auth holds the process-wide authentication state.
//
// A Provider mirrors the backend's identity-change notification into a
// State{CurrentUser, IsLoading}. It registers exactly one backend
// subscription when its first subscriber arrives and releases it when the
// last one leaves, so the provider can be created eagerly and injected
// wherever the state is needed.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"todoapp/internal/domain"
	"todoapp/internal/platform"
)

// State is the authentication state seen by the rest of the app.
type State struct {
	CurrentUser *domain.Identity
	IsLoading   bool
}

// LoggedIn reports whether a user is signed in.
func (s State) LoggedIn() bool {
	return !s.IsLoading && s.CurrentUser != nil
}

// Provider exposes the current user and the sign-in/up/out operations.
// Subscriber callbacks run serially and must not call Subscribe.
type Provider struct {
	client platform.Auth

	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
	active bool   // a backend registration is wanted
	gen    uint64 // bumped on every registration and release
	unsub  platform.Unsubscribe

	// deliver serializes subscriber callbacks.
	deliver sync.Mutex
}

// NewProvider creates a provider for client. No subscription is
// registered until the first call to Subscribe or Wait.
func NewProvider(client platform.Auth) *Provider {
	return &Provider{
		client: client,
		state:  State{IsLoading: true},
		subs:   make(map[int]func(State)),
	}
}

// State returns the current state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe registers fn for state changes. If the state is already known
// fn is called with it before Subscribe returns.
func (p *Provider) Subscribe(fn func(State)) func() {
	p.deliver.Lock()
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	needRegister := !p.active
	if needRegister {
		p.active = true
		p.gen++
		p.state = State{IsLoading: true}
	}
	gen := p.gen
	state := p.state
	p.mu.Unlock()
	if !state.IsLoading {
		fn(state)
	}
	p.deliver.Unlock()

	if needRegister {
		p.register(gen)
	}

	var once sync.Once
	return func() {
		once.Do(func() { p.unsubscribe(id) })
	}
}

// Wait blocks until the first identity notification has been applied.
func (p *Provider) Wait(ctx context.Context) (State, error) {
	ready := make(chan State, 1)
	unsub := p.Subscribe(func(s State) {
		if s.IsLoading {
			return
		}
		select {
		case ready <- s:
		default:
		}
	})
	defer unsub()

	select {
	case s := <-ready:
		return s, nil
	case <-ctx.Done():
		return State{IsLoading: true}, ctx.Err()
	}
}

// SignIn validates the form and signs in.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	if err := ValidateSignIn(email, password); err != nil {
		return domain.Identity{}, err
	}
	id, err := p.client.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return domain.Identity{}, asAuthError("sign in failed", err)
	}
	slog.Debug("signed in", "user", id.ID)
	return id, nil
}

// SignUp validates the form and creates the account.
func (p *Provider) SignUp(ctx context.Context, email, password string) (domain.Identity, error) {
	if err := ValidateSignUp(email, password, password); err != nil {
		return domain.Identity{}, err
	}
	id, err := p.client.SignUp(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return domain.Identity{}, asAuthError("sign up failed", err)
	}
	slog.Debug("signed up", "user", id.ID)
	return id, nil
}

// SignOut ends the session. The next identity notification clears CurrentUser.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.client.SignOut(ctx); err != nil {
		return asAuthError("sign out failed", err)
	}
	return nil
}

// Close drops every subscriber and releases the backend subscription.
func (p *Provider) Close() {
	p.mu.Lock()
	p.subs = make(map[int]func(State))
	unsub := p.releaseLocked()
	p.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (p *Provider) register(gen uint64) {
	unsub := p.client.OnIdentityChange(func(id *domain.Identity) {
		p.handle(gen, id)
	})

	p.mu.Lock()
	if p.gen != gen {
		// Released while registering.
		p.mu.Unlock()
		unsub()
		return
	}
	p.unsub = unsub
	p.mu.Unlock()
}

func (p *Provider) handle(gen uint64, id *domain.Identity) {
	p.deliver.Lock()
	defer p.deliver.Unlock()

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	var user *domain.Identity
	if id != nil {
		u := *id
		user = &u
	}
	p.state = State{CurrentUser: user}
	state := p.state
	subs := p.snapshotLocked()
	p.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

func (p *Provider) unsubscribe(id int) {
	p.mu.Lock()
	delete(p.subs, id)
	var unsub platform.Unsubscribe
	if len(p.subs) == 0 {
		unsub = p.releaseLocked()
	}
	p.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// releaseLocked resets the provider to its unregistered state and returns
// the backend unsubscribe, if any. p.mu must be held.
func (p *Provider) releaseLocked() platform.Unsubscribe {
	if !p.active {
		return nil
	}
	p.active = false
	p.gen++
	p.state = State{IsLoading: true}
	unsub := p.unsub
	p.unsub = nil
	return unsub
}

// snapshotLocked returns subscribers in registration order. p.mu must be held.
func (p *Provider) snapshotLocked() []func(State) {
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(State), len(ids))
	for i, id := range ids {
		out[i] = p.subs[id]
	}
	return out
}

func asAuthError(msg string, err error) error {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return err
	}
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return err
	}
	return &domain.AuthError{Message: msg + ": " + err.Error(), Err: err}
}
