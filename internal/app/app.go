// Package app wires the process-wide providers to a backend.
package app

import (
	"context"

	"todoapp/internal/auth"
	"todoapp/internal/domain"
	"todoapp/internal/nav"
	"todoapp/internal/platform"
	"todoapp/internal/profile"
	"todoapp/internal/tasks"
	"todoapp/internal/theme"
)

// App owns the auth provider, the navigation gate and the theme for one
// process, and builds synchronizers bound to them.
type App struct {
	Platform platform.Platform
	Auth     *auth.Provider
	Gate     *nav.Gate
	Theme    *theme.Provider

	taskOpts []tasks.Option
}

// New assembles an App on p. The gate subscribes to the auth provider
// immediately, which registers the backend identity subscription.
func New(p platform.Platform, appearance theme.Appearance, taskOpts ...tasks.Option) *App {
	provider := auth.NewProvider(p.Auth())
	return &App{
		Platform: p,
		Auth:     provider,
		Gate:     nav.NewGate(provider),
		Theme:    theme.NewProvider(appearance),
		taskOpts: taskOpts,
	}
}

// Ready waits for the first identity notification and returns the gate state.
func (a *App) Ready(ctx context.Context) (nav.State, error) {
	if _, err := a.Auth.Wait(ctx); err != nil {
		return nav.Loading, err
	}
	return a.Gate.State(), nil
}

// User returns the signed-in user or nil.
func (a *App) User() *domain.Identity {
	return a.Gate.User()
}

// Tasks returns an unmounted task synchronizer bound to the auth provider.
func (a *App) Tasks() *tasks.Synchronizer {
	return tasks.New(a.Platform.Documents(), a.Auth, a.taskOpts...)
}

// Profile returns a profile synchronizer for the signed-in user.
func (a *App) Profile() (*profile.Synchronizer, error) {
	user := a.User()
	if user == nil {
		return nil, domain.ErrNotLoggedIn
	}
	return profile.New(a.Platform.Documents(), a.Platform.Blobs(), *user), nil
}

// Close detaches the providers and closes the backend.
func (a *App) Close() error {
	a.Gate.Close()
	a.Auth.Close()
	return a.Platform.Close()
}
