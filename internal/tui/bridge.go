package tui

import (
	"context"
	"errors"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"todoapp/internal/app"
	"todoapp/internal/domain"
	"todoapp/internal/nav"
	"todoapp/internal/tasks"
	"todoapp/internal/theme"
)

// bridge forwards provider notifications into the program. Send blocks
// until the event loop receives the message, so subscriptions are made
// from a command once the loop runs and Update never notifies a provider
// synchronously.
type bridge struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	release []func()
	closed  bool
}

func (b *bridge) setSender(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *bridge) subscribe(a *app.App, s *tasks.Synchronizer) tea.Cmd {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send == nil {
		return nil
	}
	return func() tea.Msg {
		b.add(a.Gate.Subscribe(func(st nav.State) { send(gateMsg(st)) }))
		b.add(a.Theme.Subscribe(func(t theme.Theme) { send(themeMsg(t)) }))
		b.add(s.Subscribe(func(list []domain.Task) { send(tasksMsg(list)) }))
		// Catch a transition that happened before the gate subscription.
		return gateMsg(a.Gate.State())
	}
}

func (b *bridge) add(release func()) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		release()
		return
	}
	b.release = append(b.release, release)
	b.mu.Unlock()
}

func (b *bridge) close() {
	b.mu.Lock()
	b.closed = true
	release := b.release
	b.release = nil
	b.mu.Unlock()
	for _, fn := range release {
		fn()
	}
}

// Run starts the interactive surface on in and out and blocks until the
// user quits or ctx is cancelled.
func Run(ctx context.Context, a *app.App, in io.Reader, out io.Writer) error {
	m := New(ctx, a)
	defer m.Close()

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	p := tea.NewProgram(m, opts...)
	m.bridge.setSender(p.Send)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
