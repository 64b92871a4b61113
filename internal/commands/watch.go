package commands

import (
	"context"
	"flag"
	"fmt"
	"sync"

	"todoapp/internal/app"
	"todoapp/internal/domain"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
	"todoapp/internal/output"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command.
type WatchCmd struct{}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Print the task list every time it changes" }
func (c *WatchCmd) Usage() string     { return "todoapp watch" }
func (c *WatchCmd) Flow() nav.Flow    { return nav.FlowAuthenticated }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {}

// Run prints each delivery until ctx is cancelled or the session ends.
func (c *WatchCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	s := a.Tasks()
	s.Mount()
	defer s.Unmount()

	signedOut := make(chan struct{})
	var once sync.Once
	unsubGate := a.Gate.Subscribe(func(st nav.State) {
		if st == nav.Unauthenticated {
			once.Do(func() { close(signedOut) })
		}
	})
	defer unsubGate()

	first := true
	unsub := s.Subscribe(func(list []domain.Task) {
		if !first {
			fmt.Fprintln(env.Out)
		}
		first = false
		output.FormatTasks(env.Out, list)
	})
	defer unsub()

	select {
	case <-ctx.Done():
		return exitcode.Success
	case <-signedOut:
		fmt.Fprintln(env.ErrOut, "error: signed out")
		return exitcode.AuthError
	}
}
