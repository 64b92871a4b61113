package commands

import (
	"context"
	"flag"
	"fmt"

	"todoapp/internal/app"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
	"todoapp/internal/tui"
)

func init() {
	Register(&UICmd{})
}

// UICmd implements the ui command.
type UICmd struct{}

func (c *UICmd) Name() string      { return "ui" }
func (c *UICmd) Aliases() []string { return nil }
func (c *UICmd) Synopsis() string  { return "Open the interactive app" }
func (c *UICmd) Usage() string     { return "todoapp ui" }
func (c *UICmd) Flow() nav.Flow    { return nav.FlowAny }

func (c *UICmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UICmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	if err := tui.Run(ctx, a, env.In, env.Out); err != nil {
		fmt.Fprintf(env.ErrOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
