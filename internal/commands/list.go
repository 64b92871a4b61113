package commands

import (
	"context"
	"flag"

	"todoapp/internal/app"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
	"todoapp/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct{}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List your tasks, newest first" }
func (c *ListCmd) Usage() string     { return "todoapp list" }
func (c *ListCmd) Flow() nav.Flow    { return nav.FlowAuthenticated }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	if len(args) > 0 {
		return usageError(env.ErrOut, "unexpected argument: %s", args[0])
	}
	s, list, err := mountTasks(ctx, env, a)
	if err != nil {
		return fail(env.ErrOut, err)
	}
	defer s.Unmount()

	output.FormatTasks(env.Out, list)
	return exitcode.Success
}
