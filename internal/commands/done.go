package commands

import (
	"context"
	"flag"
	"fmt"

	"todoapp/internal/app"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
)

func init() {
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command.
type ToggleCmd struct{}

func (c *ToggleCmd) Name() string      { return "toggle" }
func (c *ToggleCmd) Aliases() []string { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string  { return "Mark a task completed, or open again" }
func (c *ToggleCmd) Usage() string     { return "todoapp toggle <n>" }
func (c *ToggleCmd) Flow() nav.Flow    { return nav.FlowAuthenticated }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ToggleCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		return usageError(env.ErrOut, "%v", err)
	}

	s, list, err := mountTasks(ctx, env, a)
	if err != nil {
		return fail(env.ErrOut, err)
	}
	defer s.Unmount()

	task, err := pickTask(list, num)
	if err != nil {
		return usageError(env.ErrOut, "%v", err)
	}
	if err := s.Toggle(ctx, task); err != nil {
		return fail(env.ErrOut, err)
	}

	if !env.Config.Quiet {
		state := "done"
		if task.Completed {
			state = "open"
		}
		fmt.Fprintf(env.Out, "%s: %s\n", state, task.Text)
	}
	return exitcode.Success
}
