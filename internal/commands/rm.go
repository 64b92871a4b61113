package commands

import (
	"context"
	"flag"
	"fmt"

	"todoapp/internal/app"
	"todoapp/internal/domain"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	yes bool
}

// SetYes skips the confirmation prompt (for testing).
func (c *RmCmd) SetYes(yes bool) {
	c.yes = yes
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "todoapp rm [--yes] <n>" }
func (c *RmCmd) Flow() nav.Flow    { return nav.FlowAuthenticated }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
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

	p := newPrompter(env)
	confirmed := false
	err = s.Remove(ctx, task.ID, func(t domain.Task) bool {
		confirmed = c.yes || p.confirm(fmt.Sprintf("Delete %q?", t.Text))
		return confirmed
	})
	if err != nil {
		return fail(env.ErrOut, err)
	}
	if !confirmed {
		fmt.Fprintf(env.ErrOut, "error: %s\n", errDeclined)
		return exitcode.UserError
	}
	return ok(env)
}
