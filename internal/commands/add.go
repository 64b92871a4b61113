package commands

import (
	"context"
	"flag"
	"strings"

	"todoapp/internal/app"
	"todoapp/internal/nav"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Add a task" }
func (c *AddCmd) Usage() string     { return "todoapp add <text...>" }
func (c *AddCmd) Flow() nav.Flow    { return nav.FlowAuthenticated }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	if err := a.Tasks().Add(ctx, strings.Join(args, " ")); err != nil {
		return fail(env.ErrOut, err)
	}
	return ok(env)
}
