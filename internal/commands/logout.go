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
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct {
	yes bool
}

// SetYes skips the confirmation prompt (for testing).
func (c *LogoutCmd) SetYes(yes bool) {
	c.yes = yes
}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Sign out" }
func (c *LogoutCmd) Usage() string     { return "todoapp logout [--yes]" }
func (c *LogoutCmd) Flow() nav.Flow    { return nav.FlowAny }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	if a.User() == nil {
		if !env.Config.Quiet {
			fmt.Fprintln(env.Out, "not logged in")
		}
		return exitcode.Success
	}
	if !c.yes && !newPrompter(env).confirm("Are you sure you want to logout?") {
		fmt.Fprintf(env.ErrOut, "error: %s\n", errDeclined)
		return exitcode.UserError
	}
	if err := a.Auth.SignOut(ctx); err != nil {
		return fail(env.ErrOut, err)
	}
	return ok(env)
}
