package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"todoapp/internal/app"
	"todoapp/internal/auth"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
)

func init() {
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in with email and password" }
func (c *LoginCmd) Usage() string     { return "todoapp login [--password <pw>] <email>" }
func (c *LoginCmd) Flow() nav.Flow    { return nav.FlowUnauthenticated }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	email, code, done := emailArg(env, args)
	if done {
		return code
	}

	password := c.password
	if password == "" {
		var err error
		if password, err = newPrompter(env).ask("Password: "); err != nil {
			return usageError(env.ErrOut, "password required")
		}
	}
	id, err := a.Auth.SignIn(ctx, email, password)
	if err != nil {
		return fail(env.ErrOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintf(env.Out, "logged in as %s\n", id.Email)
	}
	return exitcode.Success
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	password string
	confirm  string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string {
	return "todoapp register [--password <pw>] [--confirm <pw>] <email>"
}
func (c *RegisterCmd) Flow() nav.Flow { return nav.FlowUnauthenticated }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
	fs.StringVar(&c.confirm, "confirm", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	email, code, done := emailArg(env, args)
	if done {
		return code
	}

	p := newPrompter(env)
	password, confirm := c.password, c.confirm
	if password == "" {
		var err error
		if password, err = p.ask("Password: "); err != nil {
			return usageError(env.ErrOut, "password required")
		}
	}
	if confirm == "" {
		if c.password != "" {
			// A password given on the command line confirms itself.
			confirm = password
		} else {
			var err error
			if confirm, err = p.ask("Confirm password: "); err != nil {
				return usageError(env.ErrOut, "password confirmation required")
			}
		}
	}
	if err := auth.ValidateSignUp(email, password, confirm); err != nil {
		return fail(env.ErrOut, err)
	}

	id, err := a.Auth.SignUp(ctx, email, password)
	if err != nil {
		return fail(env.ErrOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintf(env.Out, "account created, logged in as %s\n", id.Email)
	}
	return exitcode.Success
}

// emailArg extracts the single email argument. done is true when the
// command should return code immediately.
func emailArg(env *Env, args []string) (email string, code int, done bool) {
	switch len(args) {
	case 0:
		return "", usageError(env.ErrOut, "email required"), true
	case 1:
		return strings.TrimSpace(args[0]), 0, false
	default:
		return "", usageError(env.ErrOut, "unexpected argument: %s", args[1]), true
	}
}
