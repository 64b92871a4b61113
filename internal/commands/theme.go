package commands

import (
	"context"
	"flag"

	"todoapp/internal/app"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
	"todoapp/internal/output"
	"todoapp/internal/theme"
)

func init() {
	Register(&ThemeCmd{})
}

// ThemeCmd implements the theme command.
type ThemeCmd struct {
	dark  bool
	light bool

	// Appearance overrides terminal detection (for testing).
	Appearance theme.Appearance
}

func (c *ThemeCmd) Name() string      { return "theme" }
func (c *ThemeCmd) Aliases() []string { return nil }
func (c *ThemeCmd) Synopsis() string  { return "Print the color palette" }
func (c *ThemeCmd) Usage() string     { return "todoapp theme [--dark | --light]" }
func (c *ThemeCmd) Flow() nav.Flow    { return nav.FlowNone }

func (c *ThemeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.dark, "dark", false, "")
	fs.BoolVar(&c.light, "light", false, "")
}

func (c *ThemeCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	if c.dark && c.light {
		return usageError(env.ErrOut, "cannot use both --dark and --light")
	}
	appearance := c.Appearance
	if appearance == nil {
		appearance = theme.Terminal{}
	}

	p := theme.NewProvider(appearance)
	switch {
	case c.dark:
		p.SetDark(true)
	case c.light:
		p.SetDark(false)
	}
	output.FormatPalette(env.Out, p.Theme())
	return exitcode.Success
}
