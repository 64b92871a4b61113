package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todoapp/internal/app"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
)

func init() {
	Register(&HelpCmd{registry: DefaultRegistry})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	registry *Registry
}

// NewHelpCmd creates a help command listing the commands in r.
func NewHelpCmd(r *Registry) *HelpCmd {
	return &HelpCmd{registry: r}
}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todoapp help" }
func (c *HelpCmd) Flow() nav.Flow    { return nav.FlowNone }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	writeHelp(env.Out, c.registry)
	return exitcode.Success
}

func writeHelp(w io.Writer, r *Registry) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %-52s %s\n", "todoapp", "List your tasks")
	for _, cmd := range r.All() {
		fmt.Fprintf(w, "  %-52s %s\n", cmd.Usage(), cmd.Synopsis())
	}
	fmt.Fprint(w, helpFooter)
}

const helpFooter = `
Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Environment:
  TODOAPP_BACKEND          firebase (default) or postgres
  TODOAPP_DATABASE_URL     PostgreSQL connection string
  TODOAPP_JWT_SECRET       Session signing secret (postgres)
  TODOAPP_BLOB_BASE_URL    Public URL blobs are served from (postgres)
  TODOAPP_THEME            light or dark, overrides terminal detection
  FIREBASE_API_KEY, FIREBASE_PROJECT_ID, FIREBASE_STORAGE_BUCKET
`
