// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"todoapp/internal/app"
	"todoapp/internal/config"
	"todoapp/internal/nav"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Flow returns the gate flow the command belongs to. The dispatcher
	// refuses to run it when the gate is in a state the flow does not admit.
	Flow() nav.Flow

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// a is nil when Flow().NeedsBackend() is false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, a *app.App, args []string) int
}

// Env carries the per-invocation configuration and streams.
type Env struct {
	Config *config.Config
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}
