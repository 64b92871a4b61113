package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"todoapp/internal/app"
	"todoapp/internal/commands"
	"todoapp/internal/config"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
	"todoapp/internal/platform"
	"todoapp/internal/theme"
)

// PlatformFactory creates a backend from config.
// Used to inject the backend during dispatch.
type PlatformFactory func(ctx context.Context, cfg *config.Config) (platform.Platform, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry   *commands.Registry
	factory    PlatformFactory
	appearance theme.Appearance
	in         io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and platform factory.
func NewDispatcher(registry *commands.Registry, factory PlatformFactory) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		factory:    factory,
		appearance: theme.Terminal{},
		in:         os.Stdin,
	}
}

// SetInput replaces stdin (for testing).
func (d *Dispatcher) SetInput(in io.Reader) {
	d.in = in
}

// SetAppearance replaces terminal appearance detection (for testing).
func (d *Dispatcher) SetAppearance(a theme.Appearance) {
	d.appearance = a
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return flagError(errOut, err)
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug
	setupLogging(errOut, cfg)

	env := &commands.Env{Config: cfg, In: d.in, Out: out, ErrOut: errOut}
	flow := cmd.Flow()
	if !flow.NeedsBackend() {
		return cmd.Run(ctx, env, nil, positionalArgs)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}
	p, err := d.factory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}
	a := app.New(p, d.appearance)
	defer a.Close()

	readyCtx, cancel := context.WithTimeout(ctx, cfg.APITimeout)
	state, err := a.Ready(readyCtx)
	cancel()
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}

	if !flow.Admits(state) {
		return refuse(env, flow, a)
	}
	return cmd.Run(ctx, env, a, positionalArgs)
}

// refuse reports a command whose flow the gate does not admit.
func refuse(env *commands.Env, flow nav.Flow, a *app.App) int {
	if flow == nav.FlowUnauthenticated {
		if !env.Config.Quiet {
			if u := a.User(); u != nil {
				fmt.Fprintf(env.Out, "already logged in as %s\n", u.Email)
			}
		}
		return exitcode.Success
	}
	fmt.Fprintln(env.ErrOut, "error: not logged in (run: todoapp login)")
	return exitcode.AuthError
}

func flagError(errOut io.Writer, err error) int {
	errStr := err.Error()

	// Check for missing flag value
	if strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		flagPart := strings.TrimSpace(parts[len(parts)-1])
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
		return exitcode.UserError
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return exitcode.UserError
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
	return exitcode.UserError
}
