package commands

import (
	"fmt"
	"io"
	"log/slog"

	"todoapp/internal/exitcode"
	"todoapp/internal/output"
)

// fail prints err as "error: <message>" and returns its exit code.
func fail(errOut io.Writer, err error) int {
	slog.Debug("command failed", "error", err)
	fmt.Fprintf(errOut, "error: %s\n", output.ErrorMessage(err))
	return exitcode.For(err)
}

// usageError prints a user error.
func usageError(errOut io.Writer, format string, args ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}

// ok prints "ok" unless quiet.
func ok(env *Env) int {
	if !env.Config.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}
