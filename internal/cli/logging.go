package cli

import (
	"io"
	"log/slog"

	"todoapp/internal/config"
)

// setupLogging installs the default slog logger: warnings and errors on
// stderr, debug records with --debug, nothing with --quiet.
func setupLogging(errOut io.Writer, cfg *config.Config) {
	level := slog.LevelWarn
	switch {
	case cfg.Debug:
		level = slog.LevelDebug
	case cfg.Quiet:
		errOut = io.Discard
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})))
}
