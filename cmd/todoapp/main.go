// Package main is the entry point for the todoapp CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"todoapp/internal/backend/firebase"
	"todoapp/internal/backend/postgres"
	"todoapp/internal/cli"
	"todoapp/internal/commands"
	"todoapp/internal/config"
	"todoapp/internal/platform"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, openPlatform)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// openPlatform connects to the backend selected in cfg.
func openPlatform(ctx context.Context, cfg *config.Config) (platform.Platform, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return postgres.New(ctx, cfg)
	default:
		return firebase.New(ctx, cfg)
	}
}
