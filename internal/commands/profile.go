package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"todoapp/internal/app"
	"todoapp/internal/exitcode"
	"todoapp/internal/nav"
	"todoapp/internal/output"
	"todoapp/internal/profile"
)

func init() {
	Register(&ProfileCmd{})
	Register(&UsernameCmd{})
	Register(&AvatarCmd{})
}

// loadProfile returns a synchronizer whose profile has been loaded or
// created.
func loadProfile(ctx context.Context, a *app.App) (*profile.Synchronizer, error) {
	s, err := a.Profile()
	if err != nil {
		return nil, err
	}
	if _, err := s.LoadOrCreate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ProfileCmd implements the profile command.
type ProfileCmd struct{}

func (c *ProfileCmd) Name() string      { return "profile" }
func (c *ProfileCmd) Aliases() []string { return nil }
func (c *ProfileCmd) Synopsis() string  { return "Show your profile" }
func (c *ProfileCmd) Usage() string     { return "todoapp profile" }
func (c *ProfileCmd) Flow() nav.Flow    { return nav.FlowAuthenticated }

func (c *ProfileCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ProfileCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	s, err := loadProfile(ctx, a)
	if err != nil {
		return fail(env.ErrOut, err)
	}
	output.FormatProfile(env.Out, *a.User(), s.Profile())
	return exitcode.Success
}

// UsernameCmd implements the username command.
type UsernameCmd struct{}

func (c *UsernameCmd) Name() string      { return "username" }
func (c *UsernameCmd) Aliases() []string { return nil }
func (c *UsernameCmd) Synopsis() string  { return "Change your username" }
func (c *UsernameCmd) Usage() string     { return "todoapp username <name...>" }
func (c *UsernameCmd) Flow() nav.Flow    { return nav.FlowAuthenticated }

func (c *UsernameCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UsernameCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	s, err := loadProfile(ctx, a)
	if err != nil {
		return fail(env.ErrOut, err)
	}
	if err := s.SetUsername(ctx, strings.Join(args, " ")); err != nil {
		return fail(env.ErrOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintf(env.Out, "username: %s\n", s.Profile().Username)
	}
	return exitcode.Success
}

// AvatarCmd implements the avatar command.
type AvatarCmd struct{}

func (c *AvatarCmd) Name() string      { return "avatar" }
func (c *AvatarCmd) Aliases() []string { return nil }
func (c *AvatarCmd) Synopsis() string  { return "Upload a profile image" }
func (c *AvatarCmd) Usage() string     { return "todoapp avatar <image-file>" }
func (c *AvatarCmd) Flow() nav.Flow    { return nav.FlowAuthenticated }

func (c *AvatarCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AvatarCmd) Run(ctx context.Context, env *Env, a *app.App, args []string) int {
	if len(args) != 1 {
		return usageError(env.ErrOut, "image file required")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return usageError(env.ErrOut, "failed to read image: %v", err)
	}

	s, err := loadProfile(ctx, a)
	if err != nil {
		return fail(env.ErrOut, err)
	}
	if err := s.UploadAvatar(ctx, data); err != nil {
		return fail(env.ErrOut, err)
	}
	if !env.Config.Quiet {
		fmt.Fprintf(env.Out, "avatar: %s\n", s.Profile().AvatarURL)
	}
	return exitcode.Success
}
