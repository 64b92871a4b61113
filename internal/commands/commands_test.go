package commands_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todoapp/internal/app"
	"todoapp/internal/commands"
	"todoapp/internal/config"
	"todoapp/internal/domain"
	"todoapp/internal/exitcode"
	"todoapp/internal/platform"
	"todoapp/internal/testutil"
	"todoapp/internal/theme"
)

var (
	alice = domain.Identity{ID: "u1", Email: "alice@example.com"}
	base  = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

// newApp creates an App over a fake backend, optionally signed in as alice.
func newApp(t *testing.T, signedIn bool) (*testutil.FakePlatform, *app.App) {
	t.Helper()
	fake := testutil.NewFakePlatform()
	fake.AddAccount(alice.Email, "secret1")
	if signedIn {
		fake.SignInAs(alice)
	}
	a := app.New(fake, theme.Fixed(false))
	t.Cleanup(func() { a.Close() })
	return fake, a
}

// seedTasks stores "Buy milk" (open) and, one minute later, "Buy eggs"
// (done) for alice, plus a task of another user.
func seedTasks(fake *testutil.FakePlatform) {
	fake.PutDocument("todos", "t1", platform.Fields{
		"text": "Buy milk", "completed": false, "userId": "u1", "createdAt": base,
	})
	fake.PutDocument("todos", "t2", platform.Fields{
		"text": "Buy eggs", "completed": true, "userId": "u1", "createdAt": base.Add(time.Minute),
	})
	fake.PutDocument("todos", "t3", platform.Fields{
		"text": "Not mine", "completed": false, "userId": "u2", "createdAt": base.Add(2 * time.Minute),
	})
}

// runCommand parses args with the command's flags and runs it.
func runCommand(t *testing.T, cmd commands.Command, a *app.App, args []string, stdin string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	env := &commands.Env{
		Config: &config.Config{
			Dir:        t.TempDir(),
			Quiet:      quiet,
			APITimeout: time.Second,
		},
		In:     strings.NewReader(stdin),
		Out:    &outBuf,
		ErrOut: &errBuf,
	}
	code = cmd.Run(context.Background(), env, a, fs.Args())
	return outBuf.String(), errBuf.String(), code
}

func expect(t *testing.T, gotOut, gotErr string, gotCode int, wantOut, wantErr string, wantCode int) {
	t.Helper()
	if gotCode != wantCode {
		t.Errorf("expected exit code %d, got %d", wantCode, gotCode)
	}
	if gotOut != wantOut {
		t.Errorf("expected stdout %q, got %q", wantOut, gotOut)
	}
	if gotErr != wantErr {
		t.Errorf("expected stderr %q, got %q", wantErr, gotErr)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, "", false)
	expect(t, stdout, stderr, code, "todoapp 0.1.0\n", "", exitcode.Success)
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, commands.NewHelpCmd(commands.DefaultRegistry), nil, nil, "", false)

	if code != exitcode.Success || stderr != "" {
		t.Fatalf("unexpected result %d %q", code, stderr)
	}
	for _, want := range []string{"Usage:", "todoapp add <text...>", "todoapp rm [--yes] <n>", "--config <dir>"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestListCommand(t *testing.T) {
	fake, a := newApp(t, true)
	seedTasks(fake)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, a, nil, "", false)
	if code != exitcode.Success || stderr != "" {
		t.Fatalf("unexpected result %d %q", code, stderr)
	}
	testutil.GoldenString(t, "list_tasks", stdout)
}

func TestListCommand_Empty(t *testing.T) {
	_, a := newApp(t, true)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, a, nil, "", false)
	expect(t, stdout, stderr, code, "No tasks yet. Add one above!\n0 tasks remaining\n", "", exitcode.Success)
}

func TestAddCommand(t *testing.T) {
	fake, a := newApp(t, true)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, a, []string{"Buy", "milk"}, "", false)
	expect(t, stdout, stderr, code, "ok\n", "", exitcode.Success)
	if fake.Count("todos") != 1 {
		t.Fatalf("expected one stored task, got %d", fake.Count("todos"))
	}
	list := a.Tasks()
	list.Mount()
	tasks, err := list.Wait(context.Background())
	list.Unmount()
	if err != nil || len(tasks) != 1 || tasks[0].Text != "Buy milk" || tasks[0].OwnerID != "u1" {
		t.Fatalf("unexpected stored tasks %+v (%v)", tasks, err)
	}
	if fake.ActiveQueries() != 0 {
		t.Errorf("add should not leave a live query open, got %d", fake.ActiveQueries())
	}

	stdout, stderr, code = runCommand(t, &commands.AddCmd{}, a, []string{"Buy", "eggs"}, "", true)
	expect(t, stdout, stderr, code, "", "", exitcode.Success)
}

func TestAddCommand_EmptyText(t *testing.T) {
	fake, a := newApp(t, true)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, a, []string{"  "}, "", false)
	expect(t, stdout, stderr, code, "", "error: please enter a task\n", exitcode.UserError)
	if fake.Writes != 0 {
		t.Errorf("expected no writes, got %d", fake.Writes)
	}
}

func TestAddCommand_BackendError(t *testing.T) {
	fake, a := newApp(t, true)
	fake.SetErr = errors.New("boom")

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, a, []string{"Buy milk"}, "", false)
	expect(t, stdout, stderr, code, "", "error: failed to add task: boom\n", exitcode.BackendError)
}

func TestAddCommand_NotLoggedIn(t *testing.T) {
	_, a := newApp(t, false)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, a, []string{"Buy milk"}, "", false)
	expect(t, stdout, stderr, code, "", "error: not logged in (run: todoapp login)\n", exitcode.AuthError)
}

func TestToggleCommand(t *testing.T) {
	fake, a := newApp(t, true)
	seedTasks(fake)

	stdout, stderr, code := runCommand(t, &commands.ToggleCmd{}, a, []string{"2"}, "", false)
	expect(t, stdout, stderr, code, "done: Buy milk\n", "", exitcode.Success)
	if doc, _ := fake.Document("todos", "t1"); doc["completed"] != true {
		t.Errorf("expected t1 completed, got %+v", doc)
	}

	stdout, stderr, code = runCommand(t, &commands.ToggleCmd{}, a, []string{"1"}, "", false)
	expect(t, stdout, stderr, code, "open: Buy eggs\n", "", exitcode.Success)
}

func TestToggleCommand_BadReference(t *testing.T) {
	fake, a := newApp(t, true)
	seedTasks(fake)

	tests := []struct {
		args    []string
		wantErr string
	}{
		{nil, "error: task reference required\n"},
		{[]string{"x"}, "error: invalid task reference: x\n"},
		{[]string{"3"}, "error: task number out of range: 3\n"},
		{[]string{"0"}, "error: task number out of range: 0\n"},
		{[]string{"1", "2"}, "error: unexpected argument: 2\n"},
	}
	for _, tt := range tests {
		stdout, stderr, code := runCommand(t, &commands.ToggleCmd{}, a, tt.args, "", false)
		expect(t, stdout, stderr, code, "", tt.wantErr, exitcode.UserError)
	}
	if fake.Writes != 0 {
		t.Errorf("expected no writes, got %d", fake.Writes)
	}
}

func TestToggleCommand_BackendError(t *testing.T) {
	fake, a := newApp(t, true)
	seedTasks(fake)
	fake.UpdateErr = errors.New("boom")

	stdout, stderr, code := runCommand(t, &commands.ToggleCmd{}, a, []string{"1"}, "", false)
	expect(t, stdout, stderr, code, "", "error: failed to update task: boom\n", exitcode.BackendError)
}

func TestRmCommand_Confirmation(t *testing.T) {
	fake, a := newApp(t, true)
	seedTasks(fake)

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, a, []string{"1"}, "n\n", false)
	expect(t, stdout, stderr, code, "", "Delete \"Buy eggs\"? [y/N]: error: cancelled\n", exitcode.UserError)
	if _, ok := fake.Document("todos", "t2"); !ok {
		t.Fatal("declined rm should keep the task")
	}

	stdout, stderr, code = runCommand(t, &commands.RmCmd{}, a, []string{"1"}, "", false)
	expect(t, stdout, stderr, code, "", "Delete \"Buy eggs\"? [y/N]: error: cancelled\n", exitcode.UserError)

	stdout, stderr, code = runCommand(t, &commands.RmCmd{}, a, []string{"1"}, "y\n", false)
	expect(t, stdout, stderr, code, "ok\n", "Delete \"Buy eggs\"? [y/N]: ", exitcode.Success)
	if _, ok := fake.Document("todos", "t2"); ok {
		t.Error("expected t2 deleted")
	}
}

func TestRmCommand_Yes(t *testing.T) {
	fake, a := newApp(t, true)
	seedTasks(fake)

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, a, []string{"--yes", "2"}, "", false)
	expect(t, stdout, stderr, code, "ok\n", "", exitcode.Success)
	if _, ok := fake.Document("todos", "t1"); ok {
		t.Error("expected t1 deleted")
	}
}

func TestRmCommand_BackendError(t *testing.T) {
	fake, a := newApp(t, true)
	seedTasks(fake)
	fake.DeleteErr = errors.New("boom")

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, a, []string{"-y", "1"}, "", false)
	expect(t, stdout, stderr, code, "", "error: failed to delete task: boom\n", exitcode.BackendError)
}

func TestLoginCommand(t *testing.T) {
	_, a := newApp(t, false)

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, a, []string{alice.Email}, "wrong1\n", false)
	expect(t, stdout, stderr, code, "", "Password: error: invalid email or password\n", exitcode.AuthError)

	stdout, stderr, code = runCommand(t, &commands.LoginCmd{}, a, []string{"--password", "secret1", alice.Email}, "", false)
	expect(t, stdout, stderr, code, "logged in as alice@example.com\n", "", exitcode.Success)
	if u := a.User(); u == nil || u.ID != "u1" {
		t.Errorf("expected u1 signed in, got %+v", u)
	}
}

func TestLoginCommand_MissingInput(t *testing.T) {
	_, a := newApp(t, false)

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, a, nil, "", false)
	expect(t, stdout, stderr, code, "", "error: email required\n", exitcode.UserError)

	stdout, stderr, code = runCommand(t, &commands.LoginCmd{}, a, []string{alice.Email}, "", false)
	expect(t, stdout, stderr, code, "", "Password: error: password required\n", exitcode.UserError)
}

func TestRegisterCommand(t *testing.T) {
	fake, a := newApp(t, false)

	stdout, stderr, code := runCommand(t, &commands.RegisterCmd{}, a,
		[]string{"--password", "secret1", "--confirm", "secret2", "a@b.com"}, "", false)
	expect(t, stdout, stderr, code, "", "error: passwords do not match\n", exitcode.UserError)

	stdout, stderr, code = runCommand(t, &commands.RegisterCmd{}, a, []string{"a@b.com"}, "abc\nabc\n", false)
	expect(t, stdout, stderr, code, "", "Password: Confirm password: error: password must be at least 6 characters long\n", exitcode.UserError)

	stdout, stderr, code = runCommand(t, &commands.RegisterCmd{}, a, []string{"a@b.com"}, "secret1\nsecret1\n", false)
	expect(t, stdout, stderr, code, "account created, logged in as a@b.com\n", "Password: Confirm password: ", exitcode.Success)
	if u := a.User(); u == nil || u.Email != "a@b.com" {
		t.Errorf("expected a@b.com signed in, got %+v", u)
	}
	if fake.Writes != 0 {
		t.Errorf("sign-up should not write documents, got %d", fake.Writes)
	}
}

func TestRegisterCommand_Duplicate(t *testing.T) {
	_, a := newApp(t, false)

	stdout, stderr, code := runCommand(t, &commands.RegisterCmd{}, a, []string{"-p", "secret1", alice.Email}, "", false)
	expect(t, stdout, stderr, code, "", "error: email already in use\n", exitcode.AuthError)
}

func TestLogoutCommand(t *testing.T) {
	_, a := newApp(t, true)

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, a, nil, "n\n", false)
	expect(t, stdout, stderr, code, "", "Are you sure you want to logout? [y/N]: error: cancelled\n", exitcode.UserError)
	if a.User() == nil {
		t.Fatal("declined logout should stay signed in")
	}

	stdout, stderr, code = runCommand(t, &commands.LogoutCmd{}, a, nil, "y\n", false)
	expect(t, stdout, stderr, code, "ok\n", "Are you sure you want to logout? [y/N]: ", exitcode.Success)
	if a.User() != nil {
		t.Error("expected signed out")
	}

	stdout, stderr, code = runCommand(t, &commands.LogoutCmd{}, a, []string{"--yes"}, "", false)
	expect(t, stdout, stderr, code, "not logged in\n", "", exitcode.Success)
}

func TestLogoutCommand_Failure(t *testing.T) {
	fake, a := newApp(t, true)
	fake.SignOutErr = errors.New("boom")

	stdout, stderr, code := runCommand(t, &commands.LogoutCmd{}, a, []string{"-y"}, "", false)
	expect(t, stdout, stderr, code, "", "error: sign out failed: boom\n", exitcode.AuthError)
}

func TestWhoamiCommand(t *testing.T) {
	_, a := newApp(t, true)
	stdout, stderr, code := runCommand(t, &commands.WhoamiCmd{}, a, nil, "", false)
	expect(t, stdout, stderr, code, "alice@example.com (u1)\n", "", exitcode.Success)

	_, a = newApp(t, false)
	stdout, stderr, code = runCommand(t, &commands.WhoamiCmd{}, a, nil, "", false)
	expect(t, stdout, stderr, code, "not logged in\n", "", exitcode.Success)
}

func TestProfileCommand_CreatesDefault(t *testing.T) {
	fake, a := newApp(t, true)

	stdout, stderr, code := runCommand(t, &commands.ProfileCmd{}, a, nil, "", false)
	expect(t, stdout, stderr, code, "username: alice\nemail:    alice@example.com\navatar:   (none)\n", "", exitcode.Success)
	if doc, ok := fake.Document("users", "u1"); !ok || doc["username"] != "alice" {
		t.Errorf("expected stored profile, got %+v", doc)
	}
}

func TestProfileCommand_LoadError(t *testing.T) {
	fake, a := newApp(t, true)
	fake.GetErr = errors.New("boom")

	stdout, stderr, code := runCommand(t, &commands.ProfileCmd{}, a, nil, "", false)
	expect(t, stdout, stderr, code, "", "error: failed to load profile: boom\n", exitcode.BackendError)
}

func TestUsernameCommand(t *testing.T) {
	fake, a := newApp(t, true)

	stdout, stderr, code := runCommand(t, &commands.UsernameCmd{}, a, []string{"neo", "smith"}, "", false)
	expect(t, stdout, stderr, code, "username: neo smith\n", "", exitcode.Success)
	if doc, _ := fake.Document("users", "u1"); doc["username"] != "neo smith" {
		t.Errorf("expected stored username, got %+v", doc)
	}

	stdout, stderr, code = runCommand(t, &commands.UsernameCmd{}, a, nil, "", false)
	expect(t, stdout, stderr, code, "", "error: username cannot be empty\n", exitcode.UserError)
}

func TestAvatarCommand(t *testing.T) {
	fake, a := newApp(t, true)
	dir := t.TempDir()

	img := filepath.Join(dir, "me.png")
	if err := os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0600); err != nil {
		t.Fatal(err)
	}
	stdout, stderr, code := runCommand(t, &commands.AvatarCmd{}, a, []string{img}, "", false)
	expect(t, stdout, stderr, code, "avatar: https://blobs.example.com/profile-images/u1\n", "", exitcode.Success)
	if _, ok := fake.Blob("profile-images/u1"); !ok {
		t.Error("expected uploaded blob")
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	_, stderr, code = runCommand(t, &commands.AvatarCmd{}, a, []string{txt}, "", false)
	if code != exitcode.UserError || !strings.HasPrefix(stderr, "error: not an image") {
		t.Errorf("expected not-an-image error, got %d %q", code, stderr)
	}

	_, stderr, code = runCommand(t, &commands.AvatarCmd{}, a, nil, "", false)
	expect(t, "", stderr, code, "", "error: image file required\n", exitcode.UserError)
}

func TestThemeCommand(t *testing.T) {
	cmd := &commands.ThemeCmd{Appearance: theme.Fixed(false)}

	stdout, _, code := runCommand(t, cmd, nil, nil, "", false)
	if code != exitcode.Success || !strings.HasPrefix(stdout, "mode: light\n") {
		t.Errorf("expected light palette, got %q", stdout)
	}

	stdout, _, code = runCommand(t, cmd, nil, []string{"--dark"}, "", false)
	if code != exitcode.Success || !strings.HasPrefix(stdout, "mode: dark\n") {
		t.Errorf("expected dark palette, got %q", stdout)
	}

	stdout, stderr, code := runCommand(t, cmd, nil, []string{"--dark", "--light"}, "", false)
	expect(t, stdout, stderr, code, "", "error: cannot use both --dark and --light\n", exitcode.UserError)
}

func TestWatchCommand_PrintsCurrentList(t *testing.T) {
	fake, a := newApp(t, true)
	seedTasks(fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var outBuf, errBuf bytes.Buffer
	env := &commands.Env{
		Config: &config.Config{Dir: t.TempDir(), APITimeout: time.Second},
		In:     strings.NewReader(""),
		Out:    &outBuf,
		ErrOut: &errBuf,
	}
	code := (&commands.WatchCmd{}).Run(ctx, env, a, nil)
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	testutil.GoldenString(t, "list_tasks", outBuf.String())
	if fake.ActiveQueries() != 0 {
		t.Errorf("expected live query released, got %d", fake.ActiveQueries())
	}
}
