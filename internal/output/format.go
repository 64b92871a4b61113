// Package output provides formatters for CLI output.
package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"todoapp/internal/domain"
	"todoapp/internal/theme"
)

// FormatTask formats a numbered task line.
// Format: "{N:>4}  [x] {TEXT}\n"
func FormatTask(w io.Writer, num int, task domain.Task) {
	fmt.Fprintf(w, "%4d  %s %s\n", num, Checkbox(task.Completed), normalizeText(task.Text))
}

// FormatTasks writes every task, numbered from 1, then the remaining count.
func FormatTasks(w io.Writer, list []domain.Task) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No tasks yet. Add one above!")
	}
	remaining := 0
	for i, t := range list {
		FormatTask(w, i+1, t)
		if !t.Completed {
			remaining++
		}
	}
	FormatRemaining(w, remaining)
}

// FormatRemaining formats the open task count.
func FormatRemaining(w io.Writer, n int) {
	fmt.Fprintf(w, "%d tasks remaining\n", n)
}

// Checkbox renders the completed flag.
func Checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// FormatProfile formats the profile screen.
func FormatProfile(w io.Writer, user domain.Identity, p domain.Profile) {
	email := user.Email
	if email == "" {
		email = "(none)"
	}
	avatar := p.AvatarURL
	if avatar == "" {
		avatar = "(none)"
	}
	fmt.Fprintf(w, "username: %s\n", p.Username)
	fmt.Fprintf(w, "email:    %s\n", email)
	fmt.Fprintf(w, "avatar:   %s\n", avatar)
}

// FormatIdentity formats the signed-in user for whoami.
func FormatIdentity(w io.Writer, id *domain.Identity) {
	if id == nil {
		fmt.Fprintln(w, "not logged in")
		return
	}
	email := id.Email
	if email == "" {
		email = "(no email)"
	}
	fmt.Fprintf(w, "%s (%s)\n", email, id.ID)
}

// FormatPalette lists the theme's colors in a fixed order.
func FormatPalette(w io.Writer, t theme.Theme) {
	p := t.Palette
	fmt.Fprintf(w, "mode: %s\n", t.Mode)
	rows := []struct{ name, value string }{
		{"accent", p.Accent},
		{"background", p.Background},
		{"card", p.Card},
		{"border", p.Border},
		{"text", p.Text},
		{"textSecondary", p.TextSecondary},
		{"inputBackground", p.InputBackground},
		{"inputBorder", p.InputBorder},
		{"button", p.Button},
		{"buttonText", p.ButtonText},
		{"shadow", p.Shadow},
		{"error", p.Error},
		{"success", p.Success},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-16s %s\n", r.name, r.value)
	}
}

// ErrorMessage returns the text shown after "error: " for err.
// Validation failures show only their message; a missing session adds
// the login hint.
func ErrorMessage(err error) string {
	var v *domain.ValidationError
	switch {
	case errors.As(err, &v):
		return v.Message
	case errors.Is(err, domain.ErrNotLoggedIn):
		return "not logged in (run: todoapp login)"
	default:
		return err.Error()
	}
}

// normalizeText normalizes a task text for display.
// - Empty or whitespace-only texts become "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
