package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// EnvTheme overrides terminal detection with "light" or "dark".
const EnvTheme = "TODOAPP_THEME"

// Terminal reads the appearance from the terminal background. Terminals
// do not announce background changes, so OnChange never fires.
type Terminal struct{}

// IsDark reports TODOAPP_THEME if set, else asks the terminal.
func (Terminal) IsDark() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvTheme))) {
	case string(Dark):
		return true
	case string(Light):
		return false
	}
	return lipgloss.HasDarkBackground()
}

// OnChange is a no-op for terminals.
func (Terminal) OnChange(fn func(dark bool)) func() {
	return func() {}
}

// Fixed is an Appearance pinned to one mode.
type Fixed bool

// IsDark returns the pinned mode.
func (f Fixed) IsDark() bool { return bool(f) }

// OnChange is a no-op.
func (f Fixed) OnChange(fn func(dark bool)) func() { return func() {} }
