package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"todoapp/internal/theme"
)

// Styles are the lipgloss styles of every screen, derived from one palette.
type Styles struct {
	App       lipgloss.Style
	Title     lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Card      lipgloss.Style
	Label     lipgloss.Style
	Text      lipgloss.Style
	Muted     lipgloss.Style
	Done      lipgloss.Style
	Cursor    lipgloss.Style
	Button    lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
}

// NewStyles builds the styles for t.
func NewStyles(t theme.Theme) Styles {
	p := t.Palette
	color := func(hex string) lipgloss.Color { return lipgloss.Color(hex) }

	return Styles{
		App:   lipgloss.NewStyle().Background(color(p.Background)).Foreground(color(p.Text)).Padding(1, 2),
		Title: lipgloss.NewStyle().Foreground(color(p.Accent)).Bold(true),
		Tab:   lipgloss.NewStyle().Foreground(color(p.TextSecondary)).Padding(0, 1),
		ActiveTab: lipgloss.NewStyle().
			Foreground(color(p.ButtonText)).
			Background(color(p.Button)).
			Bold(true).
			Padding(0, 1),
		Card: lipgloss.NewStyle().
			Background(color(p.Card)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(color(p.Border)).
			Padding(0, 1),
		Label:   lipgloss.NewStyle().Foreground(color(p.TextSecondary)),
		Text:    lipgloss.NewStyle().Foreground(color(p.Text)),
		Muted:   lipgloss.NewStyle().Foreground(color(p.TextSecondary)),
		Done:    lipgloss.NewStyle().Foreground(color(p.TextSecondary)).Strikethrough(true),
		Cursor:  lipgloss.NewStyle().Foreground(color(p.Accent)).Bold(true),
		Button:  lipgloss.NewStyle().Foreground(color(p.ButtonText)).Background(color(p.Button)).Padding(0, 2),
		Error:   lipgloss.NewStyle().Foreground(color(p.Error)),
		Success: lipgloss.NewStyle().Foreground(color(p.Success)),
	}
}

func helpStyles(t theme.Theme) help.Styles {
	s := help.New().Styles
	s.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Palette.Accent))
	s.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Palette.TextSecondary))
	s.ShortSeparator = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Palette.Border))
	return s
}
