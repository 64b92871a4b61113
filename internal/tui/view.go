package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"todoapp/internal/nav"
	"todoapp/internal/output"
)

// View implements tea.Model. Nothing is rendered while the gate is loading.
func (m Model) View() string {
	if m.state == nav.Loading {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	switch m.screen {
	case nav.ScreenLogin:
		b.WriteString(m.loginView())
	case nav.ScreenRegister:
		b.WriteString(m.registerView())
	case nav.TabTasks:
		b.WriteString(m.tasksView())
	case nav.TabProfile:
		b.WriteString(m.profileView())
	}
	b.WriteString("\n")
	if m.status != "" {
		style := m.styles.Success
		if m.statusErr {
			style = m.styles.Error
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.help.ShortHelpView(m.bindings()))

	frame := m.styles.App
	if m.width > 0 {
		frame = frame.Width(m.width)
	}
	return frame.Render(b.String())
}

func (m Model) header() string {
	tabs := make([]string, 0, 2)
	for _, s := range m.state.Screens() {
		style := m.styles.Tab
		if s == m.screen {
			style = m.styles.ActiveTab
		}
		tabs = append(tabs, style.Render(string(s)))
	}
	title := m.styles.Title.Render("todoapp")
	mode := m.styles.Muted.Render(string(m.theme.Mode))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", strings.Join(tabs, " "), "  ", mode)
}

func (m Model) loginView() string {
	return m.styles.Card.Render(strings.Join([]string{
		m.styles.Title.Render("Welcome Back"),
		m.styles.Label.Render("Email"),
		m.email.View(),
		m.styles.Label.Render("Password"),
		m.password.View(),
		"",
		m.styles.Button.Render("Login"),
		m.styles.Muted.Render("Don't have an account? ctrl+r to sign up"),
	}, "\n"))
}

func (m Model) registerView() string {
	return m.styles.Card.Render(strings.Join([]string{
		m.styles.Title.Render("Create Account"),
		m.styles.Label.Render("Email"),
		m.email.View(),
		m.styles.Label.Render("Password"),
		m.password.View(),
		m.styles.Label.Render("Confirm Password"),
		m.confirm.View(),
		"",
		m.styles.Button.Render("Register"),
		m.styles.Muted.Render("Already have an account? ctrl+l to log in"),
	}, "\n"))
}

func (m Model) tasksView() string {
	lines := []string{m.taskInput.View(), ""}
	if len(m.list) == 0 {
		lines = append(lines, m.styles.Muted.Render("No tasks yet. Add one above!"))
	}
	remaining := 0
	for i, t := range m.list {
		if !t.Completed {
			remaining++
		}
		pointer := "  "
		if m.listFocused && i == m.cursor {
			pointer = m.styles.Cursor.Render("> ")
		}
		text := m.styles.Text.Render(t.Text)
		if t.Completed {
			text = m.styles.Done.Render(t.Text)
		}
		lines = append(lines, fmt.Sprintf("%s%s %s", pointer, output.Checkbox(t.Completed), text))
	}
	lines = append(lines, "", m.styles.Muted.Render(fmt.Sprintf("%d tasks remaining", remaining)))
	return strings.Join(lines, "\n")
}

func (m Model) profileView() string {
	email := ""
	if u := m.app.User(); u != nil {
		email = u.Email
	}
	avatar := m.prof.AvatarURL
	if avatar == "" {
		avatar = "(no profile image)"
	}
	return m.styles.Card.Render(strings.Join([]string{
		m.styles.Title.Render(m.prof.Username),
		m.styles.Muted.Render(email),
		"",
		m.styles.Label.Render("Username"),
		m.username.View(),
		m.styles.Label.Render("Profile image"),
		m.styles.Muted.Render(avatar),
		m.avatarPath.View(),
	}, "\n"))
}

func (m Model) bindings() []key.Binding {
	k := m.keys
	switch m.state {
	case nav.Unauthenticated:
		switchScreen := k.ToRegister
		if m.screen == nav.ScreenRegister {
			switchScreen = k.ToLogin
		}
		return []key.Binding{k.NextField, k.Submit, switchScreen, k.Theme, k.Quit}
	case nav.Authenticated:
		if m.screen == nav.TabProfile {
			return []key.Binding{k.SwitchTab, k.Submit, k.Logout, k.Theme, k.Quit}
		}
		if m.listFocused {
			return []key.Binding{k.Up, k.Down, k.Toggle, k.Delete, k.Back, k.SwitchTab, k.Quit}
		}
		return []key.Binding{k.Submit, k.SwitchTab, k.Theme, k.Quit}
	}
	return nil
}
