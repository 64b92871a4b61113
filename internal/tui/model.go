// Package tui is the interactive surface: a Bubble Tea program that renders
// the navigation gate, the live task list, the profile and the theme.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todoapp/internal/app"
	"todoapp/internal/auth"
	"todoapp/internal/domain"
	"todoapp/internal/nav"
	"todoapp/internal/output"
	"todoapp/internal/profile"
	"todoapp/internal/tasks"
	"todoapp/internal/theme"
)

// Messages bridged in from the providers.
type (
	gateMsg    nav.State
	tasksMsg   []domain.Task
	themeMsg   theme.Theme
	profileMsg struct {
		profile domain.Profile
		err     error
	}
)

type operation int

const (
	opSignIn operation = iota
	opSignUp
	opSignOut
	opAdd
	opToggle
	opRemove
	opUsername
	opAvatar
)

// resultMsg reports a finished remote operation.
type resultMsg struct {
	op   operation
	info string
	err  error
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx     context.Context
	app     *app.App
	tasks   *tasks.Synchronizer
	profile *profile.Synchronizer
	bridge  *bridge

	keys   keyMap
	help   help.Model
	theme  theme.Theme
	styles Styles

	state  nav.State
	screen nav.Screen

	// Login and Register forms.
	email    textinput.Model
	password textinput.Model
	confirm  textinput.Model
	focus    int

	// Tasks tab.
	taskInput     textinput.Model
	list          []domain.Task
	cursor        int
	listFocused   bool
	pendingDelete string

	// Profile tab.
	username      textinput.Model
	avatarPath    textinput.Model
	profileFocus  int
	prof          domain.Profile
	pendingLogout bool

	status    string
	statusErr bool
	width     int
}

// New creates the model and mounts its task synchronizer. Call Close when
// the program has ended.
func New(ctx context.Context, a *app.App) Model {
	m := Model{
		ctx:    ctx,
		app:    a,
		tasks:  a.Tasks(),
		bridge: &bridge{},
		keys:   defaultKeys(),
		help:   help.New(),

		email:      newInput("Enter your email"),
		password:   newInput("Enter your password"),
		confirm:    newInput("Confirm your password"),
		taskInput:  newInput("Add a new task..."),
		username:   newInput("Username"),
		avatarPath: newInput("Path to an image file"),
	}
	m.password.EchoMode = textinput.EchoPassword
	m.confirm.EchoMode = textinput.EchoPassword
	m.setTheme(a.Theme.Theme())
	m.tasks.Mount()

	m.state = a.Gate.State()
	m, _ = m.enter()
	return m
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = "> "
	in.CharLimit = 256
	return in
}

// Close releases the bridge subscriptions and unmounts the task list.
func (m Model) Close() {
	m.bridge.close()
	m.tasks.Unmount()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.bridge.subscribe(m.app, m.tasks)}
	if m.state == nav.Authenticated {
		cmds = append(cmds, m.loadProfile())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case gateMsg:
		return m.syncGate(nav.State(msg))

	case tasksMsg:
		m.setList(msg)
		return m, nil

	case themeMsg:
		m.setTheme(theme.Theme(msg))
		return m, nil

	case profileMsg:
		if msg.err != nil {
			m.setStatus(msg.err)
			return m, nil
		}
		m.prof = msg.profile
		m.username.SetValue(msg.profile.Username)
		return m, nil

	case resultMsg:
		return m.handleResult(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Theme):
			return m, m.toggleTheme()
		}
		switch m.state {
		case nav.Unauthenticated:
			return m.updateAuthForm(msg)
		case nav.Authenticated:
			if m.screen == nav.TabProfile {
				return m.updateProfile(msg)
			}
			return m.updateTasks(msg)
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

// enter resets the screen for the current gate state.
func (m Model) enter() (Model, tea.Cmd) {
	m.status, m.statusErr = "", false
	m.pendingDelete, m.pendingLogout = "", false

	switch m.state {
	case nav.Unauthenticated:
		m.screen = nav.ScreenLogin
		m.email.Reset()
		m.password.Reset()
		m.confirm.Reset()
		m.focus = 0
		m.list, m.cursor, m.listFocused = nil, 0, false
		m.profile, m.prof = nil, domain.Profile{}
		m.focusForm()
		return m, nil

	case nav.Authenticated:
		m.screen = nav.TabTasks
		m.taskInput.Reset()
		m.avatarPath.Reset()
		m.listFocused = false
		m.focusTasks()
		m.setList(m.tasks.Tasks())
		p, err := m.app.Profile()
		if err != nil {
			return m, nil
		}
		m.profile = p
		return m, m.loadProfile()
	}

	m.screen = ""
	return m, nil
}

func (m Model) syncGate(st nav.State) (tea.Model, tea.Cmd) {
	if st == m.state {
		return m, nil
	}
	m.state = st
	return m.enter()
}

func (m Model) handleResult(msg resultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus(msg.err)
	} else {
		m.status, m.statusErr = msg.info, false
		switch msg.op {
		case opAdd:
			m.taskInput.Reset()
		case opUsername, opAvatar:
			if m.profile != nil {
				m.prof = m.profile.Profile()
				m.username.SetValue(m.prof.Username)
			}
			m.avatarPath.Reset()
		}
	}
	if m.state == nav.Authenticated {
		m.setList(m.tasks.Tasks())
	}

	// Auth results reach the gate before this message does.
	if st := m.app.Gate.State(); st != m.state {
		status, statusErr := m.status, m.statusErr
		m.state = st
		next, cmd := m.enter()
		next.status, next.statusErr = status, statusErr
		return next, cmd
	}
	return m, nil
}

func (m Model) updateAuthForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToRegister):
		m.screen = nav.ScreenRegister
		m.focus = 0
		m.status = ""
		m.focusForm()
		return m, nil
	case key.Matches(msg, m.keys.ToLogin):
		m.screen = nav.ScreenLogin
		m.focus = 0
		m.status = ""
		m.focusForm()
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		m.focus = (m.focus + 1) % len(m.formFields())
		m.focusForm()
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		n := len(m.formFields())
		m.focus = (m.focus + n - 1) % n
		m.focusForm()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.submitAuth()
	}

	var cmd tea.Cmd
	field := m.formFields()[m.focus]
	*field, cmd = field.Update(msg)
	return m, cmd
}

func (m Model) submitAuth() (tea.Model, tea.Cmd) {
	email, password := m.email.Value(), m.password.Value()
	provider := m.app.Auth
	ctx := m.ctx

	if m.screen == nav.ScreenRegister {
		if err := auth.ValidateSignUp(email, password, m.confirm.Value()); err != nil {
			m.setStatus(err)
			return m, nil
		}
		m.status, m.statusErr = "Creating account...", false
		return m, func() tea.Msg {
			_, err := provider.SignUp(ctx, email, password)
			return resultMsg{op: opSignUp, info: "Account created successfully!", err: err}
		}
	}

	if err := auth.ValidateSignIn(email, password); err != nil {
		m.setStatus(err)
		return m, nil
	}
	m.status, m.statusErr = "Signing in...", false
	return m, func() tea.Msg {
		_, err := provider.SignIn(ctx, email, password)
		return resultMsg{op: opSignIn, err: err}
	}
}

func (m Model) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pendingDelete != "" {
		id := m.pendingDelete
		m.pendingDelete = ""
		m.status = ""
		if key.Matches(msg, m.keys.Yes) {
			return m, m.remove(id)
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.SwitchTab) {
		m.screen = nav.TabProfile
		m.status = ""
		m.focusProfile()
		return m, nil
	}

	if !m.listFocused {
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m, m.add(m.taskInput.Value())
		case msg.Type == tea.KeyDown || msg.Type == tea.KeyEsc:
			if len(m.list) > 0 {
				m.listFocused = true
				m.focusTasks()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.taskInput, cmd = m.taskInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor == 0 {
			m.listFocused = false
			m.focusTasks()
		} else {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.list)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Back):
		m.listFocused = false
		m.focusTasks()
	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.selected(); ok {
			return m, m.toggle(t)
		}
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok {
			m.pendingDelete = t.ID
			m.status, m.statusErr = fmt.Sprintf("Delete %q? (y/n)", t.Text), false
		}
	}
	return m, nil
}

func (m Model) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pendingLogout {
		m.pendingLogout = false
		m.status = ""
		if key.Matches(msg, m.keys.Yes) {
			return m, m.signOut()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.SwitchTab):
		m.screen = nav.TabTasks
		m.status = ""
		m.focusTasks()
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		m.pendingLogout = true
		m.status, m.statusErr = "Are you sure you want to logout? (y/n)", false
		return m, nil
	case msg.Type == tea.KeyUp || msg.Type == tea.KeyDown || msg.Type == tea.KeyShiftTab:
		m.profileFocus = 1 - m.profileFocus
		m.focusProfile()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if m.profileFocus == 0 {
			return m, m.setUsername(m.username.Value())
		}
		return m, m.uploadAvatar(m.avatarPath.Value())
	}

	var cmd tea.Cmd
	if m.profileFocus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.avatarPath, cmd = m.avatarPath.Update(msg)
	}
	return m, cmd
}

// updateInputs forwards non-key messages such as cursor blinks.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	inputs := []*textinput.Model{&m.email, &m.password, &m.confirm, &m.taskInput, &m.username, &m.avatarPath}
	cmds := make([]tea.Cmd, 0, len(inputs))
	for _, in := range inputs {
		var cmd tea.Cmd
		*in, cmd = in.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// Remote operations run as commands so Update never blocks on the backend.

func (m Model) add(text string) tea.Cmd {
	s, ctx := m.tasks, m.ctx
	return func() tea.Msg {
		return resultMsg{op: opAdd, err: s.Add(ctx, text)}
	}
}

func (m Model) toggle(t domain.Task) tea.Cmd {
	s, ctx := m.tasks, m.ctx
	return func() tea.Msg {
		return resultMsg{op: opToggle, err: s.Toggle(ctx, t)}
	}
}

func (m Model) remove(id string) tea.Cmd {
	s, ctx := m.tasks, m.ctx
	return func() tea.Msg {
		err := s.Remove(ctx, id, func(domain.Task) bool { return true })
		return resultMsg{op: opRemove, err: err}
	}
}

func (m Model) loadProfile() tea.Cmd {
	p, ctx := m.profile, m.ctx
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		prof, err := p.LoadOrCreate(ctx)
		return profileMsg{profile: prof, err: err}
	}
}

func (m Model) setUsername(name string) tea.Cmd {
	p, ctx := m.profile, m.ctx
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		err := p.SetUsername(ctx, name)
		return resultMsg{op: opUsername, info: "Username updated successfully!", err: err}
	}
}

func (m Model) uploadAvatar(path string) tea.Cmd {
	p, ctx := m.profile, m.ctx
	if p == nil {
		return nil
	}
	path = strings.TrimSpace(path)
	return func() tea.Msg {
		if path == "" {
			return resultMsg{op: opAvatar, err: &domain.ValidationError{Field: "avatar", Message: "enter the path of an image file"}}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return resultMsg{op: opAvatar, err: &domain.ValidationError{Field: "avatar", Message: "failed to pick image"}}
		}
		err = p.UploadAvatar(ctx, data)
		return resultMsg{op: opAvatar, info: "Profile image updated successfully!", err: err}
	}
}

func (m Model) signOut() tea.Cmd {
	provider, ctx := m.app.Auth, m.ctx
	return func() tea.Msg {
		return resultMsg{op: opSignOut, err: provider.SignOut(ctx)}
	}
}

// toggleTheme flips the theme off the update loop; the provider notifies
// the bridge, which sends back to the program.
func (m Model) toggleTheme() tea.Cmd {
	provider := m.app.Theme
	return func() tea.Msg {
		provider.Toggle()
		return themeMsg(provider.Theme())
	}
}

func (m *Model) setTheme(t theme.Theme) {
	m.theme = t
	m.styles = NewStyles(t)
	m.help.Styles = helpStyles(t)
}

func (m *Model) setStatus(err error) {
	m.status, m.statusErr = output.ErrorMessage(err), true
}

func (m *Model) setList(list []domain.Task) {
	m.list = list
	if m.cursor >= len(list) {
		m.cursor = max(len(list)-1, 0)
	}
	if len(list) == 0 && m.listFocused {
		m.listFocused = false
		m.focusTasks()
	}
}

func (m Model) selected() (domain.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.list) {
		return domain.Task{}, false
	}
	return m.list[m.cursor], true
}

func (m *Model) formFields() []*textinput.Model {
	if m.screen == nav.ScreenRegister {
		return []*textinput.Model{&m.email, &m.password, &m.confirm}
	}
	return []*textinput.Model{&m.email, &m.password}
}

func (m *Model) focusForm() {
	fields := m.formFields()
	if m.focus >= len(fields) {
		m.focus = 0
	}
	m.confirm.Blur()
	for i, f := range fields {
		if i == m.focus {
			f.Focus()
		} else {
			f.Blur()
		}
	}
}

func (m *Model) focusTasks() {
	m.username.Blur()
	m.avatarPath.Blur()
	if m.listFocused {
		m.taskInput.Blur()
		return
	}
	m.taskInput.Focus()
}

func (m *Model) focusProfile() {
	m.taskInput.Blur()
	if m.profileFocus == 0 {
		m.username.Focus()
		m.avatarPath.Blur()
		return
	}
	m.avatarPath.Focus()
	m.username.Blur()
}
