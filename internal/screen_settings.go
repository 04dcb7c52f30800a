package internal

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/jhalter/messenger-archive-viewer/internal/style"
)

// settingsKeyMap defines the keybindings for the settings screen
type settingsKeyMap struct {
	Tab    key.Binding
	Enter  key.Binding
	Escape key.Binding
}

func (k settingsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Escape}
}

func (k settingsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.Enter, k.Escape}}
}

func newSettingsKeyMap() settingsKeyMap {
	return settingsKeyMap{
		Tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Escape: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// Messages sent from SettingsScreen to parent
type SettingsSavedMsg struct {
	Server           string
	ThreadListWidth  int
	ProbeAttachments bool
}

type SettingsCancelledMsg struct{}

// enterSubmitsKeyMap creates a keymap where Enter submits the form immediately
// instead of tabbing through fields.
func enterSubmitsKeyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Input.Next = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next"))
	km.Confirm.Next = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next"))
	km.Input.Submit = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save"))
	km.Confirm.Submit = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save"))
	return km
}

func validateListWidth(s string) error {
	w, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("not a number")
	}
	if w < minThreadListWidth || w > maxThreadListWidth {
		return fmt.Errorf("must be between %d and %d", minThreadListWidth, maxThreadListWidth)
	}
	return nil
}

// SettingsScreen edits the viewer settings
type SettingsScreen struct {
	form          *huh.Form
	width, height int
	model         *Model
	help          help.Model
	keys          settingsKeyMap

	// Form field values (bound to form inputs)
	server           string
	listWidth        string
	probeAttachments bool
}

func buildSettingsForm(server, listWidth *string, probeAttachments *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("server").
				Title("Archive Server").
				Placeholder(DefaultServer).
				Validate(validateServer).
				Value(server),

			huh.NewInput().
				Key("listWidth").
				Title("Thread List Width").
				Placeholder(strconv.Itoa(DefaultThreadListWidth)).
				Validate(validateListWidth).
				Value(listWidth),

			huh.NewConfirm().
				Key("probeAttachments").
				Title("Fetch Attachment Details").
				Affirmative("On").
				Negative("Off").
				Value(probeAttachments),
		),
	).
		WithWidth(50).
		WithShowHelp(false).
		WithShowErrors(true).
		WithKeyMap(enterSubmitsKeyMap())
}

// NewSettingsScreen creates a new settings screen with current settings values
func NewSettingsScreen(prefs *Settings, m *Model) (*SettingsScreen, tea.Cmd) {
	screen := &SettingsScreen{
		width:            m.width,
		height:           m.height,
		model:            m,
		help:             help.New(),
		keys:             newSettingsKeyMap(),
		server:           prefs.Server,
		listWidth:        strconv.Itoa(prefs.ListWidth()),
		probeAttachments: prefs.ProbeAttachments,
	}

	screen.form = buildSettingsForm(&screen.server, &screen.listWidth, &screen.probeAttachments)

	return screen, screen.form.Init()
}

// Update implements ScreenModel
func (s *SettingsScreen) Update(msg tea.Msg) (ScreenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return SettingsCancelledMsg{} }
		case "enter":
			// Commit the focused field before submitting.
			form, _ := s.form.Update(msg)
			if f, ok := form.(*huh.Form); ok {
				s.form = f
			}
			s.form.NextGroup()
			if s.form.State == huh.StateCompleted {
				return s, s.handleSubmit()
			}
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		return s, s.handleSubmit()
	}

	return s, cmd
}

// handleSubmit validates the bound values and reports them to the parent.
func (s *SettingsScreen) handleSubmit() tea.Cmd {
	if validateServer(s.server) != nil || validateListWidth(s.listWidth) != nil {
		return nil
	}

	server := s.server
	listWidth, _ := strconv.Atoi(s.listWidth)
	probeAttachments := s.probeAttachments

	return func() tea.Msg {
		return SettingsSavedMsg{
			Server:           server,
			ThreadListWidth:  listWidth,
			ProbeAttachments: probeAttachments,
		}
	}
}

// View implements tea.Model
func (s *SettingsScreen) View() string {
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		s.form.View(),
		"",
		s.help.View(s.keys),
	)
	return style.RenderSubscreen(s.width, s.height, "Settings", content)
}

// SetSize updates the screen dimensions
func (s *SettingsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
}
