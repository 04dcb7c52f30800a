package internal

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jhalter/messenger-archive-viewer/internal/style"
)

// LogsCancelledMsg signals user wants to close logs
type LogsCancelledMsg struct{}

type logsScreenKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Back    key.Binding
}

func (k logsScreenKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Refresh, k.Back}
}

func (k logsScreenKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Refresh, k.Back}}
}

// LogsScreen shows the debug log, anchored at the newest line
type LogsScreen struct {
	viewport      viewport.Model
	width, height int
	model         *Model
	help          help.Model
	keys          logsScreenKeyMap
	debugBuffer   *DebugBuffer
}

func NewLogsScreen(debugBuffer *DebugBuffer, m *Model) *LogsScreen {
	keys := logsScreenKeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}

	s := &LogsScreen{
		viewport:    viewport.New(max(m.width-10, 10), max(m.height-10, 3)),
		width:       m.width,
		height:      m.height,
		model:       m,
		help:        help.New(),
		keys:        keys,
		debugBuffer: debugBuffer,
	}
	s.RefreshContent()
	return s
}

// Update implements ScreenModel
func (s *LogsScreen) Update(msg tea.Msg) (ScreenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keys.Back):
			return s, func() tea.Msg { return LogsCancelledMsg{} }
		case key.Matches(msg, s.keys.Refresh):
			s.RefreshContent()
			return s, nil
		}
	}

	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	return s, cmd
}

// View implements tea.Model
func (s *LogsScreen) View() string {
	return style.RenderSubscreen(s.width, s.height, "Logs",
		lipgloss.JoinVertical(
			lipgloss.Left,
			s.viewport.View(),
			" ",
			lipgloss.JoinHorizontal(
				lipgloss.Left,
				s.help.View(s.keys),
				"  ",
				fmt.Sprintf("%3.f%%", s.viewport.ScrollPercent()*100),
			),
		),
	)
}

func (s *LogsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.viewport.Width = max(width-10, 10)
	s.viewport.Height = max(height-10, 3)
}

// RefreshContent reloads the viewport from the debug buffer
func (s *LogsScreen) RefreshContent() {
	s.viewport.SetContent(s.debugBuffer.String())
	s.viewport.GotoBottom()
}
