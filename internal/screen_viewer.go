package internal

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jhalter/messenger-archive-viewer/internal/archive"
	"github.com/jhalter/messenger-archive-viewer/internal/loader"
	"github.com/jhalter/messenger-archive-viewer/internal/style"
)

// viewerKeyMap defines key bindings for the viewer help display
type viewerKeyMap struct {
	Focus    key.Binding
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Page     key.Binding
	Ends     key.Binding
	Reload   key.Binding
	Settings key.Binding
	Logs     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k viewerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.Select, k.Reload, k.Settings, k.Help, k.Quit}
}

func (k viewerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Focus, k.Up, k.Down, k.Select},
		{k.Page, k.Ends, k.Reload},
		{k.Settings, k.Logs, k.Help, k.Quit},
	}
}

func newViewerKeyMap() viewerKeyMap {
	return viewerKeyMap{
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open thread")),
		Page:     key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "page")),
		Ends:     key.NewBinding(key.WithKeys("home", "end"), key.WithHelp("home/end", "top/bottom")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Settings: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("^S", "settings")),
		Logs:     key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("^L", "logs")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("^Q", "quit")),
	}
}

// ViewerScreen shows the thread list and the messages of the selected thread
// side by side.
type ViewerScreen struct {
	threads  *ThreadList
	messages *MessagesPane

	help help.Model
	keys viewerKeyMap

	focusOnMessages bool

	width, height int
	model         *Model
}

// NewViewerScreen builds both panes against the model's archive client and
// returns the command loading the thread list.
func NewViewerScreen(m *Model) (*ViewerScreen, tea.Cmd) {
	var prober Prober
	if m.prefs.ProbeAttachments {
		prober = m.client
	}

	threads, cmd := NewThreadList(m.client, m.logger, m.zones)
	messages := NewMessagesPane(m.client, prober, m.logger)
	threads.OnSelectThread = messages.SetThread

	s := &ViewerScreen{
		threads:  threads,
		messages: messages,
		help:     help.New(),
		keys:     newViewerKeyMap(),
		model:    m,
	}
	s.SetSize(m.width, m.height)

	return s, cmd
}

// Update handles messages and returns updated screen + commands
func (s *ViewerScreen) Update(msg tea.Msg) (ScreenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)
		return s, nil

	case loader.Completed[[]archive.Thread]:
		return s, s.threads.Update(msg)

	case loader.Completed[[]archive.Message], attachmentProbedMsg:
		return s, s.messages.Update(msg)

	case spinner.TickMsg:
		return s, tea.Batch(s.threads.Update(msg), s.messages.Update(msg))

	case tea.MouseMsg:
		return s, s.handleMouse(msg)

	case tea.KeyMsg:
		return s, s.handleKeys(msg)
	}

	return s, nil
}

func (s *ViewerScreen) handleKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keys.Focus):
		s.focusOnMessages = !s.focusOnMessages
		return nil
	case key.Matches(msg, s.keys.Help):
		s.help.ShowAll = !s.help.ShowAll
		s.SetSize(s.width, s.height)
		return nil
	}

	if s.focusOnMessages {
		return s.messages.HandleKey(msg)
	}
	return s.threads.HandleKey(msg)
}

func (s *ViewerScreen) handleMouse(msg tea.MouseMsg) tea.Cmd {
	// Wheel events scroll whichever pane is under the pointer.
	if msg.X >= s.listWidth()+2 {
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			s.focusOnMessages = true
		}
		return s.messages.Update(msg)
	}
	if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
		s.focusOnMessages = false
	}
	return s.threads.HandleMouse(msg)
}

// Cancel abandons every in-flight request of both panes.
func (s *ViewerScreen) Cancel() {
	s.threads.Cancel()
	s.messages.Cancel()
}

func (s *ViewerScreen) listWidth() int {
	return min(s.model.prefs.ListWidth(), max(s.width/2, 10))
}

// chromeHeight is the number of lines taken by the title and the help.
func (s *ViewerScreen) chromeHeight() int {
	return 1 + lipgloss.Height(s.help.View(s.keys))
}

// SetSize updates dimensions
func (s *ViewerScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.help.Width = width

	// Two border cells on each axis per pane.
	paneHeight := max(height-s.chromeHeight()-2, 3)
	listWidth := s.listWidth()
	s.threads.SetSize(listWidth, paneHeight)
	s.messages.SetSize(max(width-listWidth-4, 10), paneHeight)
}

func paneFrame(state loader.State, focused bool) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(style.PaneBorder(focused)).
		BorderForeground(style.StateBorderColor(state.String()))
}

// View renders the screen
func (s *ViewerScreen) View() string {
	title := style.ApplyBoldForegroundGrad("Messenger Archive", style.GradientStart, style.GradientEnd) +
		style.PaneCountStyle.Render(" · "+s.model.client.BaseURL())

	threadsView := paneFrame(s.threads.State(), !s.focusOnMessages).Render(s.threads.View(!s.focusOnMessages))
	messagesView := paneFrame(s.messages.State(), s.focusOnMessages).Render(s.messages.View())

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, threadsView, messagesView),
		s.help.View(s.keys),
	)
}
