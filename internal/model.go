package internal

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jhalter/messenger-archive-viewer/internal/archive"
	"github.com/jhalter/messenger-archive-viewer/internal/loader"
	zone "github.com/lrstanley/bubblezone"
)

// Screen types
type Screen int

// ScreenModel is the interface that all screens must implement
type ScreenModel interface {
	Update(tea.Msg) (ScreenModel, tea.Cmd)
	View() string
}

const (
	ScreenViewer Screen = iota
	ScreenSettings
	ScreenLogs
)

// archiveClient is what the viewer needs from the archive server.
type archiveClient interface {
	loader.Fetcher
	Prober
	BaseURL() string
}

// Model
type Model struct {
	program *tea.Program

	// Configuration
	cfgPath     string
	prefs       *Settings
	logger      *slog.Logger
	debugBuffer *DebugBuffer

	msgHandlers map[reflect.Type]msgHandler

	// Screen state
	screenHistory []Screen // Stack of screens, current screen is last element

	width  int
	height int

	client archiveClient
	zones  *zone.Manager

	// Screens
	viewerScreen   *ViewerScreen
	settingsScreen *SettingsScreen
	logsScreen     *LogsScreen
}

// CurrentScreen returns the current screen, or ScreenViewer if history is empty
func (m *Model) CurrentScreen() Screen {
	if len(m.screenHistory) == 0 {
		return ScreenViewer
	}
	return m.screenHistory[len(m.screenHistory)-1]
}

// PushScreen adds a new screen to history (modal/overlay pattern)
func (m *Model) PushScreen(screen Screen) {
	m.screenHistory = append(m.screenHistory, screen)
}

// PopScreen removes current screen and returns to previous
// Returns the screen we're now on
func (m *Model) PopScreen() Screen {
	if len(m.screenHistory) <= 1 {
		m.screenHistory = []Screen{ScreenViewer}
		return ScreenViewer
	}
	m.screenHistory = m.screenHistory[:len(m.screenHistory)-1]
	return m.screenHistory[len(m.screenHistory)-1]
}

// currentScreen returns the current screen as a ScreenModel interface
func (m *Model) currentScreen() ScreenModel {
	switch m.CurrentScreen() {
	case ScreenViewer:
		if m.viewerScreen != nil {
			return m.viewerScreen
		}
	case ScreenSettings:
		if m.settingsScreen != nil {
			return m.settingsScreen
		}
	case ScreenLogs:
		if m.logsScreen != nil {
			return m.logsScreen
		}
	}
	return nil
}

// NewModel reads the config at cfgPath. A non-empty server overrides the
// configured archive server.
func NewModel(cfgPath, server string, logger *slog.Logger, db *DebugBuffer) (*Model, error) {
	prefs, err := readConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if server != "" {
		if err := validateServer(server); err != nil {
			return nil, err
		}
		prefs.Server = server
	}

	return newModel(cfgPath, prefs, archive.NewClient(prefs.Server, prefs.Timeout()), logger, db), nil
}

func newModel(cfgPath string, prefs *Settings, client archiveClient, logger *slog.Logger, db *DebugBuffer) *Model {
	return &Model{
		msgHandlers:   make(map[reflect.Type]msgHandler),
		cfgPath:       cfgPath,
		prefs:         prefs,
		logger:        logger,
		debugBuffer:   db,
		client:        client,
		zones:         zone.New(),
		screenHistory: []Screen{ScreenViewer},
	}
}

func (m *Model) Init() tea.Cmd {
	m.registerHandler(tea.WindowSizeMsg{}, m.handleWindowResize)
	m.registerHandler(loader.Completed[[]archive.Thread]{}, m.handleViewerMsg)
	m.registerHandler(loader.Completed[[]archive.Message]{}, m.handleViewerMsg)
	m.registerHandler(attachmentProbedMsg{}, m.handleViewerMsg)
	m.registerHandler(spinner.TickMsg{}, m.handleViewerMsg)
	m.registerHandler(SettingsSavedMsg{}, m.handleSettingsSavedMsg)
	m.registerHandler(SettingsCancelledMsg{}, m.handleSettingsCancelledMsg)
	m.registerHandler(LogsCancelledMsg{}, m.handleLogsCancelledMsg)

	var cmd tea.Cmd
	m.viewerScreen, cmd = NewViewerScreen(m)
	m.logger.Info("Viewer started", "server", m.client.BaseURL())
	return cmd
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.logger.Debug("Update UI", "tea.Msg", fmt.Sprintf("%T", msg), "currentScreen", m.CurrentScreen())

	// Handle global keybindings
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+q", "ctrl+c":
			if m.viewerScreen != nil {
				m.viewerScreen.Cancel()
			}
			return m, tea.Quit
		case "ctrl+l":
			if m.CurrentScreen() != ScreenLogs {
				m.logsScreen = NewLogsScreen(m.debugBuffer, m)
				m.PushScreen(ScreenLogs)
			}
			return m, nil
		case "ctrl+s":
			if m.CurrentScreen() == ScreenViewer {
				var cmd tea.Cmd
				m.settingsScreen, cmd = NewSettingsScreen(m.prefs, m)
				m.PushScreen(ScreenSettings)
				return m, cmd
			}
		}
	}

	// Check if we have a registered handler for this message type
	msgType := reflect.TypeOf(msg)
	if handler, ok := m.msgHandlers[msgType]; ok {
		return handler(msg)
	}

	if screen := m.currentScreen(); screen != nil {
		_, cmd := screen.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) View() string {
	if screen := m.currentScreen(); screen != nil {
		return m.zones.Scan(screen.View())
	}
	return ""
}

func (m *Model) Start() error {
	m.program = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	_, err := m.program.Run()
	m.zones.Close()
	return err
}

func (m *Model) savePreferences() error {
	return savePreferences(m.cfgPath, m.prefs)
}
