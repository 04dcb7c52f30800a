package internal

import (
	"reflect"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jhalter/messenger-archive-viewer/internal/archive"
)

type msgHandler = func(msg tea.Msg) (tea.Model, tea.Cmd)

// registerHandler registers a message handler for the given message type.
// The msgType parameter should be a zero-value instance of the message type.
func (m *Model) registerHandler(msgType tea.Msg, handler msgHandler) {
	t := reflect.TypeOf(msgType)
	m.msgHandlers[t] = handler
}

func (m *Model) handleWindowResize(msg tea.Msg) (tea.Model, tea.Cmd) {
	windowMsg := msg.(tea.WindowSizeMsg)
	m.width = windowMsg.Width
	m.height = windowMsg.Height
	m.resizeAllScreens(windowMsg.Width, windowMsg.Height)
	return m, nil
}

func (m *Model) resizeAllScreens(w, h int) {
	if m.viewerScreen != nil {
		m.viewerScreen.SetSize(w, h)
	}
	if m.settingsScreen != nil {
		m.settingsScreen.SetSize(w, h)
	}
	if m.logsScreen != nil {
		m.logsScreen.SetSize(w, h)
	}
}

// handleViewerMsg delivers load completions, probe results and spinner ticks
// to the viewer whichever screen is on top.
func (m *Model) handleViewerMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.viewerScreen == nil {
		return m, nil
	}
	_, cmd := m.viewerScreen.Update(msg)
	return m, cmd
}

func (m *Model) handleSettingsSavedMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	settingsMsg := msg.(SettingsSavedMsg)

	serverChanged := settingsMsg.Server != m.prefs.Server
	probeChanged := settingsMsg.ProbeAttachments != m.prefs.ProbeAttachments

	// Update preferences
	m.prefs.Server = settingsMsg.Server
	m.prefs.ThreadListWidth = settingsMsg.ThreadListWidth
	m.prefs.ProbeAttachments = settingsMsg.ProbeAttachments

	// Save to file
	if err := m.savePreferences(); err != nil {
		m.logger.Error("Failed to save preferences", "err", err)
	}

	m.PopScreen()

	if !serverChanged && !probeChanged {
		m.viewerScreen.SetSize(m.width, m.height)
		return m, nil
	}

	// Start over against the new server. Completions addressed to the old
	// panes are ignored by the new ones.
	if serverChanged {
		m.client = archive.NewClient(m.prefs.Server, m.prefs.Timeout())
	}
	m.viewerScreen.Cancel()

	var cmd tea.Cmd
	m.viewerScreen, cmd = NewViewerScreen(m)
	m.logger.Info("Viewer restarted", "server", m.client.BaseURL())
	return m, cmd
}

func (m *Model) handleSettingsCancelledMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.PopScreen()
	return m, nil
}

func (m *Model) handleLogsCancelledMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.PopScreen()
	return m, nil
}
