package internal

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/jhalter/messenger-archive-viewer/internal/archive"
	"github.com/jhalter/messenger-archive-viewer/internal/loader"
	"github.com/jhalter/messenger-archive-viewer/internal/style"
	"github.com/muesli/reflow/wordwrap"
)

// maxProbes caps the attachment probes issued per render. The log is
// anchored at the bottom, so the newest attachments are probed first.
const maxProbes = 48

// Prober fetches attachment metadata.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (archive.ProbeResult, error)
}

// attachmentProbedMsg reports the outcome of one attachment probe.
type attachmentProbedMsg struct {
	pane   *MessagesPane
	gen    uint64
	msgIdx int
	attIdx int
	result archive.ProbeResult
	err    error
}

type attachmentEntry struct {
	kind  archive.AttachmentKind
	url   string
	label string

	probed   bool
	probeErr bool
	meta     archive.ProbeResult
}

type messageEntry struct {
	sender      archive.Identity
	markup      string
	attachments []attachmentEntry
}

// buildEntries turns messages into log entries, skipping messages with
// neither body nor attachments.
func buildEntries(messages []archive.Message, participants []archive.Participant) []messageEntry {
	entries := make([]messageEntry, 0, len(messages))
	for _, msg := range messages {
		if !msg.Renderable() {
			continue
		}

		entry := messageEntry{
			sender: archive.SenderIdentity(participants, msg.SenderID()),
			markup: archive.FormatBody(msg.Body),
		}
		for _, a := range msg.Attachments {
			kind := a.Kind()
			if kind == archive.AttachmentUnknown {
				continue
			}
			entry.attachments = append(entry.attachments, attachmentEntry{
				kind:  kind,
				url:   a.URL(),
				label: a.Label(),
			})
		}
		entries = append(entries, entry)
	}
	return entries
}

func renderAttachment(a attachmentEntry) string {
	link := ansi.SetHyperlink(a.url) + a.label + ansi.ResetHyperlink()
	line := style.AttachmentStyle.Render("▸ "+a.kind.String()+": ") + link

	switch {
	case a.probeErr:
		line += " " + style.AttachmentMetaStyle.Render("(unavailable)")
	case a.probed:
		var meta []string
		if a.meta.ContentType != "" {
			meta = append(meta, a.meta.ContentType)
		}
		if a.meta.Size >= 0 {
			meta = append(meta, humanize.Bytes(uint64(a.meta.Size)))
		}
		if len(meta) > 0 {
			line += " " + style.AttachmentMetaStyle.Render("("+strings.Join(meta, ", ")+")")
		}
	}
	return line
}

// renderMessageEntry draws one message: sender line, wrapped body, then one
// line per attachment.
func renderMessageEntry(e messageEntry, width int) string {
	nameStyle := style.SenderStyle
	if !e.sender.Known {
		nameStyle = style.UnknownSenderStyle
	}
	lines := []string{
		style.Avatar(e.sender.Name, e.sender.Icon, e.sender.Icon == archive.DefaultIcon) + " " + nameStyle.Render(e.sender.Name),
	}

	indent := lipgloss.NewStyle().PaddingLeft(4)
	bodyWidth := max(width-4, 8)
	if text := archive.MarkupText(e.markup); text != "" {
		lines = append(lines, indent.Render(wordwrap.String(text, bodyWidth)))
	}
	for _, a := range e.attachments {
		lines = append(lines, indent.Render(renderAttachment(a)))
	}
	return strings.Join(lines, "\n")
}

// MessagesPane shows the message log of the selected thread.
type MessagesPane struct {
	panel    *loader.Panel[[]archive.Message]
	prober   Prober
	logger   *slog.Logger
	spinner  spinner.Model
	viewport viewport.Model

	thread  *archive.Thread
	entries []messageEntry

	renderGen   uint64
	probeCancel context.CancelFunc

	width, height int
}

// NewMessagesPane returns an empty pane. prober may be nil to disable
// attachment probing.
func NewMessagesPane(fetcher loader.Fetcher, prober Prober, logger *slog.Logger) *MessagesPane {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD"))

	m := &MessagesPane{
		prober:   prober,
		logger:   logger,
		spinner:  s,
		viewport: viewport.New(0, 0),
	}
	m.panel = loader.New[[]archive.Message]("messages", fetcher, m, logger)
	return m
}

// SetThread records th for sender lookup and loads its messages,
// superseding any load in flight.
func (m *MessagesPane) SetThread(th archive.Thread) tea.Cmd {
	m.thread = &th
	return m.panel.LoadPath(archive.ThreadPath(th.ThreadFBID))
}

// Reload fetches the current thread again.
func (m *MessagesPane) Reload() tea.Cmd {
	if m.thread == nil {
		return nil
	}
	return m.SetThread(*m.thread)
}

func (m *MessagesPane) State() loader.State {
	return m.panel.State()
}

// Cancel abandons the in-flight load and any attachment probes.
func (m *MessagesPane) Cancel() {
	m.panel.Cancel()
	m.stopProbes()
}

// ShowLoader empties the log so nothing of the previous load is shown
// under the new thread's title.
func (m *MessagesPane) ShowLoader() tea.Cmd {
	m.stopProbes()
	m.clearLog()
	return m.spinner.Tick
}

func (m *MessagesPane) ShowError(string) tea.Cmd {
	m.stopProbes()
	m.clearLog()
	return nil
}

func (m *MessagesPane) clearLog() {
	m.entries = nil
	m.refresh()
	m.viewport.GotoTop()
}

// ShowResult replaces the log, scrolls to the bottom and starts probing
// attachments.
func (m *MessagesPane) ShowResult(messages []archive.Message) tea.Cmd {
	m.stopProbes()

	var participants []archive.Participant
	if m.thread != nil {
		participants = m.thread.Participants
	}
	m.entries = buildEntries(messages, participants)
	m.refresh()
	m.viewport.GotoBottom()

	return m.startProbes()
}

func (m *MessagesPane) stopProbes() {
	m.renderGen++
	if m.probeCancel != nil {
		m.probeCancel()
		m.probeCancel = nil
	}
}

func (m *MessagesPane) startProbes() tea.Cmd {
	if m.prober == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	gen, prober := m.renderGen, m.prober

	var cmds []tea.Cmd
	for i := len(m.entries) - 1; i >= 0 && len(cmds) < maxProbes; i-- {
		for j := len(m.entries[i].attachments) - 1; j >= 0 && len(cmds) < maxProbes; j-- {
			rawURL := m.entries[i].attachments[j].url
			if !archive.Probeable(rawURL) {
				continue
			}
			msgIdx, attIdx := i, j
			cmds = append(cmds, func() tea.Msg {
				result, err := prober.Probe(ctx, rawURL)
				return attachmentProbedMsg{pane: m, gen: gen, msgIdx: msgIdx, attIdx: attIdx, result: result, err: err}
			})
		}
	}

	if len(cmds) == 0 {
		cancel()
		return nil
	}
	m.probeCancel = cancel
	m.logger.Debug("Probing attachments", "count", len(cmds), "gen", gen)
	return tea.Batch(cmds...)
}

// HandleProbe applies a probe result and scrolls back to the bottom. Results
// from an earlier render are dropped.
func (m *MessagesPane) HandleProbe(msg attachmentProbedMsg) tea.Cmd {
	if msg.pane != m || msg.gen != m.renderGen {
		return nil
	}
	if msg.msgIdx >= len(m.entries) || msg.attIdx >= len(m.entries[msg.msgIdx].attachments) {
		return nil
	}
	if errors.Is(msg.err, context.Canceled) {
		return nil
	}

	a := &m.entries[msg.msgIdx].attachments[msg.attIdx]
	if msg.err != nil {
		m.logger.Debug("Attachment probe failed", "url", a.url, "err", msg.err)
		a.probeErr = true
	} else {
		a.probed = true
		a.meta = msg.result
	}

	m.refresh()
	m.viewport.GotoBottom()
	return nil
}

func (m *MessagesPane) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loader.Completed[[]archive.Message]:
		_, cmd := m.panel.Update(msg)
		return cmd

	case attachmentProbedMsg:
		return m.HandleProbe(msg)

	case spinner.TickMsg:
		if m.panel.State() != loader.Loading {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *MessagesPane) HandleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		m.viewport.ScrollUp(1)
	case "down", "j":
		m.viewport.ScrollDown(1)
	case "pgup":
		m.viewport.PageUp()
	case "pgdown", " ":
		m.viewport.PageDown()
	case "home", "g":
		m.viewport.GotoTop()
	case "end", "G":
		m.viewport.GotoBottom()
	case "r":
		return m.Reload()
	}
	return nil
}

// refresh re-renders the entries into the viewport at the current width.
func (m *MessagesPane) refresh() {
	rendered := make([]string, len(m.entries))
	for i, e := range m.entries {
		rendered[i] = renderMessageEntry(e, m.viewport.Width)
	}
	m.viewport.SetContent(strings.Join(rendered, "\n\n"))
}

func (m *MessagesPane) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-2, 1)

	atBottom := m.viewport.AtBottom()
	m.refresh()
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *MessagesPane) header() string {
	if m.thread == nil {
		return style.PaneTitleStyle.Render("Messages")
	}

	title := style.PaneTitleStyle.Render(ansi.Truncate(archive.ThreadTitle(*m.thread), max(m.width-16, 4), "…"))
	switch m.panel.State() {
	case loader.Loading:
		title += " " + m.spinner.View()
	case loader.Loaded:
		count := humanize.Comma(int64(len(m.entries))) + " messages"
		if len(m.entries) == 1 {
			count = "1 message"
		}
		title += style.PaneCountStyle.Render(" " + count)
	}
	return title
}

// View renders the header, the error slot and the log. Before a thread is
// selected the pane is blank.
func (m *MessagesPane) View() string {
	lines := []string{m.header(), ""}

	switch {
	case m.panel.State() == loader.Failed:
		lines[1] = style.ErrorStyle.Render(ansi.Truncate(" "+m.panel.Err(), m.width, "…"))
	case m.thread != nil:
		if m.panel.State() == loader.Loaded && len(m.entries) == 0 {
			lines = append(lines, style.EmptyStyle.Render(" No messages"))
		} else {
			lines = append(lines, m.viewport.View())
		}
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height).
		Render(strings.Join(lines, "\n"))
}
