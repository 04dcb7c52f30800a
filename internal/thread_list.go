package internal

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/jhalter/messenger-archive-viewer/internal/archive"
	"github.com/jhalter/messenger-archive-viewer/internal/loader"
	"github.com/jhalter/messenger-archive-viewer/internal/style"
	zone "github.com/lrstanley/bubblezone"
)

// threadRow is one rendered entry of the thread list.
type threadRow struct {
	thread  archive.Thread
	title   string
	icon    string
	current bool
}

func newThreadRow(th archive.Thread) threadRow {
	return threadRow{
		thread: th,
		title:  archive.ThreadTitle(th),
		icon:   archive.ThreadIcon(th),
	}
}

// renderThreadRow draws a row into width cells.
func renderThreadRow(row threadRow, width int, cursor bool) string {
	marker := "  "
	if cursor {
		marker = style.CursorMarkerStyle.Render("› ")
	}
	avatar := style.Avatar(row.title, row.icon, row.icon == archive.DefaultIcon)

	// marker, avatar, space and the row padding
	titleWidth := max(width-2-3-1-1, 1)
	title := ansi.Truncate(row.title, titleWidth, "…")

	rowStyle := style.ThreadRowStyle
	if row.current {
		rowStyle = style.CurrentThreadRowStyle
	}
	return marker + avatar + rowStyle.Width(titleWidth+1).Render(title)
}

// ThreadList loads the thread collection and lets the user select one.
type ThreadList struct {
	panel   *loader.Panel[[]archive.Thread]
	spinner spinner.Model
	zones   *zone.Manager
	zoneID  string

	// OnSelectThread is invoked with the selected thread, including the
	// automatic selection of the first thread after a load.
	OnSelectThread func(archive.Thread) tea.Cmd

	rows   []threadRow
	cursor int
	offset int

	width, height int
}

// NewThreadList returns the list and the command issuing its initial load.
func NewThreadList(fetcher loader.Fetcher, logger *slog.Logger, zones *zone.Manager) (*ThreadList, tea.Cmd) {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD"))

	t := &ThreadList{
		spinner:        s,
		zones:          zones,
		OnSelectThread: func(archive.Thread) tea.Cmd { return nil },
	}
	if zones != nil {
		t.zoneID = zones.NewPrefix()
	}
	t.panel = loader.New[[]archive.Thread]("threads", fetcher, t, logger)

	return t, t.Reload()
}

// Reload fetches the thread collection again.
func (t *ThreadList) Reload() tea.Cmd {
	return t.panel.LoadPath(archive.ThreadsPath)
}

func (t *ThreadList) State() loader.State {
	return t.panel.State()
}

// Cancel abandons any in-flight load.
func (t *ThreadList) Cancel() {
	t.panel.Cancel()
}

func (t *ThreadList) ShowLoader() tea.Cmd {
	return t.spinner.Tick
}

// ShowResult replaces the rows and selects the first thread.
func (t *ThreadList) ShowResult(threads []archive.Thread) tea.Cmd {
	t.rows = make([]threadRow, 0, len(threads))
	for _, th := range threads {
		t.rows = append(t.rows, newThreadRow(th))
	}
	t.cursor = 0
	t.offset = 0

	if len(t.rows) == 0 {
		return nil
	}
	return t.Select(0)
}

// Select makes row i the current thread and notifies the listener.
func (t *ThreadList) Select(i int) tea.Cmd {
	if i < 0 || i >= len(t.rows) {
		return nil
	}

	cmd := t.OnSelectThread(t.rows[i].thread)
	for j := range t.rows {
		t.rows[j].current = false
	}
	t.rows[i].current = true

	t.cursor = i
	t.scrollToCursor()
	return cmd
}

// Current returns the index of the current row, or -1.
func (t *ThreadList) Current() int {
	for i, row := range t.rows {
		if row.current {
			return i
		}
	}
	return -1
}

func (t *ThreadList) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loader.Completed[[]archive.Thread]:
		_, cmd := t.panel.Update(msg)
		return cmd

	case spinner.TickMsg:
		if t.panel.State() != loader.Loading {
			return nil
		}
		var cmd tea.Cmd
		t.spinner, cmd = t.spinner.Update(msg)
		return cmd
	}
	return nil
}

func (t *ThreadList) HandleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		t.moveCursor(-1)
	case "down", "j":
		t.moveCursor(1)
	case "pgup":
		t.moveCursor(-t.listHeight())
	case "pgdown":
		t.moveCursor(t.listHeight())
	case "home", "g":
		t.moveCursor(-len(t.rows))
	case "end", "G":
		t.moveCursor(len(t.rows))
	case "enter", " ":
		return t.Select(t.cursor)
	case "r":
		return t.Reload()
	}
	return nil
}

// HandleMouse selects the clicked row and scrolls on wheel events.
func (t *ThreadList) HandleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		t.moveCursor(-1)
		return nil
	case tea.MouseButtonWheelDown:
		t.moveCursor(1)
		return nil
	}

	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft || t.zones == nil {
		return nil
	}
	for i := t.offset; i < len(t.rows) && i < t.offset+t.listHeight(); i++ {
		if z := t.zones.Get(t.rowZone(i)); z != nil && z.InBounds(msg) {
			return t.Select(i)
		}
	}
	return nil
}

func (t *ThreadList) moveCursor(delta int) {
	if len(t.rows) == 0 {
		return
	}
	t.cursor = min(max(t.cursor+delta, 0), len(t.rows)-1)
	t.scrollToCursor()
}

func (t *ThreadList) scrollToCursor() {
	h := t.listHeight()
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+h {
		t.offset = t.cursor - h + 1
	}
	t.offset = max(t.offset, 0)
}

// listHeight is the number of rows that fit under the header.
func (t *ThreadList) listHeight() int {
	return max(t.height-2, 1)
}

func (t *ThreadList) rowZone(i int) string {
	return t.zoneID + "thread-" + strconv.Itoa(i)
}

func (t *ThreadList) mark(id, v string) string {
	if t.zones == nil {
		return v
	}
	return t.zones.Mark(id, v)
}

func (t *ThreadList) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.scrollToCursor()
}

// View renders the header, the error slot and the visible rows.
func (t *ThreadList) View(focused bool) string {
	header := style.PaneTitleStyle.Render("Threads")
	switch t.panel.State() {
	case loader.Loading:
		header += " " + t.spinner.View()
	case loader.Loaded:
		header += style.PaneCountStyle.Render(fmt.Sprintf(" %d", len(t.rows)))
	}

	lines := []string{header, ""}
	if t.panel.State() == loader.Failed {
		lines[1] = style.ErrorStyle.Render(ansi.Truncate(" "+t.panel.Err(), t.width, "…"))
	}

	end := min(t.offset+t.listHeight(), len(t.rows))
	for i := t.offset; i < end; i++ {
		row := renderThreadRow(t.rows[i], t.width, focused && i == t.cursor)
		lines = append(lines, t.mark(t.rowZone(i), row))
	}

	return lipgloss.NewStyle().
		Width(t.width).
		Height(t.height).
		MaxHeight(t.height).
		Render(strings.Join(lines, "\n"))
}
