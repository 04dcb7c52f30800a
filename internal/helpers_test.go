package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jhalter/messenger-archive-viewer/internal/archive"
)

var errNoRoute = errors.New("no such route")

// fakeArchive serves canned results keyed by request path.
type fakeArchive struct {
	mu      sync.Mutex
	results map[string]string
	errs    map[string]error
	probes  map[string]archive.ProbeResult
	calls   []string
	probed  []string
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{
		results: map[string]string{},
		errs:    map[string]error{},
		probes:  map[string]archive.ProbeResult{},
	}
}

func (f *fakeArchive) GetJSON(ctx context.Context, path string, result any) error {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	body, ok := f.results[path]
	err := f.errs[path]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if !ok {
		return errNoRoute
	}
	return json.Unmarshal([]byte(body), result)
}

func (f *fakeArchive) Probe(ctx context.Context, rawURL string) (archive.ProbeResult, error) {
	f.mu.Lock()
	f.probed = append(f.probed, rawURL)
	result, ok := f.probes[rawURL]
	f.mu.Unlock()

	if !ok {
		return archive.ProbeResult{}, errNoRoute
	}
	return result, nil
}

func (f *fakeArchive) BaseURL() string {
	return "http://archive.test"
}

func (f *fakeArchive) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// collect runs cmd and returns the messages it produces, flattening batches.
// Spinner ticks are dropped so tests never wait on animation timers.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil, spinner.TickMsg:
		return nil
	case tea.BatchMsg:
		var msgs []tea.Msg
		for _, c := range msg {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	default:
		return []tea.Msg{msg}
	}
}

// drain feeds the messages produced by cmd to update until no further
// commands are produced.
func drain(t *testing.T, update func(tea.Msg) tea.Cmd, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 1000 {
			t.Fatal("commands did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		for _, msg := range collect(next) {
			queue = append(queue, update(msg))
		}
	}
}

// newTestModel returns an initialised model sized 120x40, with its initial
// commands already drained.
func newTestModel(t *testing.T, client archiveClient) *Model {
	t.Helper()
	m := newModel(filepath.Join(t.TempDir(), "viewer.yaml"), DefaultSettings(), client, discardLogger(), &DebugBuffer{})
	t.Cleanup(m.zones.Close)

	cmd := m.Init()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	drain(t, m.send, cmd)
	return m
}

// send is Update without the model return, for drain.
func (m *Model) send(msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "ctrl+q":
		return tea.KeyMsg{Type: tea.KeyCtrlQ}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
