package loader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jhalter/messenger-archive-viewer/internal/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher answers each path with a canned JSON result or error.
type stubFetcher struct {
	mu        sync.Mutex
	results   map[string]string
	errs      map[string]error
	honorCtx  bool
	requested []string
}

func (f *stubFetcher) GetJSON(ctx context.Context, path string, result any) error {
	f.mu.Lock()
	f.requested = append(f.requested, path)
	body, hasBody := f.results[path]
	err := f.errs[path]
	f.mu.Unlock()

	if f.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	if !hasBody {
		return archive.ErrRequestFailed
	}
	return json.Unmarshal([]byte(body), result)
}

// recorder is a renderer that records every presentation call.
type recorder struct {
	calls   []string
	results [][]string
	errors  []string
}

func (r *recorder) ShowResult(result []string) tea.Cmd {
	r.calls = append(r.calls, "result")
	r.results = append(r.results, result)
	return nil
}

func (r *recorder) ShowLoader() tea.Cmd {
	r.calls = append(r.calls, "loader")
	return nil
}

func (r *recorder) ShowError(message string) tea.Cmd {
	r.calls = append(r.calls, "error")
	r.errors = append(r.errors, message)
	return nil
}

// resultOnly implements only the required hook.
type resultOnly struct {
	got []string
}

func (r *resultOnly) ShowResult(result []string) tea.Cmd {
	r.got = result
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// collect runs cmd and returns the messages it produces, flattening batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// deliver feeds every message produced by cmd back into the panel.
func deliver(t *testing.T, p *Panel[[]string], cmd tea.Cmd) {
	t.Helper()
	for _, msg := range collect(cmd) {
		handled, _ := p.Update(msg)
		require.True(t, handled, "unexpected message %T", msg)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestNewPanelIsIdle(t *testing.T) {
	p := New[[]string]("test", &stubFetcher{}, &recorder{}, discardLogger())
	assert.Equal(t, Idle, p.State())
	assert.False(t, p.InFlight())
}

func TestLoadPathShowsLoaderSynchronously(t *testing.T) {
	r := &recorder{}
	p := New[[]string]("test", &stubFetcher{results: map[string]string{"/a": `["x"]`}}, r, discardLogger())

	cmd := p.LoadPath("/a")

	assert.Equal(t, Loading, p.State())
	assert.True(t, p.InFlight())
	assert.Equal(t, []string{"loader"}, r.calls)

	deliver(t, p, cmd)

	assert.Equal(t, Loaded, p.State())
	assert.False(t, p.InFlight())
	assert.Equal(t, []string{"loader", "result"}, r.calls)
	assert.Equal(t, [][]string{{"x"}}, r.results)
}

func TestServerErrorIsShownVerbatim(t *testing.T) {
	r := &recorder{}
	f := &stubFetcher{errs: map[string]error{"/a": &archive.ServerError{Message: "not authenticated"}}}
	p := New[[]string]("test", f, r, discardLogger())

	deliver(t, p, p.LoadPath("/a"))

	assert.Equal(t, Failed, p.State())
	assert.Equal(t, "not authenticated", p.Err())
	assert.Equal(t, []string{"not authenticated"}, r.errors)
	assert.Empty(t, r.results)
}

func TestTransportFailureIsGeneric(t *testing.T) {
	for _, err := range []error{
		errors.New("dial tcp: connection refused"),
		archive.ErrRequestFailed,
		&json.SyntaxError{},
	} {
		r := &recorder{}
		p := New[[]string]("test", &stubFetcher{errs: map[string]error{"/a": err}}, r, discardLogger())

		deliver(t, p, p.LoadPath("/a"))

		assert.Equal(t, Failed, p.State())
		assert.Equal(t, FailureMessage, p.Err())
		assert.Equal(t, []string{FailureMessage}, r.errors)
	}
}

func TestStaleCompletionIsInert(t *testing.T) {
	r := &recorder{}
	f := &stubFetcher{results: map[string]string{"/a": `["stale"]`, "/b": `["fresh"]`}}
	p := New[[]string]("test", f, r, discardLogger())

	first := p.LoadPath("/a")
	second := p.LoadPath("/b")

	// The newer load completes first, then the superseded one arrives.
	deliver(t, p, second)
	deliver(t, p, first)

	assert.Equal(t, Loaded, p.State())
	assert.Equal(t, [][]string{{"fresh"}}, r.results)
	assert.Equal(t, []string{"loader", "loader", "result"}, r.calls)
}

func TestStaleCompletionArrivingFirstIsInert(t *testing.T) {
	r := &recorder{}
	f := &stubFetcher{results: map[string]string{"/a": `["stale"]`, "/b": `["fresh"]`}}
	p := New[[]string]("test", f, r, discardLogger())

	first := p.LoadPath("/a")
	second := p.LoadPath("/b")

	deliver(t, p, first)
	assert.Equal(t, Loading, p.State())
	assert.True(t, p.InFlight())
	assert.Empty(t, r.results)

	deliver(t, p, second)
	assert.Equal(t, [][]string{{"fresh"}}, r.results)
}

func TestStaleFailureIsInert(t *testing.T) {
	r := &recorder{}
	f := &stubFetcher{
		results: map[string]string{"/b": `["fresh"]`},
		errs:    map[string]error{"/a": &archive.ServerError{Message: "boom"}},
	}
	p := New[[]string]("test", f, r, discardLogger())

	first := p.LoadPath("/a")
	second := p.LoadPath("/b")
	deliver(t, p, second)
	deliver(t, p, first)

	assert.Equal(t, Loaded, p.State())
	assert.Empty(t, r.errors)
	assert.Empty(t, p.Err())
}

func TestSupersededRequestContextIsCancelled(t *testing.T) {
	r := &recorder{}
	f := &stubFetcher{honorCtx: true, results: map[string]string{"/a": `["a"]`, "/b": `["b"]`}}
	p := New[[]string]("test", f, r, discardLogger())

	first := p.LoadPath("/a")
	_ = p.LoadPath("/b")

	msgs := collect(first)
	require.Len(t, msgs, 1)
	done := msgs[0].(Completed[[]string])
	assert.ErrorIs(t, done.err, context.Canceled)

	handled, cmd := p.Update(done)
	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.Equal(t, Loading, p.State())
	assert.Empty(t, r.errors)
}

func TestOnlyLatestOfManyLoadsRenders(t *testing.T) {
	results := map[string]string{}
	paths := []string{"/1", "/2", "/3", "/4", "/5"}
	for _, path := range paths {
		results[path] = `["` + path + `"]`
	}
	r := &recorder{}
	p := New[[]string]("test", &stubFetcher{results: results}, r, discardLogger())

	var cmds []tea.Cmd
	for _, path := range paths {
		cmds = append(cmds, p.LoadPath(path))
	}
	for i := len(cmds) - 1; i >= 0; i-- {
		deliver(t, p, cmds[i])
	}

	assert.Equal(t, [][]string{{"/5"}}, r.results)
}

func TestFailedPanelRecovers(t *testing.T) {
	r := &recorder{}
	f := &stubFetcher{
		results: map[string]string{"/ok": `["x"]`},
		errs:    map[string]error{"/bad": errors.New("boom")},
	}
	p := New[[]string]("test", f, r, discardLogger())

	deliver(t, p, p.LoadPath("/bad"))
	require.Equal(t, Failed, p.State())

	deliver(t, p, p.LoadPath("/ok"))
	assert.Equal(t, Loaded, p.State())
	assert.Empty(t, p.Err())
}

func TestCancelMakesCompletionInert(t *testing.T) {
	r := &recorder{}
	p := New[[]string]("test", &stubFetcher{results: map[string]string{"/a": `["x"]`}}, r, discardLogger())

	cmd := p.LoadPath("/a")
	p.Cancel()
	assert.False(t, p.InFlight())

	deliver(t, p, cmd)
	assert.Empty(t, r.results)
	assert.Equal(t, Loading, p.State())
}

func TestCompletionsForOtherPanelsAreIgnored(t *testing.T) {
	f := &stubFetcher{results: map[string]string{"/a": `["x"]`}}
	one := New[[]string]("one", f, &recorder{}, discardLogger())
	two := New[[]string]("two", f, &recorder{}, discardLogger())

	msgs := collect(one.LoadPath("/a"))
	require.Len(t, msgs, 1)

	handled, _ := two.Update(msgs[0])
	assert.False(t, handled)

	handled, _ = two.Update("not a completion")
	assert.False(t, handled)
}

func TestRendererWithoutOptionalHooks(t *testing.T) {
	r := &resultOnly{}
	f := &stubFetcher{
		results: map[string]string{"/a": `["x"]`},
		errs:    map[string]error{"/b": errors.New("boom")},
	}
	p := New[[]string]("test", f, r, discardLogger())

	deliver(t, p, p.LoadPath("/a"))
	assert.Equal(t, []string{"x"}, r.got)

	deliver(t, p, p.LoadPath("/b"))
	assert.Equal(t, Failed, p.State())
	assert.Equal(t, FailureMessage, p.Err())
}
