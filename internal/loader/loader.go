// Package loader implements the fetch-and-render lifecycle shared by the
// viewer's panes: at most one request in flight per pane, and the most
// recent load always wins.
package loader

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jhalter/messenger-archive-viewer/internal/archive"
)

// FailureMessage is shown for any failure the server did not describe.
const FailureMessage = "request failed"

// State is the coarse load state of a pane.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Failed
)

var stateNames = [...]string{
	Idle:    "idle",
	Loading: "loading",
	Loaded:  "loaded",
	Failed:  "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Fetcher retrieves the result of a JSON envelope endpoint.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, result any) error
}

// Renderer presents a successful result. It is the one hook every pane
// must provide.
type Renderer[T any] interface {
	ShowResult(result T) tea.Cmd
}

// LoaderShower is implemented by renderers that present the loading state.
type LoaderShower interface {
	ShowLoader() tea.Cmd
}

// ErrorShower is implemented by renderers that react to a failed load.
type ErrorShower interface {
	ShowError(message string) tea.Cmd
}

// Completed carries the outcome of one load attempt back to the panel that
// issued it.
type Completed[T any] struct {
	panel  *Panel[T]
	gen    uint64
	path   string
	result T
	err    error
}

// Panel owns the load state and the in-flight request of one pane.
type Panel[T any] struct {
	name     string
	fetcher  Fetcher
	renderer Renderer[T]
	logger   *slog.Logger

	state   State
	errText string
	path    string
	gen     uint64
	cancel  context.CancelFunc
	started time.Time
}

// New returns an idle panel. Nothing is fetched until LoadPath is called.
func New[T any](name string, fetcher Fetcher, renderer Renderer[T], logger *slog.Logger) *Panel[T] {
	return &Panel[T]{
		name:     name,
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logger,
	}
}

func (p *Panel[T]) State() State {
	return p.state
}

// Err returns the message presented for the last failed load.
func (p *Panel[T]) Err() string {
	return p.errText
}

// Path returns the path of the most recent load.
func (p *Panel[T]) Path() string {
	return p.path
}

// Generation identifies the most recent load attempt.
func (p *Panel[T]) Generation() uint64 {
	return p.gen
}

// InFlight reports whether a request is outstanding.
func (p *Panel[T]) InFlight() bool {
	return p.cancel != nil
}

// LoadPath cancels any outstanding request and starts loading path. The
// panel enters Loading, and the loading presentation runs, before this
// returns. The returned command performs the fetch.
func (p *Panel[T]) LoadPath(path string) tea.Cmd {
	p.abort()

	p.gen++
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.path = path
	p.started = time.Now()

	requestID := uuid.NewString()
	ctx = archive.WithRequestID(ctx, requestID)
	p.logger.Debug("Load started", "panel", p.name, "path", path, "gen", p.gen, "requestID", requestID)

	gen, fetcher := p.gen, p.fetcher
	fetch := func() tea.Msg {
		var result T
		err := fetcher.GetJSON(ctx, path, &result)
		return Completed[T]{panel: p, gen: gen, path: path, result: result, err: err}
	}

	return tea.Batch(p.showLoader(), fetch)
}

// Cancel abandons the outstanding request, if any, without changing the
// displayed state.
func (p *Panel[T]) Cancel() {
	if p.cancel == nil {
		return
	}
	p.abort()
	p.gen++
}

func (p *Panel[T]) abort() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.logger.Debug("Load cancelled", "panel", p.name, "path", p.path, "gen", p.gen)
}

// Update consumes completions addressed to this panel. It reports whether
// msg belonged to the panel; completions of superseded loads are consumed
// without effect.
func (p *Panel[T]) Update(msg tea.Msg) (bool, tea.Cmd) {
	done, ok := msg.(Completed[T])
	if !ok || done.panel != p {
		return false, nil
	}
	if done.gen != p.gen || p.cancel == nil {
		p.logger.Debug("Discarding stale response", "panel", p.name, "path", done.path, "gen", done.gen, "current", p.gen)
		return true, nil
	}

	p.cancel()
	p.cancel = nil
	elapsed := time.Since(p.started)

	if done.err != nil {
		message := FailureMessage
		var serverErr *archive.ServerError
		if errors.As(done.err, &serverErr) {
			message = serverErr.Message
		}
		p.logger.Warn("Load failed", "panel", p.name, "path", done.path, "err", done.err, "elapsed", elapsed)
		return true, p.showError(message)
	}

	p.logger.Info("Load complete", "panel", p.name, "path", done.path, "elapsed", elapsed)
	p.state = Loaded
	p.errText = ""
	return true, p.renderer.ShowResult(done.result)
}

func (p *Panel[T]) showLoader() tea.Cmd {
	p.state = Loading
	if s, ok := p.renderer.(LoaderShower); ok {
		return s.ShowLoader()
	}
	return nil
}

func (p *Panel[T]) showError(message string) tea.Cmd {
	p.state = Failed
	p.errText = message
	if s, ok := p.renderer.(ErrorShower); ok {
		return s.ShowError(message)
	}
	return nil
}
