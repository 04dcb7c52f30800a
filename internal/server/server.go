package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// ThreadParam names the query parameter selecting a thread.
	ThreadParam = "thread"

	reloadDebounce = 100 * time.Millisecond
)

type Config struct {
	ArchivePath string
	// Latency is added to every archive response.
	Latency time.Duration
}

// Server serves one archive file.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics

	mu      sync.RWMutex
	archive *Archive
}

// New loads the archive at cfg.ArchivePath and registers the server metrics
// with reg.
func New(cfg Config, logger *slog.Logger, reg *prometheus.Registry) (*Server, error) {
	a, err := LoadArchive(cfg.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("load archive: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		reg:     reg,
		metrics: newMetrics(reg),
		archive: a,
	}
	s.metrics.threads.Set(float64(len(a.Threads)))
	return s, nil
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/threads", s.instrument("threads", s.handleThreads)).Methods(http.MethodGet)
	r.HandleFunc("/thread", s.instrument("thread", s.handleThread)).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

func (s *Server) current() *Archive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.archive
}

// Reload re-reads the archive file. On failure the previous archive is kept.
func (s *Server) Reload() error {
	a, err := LoadArchive(s.cfg.ArchivePath)
	if err != nil {
		s.metrics.reloads.WithLabelValues(outcomeError).Inc()
		s.logger.Error("Archive reload failed, keeping previous archive", "path", s.cfg.ArchivePath, "err", err)
		return err
	}

	s.mu.Lock()
	s.archive = a
	s.mu.Unlock()

	s.metrics.reloads.WithLabelValues(outcomeOK).Inc()
	s.metrics.threads.Set(float64(len(a.Threads)))
	s.logger.Info("Archive reloaded", "path", s.cfg.ArchivePath, "threads", len(a.Threads))
	return nil
}

// Watch reloads the archive whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file by rename
// are still seen.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path := filepath.Clean(s.cfg.ArchivePath)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			_ = s.Reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Archive watcher error", "err", err)
		}
	}
}

// archiveHandler writes a response and reports its outcome.
type archiveHandler func(w http.ResponseWriter, r *http.Request) string

func (s *Server) instrument(endpoint string, h archiveHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		outcome := h(w, r)
		s.metrics.requests.WithLabelValues(endpoint, outcome).Inc()
		s.metrics.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		s.logger.Debug("Archive request", "endpoint", endpoint, "outcome", outcome, "query", r.URL.RawQuery)
	}
}

// delay holds the response for the configured latency. It reports false if
// the client went away first.
func (s *Server) delay(ctx context.Context) bool {
	if s.cfg.Latency <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.cfg.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) string {
	if !s.delay(r.Context()) {
		return outcomeCancelled
	}
	writeEnvelope(w, http.StatusOK, s.current().ThreadList(), "")
	return outcomeOK
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) string {
	id := r.URL.Query().Get(ThreadParam)
	if id == "" {
		writeEnvelope(w, http.StatusBadRequest, nil, "missing thread parameter")
		return outcomeError
	}
	if !s.delay(r.Context()) {
		return outcomeCancelled
	}

	msgs, err := s.current().MessagesFor(id)
	if errors.Is(err, ErrUnknownThread) {
		writeEnvelope(w, http.StatusNotFound, nil, err.Error())
		return outcomeError
	}
	writeEnvelope(w, http.StatusOK, msgs, "")
	return outcomeOK
}

// writeEnvelope writes {"result": ...} or, when errMsg is set, {"error": ...}.
func writeEnvelope(w http.ResponseWriter, code int, result any, errMsg string) {
	env := map[string]any{}
	if errMsg != "" {
		env["error"] = errMsg
	} else {
		env["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}
