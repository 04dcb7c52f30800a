package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jhalter/messenger-archive-viewer/internal/server"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const (
	defaultPort    = 8080
	defaultArchive = "archive.json"
	shutdownGrace  = 5 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load(".env")

	var (
		port     int
		archive  string
		latency  time.Duration
		watch    bool
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "archive-server",
		Short:         "Serve a chat archive to the archive viewer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q", logLevel)
			}
			handler := log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				Level:           level,
				Prefix:          "archive-server",
			})
			logger := slog.New(handler)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, logger, port, server.Config{ArchivePath: archive, Latency: latency}, watch)
		},
	}

	cmd.Flags().IntVar(&port, "port", envInt("ARCHIVE_PORT", defaultPort), "port to listen on")
	cmd.Flags().StringVar(&archive, "archive", envString("ARCHIVE_FILE", defaultArchive), "archive JSON file to serve")
	cmd.Flags().DurationVar(&latency, "latency", 0, "artificial latency added to every response")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the archive file when it changes")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, logger *slog.Logger, port int, cfg server.Config, watch bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.New(cfg, logger, reg)
	if err != nil {
		return err
	}

	if watch {
		go func() {
			if err := srv.Watch(ctx); err != nil {
				logger.Error("Archive watcher stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving archive", "addr", httpSrv.Addr, "archive", cfg.ArchivePath, "latency", cfg.Latency, "watch", watch)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
