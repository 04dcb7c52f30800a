package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/jhalter/messenger-archive-viewer/internal"
	"github.com/muesli/termenv"
)

// Values swapped in by go-releaser at build time
var (
	version = "dev"
)

var logLevels = map[string]log.Level{
	"debug": log.DebugLevel,
	"info":  log.InfoLevel,
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "Path to config file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info)")
	server := flag.String("server", "", "Archive server base URL (overrides the config file)")

	flag.Parse()

	level, ok := logLevels[*logLevel]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown log level: %s\n\n", *logLevel)
		flag.Usage()
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a buffer shown on the logs screen.
	db := &internal.DebugBuffer{}

	logHandler := log.New(db)

	// Force color output for logger.
	// By default, the charm logger package disables color for non-TTY.
	logHandler.SetColorProfile(termenv.TrueColor)
	logHandler.SetLevel(level)
	logHandler.SetReportTimestamp(true)

	logger := slog.New(logHandler)
	logger.Info("Started archive viewer", "Version", version, "config", *configPath)

	model, err := internal.NewModel(*configPath, *server, logger, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := model.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() (cfgPath string) {
	const name = "messenger-archive-viewer.yaml"

	switch runtime.GOOS {
	case "windows":
		cfgPath = name
	case "darwin":
		if _, err := os.Stat("/usr/local/etc/" + name); err == nil {
			cfgPath = "/usr/local/etc/" + name
		} else if _, err := os.Stat("/opt/homebrew/etc/" + name); err == nil {
			cfgPath = "/opt/homebrew/etc/" + name
		} else {
			cfgPath = name
		}
	default:
		if dir, err := os.UserConfigDir(); err == nil {
			cfgPath = dir + "/" + name
		} else {
			cfgPath = "/usr/local/etc/" + name
		}
	}

	return cfgPath
}
