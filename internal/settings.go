package internal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServer          = "http://localhost:8080"
	DefaultThreadListWidth = 32

	minThreadListWidth = 16
	maxThreadListWidth = 80
)

type Settings struct {
	Server           string `yaml:"Server"`
	ThreadListWidth  int    `yaml:"ThreadListWidth"`
	ProbeAttachments bool   `yaml:"ProbeAttachments"`
	RequestTimeout   int    `yaml:"RequestTimeout"` // seconds, 0 disables
}

func DefaultSettings() *Settings {
	return &Settings{
		Server:           DefaultServer,
		ThreadListWidth:  DefaultThreadListWidth,
		ProbeAttachments: true,
	}
}

// Timeout returns the per-request timeout of the archive client.
func (s *Settings) Timeout() time.Duration {
	if s.RequestTimeout <= 0 {
		return 0
	}
	return time.Duration(s.RequestTimeout) * time.Second
}

// ListWidth returns the thread list width clamped to a usable range.
func (s *Settings) ListWidth() int {
	switch {
	case s.ThreadListWidth == 0:
		return DefaultThreadListWidth
	case s.ThreadListWidth < minThreadListWidth:
		return minThreadListWidth
	case s.ThreadListWidth > maxThreadListWidth:
		return maxThreadListWidth
	}
	return s.ThreadListWidth
}

// validateServer accepts absolute http and https base URLs.
func validateServer(server string) error {
	u, err := url.Parse(server)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("server URL must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("server URL has no host")
	}
	return nil
}

// readConfig loads settings from cfgPath over the defaults. A missing file
// is not an error.
func readConfig(cfgPath string) (*Settings, error) {
	prefs := DefaultSettings()

	fh, err := os.Open(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = fh.Close()
	}()

	decoder := yaml.NewDecoder(fh)
	if err := decoder.Decode(prefs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", cfgPath, err)
	}
	if err := validateServer(prefs.Server); err != nil {
		return nil, fmt.Errorf("%s: %w", cfgPath, err)
	}
	return prefs, nil
}

func savePreferences(cfgPath string, prefs *Settings) error {
	out, err := yaml.Marshal(prefs)
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, out, 0666)
}
