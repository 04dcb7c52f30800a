// Package server serves a chat archive over the JSON envelope endpoints
// consumed by the viewer.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrUnknownThread is returned for a thread with no messages in the archive.
var ErrUnknownThread = errors.New("unknown thread")

// Archive is the on-disk archive layout. Records are kept as raw JSON and
// passed through untouched.
//
// Thread is the message list served for any thread without an entry in
// Messages.
type Archive struct {
	Threads  []json.RawMessage            `json:"threads"`
	Thread   []json.RawMessage            `json:"thread"`
	Messages map[string][]json.RawMessage `json:"messages"`
}

// LoadArchive reads and parses the archive file at path.
func LoadArchive(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseArchive(data)
}

// ParseArchive parses an archive document.
func ParseArchive(data []byte) (*Archive, error) {
	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}
	if a.Threads == nil {
		a.Threads = []json.RawMessage{}
	}
	return &a, nil
}

// ThreadList returns every thread in archive order.
func (a *Archive) ThreadList() []json.RawMessage {
	return a.Threads
}

// MessagesFor returns the messages of thread id.
func (a *Archive) MessagesFor(id string) ([]json.RawMessage, error) {
	if msgs, ok := a.Messages[id]; ok {
		if msgs == nil {
			msgs = []json.RawMessage{}
		}
		return msgs, nil
	}
	if a.Thread != nil {
		return a.Thread, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownThread, id)
}
