// Package status tracks the human-readable agent state shown by the
// host (status bar text, MCP get_status).
package status

import (
	"log/slog"
	"os"
	"sync"
)

// Status is the text shown to the user.
type Status string

const (
	Active   Status = "Active"
	Tracking Status = "Tracking…"
	Synced   Status = "Synced"
	Offline  Status = "Offline"
	Paused   Status = "Paused"
)

// Sink receives status transitions.
type Sink interface {
	SetStatus(Status)
}

// Tracker is the default Sink. It remembers the current status, logs
// transitions and optionally mirrors the text into a file.
type Tracker struct {
	mu      sync.RWMutex
	current Status
	path    string
	logger  *slog.Logger
}

// NewTracker creates a Tracker starting in the Active state. When path
// is non-empty every transition overwrites the file with the status
// text.
func NewTracker(path string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{current: Active, path: path, logger: logger}
}

// SetStatus records a new status. Repeated values are ignored.
func (t *Tracker) SetStatus(s Status) {
	t.mu.Lock()
	if t.current == s {
		t.mu.Unlock()
		return
	}
	prev := t.current
	t.current = s
	t.mu.Unlock()

	t.logger.Debug("status changed", "from", prev, "to", s)
	if t.path == "" {
		return
	}
	if err := os.WriteFile(t.path, []byte(s+"\n"), 0o644); err != nil {
		t.logger.Warn("failed to write status file", "path", t.path, "error", err)
	}
}

// Current returns the last status set.
func (t *Tracker) Current() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Discard is a Sink that drops every status.
type Discard struct{}

func (Discard) SetStatus(Status) {}
