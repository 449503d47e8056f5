package activity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/codepulse/internal/clock"
	"github.com/rpggio/codepulse/internal/status"
)

const (
	// DefaultDebounce is the minimum spacing between accepted events.
	DefaultDebounce = 2 * time.Second
	// DefaultIdle is the largest gap still counted as continuous work.
	DefaultIdle = 5 * time.Minute
)

// Config controls the recorder thresholds.
type Config struct {
	Debounce   time.Duration
	Idle       time.Duration
	EditorName string
}

// Recorder turns raw interaction events into Logs. It owns the pending
// queue that the sync engine drains into durable storage.
type Recorder struct {
	cfg        Config
	repos      RepositoryResolver
	workspaces WorkspaceResolver
	sink       status.Sink
	clock      clock.Clock
	logger     *slog.Logger

	mu           sync.Mutex
	lastActivity time.Time
	pending      []Log
	paused       bool
}

// NewRecorder creates a Recorder. Zero thresholds fall back to the
// defaults; nil collaborators are tolerated.
func NewRecorder(cfg Config, repos RepositoryResolver, workspaces WorkspaceResolver, sink status.Sink, clk clock.Clock, logger *slog.Logger) *Recorder {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Idle <= 0 {
		cfg.Idle = DefaultIdle
	}
	if sink == nil {
		sink = status.Discard{}
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		cfg:        cfg,
		repos:      repos,
		workspaces: workspaces,
		sink:       sink,
		clock:      clk,
		logger:     logger,
	}
}

// OnInteraction handles one host notification. Events inside the
// debounce window are dropped without touching lastActivity, so a
// burst of rapid events cannot absorb idle time.
func (r *Recorder) OnInteraction(event Event) {
	if event.FilePath == "" {
		return
	}
	now := event.Time
	if now.IsZero() {
		now = r.clock.Now()
	}

	r.mu.Lock()
	if r.paused {
		r.mu.Unlock()
		return
	}
	first := r.lastActivity.IsZero()
	gap := now.Sub(r.lastActivity)
	if !first && gap < r.cfg.Debounce {
		r.mu.Unlock()
		return
	}

	var duration time.Duration
	if !first && gap < r.cfg.Idle {
		duration = gap
	}
	r.lastActivity = now

	entry := Log{
		ProjectPath: r.projectPath(event.FilePath),
		FilePath:    event.FilePath,
		Language:    event.Language,
		Timestamp:   now,
		Duration:    duration,
		EditorName:  r.cfg.EditorName,
	}
	if r.repos != nil {
		if commit, branch, ok := r.repos.StateForPath(event.FilePath); ok {
			if commit != "" {
				entry.CommitHash = &commit
			}
			if branch != "" {
				entry.Branch = &branch
			}
		}
	}
	r.pending = append(r.pending, entry)
	pending := len(r.pending)
	r.mu.Unlock()

	r.logger.Debug("activity recorded", "file", event.FilePath, "kind", event.Kind, "duration", duration, "pending", pending)
	r.sink.SetStatus(status.Tracking)
}

func (r *Recorder) projectPath(filePath string) string {
	if r.repos != nil {
		if root, ok := r.repos.RootForPath(filePath); ok {
			return root
		}
	}
	if r.workspaces != nil {
		if root, ok := r.workspaces.RootFor(filePath); ok {
			return root
		}
	}
	return ""
}

// Drain removes and returns every pending Log in arrival order.
func (r *Recorder) Drain() []Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	drained := r.pending
	r.pending = nil
	return drained
}

// Pending returns the number of queued Logs.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// LastActivity returns the time of the last accepted event, or the
// zero time if none has been accepted.
func (r *Recorder) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

// Pause stops accepting events until Resume is called.
func (r *Recorder) Pause() {
	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
	r.sink.SetStatus(status.Paused)
}

// Resume accepts events again.
func (r *Recorder) Resume() {
	r.mu.Lock()
	r.paused = false
	r.mu.Unlock()
	r.sink.SetStatus(status.Active)
}

// Paused reports whether the recorder is paused.
func (r *Recorder) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}
