// Package syncengine periodically moves recorded activity into the
// local store and uploads the local aggregates to the telemetry
// service, deleting rows only once the service acknowledges them.
package syncengine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/codepulse/internal/clock"
	"github.com/rpggio/codepulse/internal/domain/activity"
	"github.com/rpggio/codepulse/internal/domain/commit"
	"github.com/rpggio/codepulse/internal/domain/summary"
	"github.com/rpggio/codepulse/internal/remote"
	"github.com/rpggio/codepulse/internal/repository"
	"github.com/rpggio/codepulse/internal/status"
)

// Defaults for Config.
const (
	DefaultInterval          = 60 * time.Second
	DefaultDailyLimit        = 30
	DefaultFileActivityLimit = 50
	DefaultCommitLimit       = 20
)

// Config controls cycle timing and batch sizes.
type Config struct {
	Interval          time.Duration
	DailyLimit        int
	FileActivityLimit int
	CommitLimit       int
	// Location is the calendar used for completed days and retention.
	Location *time.Location
}

// Recorder is the source of pending activity.
type Recorder interface {
	Drain() []activity.Log
	Paused() bool
}

// RemoteService uploads batches and reports acknowledgement.
type RemoteService interface {
	SyncFileActivities(ctx context.Context, activities []summary.FileActivity) remote.Result
	SyncDailyStats(ctx context.Context, days []summary.Daily) remote.Result
	SyncCommits(ctx context.Context, commits []commit.Commit) remote.Result
}

// Store groups the local repositories the engine reads and prunes.
type Store struct {
	Activities repository.ActivityRepository
	Summaries  repository.SummaryRepository
	Commits    repository.CommitRepository
}

// State is whether a cycle is in progress.
type State string

const (
	Idle    State = "idle"
	Running State = "running"
)

// Report describes the most recent cycle.
type Report struct {
	StartedAt      time.Time `json:"started_at"`
	Flushed        int       `json:"flushed"`
	FlushFailures  int       `json:"flush_failures"`
	DailySent      int       `json:"daily_sent"`
	FilesSent      int       `json:"files_sent"`
	CommitsSent    int       `json:"commits_sent"`
	RetentionFloor string    `json:"retention_floor,omitempty"`
	RowsPruned     int64     `json:"rows_pruned"`
	Unacknowledged []string  `json:"unacknowledged,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Engine runs sync cycles. Cycles never overlap: the next one is armed
// only after the previous one has finished.
type Engine struct {
	cfg      Config
	recorder Recorder
	store    Store
	remote   RemoteService
	sink     status.Sink
	clock    clock.Clock
	logger   *slog.Logger

	// cycleMu is held for the whole of a cycle.
	cycleMu sync.Mutex

	mu      sync.Mutex
	state   State
	last    Report
	started bool
	stopped bool
	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// New creates an Engine. Zero Config fields take the defaults.
func New(cfg Config, recorder Recorder, store Store, remoteService RemoteService, sink status.Sink, clk clock.Clock, logger *slog.Logger) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultDailyLimit
	}
	if cfg.FileActivityLimit <= 0 {
		cfg.FileActivityLimit = DefaultFileActivityLimit
	}
	if cfg.CommitLimit <= 0 {
		cfg.CommitLimit = DefaultCommitLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
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
	return &Engine{
		cfg:      cfg,
		recorder: recorder,
		store:    store,
		remote:   remoteService,
		sink:     sink,
		clock:    clk,
		logger:   logger,
		state:    Idle,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the cycle loop. The first cycle runs one interval
// after Start, or earlier if SyncNow is called.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	go e.loop(ctx)
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)
	for {
		timer := e.clock.NewTimer(e.cfg.Interval)
		select {
		case <-e.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-e.kick:
			timer.Stop()
		case <-timer.C():
		}

		if err := e.RunCycle(ctx); err != nil {
			e.logger.Error("sync cycle aborted", "error", err)
		}
	}
}

// SyncNow asks the loop to run a cycle without waiting for the timer.
// A request made while a cycle is running starts another cycle after
// it completes.
func (e *Engine) SyncNow() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Stop prevents further cycles and skips the remaining phases of a
// cycle already in progress. It does not wait; see Wait.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	close(e.stop)
	if !e.started {
		close(e.done)
	}
}

// Wait blocks until the loop has exited after Stop.
func (e *Engine) Wait() {
	<-e.done
}

func (e *Engine) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// State reports whether a cycle is running.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastReport returns the report of the most recent cycle.
func (e *Engine) LastReport() Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	report := e.last
	report.Unacknowledged = append([]string(nil), e.last.Unacknowledged...)
	return report
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// RunCycle runs the four phases in order: queue flush, daily stats,
// file activity, commits. A batch the service does not acknowledge is
// kept for the next cycle and does not stop later phases; an error
// aborts the remaining phases and is returned.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	e.setState(Running)
	defer e.setState(Idle)

	report := Report{StartedAt: e.clock.Now()}
	err := e.runPhases(ctx, &report)
	if err != nil {
		report.Error = err.Error()
	}

	e.mu.Lock()
	e.last = report
	e.mu.Unlock()

	if e.isStopped() || e.recorder.Paused() {
		return err
	}
	switch {
	case len(report.Unacknowledged) > 0:
		e.sink.SetStatus(status.Offline)
	case err == nil:
		e.sink.SetStatus(status.Synced)
	}
	return err
}

// Flush writes pending activity to the local store without contacting
// the service. It is used on shutdown, after Wait.
func (e *Engine) Flush(ctx context.Context) (int, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	var report Report
	_, err := e.flushQueue(ctx, &report)
	return report.Flushed, err
}

func (e *Engine) runPhases(ctx context.Context, report *Report) error {
	phases := []struct {
		name string
		run  func(context.Context, *Report) (bool, error)
	}{
		{"flush", e.flushQueue},
		{"daily", e.syncDailyStats},
		{"files", e.syncFileActivities},
		{"commits", e.syncCommits},
	}

	for _, phase := range phases {
		if e.isStopped() {
			e.logger.Debug("engine stopped, skipping remaining phases", "phase", phase.name)
			return nil
		}
		acked, err := phase.run(ctx, report)
		if err != nil {
			return fmt.Errorf("%s phase: %w", phase.name, err)
		}
		if !acked {
			report.Unacknowledged = append(report.Unacknowledged, phase.name)
		}
	}
	return nil
}

// flushQueue moves pending activity into the store one row at a time
// and folds new rows into file-activity aggregates.
func (e *Engine) flushQueue(ctx context.Context, report *Report) (bool, error) {
	for _, entry := range e.recorder.Drain() {
		if err := e.store.Activities.Insert(ctx, &entry); err != nil {
			report.FlushFailures++
			e.logger.Warn("failed to store activity", "file", entry.FilePath, "error", err)
			continue
		}
		report.Flushed++
	}

	created, err := e.store.Summaries.Rollup(ctx, e.clock.Now())
	if err != nil {
		return false, err
	}
	if report.Flushed > 0 || created > 0 {
		e.logger.Debug("queue flushed", "rows", report.Flushed, "failed", report.FlushFailures, "summaries", created)
	}
	return true, nil
}

// syncDailyStats uploads completed days and, once acknowledged, prunes
// raw rows older than the retention floor.
func (e *Engine) syncDailyStats(ctx context.Context, report *Report) (bool, error) {
	days, err := e.store.Summaries.DailySummaries(ctx, e.cfg.DailyLimit)
	if err != nil {
		return false, err
	}
	now := e.clock.Now()
	completed := summary.CompletedDays(days, now, e.cfg.Location)
	if len(completed) == 0 {
		return true, nil
	}

	if result := e.remote.SyncDailyStats(ctx, completed); !result.Success {
		return false, nil
	}
	report.DailySent = len(completed)

	floor := summary.RetentionFloor(now, e.cfg.Location)
	pruned, err := e.store.Activities.DeleteBefore(ctx, floor)
	if err != nil {
		return true, err
	}
	report.RetentionFloor = floor
	report.RowsPruned = pruned
	return true, nil
}

// syncFileActivities uploads pending aggregates and deletes exactly the
// acknowledged ones.
func (e *Engine) syncFileActivities(ctx context.Context, report *Report) (bool, error) {
	pending, err := e.store.Summaries.PendingFileActivities(ctx, e.cfg.FileActivityLimit)
	if err != nil {
		return false, err
	}
	if len(pending) == 0 {
		return true, nil
	}

	if result := e.remote.SyncFileActivities(ctx, pending); !result.Success {
		return false, nil
	}

	ids := make([]int64, len(pending))
	for i, a := range pending {
		ids[i] = a.ID
	}
	if err := e.store.Summaries.DeleteFileActivities(ctx, ids); err != nil {
		return true, err
	}
	report.FilesSent = len(pending)
	return true, nil
}

// syncCommits uploads stored commits and deletes the acknowledged ones.
func (e *Engine) syncCommits(ctx context.Context, report *Report) (bool, error) {
	commits, err := e.store.Commits.ListUnsynced(ctx, e.cfg.CommitLimit)
	if err != nil {
		return false, err
	}
	if len(commits) == 0 {
		return true, nil
	}

	if result := e.remote.SyncCommits(ctx, commits); !result.Success {
		return false, nil
	}

	ids := make([]string, len(commits))
	for i, c := range commits {
		ids[i] = c.ID
	}
	if err := e.store.Commits.Delete(ctx, ids); err != nil {
		return true, err
	}
	report.CommitsSent = len(commits)
	return true, nil
}
