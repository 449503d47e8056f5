// Package correlator maps file paths to the git repository that owns
// them and records every commit those repositories move to.
package correlator

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rpggio/codepulse/internal/domain/commit"
	"github.com/rpggio/codepulse/internal/git"
	"github.com/rpggio/codepulse/internal/repository"
)

// Git is the set of repository queries the correlator needs.
type Git interface {
	Head(ctx context.Context, dir string) (string, error)
	Branch(ctx context.Context, dir string) (string, error)
	Commit(ctx context.Context, dir, hash string) (git.CommitInfo, error)
	DiffStat(ctx context.Context, dir, hash string) (git.DiffStat, error)
}

// RootState is the cached state of one repository root.
type RootState struct {
	Path   string `json:"path"`
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// Correlator tracks every repository root under the workspace.
type Correlator struct {
	git     Git
	commits repository.CommitRepository
	logger  *slog.Logger

	mu      sync.RWMutex
	roots   map[string]*RootState
	ordered []string // longest path first

	// trackMu serializes HEAD detection so that a watch event racing
	// with initialization cannot record the same commit twice.
	trackMu sync.Mutex

	watcher *fsnotify.Watcher
	watched map[string]*watchedDir
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

// New creates a Correlator. It does nothing until Initialize is called.
func New(gitClient Git, commits repository.CommitRepository, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Correlator{
		git:     gitClient,
		commits: commits,
		logger:  logger,
		roots:   make(map[string]*RootState),
		watched: make(map[string]*watchedDir),
	}
}

// Initialize discovers the roots under folders, records the current
// commit of each one, and starts watching their HEAD and branch refs.
// Watch failures are logged; lookups keep working without them.
func (c *Correlator) Initialize(ctx context.Context, folders []string) error {
	roots := Discover(folders)

	c.mu.Lock()
	for _, root := range roots {
		if _, ok := c.roots[root]; !ok {
			c.roots[root] = &RootState{Path: root}
		}
	}
	c.reorder()
	c.mu.Unlock()

	c.logger.Info("repositories discovered", "count", len(roots))

	for _, root := range roots {
		c.TrackCommitChange(ctx, root)
	}

	if err := c.watch(context.WithoutCancel(ctx), roots); err != nil {
		c.logger.Warn("repository watch unavailable", "error", err)
	}
	return nil
}

// reorder rebuilds the lookup order. Must be called with c.mu held.
func (c *Correlator) reorder() {
	c.ordered = c.ordered[:0]
	for root := range c.roots {
		c.ordered = append(c.ordered, root)
	}
	sort.Slice(c.ordered, func(i, j int) bool {
		if len(c.ordered[i]) != len(c.ordered[j]) {
			return len(c.ordered[i]) > len(c.ordered[j])
		}
		return c.ordered[i] < c.ordered[j]
	})
}

// RootForPath returns the longest known root that is path or contains it.
func (c *Correlator) RootForPath(path string) (string, bool) {
	path = filepath.Clean(path)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, root := range c.ordered {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root, true
		}
	}
	return "", false
}

// StateForPath returns the cached commit and branch of the root owning
// path. Either value is empty when not yet known.
func (c *Correlator) StateForPath(path string) (string, string, bool) {
	root, ok := c.RootForPath(path)
	if !ok {
		return "", "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	state := c.roots[root]
	return state.Commit, state.Branch, true
}

// Roots returns a snapshot of every root, sorted by path.
func (c *Correlator) Roots() []RootState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	states := make([]RootState, 0, len(c.roots))
	for _, state := range c.roots {
		states = append(states, *state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Path < states[j].Path })
	return states
}

// TrackCommitChange records the commit HEAD points at if it differs
// from the cached one. Git failures leave the cache untouched so the
// next trigger retries.
func (c *Correlator) TrackCommitChange(ctx context.Context, root string) {
	c.trackMu.Lock()
	defer c.trackMu.Unlock()

	c.mu.RLock()
	state, ok := c.roots[root]
	var cached string
	if ok {
		cached = state.Commit
	}
	c.mu.RUnlock()
	if !ok {
		c.logger.Debug("ignoring unknown root", "root", root)
		return
	}

	head, err := c.git.Head(ctx, root)
	if err != nil {
		c.logger.Debug("failed to read HEAD", "root", root, "error", err)
		return
	}
	if head == cached {
		return
	}

	info, err := c.git.Commit(ctx, root, head)
	if err != nil {
		c.logger.Debug("failed to read commit", "root", root, "commit", head, "error", err)
		return
	}
	stat, err := c.git.DiffStat(ctx, root, head)
	if err != nil {
		c.logger.Debug("failed to read diff stat", "root", root, "commit", head, "error", err)
		return
	}
	branch, err := c.git.Branch(ctx, root)
	if err != nil {
		c.logger.Debug("failed to read branch", "root", root, "error", err)
		return
	}

	record := &commit.Commit{
		ID:           uuid.NewString(),
		ProjectPath:  root,
		CommitHash:   head,
		Message:      info.Message,
		Author:       info.Author,
		AuthorEmail:  info.AuthorEmail,
		Timestamp:    info.Time,
		FilesChanged: stat.FilesChanged,
		LinesAdded:   stat.LinesAdded,
		LinesDeleted: stat.LinesDeleted,
	}
	if branch != "" {
		record.Branch = &branch
	}

	if err := c.commits.Create(ctx, record); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			c.logger.Warn("failed to store commit", "root", root, "commit", head, "error", err)
			return
		}
		c.logger.Debug("commit already recorded", "root", root, "commit", head)
	} else {
		c.logger.Info("commit recorded", "root", root, "commit", head, "branch", branch)
	}

	c.mu.Lock()
	state.Commit = head
	state.Branch = branch
	c.mu.Unlock()
}

// Close stops watching. It is safe to call more than once.
func (c *Correlator) Close() error {
	c.mu.Lock()
	if c.closed || c.watcher == nil {
		c.closed = true
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	err := c.watcher.Close()
	c.wg.Wait()
	return err
}
