package correlator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// watchedDir is one directory under watch. A refs directory is part of
// a refs/heads tree; any other is a git directory where only HEAD and
// packed-refs matter.
type watchedDir struct {
	roots []string
	refs  bool
}

func (w *watchedDir) add(root string) {
	for _, r := range w.roots {
		if r == root {
			return
		}
	}
	w.roots = append(w.roots, root)
}

// gitDirs returns the directory holding HEAD and the directory holding
// refs for root. They differ for linked worktrees, where .git is a file
// pointing at .git/worktrees/<name> inside the main repository.
func gitDirs(root string) (string, string, bool) {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", "", false
	}
	if info.IsDir() {
		return dotGit, dotGit, true
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", "", false
	}
	target, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir:")
	if !ok {
		return "", "", false
	}
	gitDir := resolve(root, strings.TrimSpace(target))

	commonDir := gitDir
	if data, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		commonDir = resolve(gitDir, strings.TrimSpace(string(data)))
	}
	return gitDir, commonDir, true
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

func (c *Correlator) watch(ctx context.Context, roots []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(roots) == 0 {
		return nil
	}

	if c.watcher == nil {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		c.watcher = fsw
		c.done = make(chan struct{})
		c.wg.Add(1)
		go c.watchLoop(ctx)
	}

	for _, root := range roots {
		gitDir, commonDir, ok := gitDirs(root)
		if !ok {
			c.logger.Debug("no git directory to watch", "root", root)
			continue
		}
		c.addDir(root, gitDir, false)
		if commonDir != gitDir {
			c.addDir(root, commonDir, false)
		}
		c.addRefsTree(root, filepath.Join(commonDir, "refs", "heads"))
	}
	return nil
}

// addDir watches dir on behalf of root. Must be called with c.mu held.
func (c *Correlator) addDir(root, dir string, refs bool) bool {
	if entry, ok := c.watched[dir]; ok {
		entry.add(root)
		return true
	}
	if err := c.watcher.Add(dir); err != nil {
		c.logger.Debug("cannot watch", "dir", dir, "error", err)
		return false
	}
	c.watched[dir] = &watchedDir{roots: []string{root}, refs: refs}
	return true
}

// addRefsTree watches dir and every directory below it, so branch names
// containing slashes are covered. Must be called with c.mu held.
func (c *Correlator) addRefsTree(root, dir string) {
	stack := []string{dir}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !c.addDir(root, current, true) {
			continue
		}
		entries, err := os.ReadDir(current)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				stack = append(stack, filepath.Join(current, entry.Name()))
			}
		}
	}
}

func (c *Correlator) watchLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return

		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			for _, root := range c.handleEvent(event) {
				c.TrackCommitChange(ctx, root)
			}

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Debug("repository watch error", "error", err)
		}
	}
}

// handleEvent keeps the refs trees complete and returns the roots whose
// HEAD may have moved.
func (c *Correlator) handleEvent(event fsnotify.Event) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// The kernel drops the watch with the directory; forget it so a
		// recreated directory is watched again.
		delete(c.watched, event.Name)
	}

	roots := c.rootsForEvent(event)
	if len(roots) == 0 {
		return nil
	}

	if event.Has(fsnotify.Create) && c.watched[filepath.Dir(event.Name)].refs {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			for _, root := range roots {
				c.addRefsTree(root, event.Name)
			}
		}
	}
	return append([]string(nil), roots...)
}

// rootsForEvent reports which roots a change to HEAD, packed-refs or a
// branch ref belongs to. Lock files and unrelated git directory entries
// are ignored. Must be called with c.mu held.
func (c *Correlator) rootsForEvent(event fsnotify.Event) []string {
	if event.Op == fsnotify.Chmod || strings.HasSuffix(event.Name, ".lock") {
		return nil
	}

	entry, ok := c.watched[filepath.Dir(event.Name)]
	if !ok {
		return nil
	}
	if !entry.refs {
		switch filepath.Base(event.Name) {
		case "HEAD", "packed-refs":
		default:
			return nil
		}
	}
	return entry.roots
}
