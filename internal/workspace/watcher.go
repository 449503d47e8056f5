package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rpggio/codepulse/internal/domain/activity"
)

// Watcher turns file writes under the workspace folders into save
// events for an activity.Observer.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	folders   *Folders
	observer  activity.Observer
	logger    *slog.Logger

	mu      sync.Mutex
	done    chan struct{}
	wg      sync.WaitGroup
	stopped bool
}

// NewWatcher creates a Watcher over every directory below folders.
func NewWatcher(folders *Folders, observer activity.Observer, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsw,
		folders:   folders,
		observer:  observer,
		logger:    logger,
		done:      make(chan struct{}),
	}
	for _, folder := range folders.Paths() {
		w.addTree(folder)
	}
	return w, nil
}

// addTree watches dir and every eligible directory below it.
func (w *Watcher) addTree(dir string) {
	stack := []string{dir}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := w.fsWatcher.Add(current); err != nil {
			w.logger.Debug("cannot watch", "dir", current, "error", err)
			continue
		}
		entries, err := os.ReadDir(current)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() && !ignored(entry.Name()) {
				stack = append(stack, filepath.Join(current, entry.Name()))
			}
		}
	}
}

func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// Start begins delivering events.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
}

// Stop stops the watcher. No events are delivered after it returns.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("workspace watch error", "error", err)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if w.excluded(event.Name) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && !ignored(filepath.Base(event.Name)) {
			w.addTree(event.Name)
		}
		return
	}

	w.observer.OnInteraction(activity.Event{
		FilePath: event.Name,
		Language: LanguageForPath(event.Name),
		Kind:     activity.KindSave,
	})
}

// excluded reports whether path is outside the folders or any element
// below its folder is ignored.
func (w *Watcher) excluded(path string) bool {
	folder, ok := w.folders.RootFor(path)
	if !ok {
		return true
	}
	rel, err := filepath.Rel(folder, path)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != "." && ignored(part) {
			return true
		}
	}
	return false
}
