package wizard

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"careerscope/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// InputWatcher watches resume and job description files during the upload
// stage and re-submits them when they change on disk. Changes are debounced
// so editors that save in multiple writes trigger a single re-upload.
type InputWatcher struct {
	mu sync.Mutex

	paths       []string
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	changeChan chan string

	onChange func(path string)
	logger   *errors.Logger

	running bool
}

// NewInputWatcher creates a watcher over the given files. onChange is called
// once per debounced change with the path that changed.
func NewInputWatcher(paths []string, debounceDelay time.Duration, onChange func(path string), logger *errors.Logger) *InputWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	return &InputWatcher{
		paths:         paths,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		changeChan:    make(chan string, 4),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching. Files that cannot be watched are logged and skipped.
func (w *InputWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("input watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = watcher

	for _, path := range w.paths {
		if stat, err := os.Stat(path); err == nil {
			w.lastModTime[path] = stat.ModTime()
		}
		if err := w.addPath(path); err != nil {
			w.logger.Warn("Failed to watch input file", "file", path, "error", err.Error())
		}
	}

	w.running = true
	go w.watchLoop()

	w.logger.Info("Input file watcher started",
		"files", w.paths, "debounce_delay", w.debounceDelay)
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *InputWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	err := w.fsWatcher.Close()
	w.running = false

	if err != nil {
		w.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	w.logger.Info("Input file watcher stopped")
	return nil
}

// addPath watches the file and its directory. Watching the directory catches
// atomic saves, where editors write a temp file and rename it over the original.
func (w *InputWatcher) addPath(path string) error {
	if err := w.fsWatcher.Add(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to watch file %s: %w", path, err)
		}
	}
	dir := filepath.Dir(path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (w *InputWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if path, match := w.matchEvent(event); match {
				w.scheduleNotify(path)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "Input watcher error")

		case path := <-w.changeChan:
			if w.hasChanged(path) {
				w.logger.Info("Input file changed", "file", path)
				w.onChange(path)
			}

		case <-w.stopChan:
			return
		}
	}
}

// matchEvent maps a filesystem event back to one of the watched inputs.
func (w *InputWatcher) matchEvent(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return "", false
	}
	for _, path := range w.paths {
		if event.Name == path || filepath.Base(event.Name) == filepath.Base(path) {
			return path, true
		}
	}
	return "", false
}

// scheduleNotify arms (or re-arms) the debounce timer for a changed path.
func (w *InputWatcher) scheduleNotify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.changeChan <- path:
		default:
		}
	})
}

// hasChanged compares modification times so self-cancelling event pairs
// (touch without content change keeps the old mtime on some filesystems)
// do not trigger a re-upload.
func (w *InputWatcher) hasChanged(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if _, existed := w.lastModTime[path]; existed {
				delete(w.lastModTime, path)
			}
		}
		return false
	}
	last, seen := w.lastModTime[path]
	if !seen || stat.ModTime().After(last) {
		w.lastModTime[path] = stat.ModTime()
		return true
	}
	return false
}
