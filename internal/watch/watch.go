// internal/watch/watch.go
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 200 * time.Millisecond

// Watcher reruns a build whenever files under root change. Bursts of
// events within the debounce window trigger one rebuild.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	exclude  map[string]bool
	debounce time.Duration
	rebuild  func() error
	logger   *zap.Logger
}

// New creates a Watcher. exclude holds directories relative to root
// that never trigger rebuilds, such as a nested output directory.
func New(root string, exclude []string, debounce time.Duration, rebuild func() error, logger *zap.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		watcher:  watcher,
		root:     filepath.Clean(root),
		exclude:  make(map[string]bool, len(exclude)),
		debounce: debounce,
		rebuild:  rebuild,
		logger:   logger,
	}
	for _, dir := range exclude {
		w.exclude[filepath.Clean(dir)] = true
	}

	if err := w.addTree(w.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("initializing watch: %w", err)
	}

	return w, nil
}

// addTree watches dir and every directory below it
func (w *Watcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.root && w.ShouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

// ShouldIgnore reports whether events for path are dropped: hidden
// entries and anything under an excluded directory.
func (w *Watcher) ShouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}

	parts := strings.Split(rel, string(filepath.Separator))
	for i, part := range parts {
		if strings.HasPrefix(part, ".") {
			return true
		}
		if w.exclude[filepath.Join(parts[:i+1]...)] {
			return true
		}
	}
	return false
}

// Run processes filesystem events until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handleFSEvent(event) {
				pending = time.After(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			if err := w.rebuild(); err != nil {
				w.logger.Error("rebuild failed", zap.Error(err))
			}
		}
	}
}

// handleFSEvent reports whether event should trigger a rebuild
func (w *Watcher) handleFSEvent(event fsnotify.Event) bool {
	if w.ShouldIgnore(event.Name) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error("adding new directory to watcher", zap.Error(err))
			}
		}
	}

	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
		return true
	}
	return false
}

// Close cleans up resources
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
