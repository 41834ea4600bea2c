// Package mdwatch watches a directory of .md files and fires a callback
// on change, debounced the same way server/watcher.go debounces its
// fsnotify stream: a recursive filepath.Walk seeds the watch list, and a
// last-change timestamp collapses a burst of writes into a single event.
// Used by "mdforge watch" and by pkg/mdserve's dev-mode live reload.
package mdwatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sambeau/mdforge/pkg/mdlog"
)

// Watcher watches a directory tree for .md file changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	onChange  func(path string)
	log       mdlog.Logger

	mu         sync.Mutex
	lastChange time.Time
	changeSeq  uint64
}

// Watch starts watching dir (recursively, skipping dot-directories) and
// calls onChange with the changed file's path for every create/write
// event that survives debouncing. The returned Watcher must be Closed.
func Watch(dir string, debounce time.Duration, onChange func(path string), log mdlog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsWatcher: fsWatcher, debounce: debounce, onChange: onChange, log: log}
	if err := w.addRecursive(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	go w.eventLoop(context.Background())
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}

			w.mu.Lock()
			if time.Since(w.lastChange) < w.debounce {
				w.mu.Unlock()
				continue
			}
			w.lastChange = time.Now()
			w.changeSeq++
			w.mu.Unlock()

			if w.log != nil {
				w.log.LogLine("[WATCH] changed:", event.Name)
			}
			w.onChange(event.Name)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.LogLine("[WATCH] error:", err)
			}
		}
	}
}

// ChangeSeq returns the current change counter, for a preview server's
// polled live-reload endpoint to compare against.
func (w *Watcher) ChangeSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changeSeq
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
