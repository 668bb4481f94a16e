// Package watch reports repository changes, coalescing bursts of
// filesystem events into single notifications. It carries no
// knowledge of what a consumer recomputes on change; schedulers and
// UIs sit on the Changes channel and decide for themselves.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const coalesceDelay = 350 * time.Millisecond

type Watcher struct {
	// Changes receives one value per settled burst of repository
	// events. The channel is never closed while the watcher is open.
	Changes chan struct{}

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// New watches the repository rooted at root. When root contains a
// .git directory only that is watched; otherwise the root itself is.
func New(root string) (*Watcher, error) {
	if root == "" {
		return nil, fmt.Errorf("repository root not set")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	path := root
	if gitDir := filepath.Join(root, ".git"); isDir(gitDir) {
		path = gitDir
	}
	if err := fsw.Add(path); err != nil {
		return nil, errors.Join(fmt.Errorf("watch %s: %w", path, err), fsw.Close())
	}
	w := &Watcher{Changes: make(chan struct{}, 1), fsw: fsw}
	go w.loop()
	return w, nil
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnorePath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(coalesceDelay, w.notify)
}

func (w *Watcher) notify() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	select {
	case w.Changes <- struct{}{}:
	default:
		// a notification is already pending
	}
}

// shouldIgnorePath filters transient git bookkeeping files that would
// otherwise fire a notification for every repository read.
func shouldIgnorePath(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".lock"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
