// Package watch keeps the note listing in sync with external changes:
// files created, edited, or removed in the active folder by anything
// other than this process.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a change to a note file is observed.
// kind is one of "created", "updated", "deleted"; name is the bare
// filename.
type EventCallback func(kind, name string)

// Watcher follows the active notes folder with fsnotify and emits
// diff-based events: a callback fires only for actual content deltas,
// never for writes that left a file unchanged.
//
// The watched folder can change at runtime via SetRoot; the loop owns
// all state, so SetRoot is safe from any goroutine.
type Watcher struct {
	rootCh chan string
	logger *slog.Logger
	cb     EventCallback
}

// New creates a Watcher that reports changes through cb.
func New(logger *slog.Logger, cb EventCallback) *Watcher {
	return &Watcher{
		rootCh: make(chan string, 8),
		logger: logger,
		cb:     cb,
	}
}

// SetRoot points the watcher at a new folder. An empty path stops
// watching. Never blocks; a switch that cannot be queued is dropped
// with a warning (the next switch supersedes it anyway).
func (w *Watcher) SetRoot(path string) {
	select {
	case w.rootCh <- path:
	default:
		w.logger.Warn("watcher: root switch dropped", slog.String("path", path))
	}
}

// Run processes folder change events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	var (
		root     string            // current watched folder, "" when none
		snapshot map[string]string // name -> content checksum
	)

	// reconcileTimer debounces the re-scan after rename bursts.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	w.logger.Info("watcher: started")

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case path := <-w.rootCh:
			if root != "" {
				if err := fw.Remove(root); err != nil {
					w.logger.Warn("watcher: unwatch failed",
						slog.String("path", root), slog.String("error", err.Error()))
				}
			}
			root, snapshot = "", nil
			if path == "" {
				continue
			}
			if err := fw.Add(path); err != nil {
				w.logger.Warn("watcher: watch failed",
					slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			root = path
			snapshot = scanFolder(path)
			w.logger.Info("watcher: watching", slog.String("root", root))

		case <-reconcileCh:
			if root == "" {
				continue
			}
			snapshot = w.reconcile(root, snapshot)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if root == "" || filepath.Dir(ev.Name) != root {
				continue
			}
			name := filepath.Base(ev.Name)
			if isTempFile(name) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				info, statErr := os.Stat(ev.Name)
				if statErr != nil {
					// Short-lived file (editor temp, atomic rename source).
					scheduleReconcile()
					continue
				}
				if info.IsDir() {
					continue
				}
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					scheduleReconcile()
					continue
				}
				cs := sum(data)
				prev, known := snapshot[name]
				if known && prev == cs {
					continue // no actual delta
				}
				snapshot[name] = cs
				kind := "updated"
				if !known {
					kind = "created"
				}
				w.logger.Debug("watcher: change", slog.String("name", name), slog.String("op", kind))
				if w.cb != nil {
					w.cb(kind, name)
				}

			case ev.Op&fsnotify.Remove != 0:
				if _, known := snapshot[name]; !known {
					continue
				}
				delete(snapshot, name)
				w.logger.Debug("watcher: removed", slog.String("name", name))
				if w.cb != nil {
					w.cb("deleted", name)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path arrives as a separate Create event. Drop the old
				// entry now and schedule a re-scan for stragglers.
				if _, known := snapshot[name]; known {
					delete(snapshot, name)
					w.logger.Debug("watcher: renamed away", slog.String("name", name))
					if w.cb != nil {
						w.cb("deleted", name)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile re-scans the folder, emits events for every delta against
// the previous snapshot, and returns the fresh snapshot.
func (w *Watcher) reconcile(root string, prev map[string]string) map[string]string {
	fresh := scanFolder(root)

	for name := range prev {
		if _, ok := fresh[name]; !ok {
			w.logger.Debug("reconcile: removed", slog.String("name", name))
			if w.cb != nil {
				w.cb("deleted", name)
			}
		}
	}
	for name, cs := range fresh {
		old, known := prev[name]
		if known && old == cs {
			continue
		}
		kind := "updated"
		if !known {
			kind = "created"
		}
		w.logger.Debug("reconcile: change", slog.String("name", name), slog.String("op", kind))
		if w.cb != nil {
			w.cb(kind, name)
		}
	}
	return fresh
}

// scanFolder maps every regular file in root to its content checksum.
func scanFolder(root string) map[string]string {
	out := make(map[string]string)
	entries, err := os.ReadDir(root)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || isTempFile(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		out[e.Name()] = sum(data)
	}
	return out
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, ".ansuz-tmp-")
}

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
