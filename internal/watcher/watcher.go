// Package watcher triggers rebuilds when the harvested tree or the
// authoring file changes. Filesystem events arrive in bursts (an
// extract or compile touches hundreds of files), so triggers are
// debounced: one fires after a quiet window, and at the latest once
// the maximum delay has passed.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Debounce defaults.
const (
	DefaultQuietWindow = 400 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
)

// skipNames are directory names never worth watching.
var skipNames = map[string]bool{
	".git":            true,
	".msibuild-cache": true,
	"node_modules":    true,
}

// Watcher watches directory trees and emits debounced build triggers.
type Watcher struct {
	fw     *fsnotify.Watcher
	logger log.Logger

	quiet time.Duration
	max   time.Duration

	// skip holds absolute path prefixes excluded from watching, so
	// our own work directory never retriggers a build
	skip []string

	builds chan struct{}
}

// New creates a watcher. quiet is the settle time after the last
// event; max caps how long a burst can postpone the trigger.
func New(logger log.Logger, quiet, max time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if quiet <= 0 {
		quiet = DefaultQuietWindow
	}

	if max <= 0 {
		max = DefaultMaxDelay
	}

	return &Watcher{
		fw:     fw,
		logger: logger,
		quiet:  quiet,
		max:    max,
		builds: make(chan struct{}, 1),
	}, nil
}

// Skip excludes an absolute path and everything under it.
func (w *Watcher) Skip(path string) {
	w.skip = append(w.skip, path)
}

// Add watches root and all nested directories.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // unreadable subtree, keep watching the rest
		}

		if !d.IsDir() {
			return nil
		}

		if skipNames[d.Name()] || w.skipped(path) {
			return fs.SkipDir
		}

		return w.fw.Add(path)
	})
}

// AddFile watches a single file, typically the authoring source.
func (w *Watcher) AddFile(path string) error {
	return w.fw.Add(path)
}

// Builds returns the debounced trigger channel. It is closed when Run
// returns.
func (w *Watcher) Builds() <-chan struct{} {
	return w.builds
}

// Close releases the underlying filesystem watches.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// Run pumps filesystem events into debounced build triggers until the
// context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.builds)

	quiet := newStoppedTimer()
	deadline := newStoppedTimer()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}

			if w.ignored(event) {
				continue
			}

			// new directories join the watch set
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.Add(event.Name)
				}
			}

			level.Debug(w.logger).Log("msg", "change detected", "path", event.Name, "op", event.Op.String())

			if !pending {
				pending = true
				deadline.Reset(w.max)
			}
			quiet.Reset(w.quiet)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			level.Error(w.logger).Log("msg", "watch error", "err", err)

		case <-quiet.C:
			if pending {
				pending = false
				stopTimer(deadline)
				w.trigger()
			}

		case <-deadline.C:
			if pending {
				pending = false
				stopTimer(quiet)
				w.trigger()
			}
		}
	}
}

// trigger queues a build. A trigger already waiting is enough; builds
// coalesce.
func (w *Watcher) trigger() {
	select {
	case w.builds <- struct{}{}:
	default:
	}
}

// ignored filters events that must not retrigger builds: metadata-only
// changes and anything under a skipped path.
func (w *Watcher) ignored(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return true
	}

	return w.skipped(event.Name)
}

func (w *Watcher) skipped(path string) bool {
	for _, prefix := range w.skip {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
