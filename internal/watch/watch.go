// Package watch reports changes to files under a set of directories. Events
// are coalesced: every burst of changes is delivered as one sorted batch once
// no further event arrives for the debounce interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/phobologic/kconfigmap/internal/discover"
)

var (
	// ErrNoPaths is returned by New when Options.Paths is empty.
	ErrNoPaths = errors.New("no paths configured for watching")

	// ErrInvalidPattern is returned by New for an exclude glob that does not
	// compile.
	ErrInvalidPattern = errors.New("invalid exclude pattern")
)

// Options configures a Watcher.
type Options struct {
	// Paths are directories watched recursively.
	Paths []string
	// Exclude holds globs matched against the full path, any trailing
	// sequence of path elements, and the base name.
	Exclude []string
	// Debounce is the quiet period that ends a batch. Zero delivers every
	// event on its own.
	Debounce time.Duration
	// Filter, when set, drops events for files it rejects.
	Filter func(path string) bool
	// Logger receives debug output. Pass nil to disable logging.
	Logger *slog.Logger
}

// Watcher delivers batches of changed paths.
type Watcher struct {
	opts     Options
	fsw      *fsnotify.Watcher
	excludes []glob.Glob
	log      *slog.Logger
}

// New validates opts and registers every directory below opts.Paths.
func New(opts Options) (*Watcher, error) {
	if len(opts.Paths) == 0 {
		return nil, ErrNoPaths
	}
	excludes := make([]glob.Glob, 0, len(opts.Exclude))
	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		excludes = append(excludes, g)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{opts: opts, fsw: fsw, excludes: excludes, log: opts.Logger}
	for _, p := range opts.Paths {
		info, err := os.Stat(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		if !info.IsDir() {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: not a directory", p)
		}
		if err := w.addRecursive(p); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (discover.SkipDir(d.Name()) || w.excluded(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.log.Debug("watching directory", slog.String("path", path))
		return nil
	})
}

// Run blocks until ctx is done or the watcher is closed, calling fn with each
// batch of changed paths. fn runs on the caller's goroutine.
func (w *Watcher) Run(ctx context.Context, fn func(paths []string)) error {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		clear(pending)
		w.log.Debug("delivering change batch", slog.Int("paths", len(paths)))
		fn(paths)
	}

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.accept(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			if w.opts.Debounce <= 0 {
				flush()
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.opts.Debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			flush()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", slog.Any("error", err))
		}
	}
}

// accept filters an event, registering newly created directories on the way.
func (w *Watcher) accept(event fsnotify.Event) bool {
	if w.excluded(event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.log.Warn("cannot watch new directory", slog.String("path", event.Name), slog.Any("error", err))
			}
			return false
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	return w.opts.Filter == nil || w.opts.Filter(event.Name)
}

func (w *Watcher) excluded(path string) bool {
	if len(w.excludes) == 0 {
		return false
	}
	slashed := filepath.ToSlash(path)
	parts := strings.Split(strings.TrimPrefix(slashed, "/"), "/")
	for _, g := range w.excludes {
		if g.Match(slashed) {
			return true
		}
		for i := range parts {
			if g.Match(strings.Join(parts[i:], "/")) {
				return true
			}
		}
	}
	return false
}

// Close stops watching. A running Run returns nil.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
