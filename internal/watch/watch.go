// Package watch regenerates documentation when sources change or on a fixed
// interval. Triggers from both are serialized so runs never overlap.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/autoapi/internal/logfields"
)

// Trigger performs one regeneration. Reason names what caused it.
type Trigger func(ctx context.Context, reason string)

// Watcher coalesces file system events into debounced triggers.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	trigger  Trigger
	logger   *slog.Logger

	// files restricts events in a directory to the listed base names.
	files   map[string]map[string]struct{}
	dirs    map[string]struct{}
	ignored []string

	mu sync.Mutex
}

// New creates a watcher. A non-positive debounce fires on every event.
func New(debounce time.Duration, trigger Trigger, logger *slog.Logger) (*Watcher, error) {
	if trigger == nil {
		return nil, fmt.Errorf("watch: trigger is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:  fw,
		debounce: debounce,
		trigger:  trigger,
		logger:   logger,
		files:    map[string]map[string]struct{}{},
		dirs:     map[string]struct{}{},
	}, nil
}

// Ignore drops events below path, typically the output directory.
func (w *Watcher) Ignore(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	w.mu.Lock()
	w.ignored = append(w.ignored, abs)
	w.mu.Unlock()
	return nil
}

// Add watches a file or a directory tree. Files are watched through their
// parent directory, which survives editors that replace the file.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		dir := filepath.Dir(abs)
		w.mu.Lock()
		if w.files[dir] == nil {
			w.files[dir] = map[string]struct{}{}
		}
		w.files[dir][filepath.Base(abs)] = struct{}{}
		w.mu.Unlock()
		return w.watchDir(dir)
	}
	return w.addTree(abs)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDir(d.Name()) || w.isIgnored(p) {
			return filepath.SkipDir
		}
		w.mu.Lock()
		w.dirs[p] = struct{}{}
		w.mu.Unlock()
		return w.watchDir(p)
	})
}

func (w *Watcher) watchDir(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == "testdata" || name == "vendor" || name == "node_modules"
}

func (w *Watcher) isIgnored(p string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ig := range w.ignored {
		if p == ig || strings.HasPrefix(p, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// relevant reports whether an event should schedule a regeneration.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod || w.isIgnored(ev.Name) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	dir := filepath.Dir(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; ok {
		return true
	}
	if names, ok := w.files[dir]; ok {
		_, ok := names[base]
		return ok
	}
	return false
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	var (
		timerC <-chan time.Time
		reason string
	)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.track(ev)
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("Change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			reason = ev.Name
			if w.debounce <= 0 {
				w.trigger(ctx, reason)
				continue
			}
			timer.Reset(w.debounce)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.trigger(ctx, reason)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

// track follows directories created inside a watched tree.
func (w *Watcher) track(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) {
		return
	}
	w.mu.Lock()
	_, parentWatched := w.dirs[filepath.Dir(ev.Name)]
	w.mu.Unlock()
	if !parentWatched || skipDir(filepath.Base(ev.Name)) {
		return
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		if err := w.addTree(ev.Name); err != nil {
			w.logger.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
		}
	}
}
