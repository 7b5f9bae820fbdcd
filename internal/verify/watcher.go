package verify

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-verifies documents whenever they change on disk. Events are
// debounced so editor save bursts trigger one run.
type Watcher struct {
	svc      *Service
	globs    []string
	out      io.Writer
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher over the service's document globs.
func NewWatcher(svc *Service, globs []string, out io.Writer) *Watcher {
	return &Watcher{
		svc:      svc,
		globs:    globs,
		out:      out,
		debounce: 300 * time.Millisecond,
		logger:   slog.Default(),
	}
}

// WithDebounce overrides the event settle window.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// WithLogger sets a custom logger.
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	w.logger = logger
	return w
}

// Watch runs once immediately, then re-runs on every document change until
// the context is canceled.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, root := range watchRoots(w.globs) {
		if err := addDirsRecursive(watcher, root); err != nil {
			return err
		}
	}

	runReq, trigger := w.debouncer()
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-runReq:
			w.runOnce(ctx)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	docs, err := LoadDocuments(w.globs)
	if err != nil {
		w.logger.Error("Could not load documents", "error", err)
		return
	}
	rep, err := w.svc.Run(ctx, docs)
	if err != nil {
		w.logger.Error("Verification run failed", "error", err)
		return
	}
	_ = rep.Render(w.out)
}

func (w *Watcher) debouncer() (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	runReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			select {
			case runReq <- struct{}{}:
			default:
			}
		})
	}
	return runReq, trigger
}

func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name)
		}
	}
	if strings.EqualFold(filepath.Ext(ev.Name), ".md") &&
		ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.logger.Debug("Document changed", "path", ev.Name, "op", ev.Op.String())
		trigger()
	}
}

// watchRoots derives the directories to watch from the globs: the static
// path prefix before the first wildcard of each pattern.
func watchRoots(globs []string) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, glob := range globs {
		dir := filepath.Dir(glob)
		for strings.ContainsAny(dir, "*?[") {
			dir = filepath.Dir(dir)
		}
		if !seen[dir] {
			seen[dir] = true
			roots = append(roots, dir)
		}
	}
	return roots
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if name := d.Name(); strings.HasPrefix(name, ".") && path != root {
			return fs.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
