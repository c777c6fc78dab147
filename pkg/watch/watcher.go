package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyRunning is returned when Watch is called twice.
var ErrAlreadyRunning = errors.New("watcher already running")

// Config contains configuration for the file watcher.
type Config struct {
	// Paths are the files to watch, typically the rule document and a
	// file-based record source.
	Paths []string

	// Debounce is the quiet period after the last change before onChange
	// runs (default: 500ms).
	Debounce time.Duration
}

// Watcher re-runs a callback when any watched file changes. Files are
// watched through their parent directories so editors that save by
// renaming a temporary file are still seen.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	config  Config
	targets map[string]struct{}

	mu      sync.Mutex
	running bool
}

// New creates a watcher for cfg.Paths.
func New(cfg Config, logger *slog.Logger) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("no paths to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	targets := make(map[string]struct{}, len(cfg.Paths))
	dirs := make(map[string]struct{})
	for _, p := range cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", p, err)
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
	}

	return &Watcher{
		watcher: fsw,
		logger:  logger.With("component", "watch"),
		config:  cfg,
		targets: targets,
	}, nil
}

// Watch blocks until ctx is cancelled, calling onChange with the changed
// paths after each debounced burst of changes. onChange runs on the watch
// goroutine, so runs never overlap; changes made during a run trigger
// another run afterwards.
func (w *Watcher) Watch(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	debounce := NewDebouncer(w.config.Debounce)
	defer debounce.Stop()

	w.logger.Info("watching for changes",
		"paths", w.config.Paths,
		"debounce_ms", w.config.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.shouldProcessEvent(event) {
				continue
			}
			w.logger.Debug("file event detected", "path", event.Name, "op", event.Op.String())
			debounce.Add(filepath.Clean(event.Name))

		case <-debounce.C():
			changed := debounce.Flush()
			if len(changed) == 0 {
				continue
			}
			w.logger.Info("change detected, re-running", "changed", changed)
			onChange(ctx, changed)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.targets[abs]
	return ok
}

// Debouncer collects changed paths and fires once the interval has passed
// without new changes. It is owned by a single goroutine.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	pending  map[string]struct{}
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	t := time.NewTimer(interval)
	t.Stop()
	return &Debouncer{
		interval: interval,
		timer:    t,
		pending:  make(map[string]struct{}),
	}
}

// Add records a change and restarts the quiet period.
func (d *Debouncer) Add(path string) {
	d.pending[path] = struct{}{}
	d.timer.Reset(d.interval)
}

// C fires when the quiet period has elapsed.
func (d *Debouncer) C() <-chan time.Time {
	return d.timer.C
}

// Flush returns the pending paths, sorted, and clears them.
func (d *Debouncer) Flush() []string {
	out := make([]string, 0, len(d.pending))
	for p := range d.pending {
		out = append(out, p)
	}
	sort.Strings(out)
	clear(d.pending)
	return out
}

// Stop cancels a pending fire.
func (d *Debouncer) Stop() {
	d.timer.Stop()
}
