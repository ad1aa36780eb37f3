package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay is how long the watcher waits for more changes
const DefaultDebounceDelay = 200 * time.Millisecond

// watchedExtensions are the files whose changes trigger a new run
var watchedExtensions = map[string]bool{
	".rux": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
	".cjs": true,
	".ts":  true,
	".tsx": true,
	".mts": true,
	".cts": true,
}

// WatcherConfig configures the spec watcher
type WatcherConfig struct {
	// Roots are watched recursively: the spec root and the base directory
	Roots []string

	DebounceDelay time.Duration

	Logger *slog.Logger
}

// SpecWatcher re-runs validation when specs or target files change
type SpecWatcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op
}

// NewSpecWatcher creates a watcher over the configured roots
func NewSpecWatcher(config WatcherConfig) (*SpecWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = DefaultDebounceDelay
	}

	return &SpecWatcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]fsnotify.Op),
	}, nil
}

// Run watches until ctx is done, calling onChange with the sorted list of
// changed files after each quiet period. onChange runs on the watcher
// goroutine, so batches never overlap.
func (w *SpecWatcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	defer w.watcher.Close()

	seen := make(map[string]bool)
	for _, root := range w.config.Roots {
		abs, err := filepath.Abs(root)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if err := w.addWatchesRecursive(abs); err != nil {
			return err
		}
	}

	w.logger.Info("watching for changes", "roots", w.config.Roots, "debounce", w.config.DebounceDelay)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			if changed := w.drain(); len(changed) > 0 {
				onChange(ctx, changed)
			}
		}
	}
}

func (w *SpecWatcher) addWatchesRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(root))
	}

	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && skipWatchDir(entry.Name()) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func skipWatchDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".")
}

func (w *SpecWatcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !watchedExtensions[strings.ToLower(filepath.Ext(path))] {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !skipWatchDir(filepath.Base(path)) {
				if err := w.watcher.Add(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
		}
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("file change detected", "path", path, "op", event.Op.String())
}

// drain returns and clears the pending paths
func (w *SpecWatcher) drain() []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if len(w.pending) == 0 {
		return nil
	}
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]fsnotify.Op)

	sort.Strings(changed)
	return changed
}
