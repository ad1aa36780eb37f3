package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ludo-technologies/rux/internal/testutil"
)

func TestSpecWatcher_ReportsChangedSpecs(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"specs/button.rux": "", "notes.md": ""})

	watcher, err := NewSpecWatcher(WatcherConfig{Roots: []string{root, root}, DebounceDelay: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewSpecWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 10)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx, func(_ context.Context, changed []string) {
			batches <- changed
		})
	}()

	spec := filepath.Join(root, "specs", "button.rux")
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	var got []string
wait:
	for {
		select {
		case got = <-batches:
			break wait
		case <-tick.C:
			// keep touching the files until the watches are in place
			_ = os.WriteFile(filepath.Join(root, "notes.md"), []byte("x"), 0644)
			_ = os.WriteFile(spec, []byte("module A { type: \"component\" }"), 0644)
		case <-deadline:
			t.Fatal("no change batch received")
		}
	}

	for _, path := range got {
		if filepath.Ext(path) != ".rux" {
			t.Errorf("unexpected path in batch: %s", path)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestSpecWatcher_Drain(t *testing.T) {
	w, err := NewSpecWatcher(WatcherConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer w.watcher.Close()

	if w.config.DebounceDelay != DefaultDebounceDelay {
		t.Errorf("expected default debounce, got %v", w.config.DebounceDelay)
	}

	w.handleFSEvent(fsnotify.Event{Name: "b.ts", Op: fsnotify.Write})
	w.handleFSEvent(fsnotify.Event{Name: "a.rux", Op: fsnotify.Create})
	w.handleFSEvent(fsnotify.Event{Name: "a.rux", Op: fsnotify.Write})
	w.handleFSEvent(fsnotify.Event{Name: "c.rux", Op: fsnotify.Chmod})
	w.handleFSEvent(fsnotify.Event{Name: "README.md", Op: fsnotify.Write})

	changed := w.drain()
	if !testutil.EqualStrings(changed, []string{"a.rux", "b.ts"}) {
		t.Errorf("drain() = %v", changed)
	}
	if w.drain() != nil {
		t.Error("drain should clear pending changes")
	}
}
