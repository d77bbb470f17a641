package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(append([]Option{WithDebounceDelay(20 * time.Millisecond)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return Event{}
}

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpWrite | OpCreate, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestConvertOp(t *testing.T) {
	if got := convertOp(fsnotify.Write | fsnotify.Create); !got.Has(OpWrite) || !got.Has(OpCreate) {
		t.Errorf("convertOp(write|create) = %b", got)
	}
	if got := convertOp(fsnotify.Chmod); got != 0 {
		t.Errorf("convertOp(chmod) = %b, want 0", got)
	}
}

func TestWatcher_AddRemove(t *testing.T) {
	w := newWatcher(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	writeFile(t, a, "[]")
	writeFile(t, b, "[]")

	if err := w.Add(a); err != nil {
		t.Fatalf("Add(a) error = %v", err)
	}
	if err := w.Add(b); err != nil {
		t.Fatalf("Add(b) error = %v", err)
	}
	if err := w.Add(a); !errors.Is(err, ErrAlreadyWatching) {
		t.Errorf("Add(a) again error = %v, want ErrAlreadyWatching", err)
	}
	if err := w.Add(filepath.Join(dir, "missing")); !errors.Is(err, ErrPathNotExist) {
		t.Errorf("Add(missing) error = %v, want ErrPathNotExist", err)
	}
	if got := w.Files(); len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("Files() = %v", got)
	}
	if w.dirs[dir] != 2 {
		t.Errorf("directory refcount = %d, want 2", w.dirs[dir])
	}

	if err := w.Remove(a); err != nil {
		t.Fatalf("Remove(a) error = %v", err)
	}
	if err := w.Remove(a); !errors.Is(err, ErrNotWatching) {
		t.Errorf("Remove(a) again error = %v, want ErrNotWatching", err)
	}
	if err := w.Remove(b); err != nil {
		t.Fatalf("Remove(b) error = %v", err)
	}
	if len(w.dirs) != 0 {
		t.Errorf("dirs = %v after removing every file", w.dirs)
	}
}

func TestWatcher_CoalescesWrites(t *testing.T) {
	w := newWatcher(t, WithDebounceDelay(100*time.Millisecond))
	dir := t.TempDir()
	path := filepath.Join(dir, "steps.json")
	writeFile(t, path, "[]")
	if err := w.Add(path); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		writeFile(t, path, "[ ]")
	}
	ev := waitEvent(t, w)
	if ev.Path != path || !ev.Op.Has(OpWrite) {
		t.Errorf("event = %+v, want a write of %s", ev, path)
	}
	select {
	case extra := <-w.Events():
		t.Errorf("unexpected second event %+v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	w := newWatcher(t)
	dir := t.TempDir()
	watched := filepath.Join(dir, "doc.json")
	writeFile(t, watched, "{}")
	if err := w.Add(watched); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "other.json"), "{}")
	select {
	case ev := <-w.Events():
		t.Errorf("unexpected event %+v for an unwatched file", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_FollowsReplacedFile(t *testing.T) {
	w := newWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "a = 1")
	if err := w.Add(path); err != nil {
		t.Fatal(err)
	}

	tmp := filepath.Join(dir, "config.toml.tmp")
	writeFile(t, tmp, "a = 2")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if ev := waitEvent(t, w); ev.Path != path {
		t.Errorf("event path = %q, want %q", ev.Path, path)
	}
}

func TestWatcher_Run(t *testing.T) {
	w := newWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	writeFile(t, path, "[]")
	if err := w.Add(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got := make(chan Event, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(ev Event) {
			got <- ev
			cancel()
		})
	}()

	writeFile(t, path, "[1]")
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	select {
	case ev := <-got:
		if ev.Path != path {
			t.Errorf("handler saw %q, want %q", ev.Path, path)
		}
	default:
		t.Error("handler was not called")
	}
}

func TestWatcher_Close(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Error("Events() should be closed")
	}
	if err := w.Add(os.TempDir()); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Add after Close error = %v, want ErrWatcherClosed", err)
	}
	if err := w.Run(context.Background(), func(Event) {}); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Run after Close error = %v, want ErrWatcherClosed", err)
	}
}
