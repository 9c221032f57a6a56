package dev

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/filemux/filemux/pkg/router"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) take() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.events
	l.events = nil
	return out
}

func newTestWatcher(t *testing.T, root string, metrics *Metrics) (*Watcher, *router.Sync, *eventLog) {
	t.Helper()
	routes := router.NewSync()
	w, err := NewWatcher(routes, WatcherConfig{
		Root:    root,
		Dir:     filepath.Join(root, "api"),
		Logger:  discard,
		Metrics: metrics,
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })

	log := &eventLog{}
	w.OnEvent(log.record)
	return w, routes, log
}

// touched marks OS paths as changed, as the event loop does.
func touched(w *Watcher, root string, paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		w.pending[filepath.Join(root, filepath.FromSlash(p))] = struct{}{}
	}
}

func eventSummary(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = string(ev.Type) + " " + ev.Path
	}
	return out
}

func TestWatcherScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"api/route.put.ts",
		"api/authorizer.ts",
		"api/hello/[name]/route.get.ts",
		"api/notes.txt",
		"api/node_modules/x/route.ts",
	)

	w, routes, log := newTestWatcher(t, root, nil)
	files, err := w.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	want := []string{"/api/authorizer.ts", "/api/hello/[name]/route.get.ts", "/api/route.put.ts"}
	if !slices.Equal(files, want) {
		t.Errorf("Scan() = %v, want %v", files, want)
	}
	if !slices.Equal(w.Files(), want) {
		t.Errorf("Files() = %v", w.Files())
	}
	if got := w.Dirs(); !slices.Equal(got, []string{"/api", "/api/hello", "/api/hello/[name]"}) {
		t.Errorf("Dirs() = %v", got)
	}
	if len(log.take()) != 3 {
		t.Error("Scan() should emit one event per registered file")
	}

	res, ok := routes.Lookup("/api/hello/world")
	if !ok {
		t.Fatal("Lookup(/api/hello/world) failed after scan")
	}
	if !slices.Equal(res.Middlewares, []string{"/api/authorizer.ts"}) {
		t.Errorf("Middlewares = %v", res.Middlewares)
	}

	again, err := w.Scan()
	if err != nil || len(again) != 0 {
		t.Errorf("second Scan() = %v, %v; want no new files", again, err)
	}
}

func TestWatcherScanMissingDir(t *testing.T) {
	w, _, _ := newTestWatcher(t, t.TempDir(), nil)
	if _, err := w.Scan(); err == nil {
		t.Error("Scan() of a missing directory should fail")
	}
}

func TestWatcherApplyChanges(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "api/route.ts")

	w, routes, log := newTestWatcher(t, root, nil)
	if _, err := w.Scan(); err != nil {
		t.Fatal(err)
	}
	log.take()

	// A new directory with files: walked as a whole.
	writeTree(t, root, "api/users/[id]/route.get.ts", "api/users/[id]/tool.lookup.ts")
	touched(w, root, "api/users")
	w.Flush()

	got := eventSummary(log.take())
	want := []string{"add /api/users/[id]/route.get.ts", "add /api/users/[id]/tool.lookup.ts"}
	if !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	res, ok := routes.Lookup("/api/users/7")
	if !ok || len(res.Tools) != 1 {
		t.Fatalf("Lookup(/api/users/7) = %+v, %v", res, ok)
	}

	// Rewriting a known file changes nothing.
	touched(w, root, "api/users/[id]/route.get.ts")
	w.Flush()
	if events := log.take(); len(events) != 0 {
		t.Errorf("rewrite produced events %v", eventSummary(events))
	}

	// Removing a file.
	if err := os.Remove(filepath.Join(root, "api", "route.ts")); err != nil {
		t.Fatal(err)
	}
	touched(w, root, "api/route.ts")
	w.Flush()
	if got := eventSummary(log.take()); !slices.Equal(got, []string{"remove /api/route.ts"}) {
		t.Errorf("events = %v", got)
	}
	if _, ok := routes.Lookup("/api"); ok {
		t.Error("/api still resolves after its route file was removed")
	}

	// Removing a directory: files removed, then the branch pruned.
	if err := os.RemoveAll(filepath.Join(root, "api", "users")); err != nil {
		t.Fatal(err)
	}
	touched(w, root, "api/users", "api/users/[id]", "api/users/[id]/route.get.ts")
	w.Flush()
	got = eventSummary(log.take())
	want = []string{
		"remove /api/users/[id]/route.get.ts",
		"remove /api/users/[id]/tool.lookup.ts",
		"prune /api/users",
	}
	if !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if _, ok := routes.Lookup("/api/users/7"); ok {
		t.Error("/api/users/7 still resolves after its directory was removed")
	}
	if len(w.Files()) != 0 || !slices.Equal(w.Dirs(), []string{"/api"}) {
		t.Errorf("Files() = %v, Dirs() = %v", w.Files(), w.Dirs())
	}
}

func TestWatcherKeepsSharedPattern(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "api/(a)/users/route.get.ts", "api/(b)/users/route.post.ts")

	w, routes, log := newTestWatcher(t, root, nil)
	if _, err := w.Scan(); err != nil {
		t.Fatal(err)
	}
	log.take()

	if err := os.RemoveAll(filepath.Join(root, "api", "(a)")); err != nil {
		t.Fatal(err)
	}
	touched(w, root, "api/(a)")
	w.Flush()

	got := eventSummary(log.take())
	if !slices.Equal(got, []string{"remove /api/(a)/users/route.get.ts"}) {
		t.Errorf("events = %v, want no prune", got)
	}
	res, ok := routes.Lookup("/api/users")
	if !ok {
		t.Fatal("/api/users no longer resolves")
	}
	if !slices.Equal(res.Resource.Methods(), []string{"POST"}) {
		t.Errorf("Methods() = %v, want [POST]", res.Resource.Methods())
	}
}

func TestWatcherMetrics(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "api/route.ts", "api/middleware.ts")

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")
	w, _, _ := newTestWatcher(t, root, metrics)
	if _, err := w.Scan(); err != nil {
		t.Fatal(err)
	}

	var m dto.Metric
	if err := metrics.mutations.WithLabelValues("add", "route").Write(&m); err != nil {
		t.Fatal(err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("mutations_total{add,route} = %v, want 1", got)
	}
	m.Reset()
	if err := metrics.files.Write(&m); err != nil {
		t.Fatal(err)
	}
	if got := m.GetGauge().GetValue(); got != 2 {
		t.Errorf("router_files = %v, want 2", got)
	}
}

func TestWatcherStart(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "api/route.ts")

	routes := router.NewSync()
	w, err := NewWatcher(routes, WatcherConfig{
		Root:     root,
		Dir:      filepath.Join(root, "api"),
		Debounce: 10 * time.Millisecond,
		Logger:   discard,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	events := make(chan Event, 10)
	w.OnEvent(func(ev Event) { events <- ev })
	if _, err := w.Scan(); err != nil {
		t.Fatal(err)
	}
	<-events

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// Give the loop a moment to start selecting.
	time.Sleep(50 * time.Millisecond)
	writeTree(t, root, "api/orders/route.post.ts")

	select {
	case ev := <-events:
		if ev.Type != EventAdd || ev.Path != "/api/orders/route.post.ts" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for add event")
	}
	if _, ok := routes.Lookup("/api/orders"); !ok {
		t.Error("/api/orders does not resolve after the add event")
	}

	if err := w.Start(ctx); err == nil {
		t.Error("second Start() should fail while running")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Start() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestWatcherClose(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "api/route.ts")

	w, _, _ := newTestWatcher(t, root, nil)
	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v, want nil after Close", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Close")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// countingTarget counts the batches applied to a route table.
type countingTarget struct {
	*router.Sync
	updates int
}

func (c *countingTarget) Update(fn func(r *router.Router)) {
	c.updates++
	c.Sync.Update(fn)
}

func TestWatcherAppliesBatchOnce(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"api/route.ts",
		"api/users/[id]/route.get.ts",
		"api/users/[id]/tool.lookup.ts",
		"api/users/middleware.ts",
	)

	target := &countingTarget{Sync: router.NewSync()}
	w, err := NewWatcher(target, WatcherConfig{
		Root:   root,
		Dir:    filepath.Join(root, "api"),
		Logger: discard,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })

	if _, err := w.Scan(); err != nil {
		t.Fatal(err)
	}

	if err := os.RemoveAll(filepath.Join(root, "api", "users")); err != nil {
		t.Fatal(err)
	}
	writeTree(t, root, "api/orders/route.post.ts")
	touched(w, root, "api/users", "api/orders")
	w.Flush()
	w.Flush()

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"updates", target.updates, 2},
		{"files", len(w.Files()), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
	if _, ok := target.Lookup("/api/users/7"); ok {
		t.Error("/api/users/7 still resolves after its directory was removed")
	}
	if _, ok := target.Lookup("/api/orders"); !ok {
		t.Error("/api/orders does not resolve after the batch")
	}
}
