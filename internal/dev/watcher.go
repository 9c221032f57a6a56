package dev

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/filemux/filemux/internal/errors"
	"github.com/filemux/filemux/pkg/router"
)

// DefaultDebounce is the delay between the last file system event and the
// moment pending changes are applied.
const DefaultDebounce = 50 * time.Millisecond

// EventType is the kind of route table mutation.
type EventType string

const (
	EventAdd    EventType = "add"
	EventRemove EventType = "remove"
	EventPrune  EventType = "prune"
)

// Event is a route table mutation applied by a Watcher.
type Event struct {
	Type EventType       `json:"type"`
	Path string          `json:"path"`
	Kind router.FileKind `json:"kind"`
	Time time.Time       `json:"time"`
}

// Target is the route table a Watcher keeps in sync. *router.Sync
// implements it. Each batch of changes is applied within one Update call,
// so lookups never observe half of a directory removal.
type Target interface {
	Update(fn func(r *router.Router))
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Root is the directory router paths are relative to.
	Root string

	// Dir is the directory to watch. It must be Root or lie beneath it.
	// Default: Root
	Dir string

	// Ignore patterns to skip. Default: DefaultIgnore
	Ignore []string

	// Debounce is the delay before applying changes. Default: DefaultDebounce
	Debounce time.Duration

	// Logger receives registration and error logs. Default: slog.Default()
	Logger *slog.Logger

	// Metrics records applied mutations when set.
	Metrics *Metrics
}

// Watcher applies file system changes under a directory to a route table.
//
// Created files are added and new directories are walked. Removed or renamed
// files are removed; removed directories have every file beneath them
// removed and their branch pruned.
type Watcher struct {
	config  WatcherConfig
	target  Target
	ignore  *Ignorer
	scanner *router.Scanner
	fsw     *fsnotify.Watcher
	logger  *slog.Logger

	mu        sync.Mutex
	files     map[string]router.FileKind
	dirs      map[string]string
	pending   map[string]struct{}
	listeners []func(Event)
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
	closeOnce sync.Once
}

// NewWatcher creates a watcher that keeps target in sync with config.Dir.
// Nothing is registered until Scan or Start is called.
func NewWatcher(target Target, config WatcherConfig) (*Watcher, error) {
	if config.Dir == "" {
		config.Dir = config.Root
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if config.Ignore == nil {
		config.Ignore = DefaultIgnore
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New(errors.CodeWatchStart).Wrap(err)
	}

	ignore := NewIgnorer(config.Ignore)
	return &Watcher{
		config:  config,
		target:  target,
		ignore:  ignore,
		scanner: router.NewScanner(config.Root).WithSkip(ignore.Skip),
		fsw:     fsw,
		logger:  logger.With("component", "watcher"),
		files:   make(map[string]router.FileKind),
		dirs:    make(map[string]string),
		pending: make(map[string]struct{}),
	}, nil
}

// OnEvent registers a callback for applied mutations. Callbacks run on the
// watcher goroutine after the route table has been updated.
func (w *Watcher) OnEvent(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Scan walks the watched directory, starts watching every directory in it
// and registers every file. It returns the files the router recognized.
func (w *Watcher) Scan() ([]string, error) {
	var events []Event
	var err error
	w.mu.Lock()
	w.target.Update(func(r *router.Router) {
		events, err = w.addTree(r, w.config.Dir)
	})
	w.mu.Unlock()
	if err != nil {
		return nil, errors.New(errors.CodeWatchStart).
			WithDetailf("could not watch %s", w.config.Dir).
			Wrap(err)
	}

	w.emit(events)
	files := make([]string, 0, len(events))
	for _, ev := range events {
		files = append(files, ev.Path)
	}
	sort.Strings(files)
	return files, nil
}

// Start processes file system events until ctx is canceled or Close is
// called. Scan should be called first; Start only applies changes.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return stderrors.New("watcher already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.stoppedCh = make(chan struct{})
	stopCh, stoppedCh := w.stopCh, w.stoppedCh
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(stoppedCh)
	}()

	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()
	defer timer.Stop()
	var timerC <-chan time.Time

	w.logger.Info("watching for route changes", "dir", w.config.Dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-stopCh:
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			w.mu.Lock()
			w.pending[ev.Name] = struct{}{}
			w.mu.Unlock()
			timer.Reset(w.config.Debounce)
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.config.Metrics.recordError()
			w.logger.Error("watch error", "error", err)

		case <-timerC:
			timerC = nil
			w.Flush()
		}
	}
}

// Close stops the watcher and releases its file system watches.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		running := w.running
		stopCh, stoppedCh := w.stopCh, w.stoppedCh
		w.mu.Unlock()

		if running {
			close(stopCh)
			<-stoppedCh
		}
		err = w.fsw.Close()
	})
	return err
}

// Flush applies pending changes immediately.
func (w *Watcher) Flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	clear(w.pending)
	// Parents sort before their entries, so a removed directory is handled
	// once as a whole.
	sort.Strings(paths)

	var events []Event
	if len(paths) > 0 {
		w.target.Update(func(r *router.Router) {
			for _, p := range paths {
				events = append(events, w.reconcile(r, p)...)
			}
		})
	}
	w.mu.Unlock()

	w.emit(events)
}

// Files returns the registered files in lexical order.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	files := make([]string, 0, len(w.files))
	for f, kind := range w.files {
		if kind != router.KindUnknown {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files
}

// Dirs returns the watched directories as router paths.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// reconcile brings the route table in line with the current state of
// osPath. Callers hold w.mu.
func (w *Watcher) reconcile(r *router.Router, osPath string) []Event {
	rel, err := w.scanner.Rel(osPath)
	if err != nil || w.ignore.Match(rel) {
		return nil
	}

	info, err := os.Stat(osPath)
	switch {
	case err == nil && info.IsDir():
		events, err := w.addTree(r, osPath)
		if err != nil {
			w.logger.Warn("could not watch directory", "dir", rel, "error", err)
		}
		return events

	case err == nil:
		if ev, ok := w.addFile(r, rel); ok {
			return []Event{ev}
		}
		return nil

	case stderrors.Is(err, fs.ErrNotExist):
		if _, ok := w.files[rel]; ok {
			if ev, ok := w.removeFile(r, rel); ok {
				return []Event{ev}
			}
			return nil
		}
		if _, ok := w.dirs[rel]; ok {
			return w.removeTree(r, rel)
		}
		return nil

	default:
		w.logger.Warn("could not stat file", "path", osPath, "error", err)
		return nil
	}
}

// addTree watches osDir and every directory beneath it and registers their
// files. Callers hold w.mu.
func (w *Watcher) addTree(r *router.Router, osDir string) ([]Event, error) {
	var events []Event
	err := w.scanner.Walk(osDir, func(osPath, rel string, isDir bool) error {
		if !isDir {
			if ev, ok := w.addFile(r, rel); ok {
				events = append(events, ev)
			}
			return nil
		}
		if _, ok := w.dirs[rel]; ok {
			return nil
		}
		if err := w.fsw.Add(osPath); err != nil {
			return err
		}
		w.dirs[rel] = osPath
		return nil
	})
	return events, err
}

// addFile registers a file not seen before. Callers hold w.mu.
func (w *Watcher) addFile(r *router.Router, rel string) (Event, bool) {
	if _, known := w.files[rel]; known {
		return Event{}, false
	}
	kind := r.Add(rel)
	w.files[rel] = kind
	if kind == router.KindUnknown {
		return Event{}, false
	}
	return Event{Type: EventAdd, Path: rel, Kind: kind, Time: time.Now()}, true
}

// removeFile unregisters a known file. Callers hold w.mu.
func (w *Watcher) removeFile(r *router.Router, rel string) (Event, bool) {
	kind, known := w.files[rel]
	if !known {
		return Event{}, false
	}
	delete(w.files, rel)
	if kind == router.KindUnknown || !r.Remove(rel) {
		return Event{}, false
	}
	return Event{Type: EventRemove, Path: rel, Kind: kind, Time: time.Now()}, true
}

// removeTree unregisters every file beneath a removed directory and prunes
// its branch unless a file elsewhere still maps into it, which happens when
// a (group) directory shares the canonical pattern. Callers hold w.mu.
func (w *Watcher) removeTree(r *router.Router, rel string) []Event {
	prefix := strings.TrimSuffix(rel, "/") + "/"

	var files []string
	for f := range w.files {
		if strings.HasPrefix(f, prefix) {
			files = append(files, f)
		}
	}
	sort.Strings(files)

	var events []Event
	for _, f := range files {
		if ev, ok := w.removeFile(r, f); ok {
			events = append(events, ev)
		}
	}
	for d := range w.dirs {
		if d == rel || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}

	pattern := dirPattern(rel)
	if !w.occupied(pattern) && r.Prune(pattern) {
		events = append(events, Event{Type: EventPrune, Path: rel, Time: time.Now()})
	}
	return events
}

// occupied reports whether a registered resource file maps to pattern or
// beneath it. Callers hold w.mu.
func (w *Watcher) occupied(pattern string) bool {
	for f, kind := range w.files {
		if !kind.IsResource() {
			continue
		}
		p := router.ParseMetadata(f).Pattern
		if pattern == "/" || p == pattern || strings.HasPrefix(p, pattern+"/") {
			return true
		}
	}
	return false
}

func (w *Watcher) emit(events []Event) {
	if len(events) == 0 {
		return
	}

	w.mu.Lock()
	listeners := slices.Clone(w.listeners)
	registered := 0
	for _, kind := range w.files {
		if kind != router.KindUnknown {
			registered++
		}
	}
	w.mu.Unlock()

	w.config.Metrics.setFiles(registered)
	for _, ev := range events {
		w.config.Metrics.record(ev)
		w.logger.Debug("route table updated", "event", ev.Type, "path", ev.Path, "kind", ev.Kind)
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

// dirPattern returns the canonical pattern of a directory path.
func dirPattern(rel string) string {
	if rel == "/" {
		return "/"
	}
	return router.ParseMetadata(filepath.ToSlash(rel) + "/_").Pattern
}
