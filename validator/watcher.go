package validator

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ShapeStore hands out the current shapes and supports atomic replacement.
// Readers always see a complete, immutable shapes value: long-running batch
// checks keep the snapshot they started with.
type ShapeStore struct {
	mu     sync.RWMutex
	shapes *Shapes
}

// NewShapeStore creates a store seeded with the given shapes.
func NewShapeStore(shapes *Shapes) *ShapeStore {
	if shapes == nil {
		shapes = DefaultShapes()
	}
	return &ShapeStore{shapes: shapes}
}

// Current returns the active shapes snapshot.
func (s *ShapeStore) Current() *Shapes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shapes
}

// Replace swaps in a new shapes value.
func (s *ShapeStore) Replace(shapes *Shapes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shapes = shapes
}

// ShapeWatcher reloads the shapes file when it changes on disk, debouncing
// editor write bursts. A file that fails to parse is logged and skipped; the
// previous shapes stay active.
type ShapeWatcher struct {
	path    string
	store   *ShapeStore
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	debounce time.Duration

	pendingMu sync.Mutex
	pending   bool
}

// WatcherOption configures a ShapeWatcher.
type WatcherOption func(*ShapeWatcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *ShapeWatcher) {
		w.logger = logger
	}
}

// WithDebounce overrides the reload debounce delay.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *ShapeWatcher) {
		w.debounce = d
	}
}

// NewShapeWatcher creates a watcher for the shapes file at path, loading the
// initial shapes into the store.
func NewShapeWatcher(path string, store *ShapeStore, opts ...WatcherOption) (*ShapeWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &ShapeWatcher{
		path:     path,
		store:    store,
		watcher:  fsw,
		logger:   slog.Default(),
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}

	shapes, err := LoadShapes(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	store.Replace(shapes)

	return w, nil
}

// Start begins watching the shapes file. Watching the parent directory covers
// editors that replace the file by rename.
func (w *ShapeWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Shapes watcher started",
		"path", w.path,
		"version", w.store.Current().Version)
	return nil
}

// Stop stops the watcher.
func (w *ShapeWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *ShapeWatcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.pendingMu.Lock()
				w.pending = true
				w.pendingMu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Shapes watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *ShapeWatcher) flushPending() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !pending {
		return
	}

	shapes, err := LoadShapes(w.path)
	if err != nil {
		w.logger.Error("Failed to reload shapes, keeping previous version",
			"path", w.path,
			"error", err)
		return
	}

	w.store.Replace(shapes)
	w.logger.Info("Shapes reloaded",
		"path", w.path,
		"version", shapes.Version)
}
