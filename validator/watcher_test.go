package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeStore(t *testing.T) {
	store := NewShapeStore(nil)
	assert.Equal(t, DefaultShapes().Version, store.Current().Version, "nil seed falls back to defaults")

	custom := &Shapes{Version: "custom-1"}
	store.Replace(custom)
	assert.Same(t, custom, store.Current())
}

func TestShapeWatcherLoadsInitialShapes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: initial-1\n"), 0644))

	store := NewShapeStore(nil)
	watcher, err := NewShapeWatcher(path, store, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Equal(t, "initial-1", store.Current().Version)
}

func TestShapeWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: v1\n"), 0644))

	store := NewShapeStore(nil)
	watcher, err := NewShapeWatcher(path, store, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("version: v2\n"), 0644))

	assert.Eventually(t, func() bool {
		return store.Current().Version == "v2"
	}, 3*time.Second, 25*time.Millisecond)
}

func TestShapeWatcherKeepsPreviousOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: good-1\n"), 0644))

	store := NewShapeStore(nil)
	watcher, err := NewShapeWatcher(path, store, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte(":: not yaml ::"), 0644))

	// Give the debounce time to fire, then confirm the previous shapes
	// are still active.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, "good-1", store.Current().Version)
}

func TestShapeWatcherMissingFile(t *testing.T) {
	store := NewShapeStore(nil)
	_, err := NewShapeWatcher("/does/not/exist.yaml", store)
	assert.Error(t, err)
}
