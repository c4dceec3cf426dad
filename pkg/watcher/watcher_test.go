package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/stp2stl/pkg/watcher"
)

func TestWatchTriggersDebouncedCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.step")
	other := filepath.Join(dir, "other.step")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("v1"), 0o644))

	fw, err := watcher.NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()

	changed := make(chan string, 10)
	require.NoError(t, fw.Watch([]string{path}, func(p string) { changed <- p }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()

	require.NoError(t, os.WriteFile(other, []byte("v2"), 0o644))
	for i := range 3 {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}

	select {
	case got := <-changed:
		want, err := filepath.Abs(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRemoveAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.step")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	fw, err := watcher.NewFileWatcher(time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()

	changed := make(chan string, 1)
	require.NoError(t, fw.Watch([]string{path}, func(p string) { changed <- p }))
	require.NoError(t, fw.RemoveAll())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	select {
	case got := <-changed:
		t.Fatalf("unexpected change reported for %s", got)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
