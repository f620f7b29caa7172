package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor returns the first event for path.
func waitFor(t *testing.T, events <-chan ChangeEvent, path string) ChangeEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed")
			if ev.Path == path {
				return ev
			}
		case <-timeout:
			require.FailNow(t, "no event for "+path)
		}
	}
}

func TestFSSource(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "posts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "react"), 0o755))

	src, err := NewFSSource(root, nil, IgnoreFilter([]string{"node_modules"}))
	require.NoError(t, err)
	defer src.Close()

	for _, dir := range src.WatchList() {
		assert.NotContains(t, dir, "node_modules")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := src.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "posts", "hello.md"), []byte("hi"), 0o644))
	ev := waitFor(t, events, "src/posts/hello.md")
	assert.Contains(t, []EventType{EventTypeCreated, EventTypeModified}, ev.Type)

	// directories created later are watched too
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "islands"), 0o755))
	waitFor(t, events, "src/islands")
	require.Eventually(t, func() bool {
		for _, dir := range src.WatchList() {
			if dir == filepath.Join(root, "src", "islands") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "islands", "counter.tsx"), []byte("x"), 0o644))
	waitFor(t, events, "src/islands/counter.tsx")

	cancel()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("event stream not closed after cancel")
		}
	}
}

func TestFSSourceIgnoresFilteredPaths(t *testing.T) {
	root := t.TempDir()
	src, err := NewFSSource(root, nil, NoTempFilter)
	require.NoError(t, err)
	defer src.Close()

	events, err := src.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md~"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("x"), 0o644))

	ev := waitFor(t, events, "notes.md")
	assert.Equal(t, "notes.md", ev.Path)
}

func TestFSSourceMissingRoot(t *testing.T) {
	_, err := NewFSSource(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}
