package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/docsift/internal/indexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	ingested []string
	removed  []string
}

func (s *recordingSink) IngestFile(ctx context.Context, path string) (*indexer.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingested = append(s.ingested, path)
	return &indexer.IngestResult{ID: int64(len(s.ingested))}, nil
}

func (s *recordingSink) RemoveFile(ctx context.Context, path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, path)
	return 1, nil
}

func (s *recordingSink) sawIngest(suffix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.ingested, func(p string) bool { return strings.HasSuffix(p, suffix) })
}

func (s *recordingSink) sawRemove(suffix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.removed, func(p string) bool { return strings.HasSuffix(p, suffix) })
}

func textOnly(rel string) bool {
	ext := strings.ToLower(filepath.Ext(rel))
	return ext == ".txt" || ext == ".md"
}

func startWatcher(t *testing.T, sink Sink, roots []string, opts ...WatcherOption) *Watcher {
	t.Helper()
	opts = append([]WatcherOption{WithDebounce(50 * time.Millisecond), WithFilter(textOnly)}, opts...)
	w := NewWatcher(sink, roots, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		w.Stop()
		cancel()
	})
	require.NoError(t, w.Start(ctx))
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, &recordingSink{}, nil)

	require.NoError(t, w.AddDirectory(dir, false))
	require.NoError(t, w.AddDirectory(dir, false))
	assert.Equal(t, []string{filepath.Clean(dir)}, w.Directories())

	require.NoError(t, w.RemoveDirectory(dir))
	assert.Empty(t, w.Directories())
}

func TestWatcher_ingestsCreatedFiles(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	startWatcher(t, sink, []string{dir})

	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	writeFile(t, filepath.Join(dir, "image.xyz"), "skip")

	require.Eventually(t, func() bool { return sink.sawIngest("notes.txt") }, 3*time.Second, 20*time.Millisecond)
	assert.False(t, sink.sawIngest("image.xyz"))
}

func TestWatcher_debouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	startWatcher(t, sink, []string{dir}, WithDebounce(300*time.Millisecond))

	path := filepath.Join(dir, "draft.md")
	for i := 0; i < 5; i++ {
		writeFile(t, path, strings.Repeat("x", i+1))
	}
	require.Eventually(t, func() bool { return sink.sawIngest("draft.md") }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.ingested, 1)
}

func TestWatcher_removesDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	writeFile(t, path, "bye")
	sink := &recordingSink{}
	startWatcher(t, sink, []string{dir})

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return sink.sawRemove("gone.txt") }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "ignore.xyz"), "x")
	sink := &recordingSink{}
	w := startWatcher(t, sink, []string{dir})

	w.SyncExistingFiles()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.ingested, 1)
	assert.True(t, strings.HasSuffix(sink.ingested[0], "a.txt"))
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, &recordingSink{}, []string{root})

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWatcher_newDirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	startWatcher(t, sink, []string{dir})

	nested := filepath.Join(dir, "level1", "level2")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(nested, "deep.txt"), "deep content")
	writeFile(t, filepath.Join(dir, "level1", "doc.md"), "world")

	require.Eventually(t, func() bool {
		return sink.sawIngest("deep.txt") && sink.sawIngest("doc.md")
	}, 3*time.Second, 20*time.Millisecond)
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
		{"/tmp/a", "/tmp/ab", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
