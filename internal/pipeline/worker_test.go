package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/vaultindex/internal/chunk"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

func newTestWorkerPipeline(t *testing.T, embedder *fakeEmbedder) (*Pipeline, *vectorstore.Store) {
	t.Helper()
	chunker, err := chunk.New(chunk.DefaultConfig())
	require.NoError(t, err)

	store, err := vectorstore.Open(vectorstore.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return New(DefaultConfig(), chunker, embedder, store), store
}

func TestProcessFile_SingleChunkStoresExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("a short note about apples and oranges."), 0o644))

	p, store := newTestWorkerPipeline(t, &fakeEmbedder{})
	require.NoError(t, p.processFile(context.Background(), path))
	assert.Greater(t, store.Count(), 0)
}

func TestProcessFile_EmptyFileIsSkippedWithoutError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	p, store := newTestWorkerPipeline(t, &fakeEmbedder{})
	require.NoError(t, p.processFile(context.Background(), path))
	assert.Equal(t, 0, store.Count())
}

func TestProcessFile_MidFileEmbeddingFailureStoresNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	// Over the default 1000-char MaxChunkSize, so the failing text lands in a
	// later chunk than the first.
	content := strings.Repeat("a reasonably long first paragraph so it forms its own chunk on its own terms here. ", 15) +
		"boom-fails-here"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, store := newTestWorkerPipeline(t, &fakeEmbedder{failOn: "boom-fails-here"})

	err := p.processFile(context.Background(), path)
	assert.Error(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestProcessFile_AbortsImmediatelyOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("content that would otherwise embed fine"), 0o644))

	p, store := newTestWorkerPipeline(t, &fakeEmbedder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.processFile(ctx, path)
	assert.Error(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestProcessFile_MissingFileReturnsError(t *testing.T) {
	p, _ := newTestWorkerPipeline(t, &fakeEmbedder{})
	err := p.processFile(context.Background(), "/nonexistent/path/does-not-exist.md")
	assert.Error(t, err)
}
