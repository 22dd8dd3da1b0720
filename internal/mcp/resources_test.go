package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

func TestServer_HandleReadResource_ReturnsContent(t *testing.T) {
	srv, store, _ := newTestServer(t)

	notePath := filepath.Join(srv.rootPath, "note.md")
	require.NoError(t, os.WriteFile(notePath, []byte("hello from a note"), 0o644))

	entry := vectorstore.NewEntry([]float32{1, 0, 0}, "note.md", "chunk_0", "hello from a note", "fake-model")
	require.NoError(t, store.StoreEntries([]vectorstore.EmbeddingEntry{entry}))

	result, err := srv.handleReadResource(context.Background(), "note.md")
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "hello from a note", result.Contents[0].Text)
}

func TestServer_HandleReadResource_RejectsUnindexedFile(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_, err := srv.handleReadResource(context.Background(), "unknown.md")
	assert.Error(t, err)
}

func TestServer_HandleReadResource_RejectsPathTraversal(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_, err := srv.handleReadResource(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestIsValidPath(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cases := map[string]bool{
		"note.md":              true,
		"folder/note.md":       true,
		"../outside.md":        false,
		"/absolute/note.md":    false,
		"folder/../../up.md":   false,
		"":                     false,
	}
	for path, want := range cases {
		assert.Equal(t, want, srv.isValidPath(path), "path=%q", path)
	}
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.0 KB", humanSize(1024))
	assert.Equal(t, "1.0 MB", humanSize(1024*1024))
}

func TestServer_RegisterResources_DedupesByFilePath(t *testing.T) {
	srv, store, _ := newTestServer(t)

	entries := []vectorstore.EmbeddingEntry{
		vectorstore.NewEntry([]float32{1, 0, 0}, "a.md", "chunk_0", "alpha", "fake-model"),
		vectorstore.NewEntry([]float32{0, 1, 0}, "a.md", "chunk_1", "beta", "fake-model"),
	}
	require.NoError(t, store.StoreEntries(entries))

	assert.NoError(t, srv.RegisterResources(context.Background()))
}
