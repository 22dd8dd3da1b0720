package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/vaultindex/internal/chunk"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// fakeEmbedder returns a deterministic vector derived from text length, so
// re-embedding the same content always yields the same vector.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)) + 1, 1, 1}, nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(ctx, t)
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int                { return 3 }
func (fakeEmbedder) ModelName() string              { return "fake-model" }
func (fakeEmbedder) Available(context.Context) bool { return true }
func (fakeEmbedder) Close() error                   { return nil }
func (fakeEmbedder) SetBatchIndex(int)              {}
func (fakeEmbedder) SetFinalBatch(bool)             {}

func newTestStore(t *testing.T) *vectorstore.Store {
	t.Helper()
	store, err := vectorstore.Open(vectorstore.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestChunker(t *testing.T) *chunk.Chunker {
	t.Helper()
	c, err := chunk.New(chunk.DefaultConfig())
	require.NoError(t, err)
	return c
}

func TestRunCycle_CompactsAndReportsStats(t *testing.T) {
	store := newTestStore(t)
	entries := []vectorstore.EmbeddingEntry{
		vectorstore.NewEntry([]float32{1, 0, 0}, "a.md", "chunk_0", "alpha", "fake-model"),
		vectorstore.NewEntry([]float32{0, 1, 0}, "b.md", "chunk_0", "beta", "fake-model"),
	}
	require.NoError(t, store.StoreEntries(entries))
	store.Delete(entries[0].ID)

	result, err := RunCycle(store)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.EntriesRemaining)
}

func TestHealthChecker_HealthyStoreReportsHealthy(t *testing.T) {
	store := newTestStore(t)
	entries := []vectorstore.EmbeddingEntry{
		vectorstore.NewEntry([]float32{1, 0, 0}, "a.md", "chunk_0", "alpha content here", "fake-model"),
		vectorstore.NewEntry([]float32{0, 1, 0}, "b.md", "chunk_0", "beta content here", "fake-model"),
	}
	require.NoError(t, store.StoreEntries(entries))

	checker := NewHealthChecker(store, DefaultHealthConfig())
	report, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Healthy, report.Status)
	assert.Equal(t, 2, report.EntriesLive)
	assert.Less(t, report.CheckDuration, time.Second)
}

func TestHealthChecker_DetectsCorruptFile(t *testing.T) {
	store := newTestStore(t)
	entries := []vectorstore.EmbeddingEntry{
		vectorstore.NewEntry([]float32{1, 0, 0}, "a.md", "chunk_0", "alpha content here", "fake-model"),
	}
	require.NoError(t, store.StoreEntries(entries))

	dir := store.StorageDir()
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	var batchFile string
	for _, f := range files {
		if !f.IsDir() {
			batchFile = filepath.Join(dir, f.Name())
			break
		}
	}
	require.NotEmpty(t, batchFile)
	require.NoError(t, os.WriteFile(batchFile, []byte("not json"), 0o644))

	checker := NewHealthChecker(store, DefaultHealthConfig())
	report, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Critical, report.Status)
	assert.NotEmpty(t, report.Issues)
}

func TestRebuilder_SkipsReembeddingUnchangedChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("unchanged content for this note"), 0o644))

	store := newTestStore(t)
	chunker := newTestChunker(t)
	embedder := fakeEmbedder{}

	original := vectorstore.NewEntry([]float32{9, 9, 9}, path, "chunk_0", "unchanged content for this note", "fake-model")
	require.NoError(t, store.StoreEntries([]vectorstore.EmbeddingEntry{original}))

	rebuilder := NewRebuilder(store, chunker, embedder, DefaultRebuildConfig())
	result, err := rebuilder.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, PhaseCompleted, result.FinalPhase)

	got, found, err := store.Retrieve(original.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, original.Vector, got.Vector)
}

func TestRebuilder_ReembedsChangedChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("new content that replaced the old text"), 0o644))

	store := newTestStore(t)
	chunker := newTestChunker(t)
	embedder := fakeEmbedder{}

	stale := vectorstore.NewEntry([]float32{9, 9, 9}, path, "chunk_0", "old text that no longer matches", "fake-model")
	require.NoError(t, store.StoreEntries([]vectorstore.EmbeddingEntry{stale}))

	rebuilder := NewRebuilder(store, chunker, embedder, DefaultRebuildConfig())
	result, err := rebuilder.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, found, err := store.Retrieve(stale.ID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Greater(t, store.Count(), 0)
}

func TestRebuilder_ReportsProgress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("some content for progress reporting"), 0o644))

	store := newTestStore(t)
	chunker := newTestChunker(t)
	embedder := fakeEmbedder{}

	entry := vectorstore.NewEntry([]float32{1, 1, 1}, path, "chunk_0", "some content for progress reporting", "fake-model")
	require.NoError(t, store.StoreEntries([]vectorstore.EmbeddingEntry{entry}))

	cfg := DefaultRebuildConfig()
	cfg.ProgressInterval = 5 * time.Millisecond
	rebuilder := NewRebuilder(store, chunker, embedder, cfg)

	var snapshots []RebuildProgress
	_, err := rebuilder.Run(context.Background(), func(p RebuildProgress) {
		snapshots = append(snapshots, p)
	})
	require.NoError(t, err)
	require.NotEmpty(t, snapshots)
	assert.Equal(t, PhaseCompleted, snapshots[len(snapshots)-1].Phase)
}
