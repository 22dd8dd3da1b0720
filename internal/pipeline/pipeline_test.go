package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/vaultindex/internal/chunk"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// fakeEmbedder produces a deterministic low-dimensional vector from text
// length, avoiding any network dependency in pipeline tests. Any text
// containing failOn fails to embed.
type fakeEmbedder struct {
	failOn string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, assertErr
	}
	return []float32{float32(len(text)) + 1, 1, 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                { return 3 }
func (f *fakeEmbedder) ModelName() string              { return "fake-model" }
func (f *fakeEmbedder) Available(context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                   { return nil }
func (f *fakeEmbedder) SetBatchIndex(int)              {}
func (f *fakeEmbedder) SetFinalBatch(bool)             {}

var assertErr = &embedFailure{}

type embedFailure struct{}

func (e *embedFailure) Error() string { return "embedding failed" }

func newTestPipeline(t *testing.T, embedder *fakeEmbedder) (*Pipeline, *vectorstore.Store) {
	t.Helper()
	chunker, err := chunk.New(chunk.DefaultConfig())
	require.NoError(t, err)

	store, err := vectorstore.Open(vectorstore.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := DefaultConfig()
	cfg.EnableResume = false
	cfg.ProgressInterval = 20 * time.Millisecond
	cfg.DebounceWindow = 30 * time.Millisecond

	return New(cfg, chunker, embedder, store), store
}

func TestPipeline_QueueFileAndProcessToCompletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("hello world, this is a note about testing pipelines."), 0o644))

	p, store := newTestPipeline(t, &fakeEmbedder{})
	require.NoError(t, p.Start())
	defer p.Stop()

	id, err := p.QueueFile(path, UserTriggered)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, ok := p.RequestStatus(id)
		return ok && status == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Greater(t, store.Count(), 0)
}

func TestPipeline_ProcessFileIsAllOrNothingPerFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	// Over the default 1000-char MaxChunkSize, so the failing text lands in a
	// later chunk than the first.
	content := strings.Repeat("first chunk text that is reasonably long so it forms its own chunk boundary here. ", 15) +
		"second-chunk-fails"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, store := newTestPipeline(t, &fakeEmbedder{failOn: "second-chunk-fails"})

	err := p.processFile(context.Background(), path)
	assert.Error(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestPipeline_BulkIndexVaultQueuesMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("alpha content"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("beta content"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("ignored"), 0o644))

	p, _ := newTestPipeline(t, &fakeEmbedder{})
	ids, err := p.BulkIndexVault(dir, Automatic, "*.md")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestPipeline_IndexChangedDebouncesRepeatedEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	p, _ := newTestPipeline(t, &fakeEmbedder{})

	var queuedCount int
	done := make(chan struct{}, 10)
	onQueued := func(_ string, _ uint64, err error) {
		if err == nil {
			queuedCount++
		}
		done <- struct{}{}
	}

	p.IndexChanged([]string{path}, onQueued)
	p.IndexChanged([]string{path}, onQueued)
	p.IndexChanged([]string{path}, onQueued)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced callback")
	}

	assert.Equal(t, 1, queuedCount)
	assert.Equal(t, 1, p.QueueStats()[FileChanged])
}

func TestPipeline_StopPreventsFurtherIndexMutations(t *testing.T) {
	p, store := newTestPipeline(t, &fakeEmbedder{})
	require.NoError(t, p.Start())
	p.Stop()

	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("content queued after stop"), 0o644))
	_, err := p.QueueFile(path, UserTriggered)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	assert.False(t, p.IsRunning())
	assert.Equal(t, 0, store.Count())
}
