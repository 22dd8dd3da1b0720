package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/vaultindex/internal/chunk"
	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/pipeline"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// fakeEmbedder returns a deterministic vector derived from text length.
type fakeEmbedder struct {
	failEmbed bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.failEmbed {
		return nil, errors.New("embedder unavailable")
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

func newTestServer(t *testing.T) (*Server, *vectorstore.Store, *pipeline.Pipeline) {
	t.Helper()

	dir := t.TempDir()
	store, err := vectorstore.Open(vectorstore.DefaultConfig(filepath.Join(dir, "store")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	chunker, err := chunk.New(chunk.DefaultConfig())
	require.NoError(t, err)
	embedder := &fakeEmbedder{}

	pcfg := pipeline.DefaultConfig()
	pcfg.EnableResume = false
	p := pipeline.New(pcfg, chunker, embedder, store)
	require.NoError(t, p.Start())
	t.Cleanup(p.Stop)

	srv, err := NewServer(p, store, embedder, config.NewConfig(), dir)
	require.NoError(t, err)

	return srv, store, p
}

func TestNewServer_RequiresPipelineAndStore(t *testing.T) {
	_, err := NewServer(nil, nil, nil, nil, "")
	assert.Error(t, err)
}

func TestServer_Info(t *testing.T) {
	srv, _, _ := newTestServer(t)
	name, ver := srv.Info()
	assert.Equal(t, "vaultindex", name)
	assert.NotEmpty(t, ver)
}

func TestServer_ListTools_IncludesAllSevenTools(t *testing.T) {
	srv, _, _ := newTestServer(t)
	tools := srv.ListTools()

	names := make(map[string]bool)
	for _, tl := range tools {
		names[tl.Name] = true
	}

	for _, want := range []string{
		"queue_file", "bulk_index_vault", "pipeline_status",
		"search_notes", "health_check", "rebuild_index", "compact_store",
	} {
		assert.True(t, names[want], "expected tool %s to be registered", want)
	}
}

func TestServer_CallTool_UnknownToolReturnsNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_, err := srv.CallTool(context.Background(), "does_not_exist", nil)
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestServer_CallTool_QueueFile_RejectsEmptyPath(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_, err := srv.CallTool(context.Background(), "queue_file", map[string]any{"path": ""})
	require.Error(t, err)
}

func TestServer_CallTool_QueueFile_QueuesAndReturnsRequestID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("some note content"), 0o644))

	out, err := srv.CallTool(context.Background(), "queue_file", map[string]any{"path": path})
	require.NoError(t, err)
	result, ok := out.(*QueueFileOutput)
	require.True(t, ok)
	assert.Greater(t, result.RequestID, uint64(0))
}

func TestServer_CallTool_PipelineStatus_NeverPanicsOnFreshPipeline(t *testing.T) {
	srv, _, _ := newTestServer(t)
	out, err := srv.CallTool(context.Background(), "pipeline_status", nil)
	require.NoError(t, err)
	status, ok := out.(*PipelineStatusOutput)
	require.True(t, ok)
	assert.Equal(t, uint64(0), status.CompletedFiles)
}

func TestServer_CallTool_SearchNotes_RequiresQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_, err := srv.CallTool(context.Background(), "search_notes", map[string]any{"query": "   "})
	require.Error(t, err)
}

func TestServer_CallTool_SearchNotes_ReturnsScoredResults(t *testing.T) {
	srv, store, _ := newTestServer(t)

	entries := []vectorstore.EmbeddingEntry{
		vectorstore.NewEntry([]float32{1, 0, 0}, "a.md", "chunk_0", "alpha", "fake-model"),
		vectorstore.NewEntry([]float32{0, 1, 0}, "b.md", "chunk_0", "beta", "fake-model"),
	}
	require.NoError(t, store.StoreEntries(entries))

	out, err := srv.CallTool(context.Background(), "search_notes", map[string]any{"query": "a", "k": float64(5)})
	require.NoError(t, err)
	result, ok := out.(*SearchNotesOutput)
	require.True(t, ok)
	assert.NotEmpty(t, result.Results)
}

func TestServer_CallTool_HealthCheck_ReportsHealthyOnFreshStore(t *testing.T) {
	srv, _, _ := newTestServer(t)
	out, err := srv.CallTool(context.Background(), "health_check", nil)
	require.NoError(t, err)
	health, ok := out.(*HealthCheckOutput)
	require.True(t, ok)
	assert.Equal(t, "healthy", health.Status)
}

func TestServer_CallTool_CompactStore_RunsWithoutError(t *testing.T) {
	srv, _, _ := newTestServer(t)
	out, err := srv.CallTool(context.Background(), "compact_store", nil)
	require.NoError(t, err)
	_, ok := out.(*CompactStoreOutput)
	assert.True(t, ok)
}

func TestServer_SetMetrics_NilDoesNotPanic(t *testing.T) {
	srv, _, _ := newTestServer(t)
	assert.NotPanics(t, func() { srv.SetMetrics(nil) })
}

func TestServer_Close_IsIdempotent(t *testing.T) {
	srv, _, _ := newTestServer(t)
	assert.NoError(t, srv.Close())
	assert.NoError(t, srv.Close())
}
