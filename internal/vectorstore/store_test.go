package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, compression Compression) *Store {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.Compression = compression
	cfg.MaxEntriesPerFile = 2
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleEntries(n int) []EmbeddingEntry {
	out := make([]EmbeddingEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NewEntry(
			[]float32{float32(i) + 0.1, float32(i) + 0.2, float32(i) + 0.3},
			"notes/file.md",
			"chunk-"+string(rune('a'+i)),
			"some chunk text "+string(rune('a'+i)),
			"nomic-embed-text",
		))
	}
	return out
}

func TestStore_StoreAndRetrieveRoundTrip(t *testing.T) {
	for _, algo := range []Compression{CompressionNone, CompressionGzip, CompressionLz4} {
		t.Run(string(algo), func(t *testing.T) {
			s := newTestStore(t, algo)
			entries := sampleEntries(3)
			require.NoError(t, s.StoreEntries(entries))

			assert.Equal(t, 3, s.Count())
			got, ok, err := s.Retrieve(entries[0].ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, entries[0].Vector, got.Vector)
			assert.Equal(t, entries[0].Metadata.FilePath, got.Metadata.FilePath)
		})
	}
}

func TestStore_RetrieveUnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t, CompressionGzip)
	_, ok, err := s.Retrieve("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RetrieveManyAcrossMultipleBatchFiles(t *testing.T) {
	s := newTestStore(t, CompressionGzip)
	entries := sampleEntries(5) // MaxEntriesPerFile=2 forces 3 files
	require.NoError(t, s.StoreEntries(entries))

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	got, err := s.RetrieveMany(ids)
	require.NoError(t, err)
	assert.Len(t, got, len(entries))
}

func TestStore_DeleteRemovesFromIndexButKeepsBytes(t *testing.T) {
	s := newTestStore(t, CompressionNone)
	entries := sampleEntries(2)
	require.NoError(t, s.StoreEntries(entries))

	s.Delete(entries[0].ID)
	assert.Equal(t, 1, s.Count())
	_, ok, err := s.Retrieve(entries[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RebuildsIndexFromDiskOnReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	s1, err := Open(cfg)
	require.NoError(t, err)
	entries := sampleEntries(4)
	require.NoError(t, s1.StoreEntries(entries))
	require.NoError(t, s1.Close())

	s2, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })
	assert.Equal(t, 4, s2.Count())
}

func TestStore_RejectsInvalidEntries(t *testing.T) {
	s := newTestStore(t, CompressionNone)

	bad := NewEntry(nil, "f.md", "c1", "text", "model")
	err := s.StoreEntries([]EmbeddingEntry{bad})
	assert.Error(t, err)

	zeroVec := NewEntry([]float32{0, 0, 0}, "f.md", "c1", "text", "model")
	err = s.StoreEntries([]EmbeddingEntry{zeroVec})
	assert.Error(t, err)
}
