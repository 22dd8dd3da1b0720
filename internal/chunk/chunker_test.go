package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_EmptyInputErrors(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = c.Chunk("")
	require.Error(t, err)
}

func TestChunker_ShortInputSingleChunk(t *testing.T) {
	cfg := DefaultConfig()
	c, err := New(cfg)
	require.NoError(t, err)

	chunks, err := c.Chunk("too short")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "too short", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].Metadata.TotalChunks)
}

func TestChunker_FixedSizeForwardProgress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = FixedSize
	cfg.MaxChunkSize = 200
	cfg.OverlapSize = 20
	cfg.MinChunkSize = 50
	c, err := New(cfg)
	require.NoError(t, err)

	text := strings.Repeat("word ", 400)
	chunks, err := c.Chunk(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Metadata.ChunkIndex)
		assert.Equal(t, len(chunks), ch.Metadata.TotalChunks)
		assert.True(t, ch.Metadata.EndPosition > ch.Metadata.StartPosition)
		assert.True(t, ch.Metadata.EndPosition <= len(text))
	}
}

func TestChunker_SemanticPrefersParagraphBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = Semantic
	cfg.MaxChunkSize = 220
	cfg.MinChunkSize = 50
	cfg.OverlapSize = 20
	c, err := New(cfg)
	require.NoError(t, err)

	para1 := strings.Repeat("alpha beta gamma delta. ", 8)
	para2 := strings.Repeat("epsilon zeta eta theta. ", 8)
	text := para1 + "\n\n" + para2

	chunks, err := c.Chunk(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
}

func TestChunker_MarkdownAwareNeverSplitsCodeBlock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = MarkdownAware
	cfg.MaxChunkSize = 200
	cfg.MinChunkSize = 20
	cfg.OverlapSize = 10
	c, err := New(cfg)
	require.NoError(t, err)

	code := "```go\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n```"
	text := "# Title\n\nSome intro text that is reasonably long to force a cut near the code block.\n\n" + code + "\n\nMore trailing text after the block."

	chunks, err := c.Chunk(text)
	require.NoError(t, err)

	for _, ch := range chunks {
		if strings.Contains(ch.Content, "```go") {
			assert.Contains(t, ch.Content, "```\n", "code block fence should be closed within the same chunk")
		}
	}
}

func TestChunker_InvalidConfigRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChunkSize = 10
	_, err := New(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.OverlapSize = cfg.MaxChunkSize
	_, err = New(cfg)
	require.Error(t, err)
}

func TestIsWhitespaceOnly(t *testing.T) {
	assert.True(t, IsWhitespaceOnly("   \n\t  "))
	assert.False(t, IsWhitespaceOnly("  x "))
}
