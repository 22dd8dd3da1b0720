package chunk

import (
	"strings"
	"time"
)

// Chunker splits document text into bounded, boundary-aware chunks
// according to its configured strategy.
type Chunker struct {
	config Config
}

// New constructs a Chunker, validating its configuration.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: cfg}, nil
}

// Chunk splits text into an ordered sequence of chunks. Empty input is an
// error; input shorter than MinChunkSize yields a single chunk.
func (c *Chunker) Chunk(text string) ([]Chunk, error) {
	if text == "" {
		return nil, newChunkingError("cannot chunk empty input", nil)
	}
	if len(text) > streamThreshold {
		return c.chunkLargeTextStreaming(text), nil
	}
	if len(text) <= c.config.MinChunkSize {
		return []Chunk{{
			Content:  text,
			Metadata: buildMetadata(text, 0, len(text), 0, false, false),
		}}, nil
	}

	switch c.config.Strategy {
	case FixedSize:
		return chunkFixedSize(text, c.config), nil
	case Hybrid:
		return chunkHybrid(text, c.config), nil
	case MarkdownAware:
		return chunkMarkdownAware(text, c.config), nil
	case Semantic:
		fallthrough
	default:
		return chunkSemantic(text, c.config), nil
	}
}

// ChunkWithMetrics behaves like Chunk but also reports timing and estimated
// memory usage.
func (c *Chunker) ChunkWithMetrics(text string) ([]Chunk, PerformanceMetrics, error) {
	start := time.Now()
	chunks, err := c.Chunk(text)
	elapsed := time.Since(start)
	if err != nil {
		return nil, PerformanceMetrics{}, err
	}

	memory := 0
	for _, ch := range chunks {
		memory += len(ch.Content)
	}
	metrics := PerformanceMetrics{
		ProcessingTime:  elapsed,
		MemoryUsageByte: memory,
	}
	if elapsed > 0 {
		metrics.CharsPerMs = float64(len(text)) / float64(elapsed.Milliseconds()+1)
	}
	return chunks, metrics, nil
}

// chunkLargeTextStreaming processes text larger than streamThreshold in
// streamWindowSize windows, each extended to the next good boundary, then
// remaps window-local offsets to global offsets before returning.
func (c *Chunker) chunkLargeTextStreaming(text string) []Chunk {
	detector := boundaryDetector{}
	textLen := len(text)

	var all []Chunk
	position := 0

	for position < textLen {
		windowEnd := position + streamWindowSize
		if windowEnd >= textLen {
			windowEnd = textLen
		} else {
			searchRange := c.config.MaxChunkSize
			extended := detector.findBestBoundary(text, windowEnd, searchRange)
			if extended > windowEnd && extended <= textLen {
				windowEnd = extended
			}
		}

		window := text[position:windowEnd]
		var windowChunks []Chunk
		switch c.config.Strategy {
		case FixedSize:
			windowChunks = chunkFixedSize(window, c.config)
		case Hybrid:
			windowChunks = chunkHybrid(window, c.config)
		case MarkdownAware:
			windowChunks = chunkMarkdownAware(window, c.config)
		default:
			windowChunks = chunkSemantic(window, c.config)
		}

		for _, wc := range windowChunks {
			wc.Metadata.StartPosition += position
			wc.Metadata.EndPosition += position
			all = append(all, wc)
		}

		if windowEnd >= textLen {
			break
		}
		position = windowEnd
	}

	for i := range all {
		all[i].Metadata.ChunkIndex = i
	}
	return finalizeChunks(all)
}

// IsWhitespaceOnly reports whether text contains no non-whitespace runes.
func IsWhitespaceOnly(text string) bool {
	return strings.TrimSpace(text) == ""
}
