package chunk

import "strings"

// chunkFixedSize slides a window of MaxChunkSize with step
// MaxChunkSize-OverlapSize, always making forward progress.
func chunkFixedSize(text string, cfg Config) []Chunk {
	textLen := len(text)
	max := cfg.MaxChunkSize
	overlap := cfg.OverlapSize

	var chunks []Chunk
	position := 0

	for position < textLen {
		end := position + max
		if end > textLen {
			end = textLen
		}
		slice := text[position:end]

		chunks = append(chunks, Chunk{
			Content: slice,
			Metadata: buildMetadata(slice, position, end, len(chunks),
				len(chunks) > 0, end < textLen),
		})

		if end >= textLen {
			break
		}
		next := end - overlap
		if next <= position {
			next = end
		}
		position = next
	}

	return finalizeChunks(chunks)
}

// chunkSemantic extends each tentative cut to the nearest paragraph/sentence
// boundary within a quarter of MaxChunkSize.
func chunkSemantic(text string, cfg Config) []Chunk {
	textLen := len(text)
	max := cfg.MaxChunkSize
	min := cfg.MinChunkSize
	overlap := cfg.OverlapSize
	detector := boundaryDetector{}

	var chunks []Chunk
	position := 0

	for position < textLen {
		targetEnd := position + max
		if targetEnd > textLen {
			targetEnd = textLen
		}

		if targetEnd >= textLen || textLen-position <= min {
			slice := text[position:textLen]
			if strings.TrimSpace(slice) != "" {
				chunks = append(chunks, Chunk{
					Content: slice,
					Metadata: buildMetadata(slice, position, textLen, len(chunks),
						len(chunks) > 0, false),
				})
			}
			break
		}

		searchRange := max / 4
		actualEnd := detector.findBestBoundary(text, targetEnd, searchRange)

		slice := text[position:actualEnd]
		if strings.TrimSpace(slice) != "" && len(slice) >= min {
			chunks = append(chunks, Chunk{
				Content: slice,
				Metadata: buildMetadata(slice, position, actualEnd, len(chunks),
					len(chunks) > 0, actualEnd < textLen),
			})
		}

		next := actualEnd - overlap
		if next <= actualEnd && next > position {
			position = next
		} else {
			position = actualEnd
		}
	}

	return finalizeChunks(chunks)
}

// chunkHybrid prefers a semantic boundary but falls back to the hard limit
// when no boundary lands far enough from the chunk start.
func chunkHybrid(text string, cfg Config) []Chunk {
	textLen := len(text)
	max := cfg.MaxChunkSize
	min := cfg.MinChunkSize
	overlap := cfg.OverlapSize
	detector := boundaryDetector{}

	var chunks []Chunk
	position := 0

	for position < textLen {
		maxEnd := position + max
		if maxEnd > textLen {
			maxEnd = textLen
		}

		searchRange := max / 3
		boundary := detector.findBestBoundary(text, maxEnd, searchRange)

		chunkEnd := maxEnd
		if boundary >= position+min {
			chunkEnd = boundary
		}

		slice := text[position:chunkEnd]
		if strings.TrimSpace(slice) != "" {
			chunks = append(chunks, Chunk{
				Content: slice,
				Metadata: buildMetadata(slice, position, chunkEnd, len(chunks),
					len(chunks) > 0, chunkEnd < textLen),
			})
		}

		if chunkEnd >= textLen {
			break
		}

		next := chunkEnd - overlap
		if next <= position {
			next = chunkEnd
		}
		position = next
	}

	return finalizeChunks(chunks)
}

// buildMetadata computes the character/word/sentence counts and overlap
// flags for a single chunk slice. total_chunks is filled in by
// finalizeChunks once the full sequence is known.
func buildMetadata(content string, start, end, index int, hasPrev, hasNext bool) Metadata {
	return Metadata{
		StartPosition:      start,
		EndPosition:        end,
		ChunkIndex:         index,
		TotalChunks:        1,
		CharacterCount:     len(content),
		WordCount:          countWords(content),
		SentenceCount:      countSentences(content),
		HasPreviousOverlap: hasPrev,
		HasNextOverlap:     hasNext,
		Context:            map[string]string{},
	}
}

// finalizeChunks stamps every chunk's metadata with the final total count
// and re-derives overlap sizes from adjacent chunk boundaries.
func finalizeChunks(chunks []Chunk) []Chunk {
	total := len(chunks)
	for i := range chunks {
		chunks[i].Metadata.TotalChunks = total
		if i > 0 {
			prevEnd := chunks[i-1].Metadata.EndPosition
			if prevEnd > chunks[i].Metadata.StartPosition {
				chunks[i].Metadata.PreviousOverlapSize = prevEnd - chunks[i].Metadata.StartPosition
			}
		}
		if i < total-1 {
			nextStart := chunks[i+1].Metadata.StartPosition
			if chunks[i].Metadata.EndPosition > nextStart {
				chunks[i].Metadata.NextOverlapSize = chunks[i].Metadata.EndPosition - nextStart
			}
		}
	}
	return chunks
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func countSentences(s string) int {
	count := 0
	for _, r := range s {
		switch r {
		case '.', '!', '?':
			count++
		}
	}
	if count == 0 && strings.TrimSpace(s) != "" {
		return 1
	}
	return count
}
