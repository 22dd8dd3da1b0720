package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// processFile reads path, chunks it, embeds every chunk, and stores the
// resulting entries. Per resolved SPEC semantics, processing is
// all-or-nothing per file: if any chunk fails to embed, no entries from
// this file are stored, even if earlier chunks in the same file already
// embedded successfully.
func (p *Pipeline) processFile(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return errCancelled()
	default:
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return errFileProcessing(path, "failed to read file", err)
	}
	if len(raw) == 0 {
		return nil
	}

	chunks, err := p.chunker.Chunk(string(raw))
	if err != nil {
		return errFileProcessing(path, "text chunking failed", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	entries := make([]vectorstore.EmbeddingEntry, 0, len(chunks))
	for i, c := range chunks {
		select {
		case <-ctx.Done():
			return errCancelled()
		default:
		}

		vector, err := p.embedder.Embed(ctx, c.Content)
		if err != nil {
			return errFileProcessing(path, chunkIDFor(i)+": embedding failed", err)
		}
		entries = append(entries, vectorstore.NewEntry(vector, path, chunkIDFor(i), c.Content, p.cfg.EmbeddingModel))
	}

	if err := p.store.StoreEntries(entries); err != nil {
		return errFileProcessing(path, "failed to store embeddings", err)
	}
	return nil
}

func chunkIDFor(i int) string {
	return fmt.Sprintf("chunk_%d", i)
}
