package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/aman-cerp/vaultindex/internal/chunk"
	"github.com/aman-cerp/vaultindex/internal/embed"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// Rebuilder walks every file referenced by a store's live entries,
// re-chunks and re-embeds content whose text has changed since it was last
// stored, and leaves unchanged chunks alone. It reports periodic
// RebuildProgress and honors cooperative cancellation.
type Rebuilder struct {
	store    *vectorstore.Store
	chunker  *chunk.Chunker
	embedder embed.Embedder
	cfg      RebuildConfig

	cancelled atomic.Bool
}

// NewRebuilder builds a Rebuilder over an already-open store.
func NewRebuilder(store *vectorstore.Store, chunker *chunk.Chunker, embedder embed.Embedder, cfg RebuildConfig) *Rebuilder {
	if cfg.WorkerConcurrency <= 0 {
		cfg = DefaultRebuildConfig()
	}
	return &Rebuilder{store: store, chunker: chunker, embedder: embedder, cfg: cfg}
}

// Cancel requests cooperative cancellation; in-flight file rebuilds are
// allowed to finish, but no further files are started.
func (r *Rebuilder) Cancel() {
	r.cancelled.Store(true)
}

// Run performs a full rebuild, invoking onProgress (if non-nil) at
// cfg.ProgressInterval. It returns once every referenced file has been
// revisited or cancellation was observed.
func (r *Rebuilder) Run(ctx context.Context, onProgress func(RebuildProgress)) (RebuildResult, error) {
	runID := uuid.New().String()
	start := time.Now()
	result := RebuildResult{RunID: runID}

	report := func(phase RebuildPhase, processed, total int) {
		if onProgress == nil {
			return
		}
		p := newProgress(runID, total)
		p.update(phase, processed, time.Since(start))
		onProgress(p)
	}

	report(PhaseInitializing, 0, 0)

	entries, err := r.store.AllEntries()
	if err != nil {
		result.FinalPhase = PhaseFailed
		result.Errors = append(result.Errors, err.Error())
		return result, errRebuildFailed("could not enumerate live entries", err)
	}

	report(PhaseValidatingSource, 0, len(entries))

	byFile := make(map[string][]vectorstore.EmbeddingEntry)
	for _, e := range entries {
		byFile[e.Metadata.FilePath] = append(byFile[e.Metadata.FilePath], e)
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	result.EntriesTotal = len(entries)
	total := len(files)

	sem := semaphore.NewWeighted(r.cfg.WorkerConcurrency)
	var processed atomic.Int64
	var failed atomic.Int64
	var mu sync.Mutex
	var errs []string

	var wg sync.WaitGroup
	ticker := time.NewTicker(r.cfg.ProgressInterval)
	defer ticker.Stop()
	stopTicker := make(chan struct{})
	go func() {
		for {
			select {
			case <-stopTicker:
				return
			case <-ticker.C:
				report(PhaseProcessingEmbeddings, int(processed.Load()), total)
			}
		}
	}()

	for _, file := range files {
		if r.cancelled.Load() || ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		file := file
		existing := byFile[file]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer processed.Add(1)

			if err := r.rebuildFile(ctx, file, existing); err != nil {
				failed.Add(1)
				mu.Lock()
				errs = append(errs, file+": "+err.Error())
				mu.Unlock()
				slog.Warn("maintenance: rebuild failed for file", "run_id", runID, "file", file, "error", err)
			}
		}()
	}
	wg.Wait()
	close(stopTicker)

	report(PhaseRebuildingIndex, int(processed.Load()), total)

	if _, err := r.store.Compact(); err != nil {
		slog.Warn("maintenance: post-rebuild compaction failed", "run_id", runID, "error", err)
	}

	report(PhaseValidatingIndex, int(processed.Load()), total)

	if r.cfg.ValidateAfter {
		checker := NewHealthChecker(r.store, DefaultHealthConfig())
		if rep, err := checker.Check(ctx); err == nil && rep.Status >= Degraded {
			slog.Warn("maintenance: rebuild finished but store health is degraded", "run_id", runID, "status", rep.Status.String())
		}
	}

	result.EntriesFailed = int(failed.Load())
	result.Duration = time.Since(start)
	result.Errors = errs

	if r.cancelled.Load() || ctx.Err() != nil {
		result.FinalPhase = PhaseFailed
		result.Success = false
		report(PhaseFailed, int(processed.Load()), total)
		return result, errCancelled()
	}

	result.FinalPhase = PhaseCompleted
	result.Success = failed.Load() == 0
	report(PhaseCompleted, int(processed.Load()), total)
	return result, nil
}

// rebuildFile re-chunks a single file's current on-disk content and
// re-embeds only the chunks whose text hash no longer matches what is
// already stored; it then replaces every stored entry for that file in one
// StoreEntries call, matching the pipeline's all-or-nothing-per-file
// semantics.
func (r *Rebuilder) rebuildFile(ctx context.Context, path string, existing []vectorstore.EmbeddingEntry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	chunks, err := r.chunker.Chunk(string(raw))
	if err != nil {
		return err
	}

	byChunkID := make(map[string]vectorstore.EmbeddingEntry, len(existing))
	for _, e := range existing {
		byChunkID[e.Metadata.ChunkID] = e
	}

	entries := make([]vectorstore.EmbeddingEntry, 0, len(chunks))
	for i, c := range chunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunkID := chunkIDFor(i)
		hash := vectorstore.TextHash(c.Content)

		if prior, ok := byChunkID[chunkID]; ok && prior.Metadata.TextHash == hash {
			entries = append(entries, prior)
			continue
		}

		vector, err := r.embedder.Embed(ctx, c.Content)
		if err != nil {
			return err
		}
		entries = append(entries, vectorstore.NewEntry(vector, path, chunkID, c.Content, r.embedder.ModelName()))
	}

	return r.store.StoreEntries(entries)
}

func chunkIDFor(i int) string {
	return fmt.Sprintf("chunk_%d", i)
}
