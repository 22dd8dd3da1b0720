package similarity

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

type scoredAt struct {
	Scored
	index int
}

// KNN returns the k entries most similar to query, sorted strictly
// descending by similarity, ties broken by the order entries were given in.
// A target whose Cosine call errors (mismatched dimension, non-finite,
// zero-magnitude) is skipped and logged rather than failing the whole query.
func KNN(query []float32, entries []vectorstore.EmbeddingEntry, k int, cfg Config) ([]Scored, error) {
	if k <= 0 {
		return nil, errInvalidK()
	}
	if cfg.MinThreshold < -1 || cfg.MinThreshold > 1 {
		return nil, errInvalidThreshold()
	}

	scored := scoreAll(query, entries, cfg.MinThreshold, 0)
	return finalize(scored, k, cfg), nil
}

// scoreAll computes Cosine(query, entry.Vector) for every entry at or above
// threshold, tagging each with its position (offset by base) for stable
// tie-breaking across parallel partitions.
func scoreAll(query []float32, entries []vectorstore.EmbeddingEntry, threshold float32, base int) []scoredAt {
	out := make([]scoredAt, 0, len(entries))
	for i, e := range entries {
		sim, err := Cosine(query, e.Vector)
		if err != nil {
			slog.Warn("similarity: skipping malformed entry", "entry_id", e.ID, "error", err)
			continue
		}
		if sim < threshold {
			continue
		}
		out = append(out, scoredAt{Scored: Scored{Entry: e, Similarity: sim}, index: base + i})
	}
	return out
}

// finalize sorts by similarity descending (ties by original index), dedups
// by entry id keeping the first (highest-ranked) occurrence, and truncates
// to min(k, MaxResults).
func finalize(scored []scoredAt, k int, cfg Config) []Scored {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].index < scored[j].index
	})

	limit := k
	if cfg.MaxResults > 0 && cfg.MaxResults < limit {
		limit = cfg.MaxResults
	}

	seen := make(map[string]struct{}, len(scored))
	out := make([]Scored, 0, limit)
	for _, s := range scored {
		if _, ok := seen[s.Entry.ID]; ok {
			continue
		}
		seen[s.Entry.ID] = struct{}{}
		out = append(out, s.Scored)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// KNNParallel has the same contract as KNN but partitions entries across
// goroutines via errgroup once |entries| reaches perf.ParallelThreshold.
func KNNParallel(ctx context.Context, query []float32, entries []vectorstore.EmbeddingEntry, k int, cfg Config, perf PerformanceConfig) ([]Scored, QueryStats, error) {
	if k <= 0 {
		return nil, QueryStats{}, errInvalidK()
	}
	if cfg.MinThreshold < -1 || cfg.MinThreshold > 1 {
		return nil, QueryStats{}, errInvalidThreshold()
	}

	start := time.Now()
	threshold := cfg.MinThreshold

	usedParallel := len(entries) >= perf.ParallelThreshold && perf.ParallelThreshold > 0
	var scored []scoredAt

	if !usedParallel {
		scored = scoreAll(query, entries, threshold, 0)
	} else {
		partitionSize := perf.PartitionSize
		if partitionSize <= 0 {
			partitionSize = 250
		}
		numPartitions := (len(entries) + partitionSize - 1) / partitionSize
		results := make([][]scoredAt, numPartitions)

		g, _ := errgroup.WithContext(ctx)
		for p := 0; p < numPartitions; p++ {
			p := p
			startIdx := p * partitionSize
			endIdx := startIdx + partitionSize
			if endIdx > len(entries) {
				endIdx = len(entries)
			}
			g.Go(func() error {
				results[p] = scoreAll(query, entries[startIdx:endIdx], threshold, startIdx)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, QueryStats{}, err
		}
		for _, r := range results {
			scored = append(scored, r...)
		}
	}

	out := finalize(scored, k, cfg)
	elapsed := time.Since(start)

	stats := QueryStats{
		Time:             elapsed,
		VectorsProcessed: len(entries),
		UsedParallel:     usedParallel,
		EstimatedMemory:  int64(len(entries)) * int64(vectorDimEstimate(entries)) * 4,
		VectorsPerSecond: vectorsPerSecond(len(entries), elapsed),
	}
	return out, stats, nil
}

func vectorDimEstimate(entries []vectorstore.EmbeddingEntry) int {
	if len(entries) == 0 {
		return 0
	}
	return len(entries[0].Vector)
}

func vectorsPerSecond(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}

// BatchKNN runs KNN once per query against the same entry set.
func BatchKNN(queries [][]float32, entries []vectorstore.EmbeddingEntry, k int, cfg Config) ([][]Scored, error) {
	out := make([][]Scored, len(queries))
	for i, q := range queries {
		results, err := KNN(q, entries, k, cfg)
		if err != nil {
			return nil, err
		}
		out[i] = results
	}
	return out, nil
}

// MemoryEfficientBatchSearch returns the same results as BatchKNN, reusing
// one scratch buffer across queries; scoreAll and finalize still allocate a
// fresh slice for every query.
func MemoryEfficientBatchSearch(queries [][]float32, entries []vectorstore.EmbeddingEntry, k int, cfg Config) ([][]Scored, error) {
	scratch := make([]scoredAt, 0, len(entries))
	out := make([][]Scored, len(queries))
	for qi, q := range queries {
		scratch = scratch[:0]
		scratch = append(scratch, scoreAll(q, entries, cfg.MinThreshold, 0)...)
		out[qi] = finalize(append([]scoredAt(nil), scratch...), k, cfg)
	}
	return out, nil
}
