// Package similarity implements exact cosine-similarity k-NN search over a
// vector store's entries, with optional parallelism, thresholding, and
// in-flight query back-pressure.
package similarity

import (
	"time"

	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// Scored pairs an entry with its similarity to a query vector.
type Scored struct {
	Entry      vectorstore.EmbeddingEntry
	Similarity float32
}

// Config bounds a single k-NN query.
type Config struct {
	// MinThreshold excludes entries scoring below it. Must lie in [-1, 1].
	MinThreshold float32
	// MaxResults hard-caps the result length even when k is larger.
	MaxResults int
	// EarlyTermination is carried in the config but not read by KNN,
	// KNNParallel or the batch searches: every entry is always scored.
	EarlyTermination bool
}

// DefaultConfig returns permissive defaults: no threshold, no extra cap.
func DefaultConfig() Config {
	return Config{MinThreshold: -1, MaxResults: 0, EarlyTermination: true}
}

// PerformanceConfig tunes when knn_parallel actually parallelises.
type PerformanceConfig struct {
	// ParallelThreshold is the minimum entry count before a query fans out
	// across goroutines; below it, sequential scanning wins on overhead.
	ParallelThreshold int
	// PartitionSize bounds how many entries one goroutine scans per chunk.
	PartitionSize int
}

// DefaultPerformanceConfig mirrors the corpus's observed parallel break-even.
func DefaultPerformanceConfig() PerformanceConfig {
	return PerformanceConfig{ParallelThreshold: 1000, PartitionSize: 250}
}

// QueryStats reports how a knn_parallel call executed.
type QueryStats struct {
	Time             time.Duration
	VectorsProcessed int
	UsedParallel     bool
	EstimatedMemory  int64
	VectorsPerSecond float64
}
