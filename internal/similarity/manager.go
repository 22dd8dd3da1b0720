package similarity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// ConcurrentSearchManager bounds the number of in-flight similarity queries
// and tracks basic latency stats, so a burst of concurrent callers degrades
// gracefully instead of saturating CPU.
type ConcurrentSearchManager struct {
	sem *semaphore.Weighted
	cap int64

	mu           sync.Mutex
	requestCount int64
	totalLatency time.Duration

	active int64
}

// NewConcurrentSearchManager bounds concurrent queries to maxInFlight.
func NewConcurrentSearchManager(maxInFlight int64) *ConcurrentSearchManager {
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	return &ConcurrentSearchManager{sem: semaphore.NewWeighted(maxInFlight), cap: maxInFlight}
}

// Search acquires a slot, runs KNN, releases the slot, and records latency.
func (m *ConcurrentSearchManager) Search(ctx context.Context, query []float32, entries []vectorstore.EmbeddingEntry, k int, cfg Config) ([]Scored, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	atomic.AddInt64(&m.active, 1)
	defer func() {
		atomic.AddInt64(&m.active, -1)
		m.sem.Release(1)
	}()

	start := time.Now()
	results, err := KNN(query, entries, k, cfg)
	elapsed := time.Since(start)

	m.mu.Lock()
	m.requestCount++
	m.totalLatency += elapsed
	m.mu.Unlock()

	return results, err
}

// RequestCount returns the number of completed searches.
func (m *ConcurrentSearchManager) RequestCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// AverageLatency returns the mean latency across completed searches.
func (m *ConcurrentSearchManager) AverageLatency() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requestCount == 0 {
		return 0
	}
	return m.totalLatency / time.Duration(m.requestCount)
}

// IsHighLoad reports whether active in-flight queries are at or above 80%
// of capacity.
func (m *ConcurrentSearchManager) IsHighLoad() bool {
	active := atomic.LoadInt64(&m.active)
	return float64(active) >= 0.8*float64(m.cap)
}
