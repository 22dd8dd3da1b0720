package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aman-cerp/vaultindex/internal/chunk"
	"github.com/aman-cerp/vaultindex/internal/embed"
	"github.com/aman-cerp/vaultindex/internal/scanner"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// Pipeline coordinates a bounded worker pool that drains a priority Queue,
// turning each queued file into stored embeddings via a Chunker, an
// Embedder, and a vectorstore.Store.
type Pipeline struct {
	cfg      Config
	queue    *Queue
	chunker  *chunk.Chunker
	embedder embed.Embedder
	store    *vectorstore.Store

	running   atomic.Bool
	cancelled atomic.Bool

	startMu   sync.Mutex
	startedAt time.Time

	completed atomic.Uint64
	failed    atomic.Uint64

	progressMu sync.RWMutex
	progress   Progress

	wg           sync.WaitGroup
	stopReporter chan struct{}

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer
}

// New builds a Pipeline. The worker count in cfg is clamped to [2, 8].
func New(cfg Config, chunker *chunk.Chunker, embedder embed.Embedder, store *vectorstore.Store) *Pipeline {
	cfg.WorkerCount = ClampWorkerCount(cfg.WorkerCount)
	return &Pipeline{
		cfg:            cfg,
		queue:          NewQueue(cfg.MaxQueueSize),
		chunker:        chunker,
		embedder:       embedder,
		store:          store,
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Start launches the worker pool and the progress reporter. It attempts to
// restore a previously saved PipelineState first when resume is enabled.
func (p *Pipeline) Start() error {
	if p.running.Load() {
		return errAlreadyRunning()
	}

	restored, err := p.restoreState()
	if err != nil {
		slog.Warn("pipeline: failed to restore state", "error", err)
	}

	p.cancelled.Store(false)
	if !restored {
		p.completed.Store(0)
		p.failed.Store(0)
	}
	p.startMu.Lock()
	p.startedAt = time.Now()
	p.startMu.Unlock()

	p.running.Store(true)
	p.stopReporter = make(chan struct{})

	for i := 0; i < p.cfg.WorkerCount; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	go p.reportProgress()

	slog.Info("pipeline: started", "workers", p.cfg.WorkerCount, "resumed", restored)
	return nil
}

// Stop signals cancellation, saves resumable state, and waits for every
// worker goroutine to return.
func (p *Pipeline) Stop() {
	if !p.running.Load() {
		return
	}
	slog.Info("pipeline: stopping")

	if err := p.saveState(); err != nil {
		slog.Warn("pipeline: failed to save state", "error", err)
	}

	p.cancelled.Store(true)
	close(p.stopReporter)
	p.wg.Wait()

	p.running.Store(false)
	p.progressMu.Lock()
	p.progress.IsRunning = false
	p.progress.IsCancelling = false
	p.progressMu.Unlock()

	slog.Info("pipeline: stopped")
}

// IsRunning reports whether the worker pool is active.
func (p *Pipeline) IsRunning() bool {
	return p.running.Load()
}

// QueueFile enqueues a single file at the given priority and returns its
// request id.
func (p *Pipeline) QueueFile(path string, priority Priority) (uint64, error) {
	req := NewRequest(path, priority)
	if err := p.queue.Push(req); err != nil {
		return 0, err
	}

	p.progressMu.Lock()
	p.progress.TotalFiles++
	p.progress.QueuedFiles++
	p.progressMu.Unlock()

	return req.ID, nil
}

// BulkIndexVault enumerates files under vaultPath matching pattern
// (default "*.md", applied recursively) and queues each at priority. It
// stops early, returning the ids queued so far, if the queue fills up.
//
// Enumeration is delegated to a scanner.Scanner, which applies
// p.cfg.ExcludePatterns and, when p.cfg.RespectGitignore is set, skips
// files matched by any .gitignore found while walking the vault.
func (p *Pipeline) BulkIndexVault(vaultPath string, priority Priority, pattern string) ([]uint64, error) {
	info, err := os.Stat(vaultPath)
	if err != nil {
		return nil, errIO("vault path does not exist: "+vaultPath, err)
	}
	if !info.IsDir() {
		return nil, errIO("vault path is not a directory: "+vaultPath, nil)
	}
	if pattern == "" {
		pattern = "*.md"
	}

	sc, err := scanner.New()
	if err != nil {
		return nil, errIO("failed to initialize vault scanner", err)
	}

	results, err := sc.Scan(context.Background(), &scanner.ScanOptions{
		RootDir:          vaultPath,
		ExcludePatterns:  p.cfg.ExcludePatterns,
		RespectGitignore: p.cfg.RespectGitignore,
	})
	if err != nil {
		return nil, errIO("failed to scan vault directory", err)
	}

	var files []string
	for res := range results {
		if res.Error != nil || res.File == nil {
			continue
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(res.File.AbsPath)); !matched {
			continue
		}
		files = append(files, res.File.AbsPath)
	}

	var ids []uint64
	for _, f := range files {
		id, err := p.QueueFile(f, priority)
		if err != nil {
			slog.Warn("pipeline: queue full during bulk index, stopping early", "queued", len(ids), "total", len(files))
			break
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IndexChanged debounces repeated change events per path: a change followed
// by further changes to the same path within cfg.DebounceWindow enqueues at
// most one FileChanged request for that path. The request id for each path
// is delivered asynchronously to onQueued once the debounce window elapses.
func (p *Pipeline) IndexChanged(paths []string, onQueued func(path string, id uint64, err error)) {
	window := p.cfg.DebounceWindow
	if window <= 0 {
		window = time.Second
	}

	p.debounceMu.Lock()
	defer p.debounceMu.Unlock()

	for _, path := range paths {
		path := path
		if t, ok := p.debounceTimers[path]; ok {
			t.Stop()
		}
		p.debounceTimers[path] = time.AfterFunc(window, func() {
			p.debounceMu.Lock()
			delete(p.debounceTimers, path)
			p.debounceMu.Unlock()

			if p.cancelled.Load() {
				return
			}
			if _, err := os.Stat(path); err != nil {
				return
			}
			id, err := p.QueueFile(path, FileChanged)
			if onQueued != nil {
				onQueued(path, id, err)
			}
		})
	}
}

// GetProgress returns the current progress snapshot.
func (p *Pipeline) GetProgress() Progress {
	p.progressMu.RLock()
	defer p.progressMu.RUnlock()
	return p.progress
}

// QueueStats returns the per-priority queue depth.
func (p *Pipeline) QueueStats() map[Priority]int {
	return p.queue.Stats()
}

// RequestStatus returns the tracked status for a request id.
func (p *Pipeline) RequestStatus(id uint64) (Status, bool) {
	return p.queue.GetStatus(id)
}

func (p *Pipeline) workerLoop(id int) {
	defer p.wg.Done()
	slog.Debug("pipeline: worker started", "worker", id)

	for !p.cancelled.Load() {
		req, ok := p.queue.Pop()
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		p.progressMu.Lock()
		p.progress.QueuedFiles--
		p.progress.ProcessingFiles++
		p.progressMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.FileTimeout)
		err := p.processFile(ctx, req.FilePath)
		cancel()

		p.progressMu.Lock()
		p.progress.ProcessingFiles--
		p.progressMu.Unlock()

		if err != nil {
			p.queue.SetStatus(req.ID, StatusFailed, err.Error())
			p.failed.Add(1)
			p.progressMu.Lock()
			p.progress.FailedFiles++
			p.progressMu.Unlock()
			slog.Warn("pipeline: worker failed to process file", "worker", id, "path", req.FilePath, "error", err)
			continue
		}

		p.queue.SetStatus(req.ID, StatusCompleted, "")
		p.completed.Add(1)
		p.progressMu.Lock()
		p.progress.CompletedFiles++
		p.progressMu.Unlock()
		slog.Debug("pipeline: worker completed file", "worker", id, "path", req.FilePath)
	}
	slog.Debug("pipeline: worker stopped", "worker", id)
}

func (p *Pipeline) reportProgress() {
	interval := p.cfg.ProgressInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopReporter:
			return
		case <-ticker.C:
			p.snapshotProgress()
		}
	}
}

func (p *Pipeline) snapshotProgress() {
	p.startMu.Lock()
	elapsed := time.Since(p.startedAt)
	p.startMu.Unlock()

	completed := p.completed.Load()
	failed := p.failed.Load()

	p.progressMu.Lock()
	defer p.progressMu.Unlock()

	p.progress.IsRunning = p.running.Load()
	p.progress.IsCancelling = p.cancelled.Load() && p.running.Load()

	if p.progress.TotalFiles > 0 {
		p.progress.ProgressPercent = 100 * float64(completed+failed) / float64(p.progress.TotalFiles)
	}
	if elapsed > 0 {
		p.progress.FilesPerSecond = float64(completed) / elapsed.Seconds()
	}
	if p.progress.FilesPerSecond > 0 {
		remaining := float64(p.progress.TotalFiles) - float64(completed+failed)
		if remaining < 0 {
			remaining = 0
		}
		p.progress.EstimatedRemaining = time.Duration(remaining/p.progress.FilesPerSecond) * time.Second
	}
}

// saveState persists every request still queued (drained from the Queue)
// plus the current progress snapshot, so Start can resume.
func (p *Pipeline) saveState() error {
	if !p.cfg.EnableResume || p.cfg.StateFilePath == "" {
		return nil
	}

	pending := p.queue.Drain()
	state := State{
		PendingRequests: pending,
		Progress:        p.GetProgress(),
		SavedAt:         time.Now(),
		Config:          p.cfg,
	}

	if dir := filepath.Dir(p.cfg.StateFilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errIO("failed to create pipeline state directory", err)
		}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(p.cfg.StateFilePath, data, 0o644)
}

// restoreState reloads a previously saved State, re-queuing its pending
// requests, and reports whether a state file was found.
func (p *Pipeline) restoreState() (bool, error) {
	if !p.cfg.EnableResume || p.cfg.StateFilePath == "" {
		return false, nil
	}

	data, err := os.ReadFile(p.cfg.StateFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return false, err
	}

	for _, req := range state.PendingRequests {
		_ = p.queue.Push(req)
	}
	p.progressMu.Lock()
	p.progress = state.Progress
	p.progressMu.Unlock()

	_ = os.Remove(p.cfg.StateFilePath)
	return true, nil
}
