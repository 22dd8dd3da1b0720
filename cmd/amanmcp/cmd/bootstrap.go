package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aman-cerp/vaultindex/internal/chunk"
	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/embed"
	"github.com/aman-cerp/vaultindex/internal/lifecycle"
	"github.com/aman-cerp/vaultindex/internal/pipeline"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// stack bundles the domain components every command needs to touch the
// index: the on-disk vector store, the markdown chunker, and the embedder.
type stack struct {
	Store    *vectorstore.Store
	Chunker  *chunk.Chunker
	Embedder embed.Embedder
}

// buildStack opens the vector store rooted at cfg.Store.Directory (resolved
// against rootPath) and constructs the chunker and embedder described by
// cfg. Callers are responsible for closing Store and Embedder.
func buildStack(ctx context.Context, cfg *config.Config, rootPath string) (*stack, error) {
	storeDir := cfg.Store.Directory
	if !filepath.IsAbs(storeDir) {
		storeDir = filepath.Join(rootPath, storeDir)
	}

	scfg := vectorstore.DefaultConfig(storeDir)
	if cfg.Store.Compression == "none" {
		scfg.Compression = vectorstore.CompressionNone
	}
	store, err := vectorstore.Open(scfg)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	ccfg := chunk.DefaultConfig()
	ccfg.MaxChunkSize = cfg.Chunk.MaxChunkSize
	ccfg.MinChunkSize = cfg.Chunk.MinChunkSize
	ccfg.OverlapSize = cfg.Chunk.OverlapSize
	chunker, err := chunk.New(ccfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build chunker: %w", err)
	}

	provider := embed.ParseProvider(cfg.Embeddings.Provider)
	if provider == embed.ProviderOllama {
		if err := ensureOllamaReady(ctx, cfg); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	embedder, err := embed.NewEmbedder(ctx, provider, cfg.Embeddings.Model)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	return &stack{Store: store, Chunker: chunker, Embedder: embedder}, nil
}

// pipelineConfig translates cfg.Pipeline into a pipeline.Config rooted at
// rootPath, so state/resume files live under the vault being indexed.
func pipelineConfig(cfg *config.Config, rootPath string) pipeline.Config {
	pcfg := pipeline.DefaultConfig()
	if cfg.Pipeline.WorkerCount > 0 {
		pcfg.WorkerCount = pipeline.ClampWorkerCount(cfg.Pipeline.WorkerCount)
	}
	if cfg.Pipeline.MaxQueueSize > 0 {
		pcfg.MaxQueueSize = cfg.Pipeline.MaxQueueSize
	}
	if cfg.Pipeline.ProgressInterval > 0 {
		pcfg.ProgressInterval = cfg.Pipeline.ProgressInterval
	}
	if cfg.Pipeline.FileTimeout > 0 {
		pcfg.FileTimeout = cfg.Pipeline.FileTimeout
	}
	pcfg.EnableResume = cfg.Pipeline.EnableResume
	stateFile := cfg.Pipeline.StateFilePath
	if stateFile == "" {
		stateFile = pcfg.StateFilePath
	}
	if !filepath.IsAbs(stateFile) {
		stateFile = filepath.Join(rootPath, stateFile)
	}
	pcfg.StateFilePath = stateFile
	if cfg.Pipeline.DebounceWindow > 0 {
		pcfg.DebounceWindow = cfg.Pipeline.DebounceWindow
	}
	pcfg.EmbeddingModel = cfg.Embeddings.Model
	pcfg.ExcludePatterns = cfg.Paths.Exclude
	pcfg.RespectGitignore = cfg.Paths.RespectGitignore
	return pcfg
}

// ensureOllamaReady makes sure a local or configured Ollama host is running
// and has the requested embedding model pulled before the embedder opens a
// connection to it.
func ensureOllamaReady(ctx context.Context, cfg *config.Config) error {
	host := cfg.Embeddings.OllamaHost
	var mgr *lifecycle.OllamaManager
	if host != "" {
		mgr = lifecycle.NewOllamaManagerWithHost(host)
	} else {
		mgr = lifecycle.NewOllamaManager()
	}

	model := cfg.Embeddings.Model
	if model == "" {
		model = lifecycle.DefaultModel
	}

	opts := lifecycle.DefaultEnsureOpts()
	opts.ProgressFunc = lifecycle.CreatePullProgressFunc(opts.Stderr)

	if err := mgr.EnsureReady(ctx, model, opts); err != nil {
		return fmt.Errorf("ollama not ready: %w", err)
	}
	return nil
}

func (s *stack) Close() {
	if s == nil {
		return
	}
	if s.Embedder != nil {
		_ = s.Embedder.Close()
	}
	if s.Store != nil {
		_ = s.Store.Close()
	}
}
