package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/embed"
	"github.com/aman-cerp/vaultindex/internal/output"
	"github.com/aman-cerp/vaultindex/internal/pipeline"
	"github.com/aman-cerp/vaultindex/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var (
		pattern string
		backend string
		noTUI   bool
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a vault for semantic search",
		Long: `Walk a vault, chunk every matching note, embed each chunk, and store
the resulting vectors.

Indexing runs through the same priority worker pool the MCP server uses,
so a bulk index started from the CLI resumes cleanly if interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			if backend != "" {
				os.Setenv("VAULTINDEX_EMBEDDINGS_PROVIDER", backend)
			}
			return runIndex(ctx, cmd, path, pattern, noTUI)
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob pattern matched against each file name to restrict which files are queued (default: *.md)")
	cmd.Flags().StringVar(&backend, "backend", "", "Embedding provider: ollama, mlx, static")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Force plain text progress output instead of the interactive display")

	return cmd
}

func runIndexInternal(ctx context.Context, cmd *cobra.Command, path string) error {
	return runIndex(ctx, cmd, path, "", false)
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, pattern string, noTUI bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}

	rootPath, err := config.FindProjectRoot(absPath)
	if err != nil {
		rootPath = absPath
	}
	cfg, err := config.Load(rootPath)
	if err != nil {
		cfg = config.NewConfig()
	}

	st, err := buildStack(ctx, cfg, rootPath)
	if err != nil {
		return err
	}
	defer st.Close()

	p := pipeline.New(pipelineConfig(cfg, rootPath), st.Chunker, st.Embedder, st.Store)
	if err := p.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer p.Stop()

	uiCfg := ui.NewConfig(cmd.OutOrStdout(), ui.WithForcePlain(noTUI), ui.WithProjectDir(absPath))
	renderer := ui.NewRenderer(uiCfg)
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("start progress renderer: %w", err)
	}

	start := time.Now()
	ids, err := p.BulkIndexVault(absPath, pipeline.UserTriggered, pattern)
	if err != nil {
		_ = renderer.Stop()
		return fmt.Errorf("bulk index: %w", err)
	}
	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Message: fmt.Sprintf("queued %d file(s)", len(ids))})

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = renderer.Stop()
			out := output.New(cmd.OutOrStdout())
			out.Warning("Indexing canceled")
			return ctx.Err()
		case <-ticker.C:
			progress := p.GetProgress()
			renderer.UpdateProgress(ui.ProgressEvent{
				Stage:   ui.StageEmbedding,
				Current: int(progress.CompletedFiles),
				Total:   int(progress.TotalFiles),
			})
			if progress.QueuedFiles == 0 && progress.ProcessingFiles == 0 {
				embedderInfo := embed.GetInfo(ctx, st.Embedder)
				renderer.Complete(ui.CompletionStats{
					Files:    int(progress.CompletedFiles),
					Errors:   int(progress.FailedFiles),
					Duration: time.Since(start),
					Embedder: ui.EmbedderInfo{
						Backend:    string(embedderInfo.Provider),
						Model:      embedderInfo.Model,
						Dimensions: embedderInfo.Dimensions,
					},
				})
				return renderer.Stop()
			}
		}
	}
}
