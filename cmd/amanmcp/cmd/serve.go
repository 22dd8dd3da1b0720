package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/logging"
	"github.com/aman-cerp/vaultindex/internal/maintenance"
	"github.com/aman-cerp/vaultindex/internal/mcp"
	"github.com/aman-cerp/vaultindex/internal/pipeline"
	"github.com/aman-cerp/vaultindex/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		debug     bool
		session   string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp-serve",
		Short: "Run the MCP server over stdio or SSE",
		Long: `Start the Model Context Protocol server, exposing indexing, search,
and maintenance tools to an MCP client.

The server loads the vault's vector store and starts the indexing
pipeline immediately; a full vault scan then queues files in the
background so the MCP handshake is never blocked waiting on it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if transport == "stdio" {
				if err := verifyStdinForMCP(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			}
			_ = session // reserved for future multi-session routing
			_ = debug
			return runServe(cmd.Context(), transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio or sse")
	cmd.Flags().BoolVar(&debug, "debug", false, "Accepted for compatibility; has no effect")
	cmd.Flags().StringVar(&session, "session", "", "Session identifier (accepted; currently unused)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on for sse transport")

	return cmd
}

// runServe wires the domain stack, starts the pipeline, and blocks serving
// MCP requests on transport until ctx is canceled.
func runServe(ctx context.Context, transport string, port int) error {
	cleanup, err := logging.SetupMCPMode()
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	rootPath, err := config.FindProjectRoot(".")
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	cfg, err := config.Load(rootPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
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

	srv, err := mcp.NewServer(p, st.Store, st.Embedder, cfg, rootPath)
	if err != nil {
		return fmt.Errorf("create mcp server: %w", err)
	}
	defer srv.Close()

	if cfg.Maintenance.Enabled {
		rebuilder := maintenance.NewRebuilder(st.Store, st.Chunker, st.Embedder, maintenance.RebuildConfig{
			WorkerConcurrency: cfg.Maintenance.WorkerConcurrency,
			ValidateAfter:     cfg.Maintenance.ValidateAfter,
		})
		srv.SetRebuilder(rebuilder)

		idleTimeout, _ := time.ParseDuration(cfg.Maintenance.IdleTimeout)
		cooldown, _ := time.ParseDuration(cfg.Maintenance.Cooldown)
		idle := maintenance.NewIdleCompactor(st.Store, maintenance.IdleCompactorConfig{
			IdleTimeout: idleTimeout,
			Cooldown:    cooldown,
		})
		defer idle.Stop()
		srv.SetIdleCompactor(idle)
	}

	// Background vault scan: newly queued files surface through pipeline
	// status without delaying the handshake above.
	go func() {
		if _, err := p.BulkIndexVault(rootPath, pipeline.Automatic, ""); err != nil {
			slog.Warn("background vault scan failed", slog.String("error", err.Error()))
		}
	}()

	if cfg.Watcher.Enabled {
		if err := startWatcher(ctx, p, rootPath, cfg.Paths.Exclude); err != nil {
			slog.Warn("file watcher unavailable, edits require a manual reindex", slog.String("error", err.Error()))
		}
	}

	if transport == "sse" && port == 0 {
		port = cfg.Server.Port
	}
	addr := ""
	if transport == "sse" {
		addr = fmt.Sprintf(":%d", port)
	}

	slog.Info("mcp_serve_started", slog.String("transport", transport), slog.String("root", rootPath))
	return srv.Serve(ctx, transport, addr)
}

// startWatcher starts a HybridWatcher over rootPath and feeds every batch of
// create/modify/rename events into the pipeline's debounced IndexChanged path. It
// runs until ctx is canceled.
func startWatcher(ctx context.Context, p *pipeline.Pipeline, rootPath string, ignore []string) error {
	w, err := watcher.NewHybridWatcher(watcher.Options{IgnorePatterns: ignore})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx, rootPath); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = w.Stop()
	}()

	go func() {
		for batch := range w.Events() {
			var paths []string
			for _, ev := range batch {
				if ev.IsDir {
					continue
				}
				switch ev.Operation {
				case watcher.OpCreate, watcher.OpModify, watcher.OpRename:
					paths = append(paths, ev.Path)
				}
			}
			if len(paths) == 0 {
				continue
			}
			p.IndexChanged(paths, func(path string, id uint64, err error) {
				if err != nil {
					slog.Warn("watcher: failed to queue changed file", slog.String("path", path), slog.String("error", err.Error()))
					return
				}
				slog.Debug("watcher: queued changed file", slog.String("path", path), slog.Uint64("request_id", id))
			})
		}
	}()

	go func() {
		for err := range w.Errors() {
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// verifyStdinForMCP warns when stdin is an interactive terminal instead of
// the pipe an MCP client supplies; it never blocks serving.
func verifyStdinForMCP() error {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("stdin is a terminal, not a pipe: mcp-serve expects to be launched by an MCP client")
	}
	return nil
}
