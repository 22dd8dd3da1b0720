package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/embed"
	"github.com/aman-cerp/vaultindex/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show index size, embedder, and watcher status for a vault",
		Long: `Status reports how many files and chunks are indexed, how much disk
space the store occupies, which embedding backend is configured, and
whether live reindexing is enabled for the vault.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runStatus(cmd.Context(), cmd, path, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, path string, jsonOutput bool) error {
	rootPath, err := config.FindProjectRoot(path)
	if err != nil {
		rootPath = path
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

	entries, err := st.Store.AllEntries()
	if err != nil {
		return fmt.Errorf("read store entries: %w", err)
	}

	files := make(map[string]struct{}, len(entries))
	var lastIndexed int64
	for _, e := range entries {
		files[e.Metadata.FilePath] = struct{}{}
		if t := e.Metadata.UpdatedAt.Unix(); t > lastIndexed {
			lastIndexed = t
		}
	}

	metaSize, vecSize := storageSizes(st.Store.StorageDir())

	info := ui.StatusInfo{
		ProjectName:    filepath.Base(rootPath),
		TotalFiles:     len(files),
		TotalChunks:    len(entries),
		MetadataSize:   metaSize,
		VectorSize:     vecSize,
		TotalSize:      metaSize + vecSize,
		EmbedderType:   string(embed.ParseProvider(cfg.Embeddings.Provider)),
		EmbedderStatus: embedderStatus(ctx, st.Embedder),
		EmbedderModel:  st.Embedder.ModelName(),
		WatcherStatus:  watcherStatus(cfg),
	}
	if lastIndexed > 0 {
		info.LastIndexed = time.Unix(lastIndexed, 0)
	}

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), false)
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func embedderStatus(ctx context.Context, e embed.Embedder) string {
	if e.Available(ctx) {
		return "ready"
	}
	return "offline"
}

func watcherStatus(cfg *config.Config) string {
	if cfg.Watcher.Enabled {
		return "enabled"
	}
	return "disabled"
}

// storageSizes walks the store directory and splits disk usage between
// lock/bookkeeping files and the vector batch files that hold the entries
// themselves.
func storageSizes(dir string) (metaSize, vecSize int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if filepath.Ext(e.Name()) == ".lock" {
			metaSize += info.Size()
			continue
		}
		vecSize += info.Size()
	}
	return metaSize, vecSize
}
