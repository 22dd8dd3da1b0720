package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/maintenance"
	"github.com/aman-cerp/vaultindex/internal/output"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

func newCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact [path]",
		Short: "Compact the vector store by removing superseded and orphaned entries",
		Long: `Rewrites each batch file in the store, dropping entries that were
superseded by a later write or orphaned by a deleted source file.

Compaction never re-embeds anything; it is a cheap, local rewrite of the
store's batch files and is safe to run at any time, including while the
indexing pipeline is running.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runCompact(cmd.Context(), cmd, path)
		},
	}

	return cmd
}

func runCompact(ctx context.Context, cmd *cobra.Command, path string) error {
	rootPath, err := config.FindProjectRoot(path)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	cfg, err := config.Load(rootPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

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
		return fmt.Errorf("open vector store: %w", err)
	}
	defer func() { _ = store.Close() }()

	out := output.New(cmd.OutOrStdout())
	out.Status("", "Compacting vector store...")

	result, err := maintenance.RunCycle(store)
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}

	out.Successf("Compacted %d file(s), removed %d, %d entries remaining (%d bytes reclaimed)",
		result.FilesCompacted, result.FilesRemoved, result.EntriesRemaining, result.BytesReclaimed)
	return nil
}
