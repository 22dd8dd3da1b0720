package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/maintenance"
	"github.com/aman-cerp/vaultindex/internal/output"
)

func newRebuildCmd() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "rebuild [path]",
		Short: "Re-embed every stored entry in place",
		Long: `Rebuild walks the vector store, re-chunks each source file, and
re-embeds every chunk, replacing stale entries without dropping the store.

Use this after changing the chunking configuration or switching embedding
models, when a full re-index without downtime is preferable to deleting
the store and starting from an empty pipeline.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runRebuild(cmd.Context(), cmd, path, validate)
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", true, "Run a health check once the rebuild completes")
	return cmd
}

func runRebuild(ctx context.Context, cmd *cobra.Command, path string, validate bool) error {
	rootPath, err := config.FindProjectRoot(path)
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

	rebuilder := maintenance.NewRebuilder(st.Store, st.Chunker, st.Embedder, maintenance.RebuildConfig{
		WorkerConcurrency: cfg.Maintenance.WorkerConcurrency,
		ValidateAfter:     validate,
	})

	out := output.New(cmd.OutOrStdout())
	result, err := rebuilder.Run(ctx, func(p maintenance.RebuildProgress) {
		out.Statusf("", "%s: %d/%d (%.1f%%, %.1f entries/sec)",
			p.Phase, p.Processed, p.Total, p.Percent, p.Rate)
	})
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}

	if result.Success {
		out.Successf("Rebuilt %d entries in %s", result.EntriesTotal, result.Duration)
	} else {
		out.Warningf("Rebuild finished with %d failures out of %d entries", result.EntriesFailed, result.EntriesTotal)
		for _, e := range result.Errors {
			out.Status("", "  "+e)
		}
		return fmt.Errorf("rebuild completed with errors")
	}
	return nil
}
