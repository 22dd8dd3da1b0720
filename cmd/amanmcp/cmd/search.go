package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/output"
	"github.com/aman-cerp/vaultindex/internal/similarity"
)

// previewText reads a short snippet from the start of a source file for
// display purposes; the store itself keeps only a text hash, not the text.
func previewText(path string) string {
	const maxPreview = 200
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if len(data) > maxPreview {
		data = data[:maxPreview]
	}
	return strings.TrimSpace(string(data))
}

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	threshold float64
	format    string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed vault by semantic similarity",
		Long: `Embed the query and return the most similar stored chunks by cosine
similarity.

Examples:
  vaultindex search "meeting notes about the Q3 roadmap"
  vaultindex search "recipe for sourdough" --limit 5
  vaultindex search "project retro" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Minimum cosine similarity, in [-1, 1]")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	rootPath, err := config.FindProjectRoot(".")
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
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

	queryVec, err := st.Embedder.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	entries, err := st.Store.AllEntries()
	if err != nil {
		return fmt.Errorf("read vector store: %w", err)
	}

	manager := similarity.NewConcurrentSearchManager(cfg.Similarity.MaxInFlight)
	scfg := similarity.Config{
		MinThreshold:     float32(opts.threshold),
		MaxResults:       opts.limit,
		EarlyTermination: cfg.Similarity.EarlyTermination,
	}
	results, err := manager.Search(ctx, queryVec, entries, opts.limit, scfg)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	out := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		out.Status("", "No results found")
		return nil
	}
	for i, r := range results {
		out.Statusf("", "%d. %s (score: %.3f)", i+1, r.Entry.Metadata.FilePath, r.Similarity)
		if snippet := previewText(r.Entry.Metadata.FilePath); snippet != "" {
			out.Status("", "   "+strings.ReplaceAll(snippet, "\n", " "))
		}
	}
	return nil
}
