package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/maintenance"
	"github.com/aman-cerp/vaultindex/internal/output"
)

func newHealthCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health [path]",
		Short: "Check index integrity and query performance",
		Long: `Run a health check over the vector store: verify batch checksums,
detect orphaned or duplicate entries, and sample a handful of queries to
measure latency.

Exits non-zero when the report status is anything other than healthy
(warning, degraded or critical).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runHealth(cmd.Context(), cmd, path, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runHealth(ctx context.Context, cmd *cobra.Command, path string, jsonOutput bool) error {
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

	checker := maintenance.NewHealthChecker(st.Store, maintenance.HealthConfig{
		SamplePercent: cfg.Maintenance.SamplePercent,
		QueryBudget:   cfg.Maintenance.QueryBudget,
	})

	report, err := checker.Check(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		out := output.New(cmd.OutOrStdout())
		out.Status("", fmt.Sprintf("Status:          %s", report.Status))
		out.Status("", fmt.Sprintf("Entries live:    %d", report.EntriesLive))
		out.Status("", fmt.Sprintf("Files scanned:   %d", report.FilesScanned))
		out.Status("", fmt.Sprintf("Sampled (perf):  %d", report.SampledForPerf))
		out.Status("", fmt.Sprintf("Avg query time:  %s", report.AvgQueryTime))
		out.Status("", fmt.Sprintf("Check duration:  %s", report.CheckDuration))
		if len(report.Issues) == 0 {
			out.Success("No issues found")
		} else {
			out.Newline()
			out.Status("", fmt.Sprintf("Issues (%d):", len(report.Issues)))
			for _, issue := range report.Issues {
				out.Warningf("%s: %s", issue.Kind, issue.Detail)
			}
		}
	}

	if report.Status != maintenance.Healthy {
		return fmt.Errorf("health check reported status %q", report.Status)
	}
	return nil
}
