package mcp

import (
	"fmt"
	"strings"
)

// FormatNoteResults formats similarity search results as markdown for
// display in a chat client.
func FormatNoteResults(query string, results []NoteResultOutput) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d result", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		formatNoteResult(&sb, i+1, r)
	}

	return sb.String()
}

// formatNoteResult formats a single scored note chunk.
func formatNoteResult(sb *strings.Builder, num int, r NoteResultOutput) {
	fmt.Fprintf(sb, "### %d. %s (similarity: %.3f)\n\n", num, r.FilePath, r.Similarity)
	if r.ChunkID != "" {
		fmt.Fprintf(sb, "**Chunk:** `%s`\n\n", r.ChunkID)
	}
	if r.Content != "" {
		sb.WriteString(r.Content)
		sb.WriteString("\n\n---\n\n")
	}
}

// FormatHealthReport formats a health check output as markdown.
func FormatHealthReport(report HealthCheckOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Health Check: %s\n\n", report.Status)
	fmt.Fprintf(&sb, "- Files scanned: %d\n", report.FilesScanned)
	fmt.Fprintf(&sb, "- Live entries: %d\n", report.EntriesLive)
	fmt.Fprintf(&sb, "- Sampled for latency: %d (avg %.2fms)\n", report.SampledForPerf, report.AvgQueryTimeMS)
	fmt.Fprintf(&sb, "- Check duration: %s\n\n", report.CheckDuration)

	if len(report.Issues) == 0 {
		sb.WriteString("No issues detected.\n")
		return sb.String()
	}

	sb.WriteString("### Issues\n\n")
	for _, issue := range report.Issues {
		fmt.Fprintf(&sb, "- **%s** (%s): %s — %s\n", issue.Kind, issue.Severity, issue.Detail, issue.Remediation)
	}
	return sb.String()
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
