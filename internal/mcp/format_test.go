package mcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNoteResults_Basic(t *testing.T) {
	results := []NoteResultOutput{
		{FilePath: "journal/2026-01-01.md", ChunkID: "chunk_0", Content: "Today I learned about vector stores.", Similarity: 0.91},
		{FilePath: "projects/vaultindex.md", ChunkID: "chunk_3", Content: "The pipeline uses a priority queue.", Similarity: 0.82},
	}

	out := FormatNoteResults("vector stores", results)

	assert.Contains(t, out, "vector stores")
	assert.Contains(t, out, "Found 2 results")
	assert.Contains(t, out, "journal/2026-01-01.md")
	assert.Contains(t, out, "0.910")
	assert.Contains(t, out, "chunk_3")
}

func TestFormatNoteResults_Empty(t *testing.T) {
	out := FormatNoteResults("nonexistent topic", nil)
	assert.Contains(t, out, "No results found")
	assert.Contains(t, out, "nonexistent topic")
}

func TestFormatNoteResults_SingularResultWord(t *testing.T) {
	results := []NoteResultOutput{{FilePath: "a.md", Similarity: 0.5}}
	out := FormatNoteResults("q", results)
	assert.Contains(t, out, "Found 1 result")
	assert.False(t, strings.Contains(out, "Found 1 results"))
}

func TestFormatHealthReport_NoIssues(t *testing.T) {
	report := HealthCheckOutput{
		Status:         "healthy",
		FilesScanned:   10,
		EntriesLive:    42,
		SampledForPerf: 5,
		AvgQueryTimeMS: 1.2,
		CheckDuration:  "12ms",
	}
	out := FormatHealthReport(report)
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "No issues detected")
}

func TestFormatHealthReport_WithIssues(t *testing.T) {
	report := HealthCheckOutput{
		Status: "degraded",
		Issues: []IssueOutput{
			{Kind: "orphaned_entry", Severity: "warning", Detail: "3 entries reference missing files", Remediation: "run compact_store"},
		},
	}
	out := FormatHealthReport(report)
	assert.Contains(t, out, "orphaned_entry")
	assert.Contains(t, out, "run compact_store")
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		defaultVal int
		min        int
		max        int
		want       int
	}{
		{"zero uses default", 0, 10, 1, 100, 10},
		{"negative uses default", -5, 10, 1, 100, 10},
		{"within range passes through", 25, 10, 1, 100, 25},
		{"above max clamps down", 500, 10, 1, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampLimit(tt.limit, tt.defaultVal, tt.min, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}
