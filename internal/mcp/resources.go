package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MaxResourceSize is the maximum file size for resources (1MB).
const MaxResourceSize = 1024 * 1024

// RegisterResources loads every distinct indexed file path and registers it
// as an MCP resource. This should be called after the server is created and
// before serving.
func (s *Server) RegisterResources(ctx context.Context) error {
	entries, err := s.store.AllEntries()
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	seen := make(map[string]bool)
	count := 0
	for _, e := range entries {
		path := e.Metadata.FilePath
		if seen[path] {
			continue
		}
		seen[path] = true
		s.registerFileResource(path)
		count++
	}

	s.logger.Info("registered resources", "count", count)
	return nil
}

// registerFileResource registers a single note file as an MCP resource.
func (s *Server) registerFileResource(path string) {
	uri := fmt.Sprintf("file://%s", path)
	info, err := os.Stat(s.resolvePath(path))
	size := int64(0)
	if err == nil {
		size = info.Size()
	}

	s.mcp.AddResource(
		&mcp.Resource{
			Name:        filepath.Base(path),
			URI:         uri,
			Description: fmt.Sprintf("%s (%s)", path, humanSize(size)),
			MIMEType:    MimeTypeForPath(path),
		},
		s.makeFileHandler(path),
	)
}

// makeFileHandler creates a read handler for a specific file path.
func (s *Server) makeFileHandler(path string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.handleReadResource(ctx, path)
	}
}

// resolvePath joins a vault-relative path against the server's root, or
// returns it unmodified if already absolute.
func (s *Server) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.rootPath, path)
}

// handleReadFileResource reads file content by path, enforcing the same
// validation and size limit as handleReadResource.
func (s *Server) handleReadFileResource(path string) (*ResourceContent, error) {
	result, err := s.handleReadResource(context.Background(), path)
	if err != nil {
		return nil, err
	}
	if len(result.Contents) == 0 {
		return nil, NewResourceNotFoundError(path)
	}
	return &ResourceContent{
		URI:      result.Contents[0].URI,
		Content:  result.Contents[0].Text,
		MIMEType: result.Contents[0].MIMEType,
	}, nil
}

// handleReadResource reads file content with security validation.
func (s *Server) handleReadResource(ctx context.Context, relativePath string) (*mcp.ReadResourceResult, error) {
	if !s.isValidPath(relativePath) {
		return nil, NewInvalidParamsError(fmt.Sprintf("invalid path: %s", relativePath))
	}

	if len(s.entryIDsForPath(relativePath)) == 0 {
		return nil, NewInvalidParamsError(fmt.Sprintf("file not indexed: %s", relativePath))
	}

	fullPath := s.resolvePath(relativePath)

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MCPError{
				Code:    ErrCodeFileNotFound,
				Message: fmt.Sprintf("file not found: %s", relativePath),
			}
		}
		return nil, MapError(err)
	}

	if info.Size() > MaxResourceSize {
		return nil, &MCPError{
			Code:    ErrCodeFileTooLarge,
			Message: fmt.Sprintf("file too large: %d bytes (max %d)", info.Size(), MaxResourceSize),
		}
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, MapError(err)
	}

	uri := fmt.Sprintf("file://%s", relativePath)
	mimeType := MimeTypeForPath(relativePath)

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: mimeType,
				Text:     string(content),
			},
		},
	}, nil
}

// entryIDsForPath returns the ids of every entry indexed from path.
func (s *Server) entryIDsForPath(path string) []string {
	entries, err := s.store.AllEntries()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, 1)
	for _, e := range entries {
		if e.Metadata.FilePath == path {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// isValidPath validates that a path is safe to access.
// Returns false for path traversal attempts or absolute paths.
func (s *Server) isValidPath(path string) bool {
	if path == "" {
		return false
	}

	if filepath.IsAbs(path) {
		return false
	}

	if len(path) >= 2 && path[1] == ':' {
		return false
	}

	cleaned := filepath.Clean(path)

	if strings.HasPrefix(cleaned, "..") {
		return false
	}

	parts := strings.Split(cleaned, string(filepath.Separator))
	for _, part := range parts {
		if part == ".." {
			return false
		}
	}

	return true
}

// humanSize formats bytes as a human-readable string.
func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// QueryMetricsOutput is the JSON structure for the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	QueryTypeCounts     map[string]int64    `json:"query_type_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	TimePeriod    string  `json:"time_period"`
	ZeroResultPct float64 `json:"zero_result_pct"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// registerQueryMetricsResource registers the query_metrics resource.
func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         "vaultindex://query_metrics",
			Description: "Semantic search query telemetry",
			MIMEType:    "application/json",
		},
		s.makeQueryMetricsHandler(),
	)
}

// makeQueryMetricsHandler creates a handler for the query_metrics resource.
func (s *Server) makeQueryMetricsHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		s.mu.RLock()
		metrics := s.metrics
		s.mu.RUnlock()

		if metrics == nil {
			return nil, NewInvalidParamsError("query metrics not available")
		}

		snapshot := metrics.Snapshot()

		output := QueryMetricsOutput{
			Summary: QueryMetricsSummary{
				TotalQueries:  snapshot.TotalQueries,
				TimePeriod:    "session",
				ZeroResultPct: snapshot.ZeroResultPercentage(),
			},
			QueryTypeCounts:     make(map[string]int64),
			TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
			ZeroResultQueries:   snapshot.ZeroResultQueries,
			LatencyDistribution: make(map[string]int64),
		}

		for qt, count := range snapshot.QueryTypeCounts {
			output.QueryTypeCounts[string(qt)] = count
		}

		for _, tc := range snapshot.TopTerms {
			output.TopTerms = append(output.TopTerms, QueryTermCount{
				Term:  tc.Term,
				Count: tc.Count,
			})
		}

		for bucket, count := range snapshot.LatencyDistribution {
			output.LatencyDistribution[string(bucket)] = count
		}

		content, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return nil, MapError(err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      "vaultindex://query_metrics",
					MIMEType: "application/json",
					Text:     string(content),
				},
			},
		}, nil
	}
}
