// Package mcp implements the Model Context Protocol (MCP) server that
// exposes the indexing pipeline, vector store, similarity search, and
// maintenance surfaces to AI clients and the CLI.
package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aman-cerp/vaultindex/internal/config"
	"github.com/aman-cerp/vaultindex/internal/embed"
	"github.com/aman-cerp/vaultindex/internal/maintenance"
	"github.com/aman-cerp/vaultindex/internal/pipeline"
	"github.com/aman-cerp/vaultindex/internal/similarity"
	"github.com/aman-cerp/vaultindex/internal/telemetry"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
	"github.com/aman-cerp/vaultindex/pkg/version"
)

// Server is the MCP server for vaultindex. It bridges AI clients (Claude
// Code, Cursor) with the note-vault indexing pipeline and similarity search.
type Server struct {
	mcp      *mcp.Server
	pipeline *pipeline.Pipeline
	store    *vectorstore.Store
	embedder embed.Embedder
	search   *similarity.ConcurrentSearchManager
	rebuild  *maintenance.Rebuilder
	health   *maintenance.HealthChecker
	idle     *maintenance.IdleCompactor
	config   *config.Config
	logger   *slog.Logger

	rootPath string

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ResourceInfo contains information about a resource.
type ResourceInfo struct {
	URI      string
	Name     string
	MIMEType string
}

// ResourceContent contains the content of a resource.
type ResourceContent struct {
	URI      string
	Content  string
	MIMEType string
}

// NewServer creates a new MCP server wired to an already-running pipeline
// and its backing store. rootPath is used for resource path resolution.
func NewServer(p *pipeline.Pipeline, store *vectorstore.Store, embedder embed.Embedder, cfg *config.Config, rootPath string) (*Server, error) {
	if p == nil {
		return nil, errors.New("pipeline is required")
	}
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		pipeline: p,
		store:    store,
		embedder: embedder,
		search:   similarity.NewConcurrentSearchManager(8),
		rebuild:  maintenance.NewRebuilder(store, nil, embedder, maintenance.DefaultRebuildConfig()),
		health:   maintenance.NewHealthChecker(store, maintenance.DefaultHealthConfig()),
		config:   cfg,
		rootPath: rootPath,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "vaultindex",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// SetRebuilder overrides the rebuilder used by rebuild_index, for callers
// that need a chunker wired in (the zero-value Rebuilder built by NewServer
// has none and will fail any rebuild that needs to re-chunk a file).
func (s *Server) SetRebuilder(r *maintenance.Rebuilder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild = r
}

// SetMetrics sets the query metrics collector for telemetry.
// When set, a query_metrics resource is registered.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// SetIdleCompactor wires an IdleCompactor that runs a maintenance cycle once
// search traffic for this vault goes quiet. When set, every completed
// search_notes call rearms its idle timer.
func (s *Server) SetIdleCompactor(c *maintenance.IdleCompactor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = c
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "vaultindex", version.Version
}

// Capabilities returns whether tools and resources are enabled.
func (s *Server) Capabilities() (hasTools, hasResources bool) {
	return true, true
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "queue_file", Description: "Queue a single note file for indexing at a given priority."},
		{Name: "bulk_index_vault", Description: "Scan a vault directory and queue every matching file for indexing."},
		{Name: "pipeline_status", Description: "Report current indexing pipeline throughput and queue depth."},
		{Name: "search_notes", Description: "Embed a query and return the most similar indexed note chunks."},
		{Name: "health_check", Description: "Validate store integrity and sample query latency."},
		{Name: "rebuild_index", Description: "Re-chunk and re-embed every indexed file, skipping unchanged content."},
		{Name: "compact_store", Description: "Reclaim space by removing superseded and deleted entries from batch files."},
	}
}

// CallTool invokes a tool by name with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "queue_file":
		return s.handleQueueFile(args)
	case "bulk_index_vault":
		return s.handleBulkIndexVault(args)
	case "pipeline_status":
		return s.handlePipelineStatus(), nil
	case "search_notes":
		return s.handleSearchNotes(ctx, args)
	case "health_check":
		return s.handleHealthCheck(ctx)
	case "rebuild_index":
		return s.handleRebuildIndex(ctx)
	case "compact_store":
		return s.handleCompactStore()
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func priorityFromString(s string) pipeline.Priority {
	switch strings.ToLower(s) {
	case "user_triggered", "user-triggered", "usertriggered":
		return pipeline.UserTriggered
	case "file_changed", "file-changed", "filechanged":
		return pipeline.FileChanged
	default:
		return pipeline.Automatic
	}
}

func (s *Server) handleQueueFile(args map[string]any) (*QueueFileOutput, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, NewInvalidParamsError("path parameter is required and must be a non-empty string")
	}
	priority := pipeline.Automatic
	if p, ok := args["priority"].(string); ok {
		priority = priorityFromString(p)
	}

	id, err := s.pipeline.QueueFile(path, priority)
	if err != nil {
		return nil, MapError(err)
	}
	return &QueueFileOutput{RequestID: id}, nil
}

func (s *Server) handleBulkIndexVault(args map[string]any) (*BulkIndexOutput, error) {
	vaultPath, ok := args["vault_path"].(string)
	if !ok || vaultPath == "" {
		return nil, NewInvalidParamsError("vault_path parameter is required and must be a non-empty string")
	}
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		pattern = "*.md"
	}
	priority := pipeline.Automatic
	if p, ok := args["priority"].(string); ok {
		priority = priorityFromString(p)
	}

	ids, err := s.pipeline.BulkIndexVault(vaultPath, priority, pattern)
	if err != nil {
		return nil, MapError(err)
	}
	return &BulkIndexOutput{QueuedCount: len(ids), RequestIDs: ids}, nil
}

func (s *Server) handlePipelineStatus() *PipelineStatusOutput {
	progress := s.pipeline.GetProgress()
	stats := s.pipeline.QueueStats()

	return &PipelineStatusOutput{
		TotalFiles:         progress.TotalFiles,
		CompletedFiles:     progress.CompletedFiles,
		ProcessingFiles:    progress.ProcessingFiles,
		FailedFiles:        progress.FailedFiles,
		QueuedFiles:        progress.QueuedFiles,
		ProgressPercent:    progress.ProgressPercent,
		FilesPerSecond:     progress.FilesPerSecond,
		EstimatedRemaining: progress.EstimatedRemaining.String(),
		IsRunning:          progress.IsRunning,
		QueuedAutomatic:    stats[pipeline.Automatic],
		QueuedFileChanged:  stats[pipeline.FileChanged],
		QueuedUserTrigger:  stats[pipeline.UserTriggered],
	}
}

func (s *Server) handleSearchNotes(ctx context.Context, args map[string]any) (*SearchNotesOutput, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if s.embedder == nil {
		return nil, NewInvalidParamsError("no embedder configured for search_notes")
	}

	k := clampLimit(0, 10, 1, 100)
	if v, ok := args["k"].(float64); ok {
		k = clampLimit(int(v), 10, 1, 100)
	}
	cfg := similarity.DefaultConfig()
	if v, ok := args["min_threshold"].(float64); ok {
		cfg.MinThreshold = float32(v)
	}

	requestID := generateRequestID()
	start := time.Now()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}

	entries, err := s.store.AllEntries()
	if err != nil {
		return nil, MapError(err)
	}

	results, err := s.search.Search(ctx, vector, entries, k, cfg)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("search_notes failed", slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()
	if metrics != nil {
		metrics.Record(telemetry.QueryEvent{
			Query:       query,
			QueryType:   telemetry.QueryTypeSemantic,
			ResultCount: len(results),
			Latency:     duration,
			Timestamp:   time.Now(),
		})
		metrics.RecordQueryEmbedding(vector)
	}

	s.logger.Info("search_notes completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results)))

	s.mu.RLock()
	idle := s.idle
	s.mu.RUnlock()
	if idle != nil {
		idle.OnSearchComplete(ctx)
	}

	out := &SearchNotesOutput{Results: make([]NoteResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, NoteResultOutput{
			FilePath:   r.Entry.Metadata.FilePath,
			ChunkID:    r.Entry.Metadata.ChunkID,
			Content:    chunkPreview(r.Entry.Metadata.FilePath),
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

func (s *Server) handleHealthCheck(ctx context.Context) (*HealthCheckOutput, error) {
	report, err := s.health.Check(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	out := &HealthCheckOutput{
		Status:         report.Status.String(),
		FilesScanned:   report.FilesScanned,
		EntriesLive:    report.EntriesLive,
		SampledForPerf: report.SampledForPerf,
		AvgQueryTimeMS: float64(report.AvgQueryTime.Microseconds()) / 1000,
		CheckDuration:  report.CheckDuration.String(),
	}
	for _, issue := range report.Issues {
		out.Issues = append(out.Issues, IssueOutput{
			Kind:        string(issue.Kind),
			Severity:    issue.Severity.String(),
			Detail:      issue.Detail,
			Remediation: issue.Remediation,
		})
	}
	return out, nil
}

func (s *Server) handleRebuildIndex(ctx context.Context) (*RebuildIndexOutput, error) {
	s.mu.RLock()
	rebuilder := s.rebuild
	s.mu.RUnlock()

	result, err := rebuilder.Run(ctx, func(p maintenance.RebuildProgress) {
		s.logger.Info("rebuild progress",
			slog.String("run_id", p.RunID),
			slog.String("phase", string(p.Phase)),
			slog.Float64("percent", p.Percent))
	})
	if err != nil && result.RunID == "" {
		return nil, MapError(err)
	}

	return &RebuildIndexOutput{
		RunID:         result.RunID,
		FinalPhase:    string(result.FinalPhase),
		Success:       result.Success,
		EntriesTotal:  result.EntriesTotal,
		EntriesFailed: result.EntriesFailed,
		Duration:      result.Duration.String(),
		Errors:        result.Errors,
	}, nil
}

func (s *Server) handleCompactStore() (*CompactStoreOutput, error) {
	result, err := maintenance.RunCycle(s.store)
	if err != nil {
		return nil, MapError(err)
	}
	return &CompactStoreOutput{
		RunID:            result.RunID,
		FilesCompacted:   result.FilesCompacted,
		FilesRemoved:     result.FilesRemoved,
		EntriesRemaining: result.EntriesRemaining,
		BytesReclaimed:   result.BytesReclaimed,
	}, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "queue_file",
		Description: "Queue a single note file for indexing at a given priority.",
	}, s.mcpQueueFileHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "bulk_index_vault",
		Description: "Scan a vault directory and queue every matching file for indexing.",
	}, s.mcpBulkIndexHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "pipeline_status",
		Description: "Report current indexing pipeline throughput and queue depth.",
	}, s.mcpPipelineStatusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_notes",
		Description: "Embed a query and return the most similar indexed note chunks.",
	}, s.mcpSearchNotesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "health_check",
		Description: "Validate store integrity and sample query latency.",
	}, s.mcpHealthCheckHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "rebuild_index",
		Description: "Re-chunk and re-embed every indexed file, skipping unchanged content.",
	}, s.mcpRebuildIndexHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "compact_store",
		Description: "Reclaim space by removing superseded and deleted entries from batch files.",
	}, s.mcpCompactStoreHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 7))
}

func (s *Server) mcpQueueFileHandler(_ context.Context, _ *mcp.CallToolRequest, input QueueFileInput) (*mcp.CallToolResult, QueueFileOutput, error) {
	out, err := s.handleQueueFile(map[string]any{"path": input.Path, "priority": input.Priority})
	if err != nil {
		return nil, QueueFileOutput{}, MapError(err)
	}
	return nil, *out, nil
}

func (s *Server) mcpBulkIndexHandler(_ context.Context, _ *mcp.CallToolRequest, input BulkIndexInput) (*mcp.CallToolResult, BulkIndexOutput, error) {
	out, err := s.handleBulkIndexVault(map[string]any{
		"vault_path": input.VaultPath,
		"pattern":    input.Pattern,
		"priority":   input.Priority,
	})
	if err != nil {
		return nil, BulkIndexOutput{}, MapError(err)
	}
	return nil, *out, nil
}

func (s *Server) mcpPipelineStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ PipelineStatusInput) (*mcp.CallToolResult, PipelineStatusOutput, error) {
	return nil, *s.handlePipelineStatus(), nil
}

func (s *Server) mcpSearchNotesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchNotesInput) (*mcp.CallToolResult, SearchNotesOutput, error) {
	args := map[string]any{
		"query": input.Query,
		"k":     float64(input.K),
	}
	// An omitted min_threshold arrives as 0; leave it out so the -1 default applies.
	if input.MinThreshold != 0 {
		args["min_threshold"] = input.MinThreshold
	}
	out, err := s.handleSearchNotes(ctx, args)
	if err != nil {
		return nil, SearchNotesOutput{}, MapError(err)
	}
	return nil, *out, nil
}

func (s *Server) mcpHealthCheckHandler(ctx context.Context, _ *mcp.CallToolRequest, _ HealthCheckInput) (*mcp.CallToolResult, HealthCheckOutput, error) {
	out, err := s.handleHealthCheck(ctx)
	if err != nil {
		return nil, HealthCheckOutput{}, MapError(err)
	}
	return nil, *out, nil
}

func (s *Server) mcpRebuildIndexHandler(ctx context.Context, _ *mcp.CallToolRequest, _ RebuildIndexInput) (*mcp.CallToolResult, RebuildIndexOutput, error) {
	out, err := s.handleRebuildIndex(ctx)
	if err != nil {
		return nil, RebuildIndexOutput{}, MapError(err)
	}
	return nil, *out, nil
}

func (s *Server) mcpCompactStoreHandler(_ context.Context, _ *mcp.CallToolRequest, _ CompactStoreInput) (*mcp.CallToolResult, CompactStoreOutput, error) {
	out, err := s.handleCompactStore()
	if err != nil {
		return nil, CompactStoreOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ListResources returns all available resources.
func (s *Server) ListResources(ctx context.Context, cursor string) ([]ResourceInfo, string, error) {
	entries, err := s.store.AllEntries()
	if err != nil {
		return nil, "", err
	}

	seen := make(map[string]bool)
	resources := make([]ResourceInfo, 0, len(entries))
	for _, e := range entries {
		path := e.Metadata.FilePath
		if seen[path] {
			continue
		}
		seen[path] = true
		resources = append(resources, ResourceInfo{
			URI:      fmt.Sprintf("file://%s", path),
			Name:     path,
			MIMEType: "text/markdown",
		})
	}

	return resources, "", nil
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	if !strings.HasPrefix(uri, "file://") {
		return nil, NewResourceNotFoundError(uri)
	}
	path := strings.TrimPrefix(uri, "file://")
	return s.handleReadFileResource(path)
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport), slog.String("addr", addr))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	case "sse":
		return fmt.Errorf("SSE transport not yet implemented")
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// chunkPreview returns a best-effort snippet of a note's content for display.
// The store only retains a hash of chunk text, not the text itself, so this
// reads the first bytes of the source file rather than the exact chunk span.
func chunkPreview(path string) string {
	const maxPreview = 240
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if len(data) > maxPreview {
		data = data[:maxPreview]
	}
	return strings.TrimSpace(string(data))
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
