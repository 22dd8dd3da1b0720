package mcp

// QueueFileInput defines the input schema for the queue_file tool.
type QueueFileInput struct {
	Path     string `json:"path" jsonschema:"absolute or vault-relative path to the note file to index"`
	Priority string `json:"priority,omitempty" jsonschema:"indexing priority: automatic, file_changed, or user_triggered (default automatic)"`
}

// QueueFileOutput defines the output schema for the queue_file tool.
type QueueFileOutput struct {
	RequestID uint64 `json:"request_id"`
}

// BulkIndexInput defines the input schema for the bulk_index_vault tool.
type BulkIndexInput struct {
	VaultPath string `json:"vault_path" jsonschema:"root directory of the note vault to scan"`
	Pattern   string `json:"pattern,omitempty" jsonschema:"glob pattern matched against each file name, default *.md"`
	Priority  string `json:"priority,omitempty" jsonschema:"indexing priority applied to every queued file (default automatic)"`
}

// BulkIndexOutput defines the output schema for the bulk_index_vault tool.
type BulkIndexOutput struct {
	QueuedCount int      `json:"queued_count"`
	RequestIDs  []uint64 `json:"request_ids"`
}

// PipelineStatusInput defines the input schema for the pipeline_status tool (no parameters).
type PipelineStatusInput struct{}

// PipelineStatusOutput defines the output schema for the pipeline_status tool.
type PipelineStatusOutput struct {
	TotalFiles         uint64  `json:"total_files"`
	CompletedFiles     uint64  `json:"completed_files"`
	ProcessingFiles    uint64  `json:"processing_files"`
	FailedFiles        uint64  `json:"failed_files"`
	QueuedFiles        uint64  `json:"queued_files"`
	ProgressPercent    float64 `json:"progress_percent"`
	FilesPerSecond     float64 `json:"files_per_second"`
	EstimatedRemaining string  `json:"estimated_remaining"`
	IsRunning          bool    `json:"is_running"`
	QueuedAutomatic    int     `json:"queued_automatic"`
	QueuedFileChanged  int     `json:"queued_file_changed"`
	QueuedUserTrigger  int     `json:"queued_user_triggered"`
}

// SearchNotesInput defines the input schema for the search_notes tool.
type SearchNotesInput struct {
	Query        string  `json:"query" jsonschema:"natural-language query to embed and search for"`
	K            int     `json:"k,omitempty" jsonschema:"number of results to return, default 10"`
	MinThreshold float64 `json:"min_threshold,omitempty" jsonschema:"minimum cosine similarity in [-1,1], default -1 (no filtering)"`
}

// SearchNotesOutput defines the output schema for the search_notes tool.
type SearchNotesOutput struct {
	Results []NoteResultOutput `json:"results"`
}

// NoteResultOutput is a single scored note chunk.
type NoteResultOutput struct {
	FilePath   string  `json:"file_path"`
	ChunkID    string  `json:"chunk_id"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// HealthCheckInput defines the input schema for the health_check tool (no parameters).
type HealthCheckInput struct{}

// HealthCheckOutput defines the output schema for the health_check tool.
type HealthCheckOutput struct {
	Status         string         `json:"status"`
	FilesScanned   int            `json:"files_scanned"`
	EntriesLive    int            `json:"entries_live"`
	SampledForPerf int            `json:"sampled_for_perf"`
	AvgQueryTimeMS float64        `json:"avg_query_time_ms"`
	CheckDuration  string         `json:"check_duration"`
	Issues         []IssueOutput  `json:"issues,omitempty"`
}

// IssueOutput describes a single health issue.
type IssueOutput struct {
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	Detail      string `json:"detail"`
	Remediation string `json:"remediation"`
}

// RebuildIndexInput defines the input schema for the rebuild_index tool (no parameters).
type RebuildIndexInput struct{}

// RebuildIndexOutput defines the output schema for the rebuild_index tool.
type RebuildIndexOutput struct {
	RunID         string   `json:"run_id"`
	FinalPhase    string   `json:"final_phase"`
	Success       bool     `json:"success"`
	EntriesTotal  int      `json:"entries_total"`
	EntriesFailed int      `json:"entries_failed"`
	Duration      string   `json:"duration"`
	Errors        []string `json:"errors,omitempty"`
}

// CompactStoreInput defines the input schema for the compact_store tool (no parameters).
type CompactStoreInput struct{}

// CompactStoreOutput defines the output schema for the compact_store tool.
type CompactStoreOutput struct {
	RunID            string `json:"run_id"`
	FilesCompacted   int    `json:"files_compacted"`
	FilesRemoved     int    `json:"files_removed"`
	EntriesRemaining int    `json:"entries_remaining"`
	BytesReclaimed   int64  `json:"bytes_reclaimed"`
}
