package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectType represents the type of vault detected.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeUnknown ProjectType = "unknown"
)

// Config represents the complete vaultindex configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Chunk       ChunkConfig       `yaml:"chunk" json:"chunk"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Pipeline    PipelineConfig    `yaml:"pipeline" json:"pipeline"`
	Similarity  SimilarityConfig  `yaml:"similarity" json:"similarity"`
	Maintenance MaintenanceConfig `yaml:"maintenance" json:"maintenance"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Watcher     WatcherConfig     `yaml:"watcher" json:"watcher"`
}

// PathsConfig configures which paths to include and exclude from indexing.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
	// RespectGitignore skips files matched by .gitignore rules found while
	// walking the vault, in addition to Exclude.
	RespectGitignore bool `yaml:"respect_gitignore" json:"respect_gitignore"`
	// Submodules configures scanning of git submodules nested in the vault.
	Submodules SubmoduleConfig `yaml:"submodules" json:"submodules"`
}

// SubmoduleConfig configures whether and how git submodules nested inside a
// vault are scanned alongside its own notes.
type SubmoduleConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Recursive bool     `yaml:"recursive" json:"recursive"`
	Include   []string `yaml:"include" json:"include"`
	Exclude   []string `yaml:"exclude" json:"exclude"`
}

// ChunkConfig configures note chunking.
type ChunkConfig struct {
	MaxChunkSize    int `yaml:"max_chunk_size" json:"max_chunk_size"`
	MinChunkSize    int `yaml:"min_chunk_size" json:"min_chunk_size"`
	OverlapSize     int `yaml:"overlap_size" json:"overlap_size"`
	MaxHeadingDepth int `yaml:"max_heading_depth" json:"max_heading_depth"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider             string        `yaml:"provider" json:"provider"`
	Model                string        `yaml:"model" json:"model"`
	Dimensions           int           `yaml:"dimensions" json:"dimensions"`
	BatchSize            int           `yaml:"batch_size" json:"batch_size"`
	ModelDownloadTimeout time.Duration `yaml:"model_download_timeout" json:"model_download_timeout"`

	// MLX settings (opt-in on Apple Silicon via --backend=mlx)
	MLXEndpoint string `yaml:"mlx_endpoint" json:"mlx_endpoint"`
	MLXModel    string `yaml:"mlx_model" json:"mlx_model"`

	// Ollama settings (default, cross-platform)
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`

	// Thermal management settings for sustained embedding workloads.
	InterBatchDelay        string  `yaml:"inter_batch_delay" json:"inter_batch_delay"`
	TimeoutProgression     float64 `yaml:"timeout_progression" json:"timeout_progression"`
	RetryTimeoutMultiplier float64 `yaml:"retry_timeout_multiplier" json:"retry_timeout_multiplier"`
}

// StoreConfig configures the file-based vector store.
type StoreConfig struct {
	// Directory is the on-disk location of the vector store. Relative paths
	// are resolved against the vault root.
	Directory string `yaml:"directory" json:"directory"`
	// Compression selects the entry codec: "gzip" or "none".
	Compression string `yaml:"compression" json:"compression"`
	// ShardCount controls how many shard files the store splits entries
	// across; 0 lets the store pick based on entry count.
	ShardCount int `yaml:"shard_count" json:"shard_count"`
}

// PipelineConfig configures the background indexing pipeline.
type PipelineConfig struct {
	WorkerCount      int           `yaml:"worker_count" json:"worker_count"`
	MaxQueueSize     int           `yaml:"max_queue_size" json:"max_queue_size"`
	ProgressInterval time.Duration `yaml:"progress_interval" json:"progress_interval"`
	FileTimeout      time.Duration `yaml:"file_timeout" json:"file_timeout"`
	EnableResume     bool          `yaml:"enable_resume" json:"enable_resume"`
	StateFilePath    string        `yaml:"state_file_path" json:"state_file_path"`
	DebounceWindow   time.Duration `yaml:"debounce_window" json:"debounce_window"`
}

// SimilarityConfig configures the k-NN similarity engine.
type SimilarityConfig struct {
	MinThreshold     float32 `yaml:"min_threshold" json:"min_threshold"`
	MaxResults       int     `yaml:"max_results" json:"max_results"`
	EarlyTermination bool    `yaml:"early_termination" json:"early_termination"`
	MaxInFlight      int64   `yaml:"max_in_flight" json:"max_in_flight"`
}

// MaintenanceConfig configures rebuild, health-check, and compaction cycles.
type MaintenanceConfig struct {
	// Enabled enables automatic background maintenance cycles.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// WorkerConcurrency bounds concurrent embedding requests during a rebuild.
	WorkerConcurrency int64 `yaml:"worker_concurrency" json:"worker_concurrency"`
	// ValidateAfter runs an integrity check immediately after a rebuild.
	ValidateAfter bool `yaml:"validate_after" json:"validate_after"`
	// SamplePercent is the fraction of entries sampled for health-check
	// query latency probes (0.0-1.0).
	SamplePercent float64 `yaml:"sample_percent" json:"sample_percent"`
	// QueryBudget bounds how long a single health-check probe query may run.
	QueryBudget time.Duration `yaml:"query_budget" json:"query_budget"`
	// IdleTimeout is how long without searches before a vault is considered
	// idle and eligible for background compaction.
	IdleTimeout string `yaml:"idle_timeout" json:"idle_timeout"`
	// Cooldown is the minimum time between compaction cycles for the same vault.
	Cooldown string `yaml:"cooldown" json:"cooldown"`
}

// PerformanceConfig configures performance tuning options.
type PerformanceConfig struct {
	MaxFiles      int    `yaml:"max_files" json:"max_files"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
	MemoryLimit   string `yaml:"memory_limit" json:"memory_limit"`
	Quantization  string `yaml:"quantization" json:"quantization"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// WatcherConfig configures live reindexing of a vault during mcp-serve.
type WatcherConfig struct {
	// Enabled starts a filesystem watcher alongside the serve command,
	// feeding changed files into the pipeline's debounced reindex path.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// DebounceWindow is how long the watcher coalesces rapid edits to the
	// same file before the pipeline requeues it.
	DebounceWindow time.Duration `yaml:"debounce_window" json:"debounce_window"`
}

// defaultExcludePatterns are always excluded from vault scanning.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/.obsidian/**",
	"**/.trash/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Chunk: ChunkConfig{
			MaxChunkSize:    1500,
			MinChunkSize:    100,
			OverlapSize:     200,
			MaxHeadingDepth: 3,
		},
		Embeddings: EmbeddingsConfig{
			Provider:               "", // Empty selects Ollama; MLX and static are opt-in, with no automatic fallback
			Model:                  "qwen3-embedding:8b",
			Dimensions:             0, // Auto-detect from embedder
			BatchSize:              32,
			ModelDownloadTimeout:   10 * time.Minute,
			MLXEndpoint:            "",
			MLXModel:               "",
			OllamaHost:             "",
			InterBatchDelay:        "",
			TimeoutProgression:     1.5,
			RetryTimeoutMultiplier: 1.0,
		},
		Store: StoreConfig{
			Directory:   ".vaultindex/store",
			Compression: "gzip",
			ShardCount:  0,
		},
		Pipeline: PipelineConfig{
			WorkerCount:      runtime.NumCPU(),
			MaxQueueSize:     1000,
			ProgressInterval: time.Second,
			FileTimeout:      30 * time.Second,
			EnableResume:     true,
			StateFilePath:    ".vaultindex/pipeline_state.json",
			DebounceWindow:   500 * time.Millisecond,
		},
		Similarity: SimilarityConfig{
			MinThreshold:     0.0,
			MaxResults:       20,
			EarlyTermination: true,
			MaxInFlight:      8,
		},
		Maintenance: MaintenanceConfig{
			Enabled:           true,
			WorkerConcurrency: 4,
			ValidateAfter:     true,
			SamplePercent:     0.1,
			QueryBudget:       5 * time.Second,
			IdleTimeout:       "30s",
			Cooldown:          "1h",
		},
		Performance: PerformanceConfig{
			MaxFiles:      100000,
			WatchDebounce: "500ms",
			CacheSize:     1000,
			MemoryLimit:   "auto",
			Quantization:  "F16",
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "debug",
		},
		Watcher: WatcherConfig{
			Enabled:        true,
			DebounceWindow: 500 * time.Millisecond,
		},
	}
}

// defaultStateHome returns ~/.vaultindex, used as a fallback root for
// state that isn't tied to a specific vault.
func defaultStateHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".vaultindex")
	}
	return filepath.Join(home, ".vaultindex")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/vaultindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/vaultindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vaultindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "vaultindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "vaultindex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/vaultindex/config.yaml)
//  3. Vault config (.vaultindex.yaml in the vault root)
//  4. Environment variables (VAULTINDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .vaultindex.yaml or .vaultindex.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".vaultindex.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".vaultindex.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. The paths.submodules
// block is not merged.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}
	if other.Paths.RespectGitignore {
		c.Paths.RespectGitignore = true
	}

	if other.Chunk.MaxChunkSize != 0 {
		c.Chunk.MaxChunkSize = other.Chunk.MaxChunkSize
	}
	if other.Chunk.MinChunkSize != 0 {
		c.Chunk.MinChunkSize = other.Chunk.MinChunkSize
	}
	if other.Chunk.OverlapSize != 0 {
		c.Chunk.OverlapSize = other.Chunk.OverlapSize
	}
	if other.Chunk.MaxHeadingDepth != 0 {
		c.Chunk.MaxHeadingDepth = other.Chunk.MaxHeadingDepth
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.ModelDownloadTimeout != 0 {
		c.Embeddings.ModelDownloadTimeout = other.Embeddings.ModelDownloadTimeout
	}
	if other.Embeddings.MLXEndpoint != "" {
		c.Embeddings.MLXEndpoint = other.Embeddings.MLXEndpoint
	}
	if other.Embeddings.MLXModel != "" {
		c.Embeddings.MLXModel = other.Embeddings.MLXModel
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.InterBatchDelay != "" {
		c.Embeddings.InterBatchDelay = other.Embeddings.InterBatchDelay
	}
	if other.Embeddings.TimeoutProgression != 0 {
		c.Embeddings.TimeoutProgression = other.Embeddings.TimeoutProgression
	}
	if other.Embeddings.RetryTimeoutMultiplier != 0 {
		c.Embeddings.RetryTimeoutMultiplier = other.Embeddings.RetryTimeoutMultiplier
	}

	if other.Store.Directory != "" {
		c.Store.Directory = other.Store.Directory
	}
	if other.Store.Compression != "" {
		c.Store.Compression = other.Store.Compression
	}
	if other.Store.ShardCount != 0 {
		c.Store.ShardCount = other.Store.ShardCount
	}

	if other.Pipeline.WorkerCount != 0 {
		c.Pipeline.WorkerCount = other.Pipeline.WorkerCount
	}
	if other.Pipeline.MaxQueueSize != 0 {
		c.Pipeline.MaxQueueSize = other.Pipeline.MaxQueueSize
	}
	if other.Pipeline.ProgressInterval != 0 {
		c.Pipeline.ProgressInterval = other.Pipeline.ProgressInterval
	}
	if other.Pipeline.FileTimeout != 0 {
		c.Pipeline.FileTimeout = other.Pipeline.FileTimeout
	}
	if other.Pipeline.StateFilePath != "" {
		c.Pipeline.StateFilePath = other.Pipeline.StateFilePath
	}
	if other.Pipeline.DebounceWindow != 0 {
		c.Pipeline.DebounceWindow = other.Pipeline.DebounceWindow
	}

	if other.Similarity.MaxResults != 0 {
		c.Similarity.MaxResults = other.Similarity.MaxResults
	}
	if other.Similarity.MinThreshold != 0 {
		c.Similarity.MinThreshold = other.Similarity.MinThreshold
	}
	if other.Similarity.MaxInFlight != 0 {
		c.Similarity.MaxInFlight = other.Similarity.MaxInFlight
	}

	if other.Maintenance.WorkerConcurrency != 0 {
		c.Maintenance.WorkerConcurrency = other.Maintenance.WorkerConcurrency
	}
	if other.Maintenance.SamplePercent != 0 {
		c.Maintenance.SamplePercent = other.Maintenance.SamplePercent
	}
	if other.Maintenance.QueryBudget != 0 {
		c.Maintenance.QueryBudget = other.Maintenance.QueryBudget
	}
	if other.Maintenance.IdleTimeout != "" {
		c.Maintenance.IdleTimeout = other.Maintenance.IdleTimeout
	}
	if other.Maintenance.Cooldown != "" {
		c.Maintenance.Cooldown = other.Maintenance.Cooldown
	}

	if other.Performance.MaxFiles != 0 {
		c.Performance.MaxFiles = other.Performance.MaxFiles
	}
	if other.Performance.WatchDebounce != "" {
		c.Performance.WatchDebounce = other.Performance.WatchDebounce
	}
	if other.Performance.CacheSize != 0 {
		c.Performance.CacheSize = other.Performance.CacheSize
	}
	if other.Performance.MemoryLimit != "" {
		c.Performance.MemoryLimit = other.Performance.MemoryLimit
	}
	if other.Performance.Quantization != "" {
		c.Performance.Quantization = other.Performance.Quantization
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Watcher.DebounceWindow != 0 {
		c.Watcher.DebounceWindow = other.Watcher.DebounceWindow
	}
}

// applyEnvOverrides applies VAULTINDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VAULTINDEX_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("VAULTINDEX_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("VAULTINDEX_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("VAULTINDEX_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("VAULTINDEX_STORE_DIR"); v != "" {
		c.Store.Directory = v
	}
	if v := os.Getenv("VAULTINDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("VAULTINDEX_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("VAULTINDEX_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.WorkerCount = n
		}
	}
	if v := os.Getenv("VAULTINDEX_MAINTENANCE_ENABLED"); v != "" {
		c.Maintenance.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("VAULTINDEX_MAINTENANCE_IDLE_TIMEOUT"); v != "" {
		c.Maintenance.IdleTimeout = v
	}
	if v := os.Getenv("VAULTINDEX_MAINTENANCE_COOLDOWN"); v != "" {
		c.Maintenance.Cooldown = v
	}
}

// DetectProjectType detects the vault type based on marker files, in case a
// vault is colocated with a software project (e.g. a docs/ folder in a repo).
func DetectProjectType(dir string) ProjectType {
	if fileExists(filepath.Join(dir, "go.mod")) {
		return ProjectTypeGo
	}
	if fileExists(filepath.Join(dir, "package.json")) {
		return ProjectTypeNode
	}
	if fileExists(filepath.Join(dir, "pyproject.toml")) ||
		fileExists(filepath.Join(dir, "requirements.txt")) {
		return ProjectTypePython
	}
	return ProjectTypeUnknown
}

// FindProjectRoot finds the vault root directory.
// It looks for .git directory or .vaultindex.yaml/.yml file by walking up the directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".vaultindex.yaml")) ||
			fileExists(filepath.Join(currentDir, ".vaultindex.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// DiscoverSourceDirs discovers common source directories in the vault.
func DiscoverSourceDirs(dir string) []string {
	commonSourceDirs := []string{"notes", "journal", "projects", "areas", "resources", "archive"}
	frameworkDirs := []string{"app", "pages"}

	var found []string

	for _, d := range commonSourceDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}

	if isNextJS(dir) {
		for _, d := range frameworkDirs {
			if dirExists(filepath.Join(dir, d)) {
				found = append(found, d)
			}
		}
	}

	return found
}

// DiscoverDocsDirs discovers documentation directories in the vault.
func DiscoverDocsDirs(dir string) []string {
	commonDocDirs := []string{"docs", "doc"}
	commonDocFiles := []string{"README.md", "readme.md", "README.markdown"}

	var found []string

	for _, d := range commonDocDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}

	for _, f := range commonDocFiles {
		if fileExists(filepath.Join(dir, f)) {
			found = append(found, f)
			break
		}
	}

	return found
}

// isNextJS checks whether dir contains a Next.js package.json, used only to
// disambiguate framework source directories during vault scanning.
func isNextJS(dir string) bool {
	pkgPath := filepath.Join(dir, "package.json")
	if !fileExists(pkgPath) {
		return false
	}

	data, err := os.ReadFile(pkgPath)
	if err != nil {
		return false
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}

	_, hasNext := pkg.Dependencies["next"]
	_, hasNextDev := pkg.DevDependencies["next"]
	return hasNext || hasNextDev
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// String returns a string representation of ProjectType.
func (p ProjectType) String() string {
	return string(p)
}

// IsKnown returns true if the project type is known (not unknown).
func (p ProjectType) IsKnown() bool {
	return p != ProjectTypeUnknown
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Chunk.MaxChunkSize < 0 {
		return fmt.Errorf("chunk.max_chunk_size must be non-negative, got %d", c.Chunk.MaxChunkSize)
	}
	if c.Chunk.MinChunkSize < 0 {
		return fmt.Errorf("chunk.min_chunk_size must be non-negative, got %d", c.Chunk.MinChunkSize)
	}
	if c.Chunk.MaxChunkSize > 0 && c.Chunk.MinChunkSize > c.Chunk.MaxChunkSize {
		return fmt.Errorf("chunk.min_chunk_size (%d) must not exceed chunk.max_chunk_size (%d)", c.Chunk.MinChunkSize, c.Chunk.MaxChunkSize)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"llama": true, "static": true, "ollama": true, "mlx": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'llama', 'static', 'ollama', 'mlx', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	if c.Store.Compression != "" {
		validCompression := map[string]bool{"gzip": true, "none": true}
		if !validCompression[strings.ToLower(c.Store.Compression)] {
			return fmt.Errorf("store.compression must be 'gzip' or 'none', got %s", c.Store.Compression)
		}
	}

	if c.Similarity.MaxResults < 0 {
		return fmt.Errorf("similarity.max_results must be non-negative, got %d", c.Similarity.MaxResults)
	}
	if c.Maintenance.SamplePercent < 0 || c.Maintenance.SamplePercent > 1 {
		return fmt.Errorf("maintenance.sample_percent must be between 0 and 1, got %f", c.Maintenance.SamplePercent)
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns a list of field names that were added with their default values.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Chunk.MaxChunkSize == 0 {
		c.Chunk.MaxChunkSize = defaults.Chunk.MaxChunkSize
		added = append(added, "chunk.max_chunk_size")
	}
	if c.Chunk.MinChunkSize == 0 {
		c.Chunk.MinChunkSize = defaults.Chunk.MinChunkSize
		added = append(added, "chunk.min_chunk_size")
	}

	if c.Embeddings.TimeoutProgression == 0 {
		c.Embeddings.TimeoutProgression = defaults.Embeddings.TimeoutProgression
		added = append(added, "embeddings.timeout_progression")
	}
	if c.Embeddings.RetryTimeoutMultiplier == 0 {
		c.Embeddings.RetryTimeoutMultiplier = defaults.Embeddings.RetryTimeoutMultiplier
		added = append(added, "embeddings.retry_timeout_multiplier")
	}

	if c.Store.Directory == "" {
		c.Store.Directory = defaults.Store.Directory
		added = append(added, "store.directory")
	}
	if c.Store.Compression == "" {
		c.Store.Compression = defaults.Store.Compression
		added = append(added, "store.compression")
	}

	if c.Pipeline.WorkerCount == 0 {
		c.Pipeline.WorkerCount = defaults.Pipeline.WorkerCount
		added = append(added, "pipeline.worker_count")
	}
	if c.Pipeline.MaxQueueSize == 0 {
		c.Pipeline.MaxQueueSize = defaults.Pipeline.MaxQueueSize
		added = append(added, "pipeline.max_queue_size")
	}

	if c.Similarity.MaxResults == 0 {
		c.Similarity.MaxResults = defaults.Similarity.MaxResults
		added = append(added, "similarity.max_results")
	}
	if c.Similarity.MaxInFlight == 0 {
		c.Similarity.MaxInFlight = defaults.Similarity.MaxInFlight
		added = append(added, "similarity.max_in_flight")
	}

	if c.Maintenance.WorkerConcurrency == 0 {
		c.Maintenance.WorkerConcurrency = defaults.Maintenance.WorkerConcurrency
		added = append(added, "maintenance.worker_concurrency")
	}

	return added
}
