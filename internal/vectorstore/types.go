// Package vectorstore implements a file-based, append-oriented embedding
// database: batched JSON files under a storage directory, compressed and
// checksummed, with an in-memory primary index, compaction, and integrity
// validation.
package vectorstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SchemaVersion is the current on-disk batch header schema version.
type SchemaVersion struct {
	Major, Minor, Patch int
}

// CurrentSchemaVersion is written to every new batch header.
var CurrentSchemaVersion = SchemaVersion{Major: 1, Minor: 0, Patch: 0}

// CompatibleWith reports whether a batch written with v can be loaded by a
// store at CurrentSchemaVersion: the major version must not exceed ours.
func (v SchemaVersion) CompatibleWith(current SchemaVersion) bool {
	return v.Major <= current.Major
}

// Compression selects the batch-file compression algorithm. Fixed per store
// lifetime; changing it requires a full rewrite of every batch.
type Compression string

const (
	CompressionNone Compression = "None"
	CompressionGzip Compression = "Gzip"
	CompressionLz4  Compression = "Lz4"
)

// Extension returns the file suffix associated with the algorithm.
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionLz4:
		return ".lz4"
	default:
		return ""
	}
}

// EmbeddingMetadata identifies the source of an embedding and enables
// unchanged-content detection for incremental re-indexing.
type EmbeddingMetadata struct {
	FilePath  string    `json:"file_path"`
	ChunkID   string    `json:"chunk_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TextHash  string    `json:"text_hash"`
	ModelName string    `json:"model_name"`
}

// EmbeddingEntry is a single stored embedding: a content-addressed id, its
// vector, and identifying metadata.
type EmbeddingEntry struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"vector"`
	Metadata EmbeddingMetadata `json:"metadata"`
}

// NewEntryID computes the content-addressed id for
// (filePath, chunkID, text, modelName): a stable SHA-256 hash such that
// equal inputs always yield equal ids.
func NewEntryID(filePath, chunkID, text, modelName string) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s", filePath, chunkID, TextHash(text), modelName)
	return hex.EncodeToString(h.Sum(nil))
}

// TextHash hashes chunk text for unchanged-content detection.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NewEntry builds an EmbeddingEntry with a freshly computed id and
// CreatedAt/UpdatedAt set to now.
func NewEntry(vector []float32, filePath, chunkID, text, modelName string) EmbeddingEntry {
	now := time.Now()
	hash := TextHash(text)
	return EmbeddingEntry{
		ID:     NewEntryID(filePath, chunkID, text, modelName),
		Vector: vector,
		Metadata: EmbeddingMetadata{
			FilePath:  filePath,
			ChunkID:   chunkID,
			CreatedAt: now,
			UpdatedAt: now,
			TextHash:  hash,
			ModelName: modelName,
		},
	}
}

// StorageHeader is the per-batch-file header.
type StorageHeader struct {
	Version           SchemaVersion `json:"version"`
	Compression       Compression   `json:"compression"`
	EntryCount        int           `json:"entry_count"`
	UncompressedSize  int           `json:"uncompressed_size"`
	Checksum          string        `json:"checksum,omitempty"`
}

// StorageBatch is the on-disk unit: a header plus its entries.
type StorageBatch struct {
	Header  StorageHeader    `json:"header"`
	Entries []EmbeddingEntry `json:"entries"`
}

// location is where a live id's entry lives on disk.
type location struct {
	file       string
	entryIndex int
	indexedAt  time.Time
}

// Config configures a Store.
type Config struct {
	// Dir is the storage directory.
	Dir string

	// Compression is the fixed algorithm used for every batch this store
	// writes in its lifetime.
	Compression Compression

	// EnableChecksums computes a SHA-256 over compressed bytes per batch.
	EnableChecksums bool

	// MaxEntriesPerFile caps how many entries a single write groups into
	// one batch file before starting a new one.
	MaxEntriesPerFile int

	// CacheSize is the bounded LRU batch-entry cache size.
	CacheSize int

	// AutoBackup copies every newly written batch into Dir/backups.
	AutoBackup bool
	// MaxBackups trims backups/ to this count by mtime once AutoBackup is on.
	MaxBackups int
}

// DefaultConfig returns sensible defaults for a new store.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:               dir,
		Compression:       CompressionGzip,
		EnableChecksums:   true,
		MaxEntriesPerFile: 1000,
		CacheSize:         100,
		AutoBackup:        false,
		MaxBackups:        5,
	}
}
