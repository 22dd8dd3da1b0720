package vectorstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Store owns a storage directory: its batch files and the in-memory primary
// index built from them. It is the exclusive writer of that directory; the
// pipeline and the similarity engine reach entries only through it.
type Store struct {
	cfg   Config
	lock  *flock.Flock
	cache *entryCache

	mu    sync.RWMutex
	index map[string]location

	counterMu sync.Mutex
	counter   int
}

// Open creates or opens a store at cfg.Dir, rebuilding the primary index by
// scanning existing batch files.
func Open(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errInvalidInput("storage directory must not be empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errStorageWrite("failed to create storage directory", err)
	}
	if cfg.AutoBackup {
		if err := os.MkdirAll(filepath.Join(cfg.Dir, "backups"), 0o755); err != nil {
			return nil, errStorageWrite("failed to create backups directory", err)
		}
	}

	lockPath := filepath.Join(cfg.Dir, ".lock")
	fl := flock.New(lockPath)

	s := &Store{
		cfg:   cfg,
		lock:  fl,
		cache: newEntryCache(cfg.CacheSize),
		index: make(map[string]location),
	}

	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuildIndex scans every batch file in the directory and repopulates the
// in-memory primary index. Corrupt files are skipped; callers that need to
// know about them should run ValidateIntegrity separately.
func (s *Store) rebuildIndex() error {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return errStorageWrite("failed to read storage directory", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, de := range entries {
		if de.IsDir() || !isBatchFileName(de.Name()) {
			continue
		}
		batch, err := s.loadBatchFile(de.Name())
		if err != nil {
			continue
		}
		info, err := os.Stat(filepath.Join(s.cfg.Dir, de.Name()))
		indexedAt := time.Now()
		if err == nil {
			indexedAt = info.ModTime()
		}
		for i, e := range batch.Entries {
			s.index[e.ID] = location{file: de.Name(), entryIndex: i, indexedAt: indexedAt}
		}
	}
	return nil
}

func isBatchFileName(name string) bool {
	return len(name) > len("vector_") && name[:len("vector_")] == "vector_"
}

// StoreEntries validates and writes entries into one fresh batch file (or
// several, if the count exceeds MaxEntriesPerFile), then updates the primary
// index. Entries are written atomically: temp file, fsync, rename, only
// then is the index mutated.
func (s *Store) StoreEntries(entries []EmbeddingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return err
		}
	}

	if err := s.acquireLock(); err != nil {
		return err
	}
	defer s.releaseLock()

	perFile := s.cfg.MaxEntriesPerFile
	if perFile <= 0 {
		perFile = len(entries)
	}
	for start := 0; start < len(entries); start += perFile {
		end := start + perFile
		if end > len(entries) {
			end = len(entries)
		}
		if err := s.writeBatch(entries[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func validateEntry(e EmbeddingEntry) error {
	if e.ID == "" {
		return errInvalidInput("entry id must not be empty")
	}
	if len(e.Vector) == 0 {
		return errInvalidInput("entry vector must not be empty: " + e.ID)
	}
	var sumSquares float64
	for _, v := range e.Vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errInvalidInput("entry vector contains non-finite value: " + e.ID)
		}
		sumSquares += f * f
	}
	if sumSquares == 0 {
		return errInvalidInput("entry vector has zero magnitude: " + e.ID)
	}
	return nil
}

// onDiskBatch is the container actually written to a batch file. The
// entries payload is base64-encoded standard JSON so that compressed
// (binary) bytes survive inside a JSON document unmodified.
type onDiskBatch struct {
	Header  StorageHeader `json:"header"`
	Entries string        `json:"entries"`
}

func (s *Store) writeBatch(entries []EmbeddingEntry) error {
	name := s.generateFileName()
	uncompressed, err := json.Marshal(entries)
	if err != nil {
		return errSerialization("failed to marshal entries", err)
	}

	compressed, checksum, err := compressAndChecksum(uncompressed, s.cfg.Compression, s.cfg.EnableChecksums)
	if err != nil {
		return err
	}

	header := StorageHeader{
		Version:          CurrentSchemaVersion,
		Compression:      s.cfg.Compression,
		EntryCount:       len(entries),
		UncompressedSize: len(uncompressed),
		Checksum:         checksum,
	}
	payload, err := json.Marshal(onDiskBatch{
		Header:  header,
		Entries: base64.StdEncoding.EncodeToString(compressed),
	})
	if err != nil {
		return errSerialization("failed to marshal batch", err)
	}

	path := filepath.Join(s.cfg.Dir, name)
	if err := atomicWriteFile(path, payload); err != nil {
		return errStorageWrite("failed to write batch "+name, err)
	}

	s.mu.Lock()
	now := time.Now()
	for i, e := range entries {
		s.index[e.ID] = location{file: name, entryIndex: i, indexedAt: now}
	}
	s.mu.Unlock()

	if s.cfg.AutoBackup {
		s.writeBackup(path, name)
	}
	return nil
}

func (s *Store) generateFileName() string {
	s.counterMu.Lock()
	s.counter++
	counter := s.counter % 10000
	s.counterMu.Unlock()

	ts := time.Now().UnixMilli()
	return fmt.Sprintf("vector_%d_%d.json%s", ts, counter, s.cfg.Compression.Extension())
}

// atomicWriteFile writes data to a temp file in the same directory as path,
// fsyncs it, then renames over path — the crash-safety invariant that makes
// a batch file's appearance and its full contents simultaneous.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (s *Store) writeBackup(srcPath, name string) {
	backupDir := filepath.Join(s.cfg.Dir, "backups")
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return
	}
	dst := filepath.Join(backupDir, fmt.Sprintf("%d_%s.backup", time.Now().Unix(), name))
	_ = atomicWriteFile(dst, data)
	s.trimBackups(backupDir)
}

func (s *Store) trimBackups(dir string) {
	if s.cfg.MaxBackups <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	type fileInfo struct {
		name    string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	for len(files) > s.cfg.MaxBackups {
		_ = os.Remove(filepath.Join(dir, files[0].name))
		files = files[1:]
	}
}

// Retrieve looks up id in the primary index, loads its batch, and returns
// the entry after asserting the stored id at that offset matches.
func (s *Store) Retrieve(id string) (EmbeddingEntry, bool, error) {
	if cached, ok := s.cache.get(id); ok {
		return cached, true, nil
	}

	s.mu.RLock()
	loc, ok := s.index[id]
	s.mu.RUnlock()
	if !ok {
		return EmbeddingEntry{}, false, nil
	}

	batch, err := s.loadBatchFile(loc.file)
	if err != nil {
		return EmbeddingEntry{}, false, err
	}
	if loc.entryIndex < 0 || loc.entryIndex >= len(batch.Entries) {
		return EmbeddingEntry{}, false, errIDMismatch(loc.file, id, "<out-of-range>")
	}
	entry := batch.Entries[loc.entryIndex]
	if entry.ID != id {
		return EmbeddingEntry{}, false, errIDMismatch(loc.file, id, entry.ID)
	}

	s.cache.put(entry)
	return entry, true, nil
}

// RetrieveMany groups ids by batch file and loads each file once, caching
// decoded batches across the call.
func (s *Store) RetrieveMany(ids []string) ([]EmbeddingEntry, error) {
	s.mu.RLock()
	byFile := make(map[string][]struct {
		id  string
		loc location
	})
	for _, id := range ids {
		if loc, ok := s.index[id]; ok {
			byFile[loc.file] = append(byFile[loc.file], struct {
				id  string
				loc location
			}{id, loc})
		}
	}
	s.mu.RUnlock()

	batchCache := make(map[string]*StorageBatch)
	var out []EmbeddingEntry
	for file, wants := range byFile {
		batch, ok := batchCache[file]
		if !ok {
			loaded, err := s.loadBatchFile(file)
			if err != nil {
				return nil, err
			}
			batch = loaded
			batchCache[file] = batch
		}
		for _, w := range wants {
			if w.loc.entryIndex < 0 || w.loc.entryIndex >= len(batch.Entries) {
				continue
			}
			entry := batch.Entries[w.loc.entryIndex]
			if entry.ID != w.id {
				continue
			}
			out = append(out, entry)
		}
	}
	return out, nil
}

// Delete removes id from the primary index (a logical delete) and evicts it
// from the cache. The backing bytes remain until Compact.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.index, id)
	s.mu.Unlock()
	s.cache.invalidate(id)
}

// ListIDs returns every live id in the primary index.
func (s *Store) ListIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Contains reports whether id is live.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// AllEntries loads and returns every live entry, for the similarity engine's
// sequential/parallel scan, ordered by batch file name and then by position
// within the file, so the order is stable for a given store state.
func (s *Store) AllEntries() ([]EmbeddingEntry, error) {
	entries, err := s.RetrieveMany(s.ListIDs())
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sort.SliceStable(entries, func(i, j int) bool {
		li, lj := s.index[entries[i].ID], s.index[entries[j].ID]
		if li.file != lj.file {
			return li.file < lj.file
		}
		return li.entryIndex < lj.entryIndex
	})
	return entries, nil
}

// StorageDir returns the directory this store was opened against, for
// tooling (maintenance, doctor commands) that needs to inspect batch files
// directly.
func (s *Store) StorageDir() string {
	return s.cfg.Dir
}

func (s *Store) loadBatchFile(name string) (*StorageBatch, error) {
	path := filepath.Join(s.cfg.Dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errFileNotFound(path, err)
	}

	var onDisk onDiskBatch
	if err := unmarshalOnDiskBatch(raw, &onDisk); err != nil {
		return nil, errSerialization("failed to unmarshal batch header: "+name, err)
	}
	if !onDisk.Header.Version.CompatibleWith(CurrentSchemaVersion) {
		return nil, errSchemaVersion(name)
	}

	compressed, err := decodeBase64(onDisk.Entries)
	if err != nil {
		return nil, errSerialization("failed to decode batch entries: "+name, err)
	}

	entriesJSON, err := decompressAndVerify(compressed, onDisk.Header.Compression, onDisk.Header.Checksum)
	if err != nil {
		return nil, err
	}

	entries, err := unmarshalEntries(entriesJSON)
	if err != nil {
		return nil, errSerialization("failed to unmarshal batch entries: "+name, err)
	}
	if len(entries) != onDisk.Header.EntryCount {
		return nil, errSerialization(fmt.Sprintf("entry count mismatch in %s: header=%d actual=%d",
			name, onDisk.Header.EntryCount, len(entries)), nil)
	}

	return &StorageBatch{Header: onDisk.Header, Entries: entries}, nil
}

// unmarshalOnDiskBatch, decodeBase64, and unmarshalEntries isolate the three
// decode steps so ValidateIntegrity can classify which one failed instead of
// just propagating a generic error.
func unmarshalOnDiskBatch(raw []byte, out *onDiskBatch) error {
	return json.Unmarshal(raw, out)
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func unmarshalEntries(data []byte) ([]EmbeddingEntry, error) {
	var entries []EmbeddingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) acquireLock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return errFileLocked("failed to acquire storage lock", err)
	}
	if !ok {
		return errFileLocked("storage directory is locked by another process", nil)
	}
	return nil
}

func (s *Store) releaseLock() {
	_ = s.lock.Unlock()
}

// Close releases the store's resources (the advisory lock handle).
func (s *Store) Close() error {
	return s.lock.Unlock()
}
