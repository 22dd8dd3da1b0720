package vectorstore

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
)

// CompactionResult summarizes the effect of a compaction pass.
type CompactionResult struct {
	FilesRemoved    int
	FilesCompacted  int
	FilesUnchanged  int
	EntriesRemaining int
	BytesReclaimed  int64
}

// Compact rewrites every batch file to contain only its still-live entries:
// files with zero live entries are deleted, files with some dead entries are
// rewritten, and files that are fully live are left untouched. The primary
// index is rebuilt to point at the rewritten locations.
func (s *Store) Compact() (CompactionResult, error) {
	if err := s.acquireLock(); err != nil {
		return CompactionResult{}, err
	}
	defer s.releaseLock()

	s.cache.flush()

	dirEntries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return CompactionResult{}, errStorageWrite("failed to read storage directory", err)
	}

	s.mu.Lock()
	liveIDs := make(map[string]struct{}, len(s.index))
	for id := range s.index {
		liveIDs[id] = struct{}{}
	}
	s.mu.Unlock()

	var result CompactionResult
	newIndex := make(map[string]location)

	for _, de := range dirEntries {
		if de.IsDir() || !isBatchFileName(de.Name()) {
			continue
		}
		path := filepath.Join(s.cfg.Dir, de.Name())
		info, statErr := de.Info()
		var originalSize int64
		if statErr == nil {
			originalSize = info.Size()
		}

		batch, err := s.loadBatchFile(de.Name())
		if err != nil {
			// A corrupt file can't be safely rewritten; leave it for
			// ValidateIntegrity to surface and an operator to handle.
			continue
		}

		live := make([]EmbeddingEntry, 0, len(batch.Entries))
		for _, e := range batch.Entries {
			if _, ok := liveIDs[e.ID]; ok {
				live = append(live, e)
			}
		}

		switch {
		case len(live) == 0:
			if err := os.Remove(path); err == nil {
				result.FilesRemoved++
				result.BytesReclaimed += originalSize
			}
		case len(live) == len(batch.Entries):
			result.FilesUnchanged++
			for i, e := range live {
				newIndex[e.ID] = location{file: de.Name(), entryIndex: i}
			}
		default:
			if err := s.rewriteBatchFile(de.Name(), live); err != nil {
				return result, err
			}
			newInfo, statErr := os.Stat(path)
			if statErr == nil {
				result.BytesReclaimed += originalSize - newInfo.Size()
			}
			result.FilesCompacted++
			for i, e := range live {
				newIndex[e.ID] = location{file: de.Name(), entryIndex: i}
			}
		}
	}

	s.mu.Lock()
	s.index = newIndex
	result.EntriesRemaining = len(s.index)
	s.mu.Unlock()

	return result, nil
}

// rewriteBatchFile overwrites name in place (atomically) with only the
// given live entries, preserving the store's compression and checksum
// settings.
func (s *Store) rewriteBatchFile(name string, live []EmbeddingEntry) error {
	uncompressed, err := json.Marshal(live)
	if err != nil {
		return errSerialization("failed to marshal compacted entries", err)
	}
	compressed, checksum, err := compressAndChecksum(uncompressed, s.cfg.Compression, s.cfg.EnableChecksums)
	if err != nil {
		return err
	}
	header := StorageHeader{
		Version:          CurrentSchemaVersion,
		Compression:      s.cfg.Compression,
		EntryCount:       len(live),
		UncompressedSize: len(uncompressed),
		Checksum:         checksum,
	}
	payload, err := json.Marshal(onDiskBatch{
		Header:  header,
		Entries: base64.StdEncoding.EncodeToString(compressed),
	})
	if err != nil {
		return errSerialization("failed to marshal compacted batch", err)
	}
	return atomicWriteFile(filepath.Join(s.cfg.Dir, name), payload)
}
