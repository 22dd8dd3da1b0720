package vectorstore

import (
	"os"
	"path/filepath"
)

// IntegrityIssueKind classifies a single integrity finding.
type IntegrityIssueKind string

const (
	IssueCorruptFile     IntegrityIssueKind = "CorruptFile"
	IssueSchemaMismatch  IntegrityIssueKind = "SchemaMismatch"
	IssueChecksumFailed  IntegrityIssueKind = "ChecksumFailed"
	IssueCountMismatch   IntegrityIssueKind = "CountMismatch"
	IssueOrphanIndexEntry IntegrityIssueKind = "OrphanIndexEntry"
	IssueDuplicateID     IntegrityIssueKind = "DuplicateID"
)

// IntegrityIssue names one file or id found to be inconsistent.
type IntegrityIssue struct {
	Kind    IntegrityIssueKind
	File    string
	EntryID string
	Detail  string
}

// IntegrityReport summarizes a full validation pass.
type IntegrityReport struct {
	FilesScanned  int
	EntriesLive   int
	Issues        []IntegrityIssue
}

// Healthy reports whether the validation pass found nothing wrong.
func (r IntegrityReport) Healthy() bool {
	return len(r.Issues) == 0
}

// ValidateIntegrity scans every batch file independently of the in-memory
// index: it re-parses and re-verifies each file's checksum, cross-checks the
// declared entry count against the decoded entries, and then compares the
// on-disk id set against the primary index to find orphans (ids the index
// references that no readable file actually holds) and duplicates (an id
// appearing in more than one file). Index ids that point at a file already
// reported as corrupt, mismatched or failing its checksum are not also
// reported as orphans.
func (s *Store) ValidateIntegrity() (IntegrityReport, error) {
	dirEntries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return IntegrityReport{}, errStorageWrite("failed to read storage directory", err)
	}

	var report IntegrityReport
	seenIDs := make(map[string]string) // id -> first file it was seen in
	badFiles := make(map[string]struct{})

	for _, de := range dirEntries {
		if de.IsDir() || !isBatchFileName(de.Name()) {
			continue
		}
		report.FilesScanned++

		path := filepath.Join(s.cfg.Dir, de.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			report.Issues = append(report.Issues, IntegrityIssue{
				Kind: IssueCorruptFile, File: de.Name(), Detail: err.Error(),
			})
			badFiles[de.Name()] = struct{}{}
			continue
		}

		batch, kind, detail := validateBatchBytes(raw)
		if kind != "" {
			report.Issues = append(report.Issues, IntegrityIssue{Kind: kind, File: de.Name(), Detail: detail})
			badFiles[de.Name()] = struct{}{}
			continue
		}

		for _, e := range batch.Entries {
			if firstFile, ok := seenIDs[e.ID]; ok {
				report.Issues = append(report.Issues, IntegrityIssue{
					Kind: IssueDuplicateID, File: de.Name(), EntryID: e.ID,
					Detail: "also present in " + firstFile,
				})
				continue
			}
			seenIDs[e.ID] = de.Name()
			report.EntriesLive++
		}
	}

	s.mu.RLock()
	for id, loc := range s.index {
		// Ids in a file already reported above are not reported again.
		if _, bad := badFiles[loc.file]; bad {
			continue
		}
		if _, ok := seenIDs[id]; !ok {
			report.Issues = append(report.Issues, IntegrityIssue{
				Kind: IssueOrphanIndexEntry, File: loc.file, EntryID: id,
				Detail: "indexed but not found in any batch file",
			})
		}
	}
	s.mu.RUnlock()

	return report, nil
}

// validateBatchBytes re-derives a batch from raw file bytes the same way
// loadBatchFile does, but returns a classified issue instead of a generic
// error so ValidateIntegrity can report precisely what went wrong.
func validateBatchBytes(raw []byte) (*StorageBatch, IntegrityIssueKind, string) {
	var onDisk onDiskBatch
	if err := unmarshalOnDiskBatch(raw, &onDisk); err != nil {
		return nil, IssueCorruptFile, err.Error()
	}
	if !onDisk.Header.Version.CompatibleWith(CurrentSchemaVersion) {
		return nil, IssueSchemaMismatch, "file version exceeds current major version"
	}

	compressed, err := decodeBase64(onDisk.Entries)
	if err != nil {
		return nil, IssueCorruptFile, err.Error()
	}

	entriesJSON, err := decompressAndVerify(compressed, onDisk.Header.Compression, onDisk.Header.Checksum)
	if err != nil {
		return nil, IssueChecksumFailed, err.Error()
	}

	entries, err := unmarshalEntries(entriesJSON)
	if err != nil {
		return nil, IssueCorruptFile, err.Error()
	}
	if len(entries) != onDisk.Header.EntryCount {
		return nil, IssueCountMismatch, "header declares a different entry count than was decoded"
	}

	return &StorageBatch{Header: onDisk.Header, Entries: entries}, "", ""
}
