package maintenance

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// RunCycle performs the routine maintenance cycle: compaction (which also
// removes orphaned/superseded entries from batch files) followed by a
// stats snapshot. It is cheap enough to run on a schedule or after bulk
// indexing completes.
func RunCycle(store *vectorstore.Store) (CycleResult, error) {
	runID := uuid.New().String()

	compaction, err := store.Compact()
	if err != nil {
		return CycleResult{RunID: runID}, err
	}

	result := CycleResult{
		RunID:            runID,
		OrphansRemoved:   compaction.FilesRemoved,
		FilesCompacted:   compaction.FilesCompacted,
		FilesRemoved:     compaction.FilesRemoved,
		EntriesRemaining: compaction.EntriesRemaining,
		BytesReclaimed:   compaction.BytesReclaimed,
	}

	slog.Info("maintenance: cycle complete",
		"run_id", runID,
		"files_compacted", result.FilesCompacted,
		"files_removed", result.FilesRemoved,
		"entries_remaining", result.EntriesRemaining,
		"bytes_reclaimed", result.BytesReclaimed,
	)
	return result, nil
}
