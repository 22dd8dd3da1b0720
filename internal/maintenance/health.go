package maintenance

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/aman-cerp/vaultindex/internal/similarity"
	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// HealthChecker samples a vectorstore.Store for integrity, corruption, and
// query-latency problems.
type HealthChecker struct {
	store *vectorstore.Store
	cfg   HealthConfig
}

// NewHealthChecker builds a HealthChecker over an already-open store.
func NewHealthChecker(store *vectorstore.Store, cfg HealthConfig) *HealthChecker {
	if cfg.SamplePercent <= 0 {
		cfg = DefaultHealthConfig()
	}
	return &HealthChecker{store: store, cfg: cfg}
}

// Check runs a full health pass: a complete integrity validation (cheap,
// metadata-only, per vectorstore.ValidateIntegrity) plus a sampled
// similarity-query latency probe over up to cfg.SamplePercent of live
// entries. A quick check (small store, default sample) completes well
// within the query budget.
func (h *HealthChecker) Check(ctx context.Context) (Report, error) {
	runID := uuid.New().String()
	start := time.Now()

	report := Report{RunID: runID}

	integrity, err := h.store.ValidateIntegrity()
	if err != nil {
		report.Status = Critical
		report.CheckDuration = time.Since(start)
		return report, err
	}
	report.FilesScanned = integrity.FilesScanned
	report.EntriesLive = integrity.EntriesLive

	status := Healthy
	for _, issue := range integrity.Issues {
		sev, kind := severityFor(issue.Kind)
		status = worse(status, sev)
		report.Issues = append(report.Issues, Issue{
			Kind:        kind,
			Severity:    sev,
			Detail:      issue.Detail,
			Remediation: remediationFor(kind),
		})
	}

	perfStatus, err := h.probePerformance(ctx, &report)
	if err != nil {
		report.Issues = append(report.Issues, Issue{
			Kind:        IssueSlowQuery,
			Severity:    Warning,
			Detail:      "performance probe failed: " + err.Error(),
			Remediation: "re-run the health check; a persistent failure may indicate store corruption",
		})
		status = worse(status, Warning)
	} else {
		status = worse(status, perfStatus)
	}

	report.Status = status
	report.CheckDuration = time.Since(start)
	return report, nil
}

func severityFor(kind vectorstore.IntegrityIssueKind) (HealthStatus, IssueKind) {
	switch kind {
	case vectorstore.IssueCorruptFile:
		return Critical, IssueCorruptFile
	case vectorstore.IssueChecksumFailed:
		return Critical, IssueChecksumFailed
	case vectorstore.IssueSchemaMismatch:
		return Degraded, IssueSchemaMismatch
	case vectorstore.IssueOrphanIndexEntry:
		return Warning, IssueOrphanEntry
	case vectorstore.IssueDuplicateID:
		return Degraded, IssueDuplicateID
	case vectorstore.IssueCountMismatch:
		return Degraded, IssueChecksumFailed
	default:
		return Warning, IssueCorruptFile
	}
}

func remediationFor(kind IssueKind) string {
	switch kind {
	case IssueCorruptFile, IssueChecksumFailed:
		return "run a full rebuild to discard and re-derive the affected batch file"
	case IssueSchemaMismatch:
		return "upgrade the store to a compatible schema version before continuing"
	case IssueOrphanEntry:
		return "run compaction to reclaim the stale index entry"
	case IssueDuplicateID:
		return "run compaction; duplicate ids across batch files indicate a prior interrupted write"
	case IssueSlowQuery:
		return "check store size and consider enabling the parallel k-NN path"
	default:
		return "inspect the store manually"
	}
}

// probePerformance times a handful of k-NN queries against a random sample
// of the store's own live vectors, standing in for representative query
// vectors without requiring a caller-supplied embedder.
func (h *HealthChecker) probePerformance(ctx context.Context, report *Report) (HealthStatus, error) {
	entries, err := h.store.AllEntries()
	if err != nil {
		return Healthy, err
	}
	if len(entries) == 0 {
		return Healthy, nil
	}

	sampleSize := int(float64(len(entries)) * h.cfg.SamplePercent)
	if sampleSize < 1 {
		sampleSize = 1
	}
	if sampleSize > len(entries) {
		sampleSize = len(entries)
	}

	budget := h.cfg.QueryBudget
	if budget <= 0 {
		budget = time.Second
	}
	deadline := time.Now().Add(budget)

	cfg := similarity.DefaultConfig()
	var total time.Duration
	queried := 0

	for i := 0; i < sampleSize; i++ {
		if time.Now().After(deadline) || ctx.Err() != nil {
			break
		}
		query := entries[rand.Intn(len(entries))].Vector
		qStart := time.Now()
		if _, err := similarity.KNN(query, entries, 10, cfg); err != nil {
			return Healthy, err
		}
		total += time.Since(qStart)
		queried++
	}

	report.SampledForPerf = queried
	if queried == 0 {
		return Healthy, nil
	}
	report.AvgQueryTime = total / time.Duration(queried)

	if report.AvgQueryTime > 250*time.Millisecond {
		return Degraded, nil
	}
	if report.AvgQueryTime > 50*time.Millisecond {
		return Warning, nil
	}
	return Healthy, nil
}
