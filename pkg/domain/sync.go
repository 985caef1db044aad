package domain

import (
	"time"

	"github.com/tidesys/dagmirror/pkg/utils/cmp"
)

type SyncErrorType string

const (
	ParseError      SyncErrorType = "parse_error"
	ValidationError SyncErrorType = "validation_error"
	StorageError    SyncErrorType = "storage_error"
	UnknownError    SyncErrorType = "unknown"
)

// SyncError records one per-item failure during a reconciliation pass.
type SyncError struct {
	// path of the document the failure belongs to.
	// Empty when the failure is not tied to a single document
	// (e.g. listing the store itself failed).
	SpecPath string

	Type SyncErrorType

	Message string
}

// Outcome of one reconciliation pass.
//
// A pass always "succeeds" at the call level; partial failure is communicated
// through Failed and Errors, never through an error return.
type SyncResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Failed         int
	Errors         []SyncError
	SyncedAt       time.Time
}

func (r SyncResult) Equal(o SyncResult) bool {
	return r.TotalProcessed == o.TotalProcessed &&
		r.Created == o.Created &&
		r.Updated == o.Updated &&
		r.Failed == o.Failed &&
		cmp.SliceContentEq(r.Errors, o.Errors) &&
		r.SyncedAt.Equal(o.SyncedAt)
}

// Counts of Runs by sync condition, optionally scoped to one orchestrator
// cluster. For operator dashboards and alerting; carries no state authority.
type SyncStats struct {
	// Runs tracked by the orchestrator (OrchestratorRunId set, any status).
	Total int

	// tracked Runs synced at least once.
	Synced int

	// tracked Runs never synced yet.
	PendingSync int

	// tracked, non-terminal Runs whose last sync is older than the
	// staleness threshold (or which were never synced).
	Stale int
}
