package db

import (
	"context"
	"time"

	"github.com/tidesys/dagmirror/pkg/domain"
)

// parameters to create a Run.
type NewRun struct {
	WorkflowName          string
	Type                  domain.RunType
	TriggeredBy           string
	OrchestratorClusterId string
}

type Interface interface {
	// New creates a Run in pending status.
	//
	// The run id is assigned here, once, and never changes.
	//
	// Returns
	//
	// - string: the new run id.
	//
	// - error
	New(ctx context.Context, spec NewRun) (string, error)

	// Get retrieves Runs by id.
	//
	// Returns
	//
	// - map[string]domain.Run: mapping runId -> Run.
	// Missing ids are absent from the map, not an error.
	//
	// - error
	Get(ctx context.Context, runId []string) (map[string]domain.Run, error)

	// Find returns ids of Runs matching the query, ordered by creation.
	Find(ctx context.Context, query domain.RunFindQuery) ([]string, error)

	// Save persists run as the authoritative record.
	//
	// The store never rolls LastSyncedAt back: when the stored value is
	// later than run's, the stored value wins.
	//
	// Returns
	//
	// - error: dberrors.ErrMissing when no Run has run.Id.
	Save(ctx context.Context, run domain.Run) error

	// SyncStats counts orchestrator-tracked Runs by sync condition.
	//
	// Args
	//
	// - clusterId: scope to one orchestrator cluster. Empty = all clusters.
	//
	// - staleThreshold: age of LastSyncedAt beyond which a non-terminal
	// Run counts as stale.
	SyncStats(ctx context.Context, clusterId string, staleThreshold time.Duration) (domain.SyncStats, error)
}
