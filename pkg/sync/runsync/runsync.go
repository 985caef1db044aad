// Package runsync mirrors live orchestrator state into local Run records.
//
// One pass finds every non-terminal Run tracked by an orchestrator, fetches
// its live state, and merges. The orchestrator owns execution truth; locally
// observed timestamps, once set, stay authoritative. A fetch failure for one
// Run never blocks the rest: the Run is left untouched, turns stale, and the
// next cycle retries it.
package runsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator"
	rundb "github.com/tidesys/dagmirror/pkg/domain/run/db"
	"github.com/tidesys/dagmirror/pkg/utils/clock"
	"golang.org/x/sync/errgroup"
)

type Reconciler struct {
	db             rundb.Interface
	registry       orchestrator.Registry
	clock          clock.Clock
	concurrency    int
	staleThreshold time.Duration
}

type Option func(*Reconciler)

func WithClock(c clock.Clock) Option {
	return func(r *Reconciler) {
		r.clock = c
	}
}

// WithConcurrency bounds parallel orchestrator fetches in one pass.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if 0 < n {
			r.concurrency = n
		}
	}
}

func WithStaleThreshold(d time.Duration) Option {
	return func(r *Reconciler) {
		if 0 < d {
			r.staleThreshold = d
		}
	}
}

func New(db rundb.Interface, registry orchestrator.Registry, options ...Option) *Reconciler {
	r := &Reconciler{
		db:             db,
		registry:       registry,
		clock:          clock.System(),
		concurrency:    8,
		staleThreshold: 60 * time.Minute,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// ReconcileActive performs one sync pass over tracked, non-terminal Runs.
//
// Never returns an error: per-Run failures are folded into the result.
// Runs are fetched in parallel, bounded by the configured concurrency.
// In the result, Updated counts Runs merged and saved; Created stays zero.
func (r *Reconciler) ReconcileActive(ctx context.Context) domain.SyncResult {
	result := domain.SyncResult{
		Errors:   []domain.SyncError{},
		SyncedAt: r.clock.Now(),
	}

	ids, err := r.db.Find(ctx, domain.RunFindQuery{
		Status:      domain.ActiveStatuses(),
		TrackedOnly: true,
	})
	if err != nil {
		result.Failed = 1
		result.Errors = append(result.Errors, domain.SyncError{
			Type:    domain.StorageError,
			Message: fmt.Sprintf("finding runs to sync: %s", err),
		})
		return result
	}

	runs, err := r.db.Get(ctx, ids)
	if err != nil {
		result.Failed = 1
		result.Errors = append(result.Errors, domain.SyncError{
			Type:    domain.StorageError,
			Message: fmt.Sprintf("retrieving runs to sync: %s", err),
		})
		return result
	}

	var mu sync.Mutex
	g := errgroup.Group{}
	g.SetLimit(r.concurrency)

	for _, id := range ids {
		run, ok := runs[id]
		if !ok {
			continue // removed between Find and Get
		}
		if ctx.Err() != nil {
			break
		}

		result.TotalProcessed += 1

		g.Go(func() error {
			serr := r.syncOne(ctx, run)

			mu.Lock()
			defer mu.Unlock()
			if serr != nil {
				result.Failed += 1
				result.Errors = append(result.Errors, *serr)
			} else {
				result.Updated += 1
			}
			return nil
		})
	}
	g.Wait()

	return result
}

func (r *Reconciler) syncOne(ctx context.Context, run domain.Run) *domain.SyncError {
	clusterId := run.OrchestratorClusterId
	if clusterId == "" {
		clusterId = r.registry.DefaultClusterId()
	}
	client, ok := r.registry.Cluster(clusterId)
	if !ok {
		return &domain.SyncError{
			Type:    domain.UnknownError,
			Message: fmt.Sprintf("run %s: no orchestrator cluster configured: %s", run.Id, clusterId),
		}
	}

	state, err := client.GetRunState(
		ctx, domain.DeriveOrchestratorId(run.WorkflowName), run.OrchestratorRunId,
	)
	if err != nil {
		typ := domain.UnknownError
		if errors.Is(err, orchestrator.ErrConnection) {
			typ = domain.StorageError
		}
		return &domain.SyncError{
			Type:    typ,
			Message: fmt.Sprintf("run %s: %s", run.Id, err),
		}
	}

	merged := merge(run, state, r.clock.Now())
	if err := r.db.Save(ctx, merged); err != nil {
		return &domain.SyncError{
			Type:    domain.StorageError,
			Message: fmt.Sprintf("run %s: %s", run.Id, err),
		}
	}

	return nil
}

// merge folds a foreign state report into the local record.
//
// Foreign status wins, except that a stop in flight (stopping) is not
// demoted by a non-terminal foreign report. Local StartedAt/EndedAt, once
// set, are authoritative. Progress and URL carry no local authority and are
// overwritten as-is.
func merge(run domain.Run, state orchestrator.RunState, now time.Time) domain.Run {
	run.RawForeignStatus = state.State

	mapped := orchestrator.MapForeignStatus(state.State)
	if run.Status != domain.Stopping || mapped.IsTerminal() {
		run.Status = mapped
	}

	if run.StartedAt == nil && state.StartedAt != nil {
		run.StartedAt = state.StartedAt
	}
	if run.EndedAt == nil && state.EndedAt != nil {
		run.EndedAt = state.EndedAt
	}

	run.LastSyncedAt = &now
	run.TaskProgress = state.Progress
	run.URL = state.URL

	return run
}

// Stats counts tracked Runs by sync condition under this Reconciler's
// staleness threshold. clusterId empty means all clusters.
func (r *Reconciler) Stats(ctx context.Context, clusterId string) (domain.SyncStats, error) {
	return r.db.SyncStats(ctx, clusterId, r.staleThreshold)
}
