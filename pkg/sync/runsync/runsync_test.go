package runsync_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator"
	orchmock "github.com/tidesys/dagmirror/pkg/domain/orchestrator/mock"
	runmock "github.com/tidesys/dagmirror/pkg/domain/run/db/mock"
	"github.com/tidesys/dagmirror/pkg/sync/runsync"
	"github.com/tidesys/dagmirror/pkg/utils/clock"
	"github.com/tidesys/dagmirror/pkg/utils/cmp"
)

func TestReconcileActive(t *testing.T) {
	now := time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)
	started := now.Add(-30 * time.Minute)

	trackedRun := func(id string, status domain.RunStatus) domain.Run {
		return domain.Run{
			Id:                    id,
			WorkflowName:          "team.raw.events",
			Status:                status,
			Type:                  domain.ScheduledRun,
			OrchestratorRunId:     "dagmirror__" + id,
			OrchestratorClusterId: "primary",
		}
	}

	registryOf := func(client orchestrator.Client) orchestrator.Registry {
		return orchestrator.NewRegistry(
			"primary", map[string]orchestrator.Client{"primary": client},
		)
	}

	t.Run("it merges live state into each tracked run", func(t *testing.T) {
		db := runmock.NewRunInterface()
		db.Impl.Find = func(_ context.Context, q domain.RunFindQuery) ([]string, error) {
			if !q.TrackedOnly {
				t.Error("query should be restricted to tracked runs")
			}
			if !cmp.SliceContentEq(q.Status, domain.ActiveStatuses()) {
				t.Errorf("query status mismatch: %v", q.Status)
			}
			return []string{"run-1"}, nil
		}
		db.Impl.Get = func(_ context.Context, runId []string) (map[string]domain.Run, error) {
			return map[string]domain.Run{"run-1": trackedRun("run-1", domain.Running)}, nil
		}
		var mu sync.Mutex
		saved := map[string]domain.Run{}
		db.Impl.Save = func(_ context.Context, run domain.Run) error {
			mu.Lock()
			defer mu.Unlock()
			saved[run.Id] = run
			return nil
		}

		orch := orchmock.New()
		ended := now.Add(-1 * time.Minute)
		orch.Impl.GetRunState = func(_ context.Context, orchestratorId string, foreignRunId string) (orchestrator.RunState, error) {
			if orchestratorId != "dm_team_raw_events" {
				t.Errorf("orchestrator id mismatch: %s", orchestratorId)
			}
			if foreignRunId != "dagmirror__run-1" {
				t.Errorf("foreign run id mismatch: %s", foreignRunId)
			}
			return orchestrator.RunState{
				State:     "SUCCESS",
				StartedAt: &started,
				EndedAt:   &ended,
				Progress:  json.RawMessage(`{"done":12,"total":12}`),
				URL:       "http://airflow.testing.example/dags/dm_team_raw_events",
			}, nil
		}

		testee := runsync.New(db, registryOf(orch), runsync.WithClock(clock.Fixed{T: now}))
		result := testee.ReconcileActive(context.Background())

		if result.TotalProcessed != 1 || result.Updated != 1 || result.Failed != 0 {
			t.Errorf("result: %+v", result)
		}

		got, ok := saved["run-1"]
		if !ok {
			t.Fatal("run-1 was not saved")
		}
		if got.Status != domain.Success {
			t.Errorf("status: got %s, want %s", got.Status, domain.Success)
		}
		if got.RawForeignStatus != "SUCCESS" {
			t.Errorf("raw foreign status: got %s", got.RawForeignStatus)
		}
		if got.StartedAt == nil || !got.StartedAt.Equal(started) {
			t.Errorf("startedAt: got %v", got.StartedAt)
		}
		if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
			t.Errorf("endedAt: got %v", got.EndedAt)
		}
		if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(now) {
			t.Errorf("lastSyncedAt: got %v", got.LastSyncedAt)
		}
		if string(got.TaskProgress) != `{"done":12,"total":12}` {
			t.Errorf("taskProgress: got %s", got.TaskProgress)
		}
		if got.URL == "" {
			t.Error("url should be overwritten")
		}
	})

	t.Run("locally observed timestamps are not overwritten", func(t *testing.T) {
		localStart := now.Add(-45 * time.Minute)

		run := trackedRun("run-1", domain.Running)
		run.StartedAt = &localStart

		db := runmock.NewRunInterface()
		db.Impl.Find = func(context.Context, domain.RunFindQuery) ([]string, error) {
			return []string{"run-1"}, nil
		}
		db.Impl.Get = func(context.Context, []string) (map[string]domain.Run, error) {
			return map[string]domain.Run{"run-1": run}, nil
		}
		var saved domain.Run
		db.Impl.Save = func(_ context.Context, r domain.Run) error {
			saved = r
			return nil
		}

		orch := orchmock.New()
		foreignStart := now.Add(-44 * time.Minute)
		orch.Impl.GetRunState = func(context.Context, string, string) (orchestrator.RunState, error) {
			return orchestrator.RunState{State: "RUNNING", StartedAt: &foreignStart}, nil
		}

		testee := runsync.New(db, registryOf(orch), runsync.WithClock(clock.Fixed{T: now}))
		testee.ReconcileActive(context.Background())

		if saved.StartedAt == nil || !saved.StartedAt.Equal(localStart) {
			t.Errorf("startedAt should stay local: got %v, want %v", saved.StartedAt, localStart)
		}
		if saved.LastSyncedAt == nil || !saved.LastSyncedAt.Equal(now) {
			t.Errorf("lastSyncedAt should advance: got %v", saved.LastSyncedAt)
		}
	})

	t.Run("an unrecognized foreign token degrades to unknown", func(t *testing.T) {
		db := runmock.NewRunInterface()
		db.Impl.Find = func(context.Context, domain.RunFindQuery) ([]string, error) {
			return []string{"run-1"}, nil
		}
		db.Impl.Get = func(context.Context, []string) (map[string]domain.Run, error) {
			return map[string]domain.Run{"run-1": trackedRun("run-1", domain.Running)}, nil
		}
		var saved domain.Run
		db.Impl.Save = func(_ context.Context, r domain.Run) error {
			saved = r
			return nil
		}

		orch := orchmock.New()
		orch.Impl.GetRunState = func(context.Context, string, string) (orchestrator.RunState, error) {
			return orchestrator.RunState{State: "DEFERRED"}, nil
		}

		testee := runsync.New(db, registryOf(orch), runsync.WithClock(clock.Fixed{T: now}))
		result := testee.ReconcileActive(context.Background())

		if result.Failed != 0 {
			t.Errorf("an unknown token is not a failure: %+v", result)
		}
		if saved.Status != domain.Unknown {
			t.Errorf("status: got %s, want %s", saved.Status, domain.Unknown)
		}
		if saved.RawForeignStatus != "DEFERRED" {
			t.Errorf("raw foreign status: got %s", saved.RawForeignStatus)
		}
	})

	t.Run("a stop in flight is not demoted by a non-terminal report", func(t *testing.T) {
		db := runmock.NewRunInterface()
		db.Impl.Find = func(context.Context, domain.RunFindQuery) ([]string, error) {
			return []string{"run-1"}, nil
		}
		db.Impl.Get = func(context.Context, []string) (map[string]domain.Run, error) {
			return map[string]domain.Run{"run-1": trackedRun("run-1", domain.Stopping)}, nil
		}
		var saved domain.Run
		db.Impl.Save = func(_ context.Context, r domain.Run) error {
			saved = r
			return nil
		}

		orch := orchmock.New()
		orch.Impl.GetRunState = func(context.Context, string, string) (orchestrator.RunState, error) {
			return orchestrator.RunState{State: "RUNNING"}, nil
		}

		testee := runsync.New(db, registryOf(orch), runsync.WithClock(clock.Fixed{T: now}))
		testee.ReconcileActive(context.Background())

		if saved.Status != domain.Stopping {
			t.Errorf("status: got %s, want %s", saved.Status, domain.Stopping)
		}
	})

	t.Run("one failing fetch leaves that run untouched and the rest proceeds", func(t *testing.T) {
		db := runmock.NewRunInterface()
		db.Impl.Find = func(context.Context, domain.RunFindQuery) ([]string, error) {
			return []string{"run-1", "run-2", "run-3"}, nil
		}
		db.Impl.Get = func(context.Context, []string) (map[string]domain.Run, error) {
			return map[string]domain.Run{
				"run-1": trackedRun("run-1", domain.Running),
				"run-2": trackedRun("run-2", domain.Running),
				"run-3": trackedRun("run-3", domain.Pending),
			}, nil
		}
		var mu sync.Mutex
		saved := map[string]domain.Run{}
		db.Impl.Save = func(_ context.Context, r domain.Run) error {
			mu.Lock()
			defer mu.Unlock()
			saved[r.Id] = r
			return nil
		}

		orch := orchmock.New()
		orch.Impl.GetRunState = func(_ context.Context, _ string, foreignRunId string) (orchestrator.RunState, error) {
			if foreignRunId == "dagmirror__run-2" {
				return orchestrator.RunState{}, fmt.Errorf(
					"%w: dial tcp: connection refused", orchestrator.ErrConnection,
				)
			}
			return orchestrator.RunState{State: "RUNNING"}, nil
		}

		testee := runsync.New(
			db, registryOf(orch),
			runsync.WithClock(clock.Fixed{T: now}), runsync.WithConcurrency(2),
		)
		result := testee.ReconcileActive(context.Background())

		if result.TotalProcessed != 3 || result.Updated != 2 || result.Failed != 1 {
			t.Errorf("result: %+v", result)
		}
		if len(result.Errors) != 1 || result.Errors[0].Type != domain.StorageError {
			t.Errorf("Errors: %+v", result.Errors)
		}
		if _, ok := saved["run-2"]; ok {
			t.Error("the failing run should not be saved")
		}
		if db.Calls.Save.Times() != 2 {
			t.Errorf("Save called %d times, want 2", db.Calls.Save.Times())
		}
	})

	t.Run("a wide pass records every call once", func(t *testing.T) {
		runIds := []string{}
		runs := map[string]domain.Run{}
		for i := 0; i < 20; i++ {
			id := fmt.Sprintf("run-%d", i)
			runIds = append(runIds, id)
			runs[id] = trackedRun(id, domain.Running)
		}

		db := runmock.NewRunInterface()
		db.Impl.Find = func(context.Context, domain.RunFindQuery) ([]string, error) {
			return runIds, nil
		}
		db.Impl.Get = func(context.Context, []string) (map[string]domain.Run, error) {
			return runs, nil
		}
		var mu sync.Mutex
		saved := map[string]domain.Run{}
		db.Impl.Save = func(_ context.Context, r domain.Run) error {
			mu.Lock()
			defer mu.Unlock()
			saved[r.Id] = r
			return nil
		}

		orch := orchmock.New()
		orch.Impl.GetRunState = func(context.Context, string, string) (orchestrator.RunState, error) {
			return orchestrator.RunState{State: "RUNNING"}, nil
		}

		testee := runsync.New(
			db, registryOf(orch),
			runsync.WithClock(clock.Fixed{T: now}), runsync.WithConcurrency(8),
		)
		result := testee.ReconcileActive(context.Background())

		if result.TotalProcessed != 20 || result.Updated != 20 || result.Failed != 0 {
			t.Errorf("result: %+v", result)
		}
		if orch.Calls.GetRunState.Times() != 20 {
			t.Errorf("GetRunState called %d times, want 20", orch.Calls.GetRunState.Times())
		}
		if db.Calls.Save.Times() != 20 {
			t.Errorf("Save called %d times, want 20", db.Calls.Save.Times())
		}
		if len(saved) != 20 {
			t.Errorf("saved %d runs, want 20", len(saved))
		}
	})

	t.Run("when finding runs fails, the pass reports one storage failure", func(t *testing.T) {
		db := runmock.NewRunInterface()
		db.Impl.Find = func(context.Context, domain.RunFindQuery) ([]string, error) {
			return nil, fmt.Errorf("connection reset")
		}

		testee := runsync.New(db, registryOf(orchmock.New()), runsync.WithClock(clock.Fixed{T: now}))
		result := testee.ReconcileActive(context.Background())

		if result.TotalProcessed != 0 || result.Failed != 1 {
			t.Errorf("result: %+v", result)
		}
		if len(result.Errors) != 1 || result.Errors[0].Type != domain.StorageError {
			t.Errorf("Errors: %+v", result.Errors)
		}
	})

	t.Run("a run on an unconfigured cluster fails alone", func(t *testing.T) {
		db := runmock.NewRunInterface()
		db.Impl.Find = func(context.Context, domain.RunFindQuery) ([]string, error) {
			return []string{"run-1"}, nil
		}
		db.Impl.Get = func(context.Context, []string) (map[string]domain.Run, error) {
			run := trackedRun("run-1", domain.Running)
			run.OrchestratorClusterId = "decommissioned"
			return map[string]domain.Run{"run-1": run}, nil
		}

		testee := runsync.New(db, registryOf(orchmock.New()), runsync.WithClock(clock.Fixed{T: now}))
		result := testee.ReconcileActive(context.Background())

		if result.Failed != 1 || len(result.Errors) != 1 {
			t.Fatalf("result: %+v", result)
		}
		if result.Errors[0].Type != domain.UnknownError {
			t.Errorf("error type: got %s", result.Errors[0].Type)
		}
	})
}

func TestStats(t *testing.T) {
	t.Run("it passes the configured staleness threshold through", func(t *testing.T) {
		db := runmock.NewRunInterface()
		db.Impl.SyncStats = func(_ context.Context, clusterId string, staleThreshold time.Duration) (domain.SyncStats, error) {
			if clusterId != "primary" {
				t.Errorf("clusterId: got %s", clusterId)
			}
			if staleThreshold != 2*time.Hour {
				t.Errorf("staleThreshold: got %s", staleThreshold)
			}
			return domain.SyncStats{Total: 10, Synced: 7, PendingSync: 3, Stale: 2}, nil
		}

		registry := orchestrator.NewRegistry("primary", map[string]orchestrator.Client{})
		testee := runsync.New(db, registry, runsync.WithStaleThreshold(2*time.Hour))

		stats, err := testee.Stats(context.Background(), "primary")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats != (domain.SyncStats{Total: 10, Synced: 7, PendingSync: 3, Stale: 2}) {
			t.Errorf("stats: %+v", stats)
		}
	})
}
