package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tidesys/dagmirror/pkg/domain"
)

func TestRunStatus_IsTerminal(t *testing.T) {
	for status, want := range map[domain.RunStatus]bool{
		domain.Pending:  false,
		domain.Running:  false,
		domain.Stopping: false,
		domain.Unknown:  false,
		domain.Success:  true,
		domain.Failed:   true,
		domain.Stopped:  true,
		domain.Skipped:  true,
	} {
		if actual := status.IsTerminal(); actual != want {
			t.Errorf("%s: IsTerminal: actual=%v, expect=%v", status, actual, want)
		}
	}
}

func TestRun_Start(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("it transits pending -> running and records StartedAt", func(t *testing.T) {
		before := domain.Run{Id: "run-1", WorkflowName: "team.raw.events", Status: domain.Pending}

		after, err := before.Start(now)
		if err != nil {
			t.Fatal(err)
		}
		if after.Status != domain.Running {
			t.Errorf("status: actual=%s, expect=%s", after.Status, domain.Running)
		}
		if after.StartedAt == nil || !after.StartedAt.Equal(now) {
			t.Errorf("startedAt: actual=%v, expect=%v", after.StartedAt, now)
		}
	})

	for _, status := range []domain.RunStatus{
		domain.Running, domain.Success, domain.Failed,
		domain.Stopping, domain.Stopped, domain.Skipped, domain.Unknown,
	} {
		t.Run("it rejects Start from "+status.String()+" and leaves the Run unmodified", func(t *testing.T) {
			before := domain.Run{Id: "run-1", Status: status}

			after, err := before.Start(now)
			if !errors.Is(err, domain.ErrInvalidRunTransition) {
				t.Errorf("err: actual=%v, expect=%v", err, domain.ErrInvalidRunTransition)
			}
			if !after.Equal(&before) {
				t.Errorf("run is modified: actual=%+v, expect=%+v", after, before)
			}
		})
	}
}

func TestRun_Complete(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("it transits running -> success and records EndedAt", func(t *testing.T) {
		startedAt := now.Add(-10 * time.Minute)
		before := domain.Run{Id: "run-1", Status: domain.Running, StartedAt: &startedAt}

		after, err := before.Complete(now)
		if err != nil {
			t.Fatal(err)
		}
		if after.Status != domain.Success {
			t.Errorf("status: actual=%s, expect=%s", after.Status, domain.Success)
		}
		if after.EndedAt == nil || !after.EndedAt.Equal(now) {
			t.Errorf("endedAt: actual=%v, expect=%v", after.EndedAt, now)
		}
	})

	t.Run("Complete after Complete is rejected: success is terminal", func(t *testing.T) {
		run := domain.Run{Id: "run-1", Status: domain.Running}

		run, err := run.Complete(now)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := run.Complete(now.Add(time.Second)); !errors.Is(err, domain.ErrInvalidRunTransition) {
			t.Errorf("err: actual=%v, expect=%v", err, domain.ErrInvalidRunTransition)
		}
	})
}

func TestRun_Fail(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	for _, status := range []domain.RunStatus{
		domain.Pending, domain.Running, domain.Failed,
		domain.Stopping, domain.Skipped, domain.Unknown,
	} {
		t.Run("it accepts Fail from "+status.String(), func(t *testing.T) {
			before := domain.Run{Id: "run-1", Status: status}

			after, err := before.Fail(now)
			if err != nil {
				t.Fatal(err)
			}
			if after.Status != domain.Failed {
				t.Errorf("status: actual=%s, expect=%s", after.Status, domain.Failed)
			}
			if after.EndedAt == nil || !after.EndedAt.Equal(now) {
				t.Errorf("endedAt: actual=%v, expect=%v", after.EndedAt, now)
			}
		})
	}

	for _, status := range []domain.RunStatus{domain.Success, domain.Stopped} {
		t.Run("it rejects Fail from "+status.String(), func(t *testing.T) {
			before := domain.Run{Id: "run-1", Status: status}

			after, err := before.Fail(now)
			if !errors.Is(err, domain.ErrInvalidRunTransition) {
				t.Errorf("err: actual=%v, expect=%v", err, domain.ErrInvalidRunTransition)
			}
			if !after.Equal(&before) {
				t.Errorf("run is modified: actual=%+v, expect=%+v", after, before)
			}
		})
	}
}

func TestRun_StopLifecycle(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	for _, status := range []domain.RunStatus{domain.Pending, domain.Running} {
		t.Run("RequestStop from "+status.String()+" records stop metadata", func(t *testing.T) {
			before := domain.Run{Id: "run-1", Status: status}

			after, err := before.RequestStop("admin", "input data revoked", now)
			if err != nil {
				t.Fatal(err)
			}
			if after.Status != domain.Stopping {
				t.Errorf("status: actual=%s, expect=%s", after.Status, domain.Stopping)
			}
			want := &domain.RunStop{By: "admin", Reason: "input data revoked", At: now}
			if !after.Stop.Equal(want) {
				t.Errorf("stop: actual=%+v, expect=%+v", after.Stop, want)
			}
		})
	}

	for _, status := range []domain.RunStatus{
		domain.Success, domain.Failed, domain.Stopping,
		domain.Stopped, domain.Skipped, domain.Unknown,
	} {
		t.Run("RequestStop from "+status.String()+" is rejected", func(t *testing.T) {
			before := domain.Run{Id: "run-1", Status: status}
			if _, err := before.RequestStop("admin", "", now); !errors.Is(err, domain.ErrInvalidRunTransition) {
				t.Errorf("err: actual=%v, expect=%v", err, domain.ErrInvalidRunTransition)
			}
		})
	}

	t.Run("CompleteStop transits stopping -> stopped and records EndedAt", func(t *testing.T) {
		run := domain.Run{Id: "run-1", Status: domain.Running}

		run, err := run.RequestStop("admin", "", now)
		if err != nil {
			t.Fatal(err)
		}

		done, err := run.CompleteStop(now.Add(time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if done.Status != domain.Stopped {
			t.Errorf("status: actual=%s, expect=%s", done.Status, domain.Stopped)
		}
		if done.EndedAt == nil || !done.EndedAt.Equal(now.Add(time.Minute)) {
			t.Errorf("endedAt: actual=%v, expect=%v", done.EndedAt, now.Add(time.Minute))
		}
	})

	t.Run("CompleteStop is rejected unless stopping", func(t *testing.T) {
		run := domain.Run{Id: "run-1", Status: domain.Running}
		if _, err := run.CompleteStop(now); !errors.Is(err, domain.ErrInvalidRunTransition) {
			t.Errorf("err: actual=%v, expect=%v", err, domain.ErrInvalidRunTransition)
		}
	})
}

func TestRun_Stale(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	threshold := 60 * time.Minute

	type When struct {
		lastSyncedAt      *time.Time
		orchestratorRunId string
	}

	theory := func(when When, want bool) func(*testing.T) {
		return func(t *testing.T) {
			run := domain.Run{
				Id:                "run-1",
				Status:            domain.Running,
				OrchestratorRunId: when.orchestratorRunId,
				LastSyncedAt:      when.lastSyncedAt,
			}
			if actual := run.Stale(now, threshold); actual != want {
				t.Errorf("stale: actual=%v, expect=%v", actual, want)
			}
		}
	}

	{
		syncedAt := now.Add(-61 * time.Minute)
		t.Run("synced 61 minutes ago is stale under the 60 minute threshold", theory(
			When{lastSyncedAt: &syncedAt, orchestratorRunId: "foreign-1"}, true,
		))
	}
	{
		syncedAt := now.Add(-10 * time.Minute)
		t.Run("synced 10 minutes ago is not stale", theory(
			When{lastSyncedAt: &syncedAt, orchestratorRunId: "foreign-1"}, false,
		))
	}
	t.Run("never synced but tracked is stale", theory(
		When{lastSyncedAt: nil, orchestratorRunId: "foreign-1"}, true,
	))
	t.Run("not tracked by any orchestrator is never stale", theory(
		When{lastSyncedAt: nil, orchestratorRunId: ""}, false,
	))
}
