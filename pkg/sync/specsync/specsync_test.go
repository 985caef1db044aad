package specsync_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/specstore"
	storemock "github.com/tidesys/dagmirror/pkg/domain/specstore/mock"
	wfmock "github.com/tidesys/dagmirror/pkg/domain/workflow/db/mock"
	"github.com/tidesys/dagmirror/pkg/sync/specsync"
	"github.com/tidesys/dagmirror/pkg/utils/clock"
	"github.com/tidesys/dagmirror/pkg/utils/cmp"
)

func TestReconcileAll(t *testing.T) {
	now := time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)

	goodDoc := func(name string) []byte {
		return []byte(fmt.Sprintf(`
name: %s
owner: alice
team: data-platform
schedule:
  cron: "0 * * * *"
  timezone: UTC
`, name))
	}

	t.Run("when one of two documents is broken, the other is still synced", func(t *testing.T) {
		store := storemock.New()
		store.Impl.ListAllDocuments = func(context.Context) ([]string, error) {
			return []string{"a.yaml", "b.yaml"}, nil
		}
		store.Impl.Read = func(_ context.Context, path string) ([]byte, error) {
			switch path {
			case "a.yaml":
				return goodDoc("team.raw.events"), nil
			case "b.yaml":
				return []byte("{name: team.broken"), nil
			}
			return nil, fmt.Errorf("%w: no such document: %s", specstore.ErrStorage, path)
		}

		db := wfmock.NewWorkflowInterface()
		db.Impl.Save = func(_ context.Context, w domain.Workflow) (bool, error) {
			return true, nil
		}

		testee := specsync.New(store, db, clock.Fixed{T: now})
		result := testee.ReconcileAll(context.Background())

		if result.TotalProcessed != 2 {
			t.Errorf("TotalProcessed: got %d, want 2", result.TotalProcessed)
		}
		if result.Created != 1 {
			t.Errorf("Created: got %d, want 1", result.Created)
		}
		if result.Updated != 0 {
			t.Errorf("Updated: got %d, want 0", result.Updated)
		}
		if result.Failed != 1 {
			t.Errorf("Failed: got %d, want 1", result.Failed)
		}
		if len(result.Errors) != 1 {
			t.Fatalf("Errors: got %d, want 1", len(result.Errors))
		}
		if result.Errors[0].SpecPath != "b.yaml" {
			t.Errorf("error SpecPath: got %s, want b.yaml", result.Errors[0].SpecPath)
		}
		if result.Errors[0].Type != domain.ParseError {
			t.Errorf("error Type: got %s, want %s", result.Errors[0].Type, domain.ParseError)
		}
		if !result.SyncedAt.Equal(now) {
			t.Errorf("SyncedAt: got %s, want %s", result.SyncedAt, now)
		}

		if db.Calls.Save.Times() != 1 {
			t.Fatalf("Save called %d times, want 1", db.Calls.Save.Times())
		}
		saved := db.Calls.Save[0]
		if saved.Name != "team.raw.events" {
			t.Errorf("saved name: got %s", saved.Name)
		}
		if saved.SpecPath != "a.yaml" {
			t.Errorf("saved spec path: got %s", saved.SpecPath)
		}
		if saved.SourceType != domain.SourceCode {
			t.Errorf("saved source type: got %s", saved.SourceType)
		}
		if saved.Status != domain.WorkflowActive {
			t.Errorf("saved status: got %s", saved.Status)
		}
		if saved.OrchestratorId != "dm_team_raw_events" {
			t.Errorf("saved orchestrator id: got %s", saved.OrchestratorId)
		}
	})

	t.Run("when listing the store fails, the pass reports a single storage failure", func(t *testing.T) {
		store := storemock.New()
		store.Impl.ListAllDocuments = func(context.Context) ([]string, error) {
			return nil, fmt.Errorf("%w: bucket unreachable", specstore.ErrStorage)
		}

		db := wfmock.NewWorkflowInterface()

		testee := specsync.New(store, db, clock.Fixed{T: now})
		result := testee.ReconcileAll(context.Background())

		expected := domain.SyncResult{
			TotalProcessed: 0,
			Failed:         1,
			Errors: []domain.SyncError{
				{Type: domain.StorageError, Message: "spec store error: bucket unreachable"},
			},
			SyncedAt: now,
		}
		if !result.Equal(expected) {
			t.Errorf("result mismatch.\n===actual===\n%+v\n===expected===\n%+v", result, expected)
		}
		if db.Calls.Save.Times() != 0 {
			t.Errorf("Save should not be called, but called %d times", db.Calls.Save.Times())
		}
	})

	t.Run("one bad document out of five fails alone", func(t *testing.T) {
		store := storemock.New()
		store.Impl.ListAllDocuments = func(context.Context) ([]string, error) {
			return []string{"a.yaml", "b.yaml", "c.yaml", "d.yaml", "e.yaml"}, nil
		}
		store.Impl.Read = func(_ context.Context, path string) ([]byte, error) {
			if path == "c.yaml" {
				return []byte("name: ''\n"), nil
			}
			return goodDoc("wf-" + path), nil
		}

		db := wfmock.NewWorkflowInterface()
		db.Impl.Save = func(_ context.Context, w domain.Workflow) (bool, error) {
			return w.Name == "wf-a.yaml", nil
		}

		testee := specsync.New(store, db, clock.Fixed{T: now})
		result := testee.ReconcileAll(context.Background())

		if result.TotalProcessed != 5 {
			t.Errorf("TotalProcessed: got %d, want 5", result.TotalProcessed)
		}
		if result.Created != 1 {
			t.Errorf("Created: got %d, want 1", result.Created)
		}
		if result.Updated != 3 {
			t.Errorf("Updated: got %d, want 3", result.Updated)
		}
		if result.Failed != 1 {
			t.Errorf("Failed: got %d, want 1", result.Failed)
		}
		if len(result.Errors) != 1 || result.Errors[0].SpecPath != "c.yaml" {
			t.Fatalf("Errors mismatch: %+v", result.Errors)
		}
		if result.Errors[0].Type != domain.ValidationError {
			t.Errorf("error Type: got %s, want %s", result.Errors[0].Type, domain.ValidationError)
		}
	})

	t.Run("a pass over an unchanged store is idempotent", func(t *testing.T) {
		store := storemock.New()
		store.Impl.ListAllDocuments = func(context.Context) ([]string, error) {
			return []string{"a.yaml"}, nil
		}
		store.Impl.Read = func(_ context.Context, path string) ([]byte, error) {
			return goodDoc("team.raw.events"), nil
		}

		mirror := map[string]domain.Workflow{}
		db := wfmock.NewWorkflowInterface()
		db.Impl.Save = func(_ context.Context, w domain.Workflow) (bool, error) {
			_, ok := mirror[w.Name]
			mirror[w.Name] = w
			return !ok, nil
		}

		testee := specsync.New(store, db, clock.Fixed{T: now})

		first := testee.ReconcileAll(context.Background())
		if first.Created != 1 || first.Failed != 0 {
			t.Fatalf("first pass: %+v", first)
		}
		before := mirror["team.raw.events"]

		second := testee.ReconcileAll(context.Background())
		if second.Created != 0 || second.Updated != 1 || second.Failed != 0 {
			t.Errorf("second pass: %+v", second)
		}
		after := mirror["team.raw.events"]
		if !before.Equal(&after) {
			t.Errorf("record changed by a no-op pass.\n===before===\n%+v\n===after===\n%+v", before, after)
		}
	})

	t.Run("repeated passes never re-activate a disabled workflow", func(t *testing.T) {
		store := storemock.New()
		store.Impl.ListAllDocuments = func(context.Context) ([]string, error) {
			return []string{"a.yaml"}, nil
		}
		store.Impl.Read = func(_ context.Context, path string) ([]byte, error) {
			return goodDoc("team.raw.events"), nil
		}

		// the repository keeps a stored "disabled" status on Save.
		mirror := map[string]domain.Workflow{
			"team.raw.events": {
				Name:   "team.raw.events",
				Status: domain.WorkflowDisabled,
			},
		}
		db := wfmock.NewWorkflowInterface()
		db.Impl.Save = func(_ context.Context, w domain.Workflow) (bool, error) {
			if stored, ok := mirror[w.Name]; ok && stored.Status == domain.WorkflowDisabled {
				w.Status = domain.WorkflowDisabled
			}
			mirror[w.Name] = w
			return false, nil
		}

		testee := specsync.New(store, db, clock.Fixed{T: now})

		for i := 0; i < 3; i++ {
			result := testee.ReconcileAll(context.Background())
			if result.Failed != 0 || result.Updated != 1 {
				t.Fatalf("pass %d: %+v", i, result)
			}
			if mirror["team.raw.events"].Status != domain.WorkflowDisabled {
				t.Errorf("pass %d re-activated the workflow", i)
			}
		}

		if db.Calls.SetStatus.Times() != 0 {
			t.Errorf("reconciliation must not call SetStatus")
		}
	})

	t.Run("a storage error on read fails that document", func(t *testing.T) {
		store := storemock.New()
		store.Impl.ListAllDocuments = func(context.Context) ([]string, error) {
			return []string{"a.yaml"}, nil
		}
		store.Impl.Read = func(_ context.Context, path string) ([]byte, error) {
			return nil, fmt.Errorf("%w: read timeout: %s", specstore.ErrStorage, path)
		}

		db := wfmock.NewWorkflowInterface()

		testee := specsync.New(store, db, clock.Fixed{T: now})
		result := testee.ReconcileAll(context.Background())

		if result.Failed != 1 || result.TotalProcessed != 1 {
			t.Errorf("result: %+v", result)
		}
		if len(result.Errors) != 1 || result.Errors[0].Type != domain.StorageError {
			t.Errorf("Errors: %+v", result.Errors)
		}
	})

	t.Run("a failing upsert is a storage error for that document", func(t *testing.T) {
		store := storemock.New()
		store.Impl.ListAllDocuments = func(context.Context) ([]string, error) {
			return []string{"a.yaml"}, nil
		}
		store.Impl.Read = func(_ context.Context, path string) ([]byte, error) {
			return goodDoc("team.raw.events"), nil
		}

		db := wfmock.NewWorkflowInterface()
		db.Impl.Save = func(context.Context, domain.Workflow) (bool, error) {
			return false, errors.New("connection reset")
		}

		testee := specsync.New(store, db, clock.Fixed{T: now})
		result := testee.ReconcileAll(context.Background())

		if result.Failed != 1 {
			t.Errorf("Failed: got %d, want 1", result.Failed)
		}
		if len(result.Errors) != 1 || result.Errors[0].Type != domain.StorageError {
			t.Errorf("Errors: %+v", result.Errors)
		}
	})

	t.Run("an upsert rejected by a constraint is a validation error", func(t *testing.T) {
		store := storemock.New()
		store.Impl.ListAllDocuments = func(context.Context) ([]string, error) {
			return []string{"a.yaml"}, nil
		}
		store.Impl.Read = func(_ context.Context, path string) ([]byte, error) {
			return goodDoc("team.raw.events"), nil
		}

		db := wfmock.NewWorkflowInterface()
		db.Impl.Save = func(context.Context, domain.Workflow) (bool, error) {
			return false, fmt.Errorf(
				"upsert workflow: %w",
				&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "workflow_pkey"},
			)
		}

		testee := specsync.New(store, db, clock.Fixed{T: now})
		result := testee.ReconcileAll(context.Background())

		if result.Failed != 1 {
			t.Errorf("Failed: got %d, want 1", result.Failed)
		}
		if len(result.Errors) != 1 || result.Errors[0].Type != domain.ValidationError {
			t.Errorf("Errors: %+v", result.Errors)
		}
	})

	t.Run("cancelling the context stops between documents", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		store := storemock.New()
		store.Impl.ListAllDocuments = func(context.Context) ([]string, error) {
			return []string{"a.yaml", "b.yaml", "c.yaml"}, nil
		}
		store.Impl.Read = func(_ context.Context, path string) ([]byte, error) {
			cancel() // fires during the first document
			return goodDoc("wf-" + path), nil
		}

		db := wfmock.NewWorkflowInterface()
		db.Impl.Save = func(context.Context, domain.Workflow) (bool, error) {
			return true, nil
		}

		testee := specsync.New(store, db, clock.Fixed{T: now})
		result := testee.ReconcileAll(ctx)

		if result.TotalProcessed != 1 {
			t.Errorf("TotalProcessed: got %d, want 1", result.TotalProcessed)
		}
		if !cmp.SliceEq([]string(store.Calls.Read), []string{"a.yaml"}) {
			t.Errorf("Read calls: %v", store.Calls.Read)
		}
	})
}
