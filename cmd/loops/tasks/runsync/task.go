package runsync

import (
	"context"
	"log"

	"github.com/tidesys/dagmirror/cmd/loops/recurring"
	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator"
	rundb "github.com/tidesys/dagmirror/pkg/domain/run/db"
	syncsvc "github.com/tidesys/dagmirror/pkg/sync/runsync"
)

// initial value for task
func Seed() domain.SyncResult {
	return domain.SyncResult{}
}

// Task mirrors live orchestrator state into local Runs, one pass per cycle.
//
// Per-run fetch failures are logged and retried naturally on the next cycle
// via staleness; the cycle itself never raises.
func Task(
	logger *log.Logger,
	db rundb.Interface,
	registry orchestrator.Registry,
	options ...syncsvc.Option,
) recurring.Task[domain.SyncResult] {
	reconciler := syncsvc.New(db, registry, options...)
	return func(ctx context.Context, _ domain.SyncResult) (domain.SyncResult, bool, error) {
		result := reconciler.ReconcileActive(ctx)

		for _, e := range result.Errors {
			logger.Printf("sync failed (%s): %s", e.Type, e.Message)
		}

		return result, false, nil
	}
}
