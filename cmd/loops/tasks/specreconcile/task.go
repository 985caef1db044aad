package specreconcile

import (
	"context"
	"log"

	"github.com/tidesys/dagmirror/cmd/loops/recurring"
	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/specstore"
	wfdb "github.com/tidesys/dagmirror/pkg/domain/workflow/db"
	"github.com/tidesys/dagmirror/pkg/sync/specsync"
	"github.com/tidesys/dagmirror/pkg/utils/clock"
)

// initial value for task
func Seed() domain.SyncResult {
	return domain.SyncResult{}
}

// Task mirrors the spec store into Workflow records, one full pass per cycle.
//
// A pass never raises: per-document failures are logged here and carried in
// the cycle's SyncResult. The cycle reports "no backlog" always, so the
// policy's cooldown paces the passes.
func Task(
	logger *log.Logger,
	store specstore.Store,
	db wfdb.Interface,
	clk clock.Clock,
) recurring.Task[domain.SyncResult] {
	reconciler := specsync.New(store, db, clk)
	return func(ctx context.Context, _ domain.SyncResult) (domain.SyncResult, bool, error) {
		result := reconciler.ReconcileAll(ctx)

		for _, e := range result.Errors {
			if e.SpecPath == "" {
				logger.Printf("pass failed (%s): %s", e.Type, e.Message)
				continue
			}
			logger.Printf("document %s failed (%s): %s", e.SpecPath, e.Type, e.Message)
		}

		return result, false, nil
	}
}
