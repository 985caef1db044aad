package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tidesys/dagmirror/cmd/loops/recurring"
	"github.com/tidesys/dagmirror/cmd/loops/tasks/runsync"
	"github.com/tidesys/dagmirror/cmd/loops/tasks/specreconcile"
	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/dagmirror"
	"github.com/tidesys/dagmirror/pkg/loop"
	syncsvc "github.com/tidesys/dagmirror/pkg/sync/runsync"
	"github.com/tidesys/dagmirror/pkg/utils/clock"
)

// prefixed returns a copy of logger tagged with the loop name, timestamped.
func prefixed(logger *log.Logger, prefix string) *log.Logger {
	return log.New(
		logger.Writer(), prefix,
		logger.Flags()|log.Ldate|log.Ltime|log.Lmicroseconds,
	)
}

// monitor wraps a task so that every cycle logs its begin, outcome and cost.
func monitor[T any](logger *log.Logger, task loop.Task[T]) loop.Task[T] {
	cycle := 0
	return func(ctx context.Context, state T) (T, loop.Next) {
		cycle++
		begin := time.Now()
		logger.Printf("cycle #%d: start", cycle)

		ret, next := task(ctx, state)

		logger.Printf(
			"cycle #%d: done in %s: %s / value = %#v",
			cycle, time.Since(begin), next, ret,
		)
		return ret, next
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	Type   domain.LoopType
	Policy recurring.Policy
}

func StartSpecReconcileLoop(
	ctx context.Context,
	logger *log.Logger,
	dm dagmirror.Dagmirror,
	manifest LoopManifest,
) error {
	l := prefixed(logger, "[spec reconcile loop]")
	_, err := loop.Start(
		ctx, specreconcile.Seed(),
		monitor(
			l,
			specreconcile.Task(
				l, dm.Workflow().SpecStore(), dm.Workflow().Database(), clock.System(),
			).Applied(manifest.Policy),
		),
		loop.WithTimeout(dm.Config().Sync().CycleTimeout()),
	)
	return err
}

func StartRunSyncLoop(
	ctx context.Context,
	logger *log.Logger,
	dm dagmirror.Dagmirror,
	manifest LoopManifest,
) error {
	l := prefixed(logger, "[run sync loop]")
	sync := dm.Config().Sync()
	_, err := loop.Start(
		ctx, runsync.Seed(),
		monitor(
			l,
			runsync.Task(
				l, dm.Run().Database(), dm.Run().Orchestrator(),
				syncsvc.WithConcurrency(sync.Concurrency()),
				syncsvc.WithStaleThreshold(sync.StalenessThreshold()),
			).Applied(manifest.Policy),
		),
		loop.WithTimeout(sync.CycleTimeout()),
	)
	return err
}

func StartLoop(
	ctx context.Context,
	logger *log.Logger,
	dm dagmirror.Dagmirror,
	manifest LoopManifest,
) error {
	switch manifest.Type {
	case domain.SpecReconcile:
		return StartSpecReconcileLoop(ctx, logger, dm, manifest)
	case domain.RunSync:
		return StartRunSyncLoop(ctx, logger, dm, manifest)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownLoopType, manifest.Type)
	}
}
