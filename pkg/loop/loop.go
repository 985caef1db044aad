package loop

import (
	"context"
	"fmt"
	"time"
)

type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop with interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}

	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// continue loop.
//
// args:
//
// - interval: sleep before starting next task.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// break loop.
//
// args:
//
// - err: If you break loop with error, set non nil value.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

type Task[T any] func(context.Context, T) (T, Next)

// Start runs task in a loop, on a single goroutine.
//
// task receives the value the previous cycle returned, and answers with a new
// value and Next: Continue(interval) to run again after interval (can be 0),
// or Break(error) to stop. Zero value (Next{}) equals Continue(0).
//
// Because cycles run strictly one after another, two cycles of the same loop
// never overlap. This is what serializes reconciliation passes: the next pass
// is scheduled only after the previous one has returned.
//
// Example. Drain a queue, then poll each minute:
//
//	Start(ctx, 0, func(ctx context.Context, drained int) (int, Next) {
//		n, err := queue.PopAll(ctx)
//		if err != nil {
//			return drained, Break(err)
//		}
//		if n == 0 {
//			return drained, Continue(time.Minute)
//		}
//		return drained + n, Continue(0)
//	})
//
// Args
//
// - ctx : when ctx is Done, the loop breaks with ctx.Err().
// Cancellation is checked between cycles, never mid-cycle.
//
// - init : task is called as task(ctx, init) the first time.
//
// - task
//
// - options : per-cycle options, e.g. WithTimeout.
//
// Returns
//
// - T : the value task returned last.
// Returned also when the error is non-nil.
//
// - error : the error in Break(error), or ctx.Err() on cancellation.
func Start[T any](ctx context.Context, init T, task Task[T], options ...LoopOption) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		interval := 0 * time.Nanosecond

		lc := &loopConfig{ctx: ctx}
		for _, opt := range options {
			lc = opt(lc)
		}

		v, n := func() (T, Next) {
			ctx := lc.ctx
			if lc.deferred != nil {
				defer lc.deferred()
			}
			return task(ctx, value)
		}()

		if n.err != nil {
			return v, n.err
		} else if n.quit {
			return v, nil
		} else {
			value = v
			interval = n.interval
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			// shutting down is priority. it should come first, and checking timer later.
			if !timer.Stop() {
				<-timer.C // drain. see: time.Timer.Stop's document
			}
			return value, ctx.Err()

		case <-timer.C:
			continue
		}
	}
}

type loopConfig struct {
	ctx      context.Context
	deferred func()
}

type LoopOption func(*loopConfig) *loopConfig

// set timeout per loop
//
// this timeout is set on context.Context passed to task.
func WithTimeout(d time.Duration) LoopOption {
	return func(lc *loopConfig) *loopConfig {
		ctx, cancel := context.WithTimeout(lc.ctx, d)
		return &loopConfig{
			ctx: ctx,
			deferred: func() {
				if lc.deferred != nil {
					defer lc.deferred()
				}
				cancel()
			},
		}
	}
}
