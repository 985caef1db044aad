package filewatch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// ErrModified is the cancel cause when a watched path changed.
var ErrModified = fmt.Errorf("watched file is modified")

// UntilModifyContext returns a context that is canceled when one of the
// target paths is modified (written, created, removed, or renamed).
//
// dagmirror processes use this to quit when their config file or the spec
// store directory changes, so the supervisor restarts them with fresh state.
// context.Cause on the returned context wraps ErrModified and names the path.
//
// On error, both the context and the cancel function are nil.
func UntilModifyContext(ctx context.Context, targetPath ...string) (context.Context, func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	for _, p := range targetPath {
		if err := w.Add(p); err != nil {
			w.Close()
			return nil, nil, err
		}
	}

	cctx, cancel := context.WithCancelCause(ctx)

	go func() {
		defer w.Close()

		select {
		case <-cctx.Done():
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			cancel(fmt.Errorf("%w: %s (%s)", ErrModified, event.Name, event.Op))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			cancel(err)
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}
