package mock

import "sync"

type CallLog[T any] []T

func (l CallLog[T]) Times() uint {
	return uint(len(l))
}

// Record appends a call to the log under mu.
//
// Mocks can be driven from worker goroutines (run sync fans out per run),
// so their logs must not race.
func Record[T any](mu *sync.Mutex, log *CallLog[T], call T) {
	mu.Lock()
	defer mu.Unlock()
	*log = append(*log, call)
}
