// Package clock provides "now" as an injectable capability,
// so that timestamping logic is deterministic under test.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System is a Clock backed by time.Now.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Fixed is a Clock frozen at a point in time. For tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}
