package domain

import (
	"errors"
	"fmt"
)

type LoopType string

const (
	// pull all documents from the spec store and mirror them as Workflows.
	SpecReconcile LoopType = "spec_reconcile"

	// pull live orchestrator state and merge it into local Runs.
	RunSync LoopType = "run_sync"
)

// NOTE: loop types are part of the model: "dagmirror has these reconciliation
// loops" is a statement about the system, not about one binary.

func (lt LoopType) String() string {
	return string(lt)
}

func (lt LoopType) IsKnown() bool {
	switch lt {
	case SpecReconcile, RunSync:
		return true
	default:
		return false
	}
}

func AsLoopType(s string) (LoopType, error) {
	l := LoopType(s)
	if l.IsKnown() {
		return l, nil
	}
	return l, fmt.Errorf(`%w: "%s"`, ErrUnknownLoopType, s)
}

var ErrUnknownLoopType = errors.New("unknown loop type")
