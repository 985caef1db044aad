package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidesys/dagmirror/pkg/utils/cmp"
)

type RunStatus string

const (
	// This Run is created but not started yet.
	Pending RunStatus = "pending"

	// This Run is executing.
	Running RunStatus = "running"

	// This Run has finished, successfully.
	Success RunStatus = "success"

	// This Run has finished with error.
	Failed RunStatus = "failed"

	// A stop has been requested, but is not completed yet.
	Stopping RunStatus = "stopping"

	// This Run was stopped on request.
	Stopped RunStatus = "stopped"

	// The orchestrator skipped this Run.
	Skipped RunStatus = "skipped"

	// The orchestrator reported a status we do not recognize.
	Unknown RunStatus = "unknown"
)

func (rs RunStatus) String() string {
	return string(rs)
}

// A Run in a terminal status never transits again.
func (rs RunStatus) IsTerminal() bool {
	switch rs {
	case Success, Failed, Stopped, Skipped:
		return true
	default:
		return false
	}
}

// statuses of Runs which the run sync loop keeps watching.
func ActiveStatuses() []RunStatus {
	return []RunStatus{Pending, Running, Stopping, Unknown}
}

func AsRunStatus(status string) (RunStatus, error) {
	switch status {
	case string(Pending):
		return Pending, nil
	case string(Running):
		return Running, nil
	case string(Success):
		return Success, nil
	case string(Failed):
		return Failed, nil
	case string(Stopping):
		return Stopping, nil
	case string(Stopped):
		return Stopped, nil
	case string(Skipped):
		return Skipped, nil
	case string(Unknown):
		return Unknown, nil
	default:
		return "", fmt.Errorf("'%s' is not RunStatus", status)
	}
}

type RunType string

const (
	ManualRun    RunType = "manual"
	ScheduledRun RunType = "scheduled"
	BackfillRun  RunType = "backfill"
)

func (rt RunType) String() string {
	return string(rt)
}

func AsRunType(s string) (RunType, error) {
	switch s {
	case string(ManualRun):
		return ManualRun, nil
	case string(ScheduledRun):
		return ScheduledRun, nil
	case string(BackfillRun):
		return BackfillRun, nil
	default:
		return "", fmt.Errorf("'%s' is not RunType", s)
	}
}

// Stop request metadata. Set once, when a stop is requested.
type RunStop struct {
	By     string
	Reason string
	At     time.Time
}

func (s *RunStop) Equal(o *RunStop) bool {
	if (s == nil) || (o == nil) {
		return (s == nil) && (o == nil)
	}
	return s.By == o.By && s.Reason == o.Reason && s.At.Equal(o.At)
}

// One execution attempt of a Workflow.
//
// Run is a plain record. State transitions are pure methods returning a new
// Run value, so they are testable without any store behind.
type Run struct {
	// globally unique id, assigned at creation, never changed.
	Id string

	// name of the Workflow this Run belongs to. Weak reference:
	// deleting the Workflow does not cascade here.
	WorkflowName string

	Status      RunStatus
	Type        RunType
	TriggeredBy string

	StartedAt *time.Time
	EndedAt   *time.Time

	Stop *RunStop

	// id the orchestrator assigned to this Run.
	//
	// Empty means "not dispatched to / not tracked by the orchestrator".
	// Such Runs are excluded from orchestrator reconciliation.
	OrchestratorRunId string

	// which orchestrator deployment owns this Run.
	OrchestratorClusterId string

	// last observed foreign status token, verbatim, for audit.
	RawForeignStatus string

	// timestamp of the last successful reconciliation with the orchestrator.
	// Only ever advanced, never rolled back.
	LastSyncedAt *time.Time

	// orchestrator-supplied progress snapshot. Opaque to dagmirror.
	TaskProgress json.RawMessage

	// orchestrator-exposed URL for this Run, if any.
	URL string
}

func (r *Run) Equal(o *Run) bool {
	if (r == nil) || (o == nil) {
		return (r == nil) && (o == nil)
	}
	return r.Id == o.Id &&
		r.WorkflowName == o.WorkflowName &&
		r.Status == o.Status &&
		r.Type == o.Type &&
		r.TriggeredBy == o.TriggeredBy &&
		timePtrEq(r.StartedAt, o.StartedAt) &&
		timePtrEq(r.EndedAt, o.EndedAt) &&
		r.Stop.Equal(o.Stop) &&
		r.OrchestratorRunId == o.OrchestratorRunId &&
		r.OrchestratorClusterId == o.OrchestratorClusterId &&
		r.RawForeignStatus == o.RawForeignStatus &&
		timePtrEq(r.LastSyncedAt, o.LastSyncedAt) &&
		string(r.TaskProgress) == string(o.TaskProgress) &&
		r.URL == o.URL
}

func timePtrEq(a, b *time.Time) bool {
	if (a == nil) || (b == nil) {
		return (a == nil) && (b == nil)
	}
	return a.Equal(*b)
}

// Returned on illegal transitions. It flags a caller invariant violation,
// not a transient condition: callers must not swallow it.
var ErrInvalidRunTransition = errors.New("cannot change run status")

func NewErrInvalidRunTransition(from RunStatus, to RunStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidRunTransition, from, to)
}

// Start transits pending -> running and records StartedAt.
func (r Run) Start(now time.Time) (Run, error) {
	if r.Status != Pending {
		return r, NewErrInvalidRunTransition(r.Status, Running)
	}
	r.Status = Running
	r.StartedAt = &now
	return r, nil
}

// Complete transits running -> success and records EndedAt.
func (r Run) Complete(now time.Time) (Run, error) {
	if r.Status != Running {
		return r, NewErrInvalidRunTransition(r.Status, Success)
	}
	r.Status = Success
	r.EndedAt = &now
	return r, nil
}

// Fail marks the Run failed. Legal from any status except success or stopped.
func (r Run) Fail(now time.Time) (Run, error) {
	if r.Status == Success || r.Status == Stopped {
		return r, NewErrInvalidRunTransition(r.Status, Failed)
	}
	r.Status = Failed
	r.EndedAt = &now
	return r, nil
}

// RequestStop transits pending|running -> stopping and records who and why.
func (r Run) RequestStop(by string, reason string, now time.Time) (Run, error) {
	if r.Status != Pending && r.Status != Running {
		return r, NewErrInvalidRunTransition(r.Status, Stopping)
	}
	r.Status = Stopping
	r.Stop = &RunStop{By: by, Reason: reason, At: now}
	return r, nil
}

// CompleteStop transits stopping -> stopped and records EndedAt.
func (r Run) CompleteStop(now time.Time) (Run, error) {
	if r.Status != Stopping {
		return r, NewErrInvalidRunTransition(r.Status, Stopped)
	}
	r.Status = Stopped
	r.EndedAt = &now
	return r, nil
}

// Stale reports whether this Run's mirror of orchestrator state is outdated.
//
// A Run not tracked by any orchestrator is never stale.
func (r Run) Stale(now time.Time, threshold time.Duration) bool {
	if r.OrchestratorRunId == "" {
		return false
	}
	if r.LastSyncedAt == nil {
		return true
	}
	return now.Sub(*r.LastSyncedAt) > threshold
}

// parameter to query Runs.
//
// When all dimensions match a Run, the query matches the Run.
// Empty dimensions match any.
type RunFindQuery struct {
	WorkflowName []string
	Status       []RunStatus
	Type         []RunType
	TriggeredBy  []string
	ClusterId    []string

	// match only Runs tracked by an orchestrator (OrchestratorRunId set).
	TrackedOnly bool

	StartedSince *time.Time
	StartedUntil *time.Time

	// pagination. Limit == 0 means "no limit".
	Limit  int
	Offset int
}

func (q RunFindQuery) Equal(other RunFindQuery) bool {
	return cmp.SliceContentEq(q.WorkflowName, other.WorkflowName) &&
		cmp.SliceContentEq(q.Status, other.Status) &&
		cmp.SliceContentEq(q.Type, other.Type) &&
		cmp.SliceContentEq(q.TriggeredBy, other.TriggeredBy) &&
		cmp.SliceContentEq(q.ClusterId, other.ClusterId) &&
		q.TrackedOnly == other.TrackedOnly &&
		timePtrEq(q.StartedSince, other.StartedSince) &&
		timePtrEq(q.StartedUntil, other.StartedUntil) &&
		q.Limit == other.Limit &&
		q.Offset == other.Offset
}
