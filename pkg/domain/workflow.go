package domain

import (
	"fmt"
	"strings"
	"time"
)

type WorkflowSourceType string

const (
	// registered by hand, through the API.
	SourceManual WorkflowSourceType = "manual"

	// governed by a declarative document in the spec store.
	SourceCode WorkflowSourceType = "code"
)

type WorkflowStatus string

const (
	WorkflowActive   WorkflowStatus = "active"
	WorkflowDisabled WorkflowStatus = "disabled"
)

func (ws WorkflowStatus) String() string {
	return string(ws)
}

func AsWorkflowStatus(s string) (WorkflowStatus, error) {
	switch s {
	case string(WorkflowActive):
		return WorkflowActive, nil
	case string(WorkflowDisabled):
		return WorkflowDisabled, nil
	default:
		return "", fmt.Errorf("'%s' is not WorkflowStatus", s)
	}
}

// A named, schedulable unit of declarative pipeline configuration.
//
// Workflow is the local mirror of one spec-store document (SourceCode),
// or a manually registered entry (SourceManual).
type Workflow struct {
	// unique, stable identifier. Primary key.
	Name string

	Owner       string
	Team        string
	Description string

	SourceType WorkflowSourceType

	// blob location of the governing document. Set only for SourceCode.
	SpecPath string

	ScheduleCron     string
	ScheduleTimezone string

	// A disabled Workflow is never re-activated by reconciliation.
	Status WorkflowStatus

	// remote-scheduler identifier. Derived deterministically from Name.
	OrchestratorId string

	UpdatedAt time.Time
}

func (w *Workflow) Equal(o *Workflow) bool {
	if (w == nil) || (o == nil) {
		return (w == nil) && (o == nil)
	}
	return w.Name == o.Name &&
		w.Owner == o.Owner &&
		w.Team == o.Team &&
		w.Description == o.Description &&
		w.SourceType == o.SourceType &&
		w.SpecPath == o.SpecPath &&
		w.ScheduleCron == o.ScheduleCron &&
		w.ScheduleTimezone == o.ScheduleTimezone &&
		w.Status == o.Status &&
		w.OrchestratorId == o.OrchestratorId
}

const orchestratorIdPrefix = "dm_"

// DeriveOrchestratorId maps a Workflow name to its id in the orchestrator.
//
// Pure and deterministic: the same name always yields the same id,
// across restarts and deployments. Lowercased; "." and "-" become "_".
func DeriveOrchestratorId(name string) string {
	sanitized := strings.ToLower(name)
	sanitized = strings.ReplaceAll(sanitized, ".", "_")
	sanitized = strings.ReplaceAll(sanitized, "-", "_")
	return orchestratorIdPrefix + sanitized
}
