package domain

import "fmt"

// WorkflowSpec is the validated in-memory form of one spec-store document.
type WorkflowSpec struct {
	Name             string
	Owner            string
	Team             string
	Description      string
	ScheduleCron     string
	ScheduleTimezone string
}

// AsWorkflow composes a Workflow record governed by this spec.
func (s WorkflowSpec) AsWorkflow(specPath string) Workflow {
	return Workflow{
		Name:             s.Name,
		Owner:            s.Owner,
		Team:             s.Team,
		Description:      s.Description,
		SourceType:       SourceCode,
		SpecPath:         specPath,
		ScheduleCron:     s.ScheduleCron,
		ScheduleTimezone: s.ScheduleTimezone,
		Status:           WorkflowActive,
		OrchestratorId:   DeriveOrchestratorId(s.Name),
	}
}

// SpecValidationError describes one reason a document is not a valid spec.
type SpecValidationError struct {
	// which part of the document. Empty when the document as a whole is broken.
	Field string

	Message string
}

func (e SpecValidationError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
