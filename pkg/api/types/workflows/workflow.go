package workflows

import (
	"time"

	"github.com/tidesys/dagmirror/pkg/domain"
)

type Detail struct {
	Name             string     `json:"name"`
	Owner            string     `json:"owner,omitempty"`
	Team             string     `json:"team,omitempty"`
	Description      string     `json:"description,omitempty"`
	SourceType       string     `json:"sourceType"`
	SpecPath         string     `json:"specPath,omitempty"`
	ScheduleCron     string     `json:"scheduleCron,omitempty"`
	ScheduleTimezone string     `json:"scheduleTimezone,omitempty"`
	Status           string     `json:"status"`
	OrchestratorId   string     `json:"orchestratorId"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

func ComposeDetail(w domain.Workflow) Detail {
	var updatedAt *time.Time
	if !w.UpdatedAt.IsZero() {
		t := w.UpdatedAt
		updatedAt = &t
	}

	return Detail{
		Name:             w.Name,
		Owner:            w.Owner,
		Team:             w.Team,
		Description:      w.Description,
		SourceType:       string(w.SourceType),
		SpecPath:         w.SpecPath,
		ScheduleCron:     w.ScheduleCron,
		ScheduleTimezone: w.ScheduleTimezone,
		Status:           string(w.Status),
		OrchestratorId:   w.OrchestratorId,
		UpdatedAt:        updatedAt,
	}
}

// request body of "change a workflow's status".
type StatusChangeRequest struct {
	Status string `json:"status"`
}
