package runs

import (
	"encoding/json"
	"time"

	"github.com/tidesys/dagmirror/pkg/domain"
)

type Stop struct {
	By     string    `json:"by"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

type Orchestrator struct {
	ClusterId    string     `json:"clusterId,omitempty"`
	RunId        string     `json:"runId,omitempty"`
	RawStatus    string     `json:"rawStatus,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	URL          string     `json:"url,omitempty"`
}

type Detail struct {
	RunId        string          `json:"runId"`
	Workflow     string          `json:"workflow"`
	Status       string          `json:"status"`
	Type         string          `json:"type"`
	TriggeredBy  string          `json:"triggeredBy,omitempty"`
	StartedAt    *time.Time      `json:"startedAt,omitempty"`
	EndedAt      *time.Time      `json:"endedAt,omitempty"`
	Stop         *Stop           `json:"stop,omitempty"`
	Orchestrator Orchestrator    `json:"orchestrator"`
	TaskProgress json.RawMessage `json:"taskProgress,omitempty"`
}

func ComposeDetail(r domain.Run) Detail {
	var stop *Stop
	if r.Stop != nil {
		stop = &Stop{By: r.Stop.By, Reason: r.Stop.Reason, At: r.Stop.At}
	}

	return Detail{
		RunId:       r.Id,
		Workflow:    r.WorkflowName,
		Status:      r.Status.String(),
		Type:        r.Type.String(),
		TriggeredBy: r.TriggeredBy,
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
		Stop:        stop,
		Orchestrator: Orchestrator{
			ClusterId:    r.OrchestratorClusterId,
			RunId:        r.OrchestratorRunId,
			RawStatus:    r.RawForeignStatus,
			LastSyncedAt: r.LastSyncedAt,
			URL:          r.URL,
		},
		TaskProgress: r.TaskProgress,
	}
}

// request body of "trigger a run of a workflow".
type TriggerRequest struct {
	TriggeredBy string            `json:"triggeredBy"`
	ClusterId   string            `json:"clusterId,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}

// request body of "stop a run".
type StopRequest struct {
	By     string `json:"by"`
	Reason string `json:"reason,omitempty"`
}
