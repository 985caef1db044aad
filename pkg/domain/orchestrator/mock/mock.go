package mock

import (
	"context"
	"errors"
	"sync"

	commonmock "github.com/tidesys/dagmirror/pkg/domain/internal/mock"
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator"
)

type Client struct {
	mu sync.Mutex

	Impl struct {
		TriggerRun  func(ctx context.Context, workflowOrchestratorId string, params orchestrator.TriggerParams) (string, error)
		GetRunState func(ctx context.Context, workflowOrchestratorId string, foreignRunId string) (orchestrator.RunState, error)
		Pause       func(ctx context.Context, workflowOrchestratorId string) error
		Unpause     func(ctx context.Context, workflowOrchestratorId string) error
		StopRun     func(ctx context.Context, workflowOrchestratorId string, foreignRunId string) (bool, error)
	}

	Calls struct {
		TriggerRun commonmock.CallLog[struct {
			WorkflowOrchestratorId string
			Params                 orchestrator.TriggerParams
		}]
		GetRunState commonmock.CallLog[struct {
			WorkflowOrchestratorId string
			ForeignRunId           string
		}]
		Pause   commonmock.CallLog[string]
		Unpause commonmock.CallLog[string]
		StopRun commonmock.CallLog[struct {
			WorkflowOrchestratorId string
			ForeignRunId           string
		}]
	}
}

func New() *Client {
	return &Client{}
}

var _ orchestrator.Client = &Client{}

func (m *Client) TriggerRun(
	ctx context.Context, workflowOrchestratorId string, params orchestrator.TriggerParams,
) (string, error) {
	commonmock.Record(&m.mu, &m.Calls.TriggerRun, struct {
		WorkflowOrchestratorId string
		Params                 orchestrator.TriggerParams
	}{WorkflowOrchestratorId: workflowOrchestratorId, Params: params})
	if m.Impl.TriggerRun != nil {
		return m.Impl.TriggerRun(ctx, workflowOrchestratorId, params)
	}

	panic(errors.New("it should not be called"))
}

func (m *Client) GetRunState(
	ctx context.Context, workflowOrchestratorId string, foreignRunId string,
) (orchestrator.RunState, error) {
	commonmock.Record(&m.mu, &m.Calls.GetRunState, struct {
		WorkflowOrchestratorId string
		ForeignRunId           string
	}{WorkflowOrchestratorId: workflowOrchestratorId, ForeignRunId: foreignRunId})
	if m.Impl.GetRunState != nil {
		return m.Impl.GetRunState(ctx, workflowOrchestratorId, foreignRunId)
	}

	panic(errors.New("it should not be called"))
}

func (m *Client) Pause(ctx context.Context, workflowOrchestratorId string) error {
	commonmock.Record(&m.mu, &m.Calls.Pause, workflowOrchestratorId)
	if m.Impl.Pause != nil {
		return m.Impl.Pause(ctx, workflowOrchestratorId)
	}

	panic(errors.New("it should not be called"))
}

func (m *Client) Unpause(ctx context.Context, workflowOrchestratorId string) error {
	commonmock.Record(&m.mu, &m.Calls.Unpause, workflowOrchestratorId)
	if m.Impl.Unpause != nil {
		return m.Impl.Unpause(ctx, workflowOrchestratorId)
	}

	panic(errors.New("it should not be called"))
}

func (m *Client) StopRun(
	ctx context.Context, workflowOrchestratorId string, foreignRunId string,
) (bool, error) {
	commonmock.Record(&m.mu, &m.Calls.StopRun, struct {
		WorkflowOrchestratorId string
		ForeignRunId           string
	}{WorkflowOrchestratorId: workflowOrchestratorId, ForeignRunId: foreignRunId})
	if m.Impl.StopRun != nil {
		return m.Impl.StopRun(ctx, workflowOrchestratorId, foreignRunId)
	}

	panic(errors.New("it should not be called"))
}
