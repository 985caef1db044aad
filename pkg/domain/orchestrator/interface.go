// Package orchestrator declares the contract of the external workflow
// orchestrator (Airflow or compatible). dagmirror never executes workflows
// itself: it dispatches to the orchestrator and mirrors its state.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// a transport-level failure: the orchestrator is unreachable or
	// answered with a server error. Retried implicitly on the next sync cycle.
	ErrConnection = errors.New("orchestrator connection error")

	// the orchestrator does not know the asked run.
	// Distinguishable from ErrConnection: the deployment is reachable.
	ErrRunNotFound = errors.New("run not found in orchestrator")
)

// live execution state of one run, as the orchestrator reports it.
type RunState struct {
	// foreign status token, verbatim. Vocabulary belongs to the
	// orchestrator; map it with MapForeignStatus.
	State string

	StartedAt *time.Time
	EndedAt   *time.Time

	// per-task progress snapshot. Opaque to dagmirror.
	Progress json.RawMessage

	// orchestrator UI URL for this run, if any.
	URL string
}

type TriggerParams struct {
	// local run id. Passed to the orchestrator so its run is traceable back.
	RunId string

	// execution parameters forwarded as the run's conf.
	Conf map[string]string
}

type Client interface {
	// TriggerRun asks the orchestrator to start a run of the workflow.
	//
	// Returns
	//
	// - string: the orchestrator's own id for the started run.
	//
	// - error: ErrConnection-wrapped on transport failure.
	TriggerRun(ctx context.Context, workflowOrchestratorId string, params TriggerParams) (string, error)

	// GetRunState fetches the live state of a run.
	//
	// Returns
	//
	// - RunState
	//
	// - error: ErrRunNotFound when the orchestrator does not know the run;
	// ErrConnection-wrapped on transport failure.
	GetRunState(ctx context.Context, workflowOrchestratorId string, foreignRunId string) (RunState, error)

	// Pause suspends scheduling of the workflow in the orchestrator.
	Pause(ctx context.Context, workflowOrchestratorId string) error

	// Unpause resumes scheduling of the workflow.
	Unpause(ctx context.Context, workflowOrchestratorId string) error

	// StopRun asks the orchestrator to stop a run.
	//
	// Returns
	//
	// - bool: whether the orchestrator accepted the stop.
	//
	// - error: ErrRunNotFound | ErrConnection-wrapped.
	StopRun(ctx context.Context, workflowOrchestratorId string, foreignRunId string) (bool, error)
}

// Registry resolves a Client per orchestrator deployment.
type Registry interface {
	// Cluster returns the client for the given cluster id.
	//
	// The bool is false when no such cluster is configured.
	Cluster(clusterId string) (Client, bool)

	// DefaultClusterId returns the cluster new runs are dispatched to.
	DefaultClusterId() string
}

type registry struct {
	defaultId string
	clusters  map[string]Client
}

func NewRegistry(defaultId string, clusters map[string]Client) Registry {
	return &registry{defaultId: defaultId, clusters: clusters}
}

func (r *registry) Cluster(clusterId string) (Client, bool) {
	c, ok := r.clusters[clusterId]
	return c, ok
}

func (r *registry) DefaultClusterId() string {
	return r.defaultId
}
