package db

import (
	"context"

	"github.com/tidesys/dagmirror/pkg/domain"
)

type Interface interface {
	// Get retrieves Workflows by name.
	//
	// Returns
	//
	// - map[string]domain.Workflow: mapping name -> Workflow.
	// Missing names are absent from the map, not an error.
	//
	// - error
	Get(ctx context.Context, name []string) (map[string]domain.Workflow, error)

	// ListNames returns all Workflow names, ordered.
	ListNames(ctx context.Context) ([]string, error)

	// Save writes the Workflow, creating it when absent.
	//
	// A stored "disabled" status is preserved even when the passed
	// Workflow says "active". Use SetStatus to re-enable.
	//
	// Returns
	//
	// - bool: true when the Workflow was created, false when updated.
	//
	// - error
	Save(ctx context.Context, workflow domain.Workflow) (created bool, err error)

	// SetStatus enables or disables a Workflow explicitly.
	//
	// Reconciliation never calls this: a disabled Workflow stays disabled
	// until an operator acts.
	//
	// Returns
	//
	// - error: dberrors.ErrMissing when no Workflow has the name.
	SetStatus(ctx context.Context, name string, status domain.WorkflowStatus) error
}
