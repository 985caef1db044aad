package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/tidesys/dagmirror/pkg/domain"
	commonmock "github.com/tidesys/dagmirror/pkg/domain/internal/mock"
	wfdb "github.com/tidesys/dagmirror/pkg/domain/workflow/db"
)

type WorkflowInterface struct {
	mu sync.Mutex

	Impl struct {
		Get       func(ctx context.Context, name []string) (map[string]domain.Workflow, error)
		ListNames func(ctx context.Context) ([]string, error)
		Save      func(ctx context.Context, workflow domain.Workflow) (bool, error)
		SetStatus func(ctx context.Context, name string, status domain.WorkflowStatus) error
	}

	Calls struct {
		Get       commonmock.CallLog[[]string]
		ListNames commonmock.CallLog[struct{}]
		Save      commonmock.CallLog[domain.Workflow]
		SetStatus commonmock.CallLog[struct {
			Name   string
			Status domain.WorkflowStatus
		}]
	}
}

func NewWorkflowInterface() *WorkflowInterface {
	return &WorkflowInterface{}
}

var _ wfdb.Interface = &WorkflowInterface{}

func (m *WorkflowInterface) Get(ctx context.Context, name []string) (map[string]domain.Workflow, error) {
	commonmock.Record(&m.mu, &m.Calls.Get, name)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, name)
	}

	panic(errors.New("it should not be called"))
}

func (m *WorkflowInterface) ListNames(ctx context.Context) ([]string, error) {
	commonmock.Record(&m.mu, &m.Calls.ListNames, struct{}{})
	if m.Impl.ListNames != nil {
		return m.Impl.ListNames(ctx)
	}

	panic(errors.New("it should not be called"))
}

func (m *WorkflowInterface) Save(ctx context.Context, workflow domain.Workflow) (bool, error) {
	commonmock.Record(&m.mu, &m.Calls.Save, workflow)
	if m.Impl.Save != nil {
		return m.Impl.Save(ctx, workflow)
	}

	panic(errors.New("it should not be called"))
}

func (m *WorkflowInterface) SetStatus(ctx context.Context, name string, status domain.WorkflowStatus) error {
	commonmock.Record(&m.mu, &m.Calls.SetStatus, struct {
		Name   string
		Status domain.WorkflowStatus
	}{Name: name, Status: status})
	if m.Impl.SetStatus != nil {
		return m.Impl.SetStatus(ctx, name, status)
	}

	panic(errors.New("it should not be called"))
}
