package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tidesys/dagmirror/pkg/domain"
	commonmock "github.com/tidesys/dagmirror/pkg/domain/internal/mock"
	rundb "github.com/tidesys/dagmirror/pkg/domain/run/db"
)

type RunInterface struct {
	mu sync.Mutex

	Impl struct {
		New       func(ctx context.Context, spec rundb.NewRun) (string, error)
		Get       func(ctx context.Context, runId []string) (map[string]domain.Run, error)
		Find      func(ctx context.Context, query domain.RunFindQuery) ([]string, error)
		Save      func(ctx context.Context, run domain.Run) error
		SyncStats func(ctx context.Context, clusterId string, staleThreshold time.Duration) (domain.SyncStats, error)
	}

	Calls struct {
		New  commonmock.CallLog[rundb.NewRun]
		Get  commonmock.CallLog[[]string]
		Find commonmock.CallLog[domain.RunFindQuery]
		Save commonmock.CallLog[domain.Run]
		SyncStats commonmock.CallLog[struct {
			ClusterId      string
			StaleThreshold time.Duration
		}]
	}
}

func NewRunInterface() *RunInterface {
	return &RunInterface{}
}

var _ rundb.Interface = &RunInterface{}

func (m *RunInterface) New(ctx context.Context, spec rundb.NewRun) (string, error) {
	commonmock.Record(&m.mu, &m.Calls.New, spec)
	if m.Impl.New != nil {
		return m.Impl.New(ctx, spec)
	}

	panic(errors.New("it should not be called"))
}

func (m *RunInterface) Get(ctx context.Context, runId []string) (map[string]domain.Run, error) {
	commonmock.Record(&m.mu, &m.Calls.Get, runId)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, runId)
	}

	panic(errors.New("it should not be called"))
}

func (m *RunInterface) Find(ctx context.Context, query domain.RunFindQuery) ([]string, error) {
	commonmock.Record(&m.mu, &m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}

	panic(errors.New("it should not be called"))
}

func (m *RunInterface) Save(ctx context.Context, run domain.Run) error {
	commonmock.Record(&m.mu, &m.Calls.Save, run)
	if m.Impl.Save != nil {
		return m.Impl.Save(ctx, run)
	}

	panic(errors.New("it should not be called"))
}

func (m *RunInterface) SyncStats(
	ctx context.Context, clusterId string, staleThreshold time.Duration,
) (domain.SyncStats, error) {
	commonmock.Record(&m.mu, &m.Calls.SyncStats, struct {
		ClusterId      string
		StaleThreshold time.Duration
	}{ClusterId: clusterId, StaleThreshold: staleThreshold})
	if m.Impl.SyncStats != nil {
		return m.Impl.SyncStats(ctx, clusterId, staleThreshold)
	}

	panic(errors.New("it should not be called"))
}
