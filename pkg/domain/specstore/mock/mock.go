package mock

import (
	"context"
	"errors"
	"sync"

	commonmock "github.com/tidesys/dagmirror/pkg/domain/internal/mock"
	"github.com/tidesys/dagmirror/pkg/domain/specstore"
)

type Store struct {
	mu sync.Mutex

	Impl struct {
		ListAllDocuments func(ctx context.Context) ([]string, error)
		Read             func(ctx context.Context, path string) ([]byte, error)
	}

	Calls struct {
		ListAllDocuments commonmock.CallLog[struct{}]
		Read             commonmock.CallLog[string]
	}
}

func New() *Store {
	return &Store{}
}

var _ specstore.Store = &Store{}

func (m *Store) ListAllDocuments(ctx context.Context) ([]string, error) {
	commonmock.Record(&m.mu, &m.Calls.ListAllDocuments, struct{}{})
	if m.Impl.ListAllDocuments != nil {
		return m.Impl.ListAllDocuments(ctx)
	}

	panic(errors.New("it should not be called"))
}

func (m *Store) Read(ctx context.Context, path string) ([]byte, error) {
	commonmock.Record(&m.mu, &m.Calls.Read, path)
	if m.Impl.Read != nil {
		return m.Impl.Read(ctx, path)
	}

	panic(errors.New("it should not be called"))
}
