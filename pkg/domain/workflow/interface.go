package workflow

import (
	"github.com/tidesys/dagmirror/pkg/domain/specstore"
	"github.com/tidesys/dagmirror/pkg/domain/workflow/db"
)

type Interface interface {
	Database() db.Interface
	SpecStore() specstore.Store
}

type impl struct {
	db    db.Interface
	store specstore.Store
}

func New(db db.Interface, store specstore.Store) Interface {
	return &impl{db: db, store: store}
}

func (i *impl) Database() db.Interface {
	return i.db
}

func (i *impl) SpecStore() specstore.Store {
	return i.store
}
