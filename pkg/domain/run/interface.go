package run

import (
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator"
	"github.com/tidesys/dagmirror/pkg/domain/run/db"
)

type Interface interface {
	Database() db.Interface
	Orchestrator() orchestrator.Registry
}

type impl struct {
	db           db.Interface
	orchestrator orchestrator.Registry
}

func New(db db.Interface, orchestrator orchestrator.Registry) Interface {
	return &impl{db: db, orchestrator: orchestrator}
}

func (i *impl) Database() db.Interface {
	return i.db
}

func (i *impl) Orchestrator() orchestrator.Registry {
	return i.orchestrator
}
