package db

import (
	drun "github.com/tidesys/dagmirror/pkg/domain/run/db"
	dworkflow "github.com/tidesys/dagmirror/pkg/domain/workflow/db"
)

type Database interface {
	Run() drun.Interface
	Workflow() dworkflow.Interface
	Close() error
}
