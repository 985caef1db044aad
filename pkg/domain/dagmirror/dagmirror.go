package dagmirror

import (
	"context"

	bconf "github.com/tidesys/dagmirror/pkg/configs/backend"
	"github.com/tidesys/dagmirror/pkg/domain/dagmirror/db/postgres"
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator"
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator/airflow"
	"github.com/tidesys/dagmirror/pkg/domain/run"
	"github.com/tidesys/dagmirror/pkg/domain/specstore/fs"
	"github.com/tidesys/dagmirror/pkg/domain/workflow"
)

type Dagmirror interface {
	Config() *bconf.BackendConfig

	Run() run.Interface
	Workflow() workflow.Interface

	Close() error
}

type dagmirror struct {
	config *bconf.BackendConfig

	run      run.Interface
	workflow workflow.Interface

	close func() error
}

// New assembles the whole backend from config: postgres repositories,
// the spec store rooted at config.SpecStore().Root(), and one Airflow
// client per configured orchestrator cluster.
func New(
	ctx context.Context,
	config *bconf.BackendConfig,
) (Dagmirror, error) {
	database, err := postgres.New(ctx, config.Database())
	if err != nil {
		return nil, err
	}

	clusters := map[string]orchestrator.Client{}
	for id, c := range config.Orchestrator().Clusters() {
		clusters[id] = airflow.New(airflow.Config{
			Endpoint: c.Endpoint(),
			Username: c.Username(),
			Password: c.Password(),
			Timeout:  c.Timeout(),
			Attempts: c.Attempts(),
		})
	}
	registry := orchestrator.NewRegistry(
		config.Orchestrator().DefaultCluster(), clusters,
	)

	store := fs.New(config.SpecStore().Root())

	return &dagmirror{
		config:   config,
		run:      run.New(database.Run(), registry),
		workflow: workflow.New(database.Workflow(), store),
		close:    database.Close,
	}, nil
}

func (d *dagmirror) Config() *bconf.BackendConfig {
	return d.config
}

func (d *dagmirror) Run() run.Interface {
	return d.run
}

func (d *dagmirror) Workflow() workflow.Interface {
	return d.workflow
}

func (d *dagmirror) Close() error {
	return d.close()
}
