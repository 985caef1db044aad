package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	kpool "github.com/tidesys/dagmirror/pkg/conn/db/postgres/pool"
	dbInterface "github.com/tidesys/dagmirror/pkg/domain/dagmirror/db"
	drun "github.com/tidesys/dagmirror/pkg/domain/run/db"
	pgrun "github.com/tidesys/dagmirror/pkg/domain/run/db/postgres"
	dworkflow "github.com/tidesys/dagmirror/pkg/domain/workflow/db"
	pgworkflow "github.com/tidesys/dagmirror/pkg/domain/workflow/db/postgres"
	xe "github.com/tidesys/dagmirror/pkg/xerrors"
)

type dagmirrorDBPostgres struct {
	pool     *pgxpool.Pool
	run      drun.Interface
	workflow dworkflow.Interface
}

func New(ctx context.Context, url string) (dbInterface.Database, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	p := kpool.Wrap(pool)

	return &dagmirrorDBPostgres{
		pool:     pool,
		run:      pgrun.New(p),
		workflow: pgworkflow.New(p),
	}, nil
}

func (d *dagmirrorDBPostgres) Run() drun.Interface {
	return d.run
}

func (d *dagmirrorDBPostgres) Workflow() dworkflow.Interface {
	return d.workflow
}

func (d *dagmirrorDBPostgres) Close() error {
	d.pool.Close()
	return nil
}
