package postgres

import (
	"context"

	kpool "github.com/tidesys/dagmirror/pkg/conn/db/postgres/pool"
	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/errors/dberrors"
	wfdb "github.com/tidesys/dagmirror/pkg/domain/workflow/db"
	xe "github.com/tidesys/dagmirror/pkg/xerrors"
)

// a struct for DB operations related to Workflow
type workflowPG struct { // implements wfdb.Interface
	pool kpool.Pool
}

func New(pool kpool.Pool) *workflowPG {
	return &workflowPG{pool: pool}
}

var _ wfdb.Interface = &workflowPG{}

func (m *workflowPG) Get(ctx context.Context, name []string) (map[string]domain.Workflow, error) {
	rows, err := m.pool.Query(
		ctx,
		`
		select
			"name", "owner", "team", "description",
			"source_type", "spec_path",
			"schedule_cron", "schedule_timezone",
			"status", "orchestrator_id", "updated_at"
		from "workflow" where "name" = any($1)
		`,
		name,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := map[string]domain.Workflow{}
	for rows.Next() {
		var (
			w          domain.Workflow
			sourceType string
			status     string
		)
		if err := rows.Scan(
			&w.Name, &w.Owner, &w.Team, &w.Description,
			&sourceType, &w.SpecPath,
			&w.ScheduleCron, &w.ScheduleTimezone,
			&status, &w.OrchestratorId, &w.UpdatedAt,
		); err != nil {
			return nil, xe.Wrap(err)
		}
		w.SourceType = domain.WorkflowSourceType(sourceType)
		w.Status = domain.WorkflowStatus(status)

		result[w.Name] = w
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}

	return result, nil
}

func (m *workflowPG) ListNames(ctx context.Context) ([]string, error) {
	rows, err := m.pool.Query(ctx, `select "name" from "workflow" order by "name"`)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, xe.Wrap(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}

	return names, nil
}

func (m *workflowPG) Save(ctx context.Context, workflow domain.Workflow) (bool, error) {
	// Reconciliation overwrites the spec-governed fields unconditionally
	// ("spec store wins"), but a disabled status is preserved as-is.
	var created bool
	if err := m.pool.QueryRow(
		ctx,
		`
		insert into "workflow" (
			"name", "owner", "team", "description",
			"source_type", "spec_path",
			"schedule_cron", "schedule_timezone",
			"status", "orchestrator_id", "updated_at"
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		on conflict ("name") do update set
			"owner" = excluded."owner",
			"team" = excluded."team",
			"description" = excluded."description",
			"source_type" = excluded."source_type",
			"spec_path" = excluded."spec_path",
			"schedule_cron" = excluded."schedule_cron",
			"schedule_timezone" = excluded."schedule_timezone",
			"status" = case
				when "workflow"."status" = 'disabled' then "workflow"."status"
				else excluded."status"
			end,
			"orchestrator_id" = excluded."orchestrator_id",
			"updated_at" = now()
		returning (xmax = 0)
		`,
		workflow.Name, workflow.Owner, workflow.Team, workflow.Description,
		string(workflow.SourceType), workflow.SpecPath,
		workflow.ScheduleCron, workflow.ScheduleTimezone,
		string(workflow.Status), workflow.OrchestratorId,
	).Scan(&created); err != nil {
		return false, xe.Wrap(err)
	}

	return created, nil
}

func (m *workflowPG) SetStatus(ctx context.Context, name string, status domain.WorkflowStatus) error {
	tag, err := m.pool.Exec(
		ctx,
		`update "workflow" set "status" = $2, "updated_at" = now() where "name" = $1`,
		name, string(status),
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() < 1 {
		return dberrors.Missing{Table: "workflow", Identity: name}
	}

	return nil
}
