package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	kpool "github.com/tidesys/dagmirror/pkg/conn/db/postgres/pool"
	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/errors/dberrors"
	rundb "github.com/tidesys/dagmirror/pkg/domain/run/db"
	xe "github.com/tidesys/dagmirror/pkg/xerrors"
)

// a struct for DB operations related to Run
type runPG struct { // implements rundb.Interface
	pool kpool.Pool
}

func New(pool kpool.Pool) *runPG {
	return &runPG{pool: pool}
}

var _ rundb.Interface = &runPG{}

func (m *runPG) New(ctx context.Context, spec rundb.NewRun) (string, error) {
	runId := uuid.NewString()

	if _, err := m.pool.Exec(
		ctx,
		`
		insert into "run" (
			"run_id", "workflow_name", "status", "run_type", "triggered_by",
			"orchestrator_cluster_id"
		) values ($1, $2, $3, $4, $5, $6)
		`,
		runId, spec.WorkflowName, string(domain.Pending), string(spec.Type),
		spec.TriggeredBy, spec.OrchestratorClusterId,
	); err != nil {
		return "", xe.Wrap(err)
	}

	return runId, nil
}

func (m *runPG) Get(ctx context.Context, runId []string) (map[string]domain.Run, error) {
	rows, err := m.pool.Query(
		ctx,
		`
		select
			"run_id", "workflow_name", "status", "run_type", "triggered_by",
			"started_at", "ended_at",
			"stopped_by", "stop_reason", "stopped_at",
			coalesce("orchestrator_run_id", ''), "orchestrator_cluster_id",
			"raw_foreign_status", "last_synced_at", "task_progress", "url"
		from "run" where "run_id" = any($1)
		`,
		runId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := map[string]domain.Run{}
	for rows.Next() {
		var (
			r         domain.Run
			status    string
			runType   string
			stoppedBy *string
			reason    *string
			stoppedAt *time.Time
			progress  []byte
		)
		if err := rows.Scan(
			&r.Id, &r.WorkflowName, &status, &runType, &r.TriggeredBy,
			&r.StartedAt, &r.EndedAt,
			&stoppedBy, &reason, &stoppedAt,
			&r.OrchestratorRunId, &r.OrchestratorClusterId,
			&r.RawForeignStatus, &r.LastSyncedAt, &progress, &r.URL,
		); err != nil {
			return nil, xe.Wrap(err)
		}

		if r.Status, err = domain.AsRunStatus(status); err != nil {
			return nil, xe.Wrap(err)
		}
		if r.Type, err = domain.AsRunType(runType); err != nil {
			return nil, xe.Wrap(err)
		}
		if stoppedAt != nil {
			stop := domain.RunStop{At: *stoppedAt}
			if stoppedBy != nil {
				stop.By = *stoppedBy
			}
			if reason != nil {
				stop.Reason = *reason
			}
			r.Stop = &stop
		}
		r.TaskProgress = progress

		result[r.Id] = r
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}

	return result, nil
}

func (m *runPG) Find(ctx context.Context, query domain.RunFindQuery) ([]string, error) {
	conds := []string{"true"}
	params := []interface{}{}

	param := func(v interface{}) string {
		params = append(params, v)
		return fmt.Sprintf("$%d", len(params))
	}

	if 0 < len(query.WorkflowName) {
		conds = append(conds, `"workflow_name" = any(`+param(query.WorkflowName)+`)`)
	}
	if 0 < len(query.Status) {
		statuses := make([]string, 0, len(query.Status))
		for _, s := range query.Status {
			statuses = append(statuses, string(s))
		}
		conds = append(conds, `"status" = any(`+param(statuses)+`)`)
	}
	if 0 < len(query.Type) {
		types := make([]string, 0, len(query.Type))
		for _, t := range query.Type {
			types = append(types, string(t))
		}
		conds = append(conds, `"run_type" = any(`+param(types)+`)`)
	}
	if 0 < len(query.TriggeredBy) {
		conds = append(conds, `"triggered_by" = any(`+param(query.TriggeredBy)+`)`)
	}
	if 0 < len(query.ClusterId) {
		conds = append(conds, `"orchestrator_cluster_id" = any(`+param(query.ClusterId)+`)`)
	}
	if query.TrackedOnly {
		conds = append(conds, `"orchestrator_run_id" is not null`)
	}
	if query.StartedSince != nil {
		conds = append(conds, `"started_at" >= `+param(*query.StartedSince))
	}
	if query.StartedUntil != nil {
		conds = append(conds, `"started_at" < `+param(*query.StartedUntil))
	}

	sql := `select "run_id" from "run" where ` + strings.Join(conds, " and ") +
		` order by "created_at", "run_id"`
	if 0 < query.Limit {
		sql += ` limit ` + param(query.Limit)
	}
	if 0 < query.Offset {
		sql += ` offset ` + param(query.Offset)
	}

	rows, err := m.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	runIds := []string{}
	for rows.Next() {
		var runId string
		if err := rows.Scan(&runId); err != nil {
			return nil, xe.Wrap(err)
		}
		runIds = append(runIds, runId)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}

	return runIds, nil
}

func (m *runPG) Save(ctx context.Context, run domain.Run) error {
	var stoppedBy, stopReason *string
	var stoppedAt *time.Time
	if run.Stop != nil {
		stoppedBy = &run.Stop.By
		stopReason = &run.Stop.Reason
		at := run.Stop.At
		stoppedAt = &at
	}

	var orchestratorRunId *string
	if run.OrchestratorRunId != "" {
		orchestratorRunId = &run.OrchestratorRunId
	}

	var progress []byte
	if run.TaskProgress != nil {
		progress = run.TaskProgress
	}

	tag, err := m.pool.Exec(
		ctx,
		`
		update "run" set
			"status" = $2,
			"started_at" = $3,
			"ended_at" = $4,
			"stopped_by" = $5,
			"stop_reason" = $6,
			"stopped_at" = $7,
			"orchestrator_run_id" = $8,
			"raw_foreign_status" = $9,
			"last_synced_at" = greatest("last_synced_at", $10),
			"task_progress" = $11,
			"url" = $12
		where "run_id" = $1
		`,
		run.Id, string(run.Status),
		run.StartedAt, run.EndedAt,
		stoppedBy, stopReason, stoppedAt,
		orchestratorRunId, run.RawForeignStatus,
		run.LastSyncedAt, progress, run.URL,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if tag.RowsAffected() < 1 {
		return dberrors.Missing{Table: "run", Identity: run.Id}
	}

	return nil
}

func (m *runPG) SyncStats(
	ctx context.Context, clusterId string, staleThreshold time.Duration,
) (domain.SyncStats, error) {
	terminal := []string{
		string(domain.Success), string(domain.Failed),
		string(domain.Stopped), string(domain.Skipped),
	}

	stats := domain.SyncStats{}
	if err := m.pool.QueryRow(
		ctx,
		`
		select
			count(*),
			count(*) filter (where "last_synced_at" is not null),
			count(*) filter (where "last_synced_at" is null),
			count(*) filter (
				where not ("status" = any($3))
					and ("last_synced_at" is null or "last_synced_at" < now() - $2)
			)
		from "run"
		where "orchestrator_run_id" is not null
			and ($1 = '' or "orchestrator_cluster_id" = $1)
		`,
		clusterId, staleThreshold, terminal,
	).Scan(&stats.Total, &stats.Synced, &stats.PendingSync, &stats.Stale); err != nil {
		return domain.SyncStats{}, xe.Wrap(err)
	}

	return stats, nil
}
