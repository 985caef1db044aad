package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	apierr "github.com/tidesys/dagmirror/pkg/api/types/errors"
	apirun "github.com/tidesys/dagmirror/pkg/api/types/runs"
	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/errors/dberrors"
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator"
	rundb "github.com/tidesys/dagmirror/pkg/domain/run/db"
	"github.com/tidesys/dagmirror/pkg/utils/clock"
	kstrings "github.com/tidesys/dagmirror/pkg/utils/strings"
)

func FindRunHandler(dbRun rundb.Interface) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		query, err := func(c echo.Context) (domain.RunFindQuery, error) {

			result := domain.RunFindQuery{
				WorkflowName: kstrings.SplitIfNotEmpty(c.QueryParam("workflow"), ","),
				TriggeredBy:  kstrings.SplitIfNotEmpty(c.QueryParam("triggeredBy"), ","),
				ClusterId:    kstrings.SplitIfNotEmpty(c.QueryParam("cluster"), ","),
				Status:       []domain.RunStatus{},
				Type:         []domain.RunType{},
			}

			for _, p := range kstrings.SplitIfNotEmpty(c.QueryParam("status"), ",") {
				s, err := domain.AsRunStatus(p)
				if err != nil {
					return domain.RunFindQuery{}, apierr.BadRequest(
						`"status" should be one of "pending", "running", "success", "failed", "stopping", "stopped", "skipped" or "unknown"`,
						nil,
					)
				}
				result.Status = append(result.Status, s)
			}

			for _, p := range kstrings.SplitIfNotEmpty(c.QueryParam("type"), ",") {
				ty, err := domain.AsRunType(p)
				if err != nil {
					return domain.RunFindQuery{}, apierr.BadRequest(
						`"type" should be one of "manual", "scheduled" or "backfill"`,
						nil,
					)
				}
				result.Type = append(result.Type, ty)
			}

			if tracked := c.QueryParam("tracked"); tracked != "" {
				b, err := strconv.ParseBool(tracked)
				if err != nil {
					return domain.RunFindQuery{}, apierr.BadRequest(
						`"tracked" should be a boolean`, err,
					)
				}
				result.TrackedOnly = b
			}

			if since := c.QueryParam("since"); since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return domain.RunFindQuery{}, apierr.BadRequest(
						`"since" should be a RFC3339 date-time format`, err,
					)
				}
				result.StartedSince = &t
			}

			if duration := c.QueryParam("duration"); duration != "" {
				if result.StartedSince == nil {
					return domain.RunFindQuery{}, apierr.BadRequest(
						`"duration" requires "since"`, nil,
					)
				}
				d, err := time.ParseDuration(duration)
				if err != nil {
					return domain.RunFindQuery{}, apierr.BadRequest(
						`"duration" should be a Go duration format`, err,
					)
				}
				t := result.StartedSince.Add(d)
				result.StartedUntil = &t
			}

			if limit := c.QueryParam("limit"); limit != "" {
				n, err := strconv.Atoi(limit)
				if err != nil || n < 0 {
					return domain.RunFindQuery{}, apierr.BadRequest(
						`"limit" should be a non-negative integer`, err,
					)
				}
				result.Limit = n
			}

			if offset := c.QueryParam("offset"); offset != "" {
				n, err := strconv.Atoi(offset)
				if err != nil || n < 0 {
					return domain.RunFindQuery{}, apierr.BadRequest(
						`"offset" should be a non-negative integer`, err,
					)
				}
				result.Offset = n
			}

			return result, nil
		}(c)

		if err != nil {
			return err
		}
		ctx := c.Request().Context()

		runIds, err := dbRun.Find(ctx, query)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		result, err := dbRun.Get(ctx, runIds)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := make([]apirun.Detail, 0, len(result))
		for _, r := range runIds {
			resp = append(resp, apirun.ComposeDetail(result[r]))
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func GetRunHandler(dbRun rundb.Interface) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		runId := c.Param("runId")
		ctx := c.Request().Context()

		runs, err := dbRun.Get(ctx, []string{runId})
		if err != nil {
			return apierr.InternalServerError(err)
		}

		run, ok := runs[runId]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusOK, apirun.ComposeDetail(run))
	}
}

// StopRunHandler requests a stop, relays it to the orchestrator when the Run
// is tracked, and completes the stop locally when the orchestrator accepted
// it (or there is nothing to stop remotely).
func StopRunHandler(
	dbRun rundb.Interface,
	registry orchestrator.Registry,
	runIdParam string,
	clk clock.Clock,
) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		runId := c.Param(runIdParam)
		ctx := c.Request().Context()

		req := apirun.StopRequest{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest(`body should be a json: {"by": ..., "reason": ...}`, err)
		}

		runs, err := dbRun.Get(ctx, []string{runId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		run, ok := runs[runId]
		if !ok {
			return apierr.NotFound()
		}

		stopping, err := run.RequestStop(req.By, req.Reason, clk.Now())
		if err != nil {
			if errors.Is(err, domain.ErrInvalidRunTransition) {
				return apierr.Conflict("run is not stoppable", apierr.WithError(err))
			}
			return apierr.InternalServerError(err)
		}
		if err := dbRun.Save(ctx, stopping); err != nil {
			if errors.Is(err, dberrors.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		accepted := true
		if stopping.OrchestratorRunId != "" {
			clusterId := stopping.OrchestratorClusterId
			if clusterId == "" {
				clusterId = registry.DefaultClusterId()
			}
			client, ok := registry.Cluster(clusterId)
			if !ok {
				return apierr.InternalServerError(
					errors.New("no orchestrator cluster configured: " + clusterId),
				)
			}

			accepted, err = client.StopRun(
				ctx,
				domain.DeriveOrchestratorId(stopping.WorkflowName),
				stopping.OrchestratorRunId,
			)
			if err != nil && !errors.Is(err, orchestrator.ErrRunNotFound) {
				// stop request is recorded; the next sync settles the rest
				return apierr.ServiceUnavailable("orchestrator is unreachable. retry later.", err)
			}
		}

		if !accepted {
			// already finished on the orchestrator side. leave it to the sync loop.
			return c.JSON(http.StatusAccepted, apirun.ComposeDetail(stopping))
		}

		stopped, err := stopping.CompleteStop(clk.Now())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if err := dbRun.Save(ctx, stopped); err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, apirun.ComposeDetail(stopped))
	}
}
