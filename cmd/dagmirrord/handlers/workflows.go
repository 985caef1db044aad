package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	apierr "github.com/tidesys/dagmirror/pkg/api/types/errors"
	apirun "github.com/tidesys/dagmirror/pkg/api/types/runs"
	apiwf "github.com/tidesys/dagmirror/pkg/api/types/workflows"
	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/errors/dberrors"
	"github.com/tidesys/dagmirror/pkg/domain/orchestrator"
	rundb "github.com/tidesys/dagmirror/pkg/domain/run/db"
	wfdb "github.com/tidesys/dagmirror/pkg/domain/workflow/db"
	"github.com/tidesys/dagmirror/pkg/utils/clock"
)

func FindWorkflowHandler(dbWf wfdb.Interface) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		names, err := dbWf.ListNames(ctx)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		workflows, err := dbWf.Get(ctx, names)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := make([]apiwf.Detail, 0, len(names))
		for _, name := range names {
			if w, ok := workflows[name]; ok {
				resp = append(resp, apiwf.ComposeDetail(w))
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func GetWorkflowHandler(dbWf wfdb.Interface, nameParam string) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		name := c.Param(nameParam)
		ctx := c.Request().Context()

		workflows, err := dbWf.Get(ctx, []string{name})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		workflow, ok := workflows[name]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusOK, apiwf.ComposeDetail(workflow))
	}
}

// SetWorkflowStatusHandler enables or disables a Workflow, and relays the
// change to the orchestrator (pause on disable, unpause on enable).
//
// The local status is recorded before the relay: a disabled Workflow stays
// disabled here even when the orchestrator is unreachable.
func SetWorkflowStatusHandler(
	dbWf wfdb.Interface,
	registry orchestrator.Registry,
	nameParam string,
) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		name := c.Param(nameParam)
		ctx := c.Request().Context()

		req := apiwf.StatusChangeRequest{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest(`body should be a json: {"status": "active"|"disabled"}`, err)
		}
		status, err := domain.AsWorkflowStatus(req.Status)
		if err != nil {
			return apierr.BadRequest(`"status" should be "active" or "disabled"`, err)
		}

		if err := dbWf.SetStatus(ctx, name, status); err != nil {
			if errors.Is(err, dberrors.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		client, ok := registry.Cluster(registry.DefaultClusterId())
		if ok {
			relay := client.Unpause
			if status == domain.WorkflowDisabled {
				relay = client.Pause
			}
			if err := relay(ctx, domain.DeriveOrchestratorId(name)); err != nil {
				// status change is recorded; scheduling state settles on retry
				return apierr.ServiceUnavailable("orchestrator is unreachable. retry later.", err)
			}
		}

		workflows, err := dbWf.Get(ctx, []string{name})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		workflow, ok := workflows[name]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusOK, apiwf.ComposeDetail(workflow))
	}
}

// TriggerRunHandler creates a manual Run of a Workflow and dispatches it to
// the orchestrator.
//
// The Run is created pending first, so a trace exists even when dispatching
// fails: on orchestrator trouble the Run is marked failed and 503 returned.
func TriggerRunHandler(
	dbRun rundb.Interface,
	dbWf wfdb.Interface,
	registry orchestrator.Registry,
	nameParam string,
	clk clock.Clock,
) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		name := c.Param(nameParam)
		ctx := c.Request().Context()

		req := apirun.TriggerRequest{}
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest(`body should be a json: {"triggeredBy": ...}`, err)
		}
		if req.TriggeredBy == "" {
			return apierr.BadRequest(`"triggeredBy" is required`, nil)
		}

		workflows, err := dbWf.Get(ctx, []string{name})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		workflow, ok := workflows[name]
		if !ok {
			return apierr.NotFound()
		}
		if workflow.Status == domain.WorkflowDisabled {
			return apierr.Conflict("workflow is disabled")
		}

		clusterId := req.ClusterId
		if clusterId == "" {
			clusterId = registry.DefaultClusterId()
		}
		client, ok := registry.Cluster(clusterId)
		if !ok {
			return apierr.BadRequest(`"clusterId" points at no configured cluster`, nil)
		}

		runId, err := dbRun.New(ctx, rundb.NewRun{
			WorkflowName:          name,
			Type:                  domain.ManualRun,
			TriggeredBy:           req.TriggeredBy,
			OrchestratorClusterId: clusterId,
		})
		if err != nil {
			return apierr.InternalServerError(err)
		}

		runs, err := dbRun.Get(ctx, []string{runId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		run, ok := runs[runId]
		if !ok {
			return apierr.InternalServerError(errors.New("created run is missing: " + runId))
		}

		foreignRunId, err := client.TriggerRun(ctx, workflow.OrchestratorId, orchestrator.TriggerParams{
			RunId: runId,
			Conf:  req.Params,
		})
		if err != nil {
			if failed, ferr := run.Fail(clk.Now()); ferr == nil {
				if serr := dbRun.Save(ctx, failed); serr != nil {
					c.Logger().Errorf("cannot record dispatch failure of run %s: %s", runId, serr)
				}
			}
			return apierr.ServiceUnavailable("orchestrator is unreachable. retry later.", err)
		}

		run.OrchestratorRunId = foreignRunId
		started, err := run.Start(clk.Now())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if err := dbRun.Save(ctx, started); err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusCreated, apirun.ComposeDetail(started))
	}
}
