package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apierr "github.com/tidesys/dagmirror/pkg/api/types/errors"
	apisync "github.com/tidesys/dagmirror/pkg/api/types/sync"
	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/sync/runsync"
	"github.com/tidesys/dagmirror/pkg/sync/specsync"
	"golang.org/x/sync/singleflight"
)

// SyncNowHandler runs one spec reconciliation pass on demand.
//
// Requests arriving while a pass is in flight are collapsed onto it and all
// receive that pass's result, so the API cannot be used to stack concurrent
// passes.
func SyncNowHandler(reconciler *specsync.Reconciler) echo.HandlerFunc {
	group := &singleflight.Group{}

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		result, _, _ := group.Do("spec-reconcile", func() (interface{}, error) {
			return reconciler.ReconcileAll(ctx), nil
		})

		return c.JSON(http.StatusOK, apisync.ComposeResult(result.(domain.SyncResult)))
	}
}

func SyncStatsHandler(reconciler *runsync.Reconciler) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		ctx := c.Request().Context()

		stats, err := reconciler.Stats(ctx, c.QueryParam("cluster"))
		if err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusOK, apisync.ComposeStats(stats))
	}
}
