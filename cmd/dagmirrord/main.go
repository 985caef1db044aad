package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	configs "github.com/tidesys/dagmirror/pkg/configs/backend"
	"github.com/tidesys/dagmirror/pkg/domain/dagmirror"
	"github.com/tidesys/dagmirror/pkg/sync/runsync"
	"github.com/tidesys/dagmirror/pkg/sync/specsync"
	"github.com/tidesys/dagmirror/pkg/utils/clock"
	"github.com/tidesys/dagmirror/pkg/utils/echoutil"
	"github.com/tidesys/dagmirror/pkg/utils/filewatch"
	"github.com/tidesys/dagmirror/pkg/utils/try"

	"github.com/tidesys/dagmirror/cmd/dagmirrord/handlers"
)

func main() {
	configPath := flag.String(
		"config", os.Getenv("DAGMIRROR_BACKEND_CONFIG"), "path to config file",
	)
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	defer cancel()

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	{
		// config changes restart the process via the supervisor
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *configPath)
		if err != nil {
			log.Fatalf("can not watch configuration: %s", err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadBackendConfig(*configPath)).OrFatal(log.Default())

	dm := try.To(dagmirror.New(ctx, conf)).OrFatal(log.Default())
	defer dm.Close()

	clk := clock.System()
	specReconciler := specsync.New(
		dm.Workflow().SpecStore(), dm.Workflow().Database(), clk,
	)
	runReconciler := runsync.New(
		dm.Run().Database(), dm.Run().Orchestrator(),
		runsync.WithConcurrency(conf.Sync().Concurrency()),
		runsync.WithStaleThreshold(conf.Sync().StalenessThreshold()),
	)

	{
		dbRun := dm.Run().Database()
		registry := dm.Run().Orchestrator()

		e.GET("/api/runs/", handlers.FindRunHandler(dbRun))
		e.GET("/api/runs/:runId/", handlers.GetRunHandler(dbRun))
		e.POST("/api/runs/:runId/stop/", handlers.StopRunHandler(dbRun, registry, "runId", clk))

		dbWf := dm.Workflow().Database()

		e.GET("/api/workflows/", handlers.FindWorkflowHandler(dbWf))
		e.GET("/api/workflows/:name/", handlers.GetWorkflowHandler(dbWf, "name"))
		e.PUT(
			"/api/workflows/:name/status/",
			handlers.SetWorkflowStatusHandler(dbWf, registry, "name"),
		)
		e.POST(
			"/api/workflows/:name/runs/",
			handlers.TriggerRunHandler(dbRun, dbWf, registry, "name", clk),
		)

		e.POST("/api/sync/", handlers.SyncNowHandler(specReconciler))
		e.GET("/api/sync/stats/", handlers.SyncStatsHandler(runReconciler))
	}

	log.Println("registered routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	context.AfterFunc(ctx, func() {
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			log.Printf("error on shutdown: %s", err)
		}
	})

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", conf.Port())))
}
