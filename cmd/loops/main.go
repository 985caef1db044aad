package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tidesys/dagmirror/cmd/loops/recurring"
	configs "github.com/tidesys/dagmirror/pkg/configs/backend"
	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/dagmirror"
	"github.com/tidesys/dagmirror/pkg/utils/args"
	"github.com/tidesys/dagmirror/pkg/utils/filewatch"
	"github.com/tidesys/dagmirror/pkg/utils/try"
)

func main() {
	logger := prefixed(log.Default(), "")
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("DAGMIRROR_BACKEND_CONFIG"), "path to config file",
	)
	loopType := args.Parser(domain.AsLoopType)
	flag.Var(loopType, "type", "one of loop type (spec_reconcile|run_sync)")
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog|until-error:POLICY).`+
			` "forever[:COOLDOWN]" = run forever. When a pass finds no backlog, `+
			`wait COOLDOWN (optional duration; default: the configured interval) before the next.`+
			` "backlog" = run until the backlog is over.`+
			` "until-error:POLICY" = run POLICY, but stop at the first failing pass.`,
	)
	flag.Parse()

	if !loopType.IsSet() {
		logger.Fatal("-type is required")
	}

	{
		// config changes restart the process via the supervisor
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadBackendConfig(*pconfig)).OrFatal(logger)

	dm := try.To(dagmirror.New(ctx, conf)).OrFatal(logger)
	defer dm.Close()

	pol := policy.Value()
	if !policy.IsSet() {
		switch loopType.Value() {
		case domain.RunSync:
			pol = recurring.Forever(conf.Sync().RunSyncInterval())
		default:
			pol = recurring.Forever(conf.Sync().SpecReconcileInterval())
		}
	}

	logger.Printf(
		`start loop "%s" /w policy "%s"`,
		loopType.Value().String(), pol.String(),
	)

	err := StartLoop(
		ctx, logger, dm,
		LoopManifest{Type: loopType.Value(), Policy: pol},
	)

	if err == nil {
		return
	} else if errors.Is(err, context.Canceled) {
		logger.Fatal(err, "(loop context is cancelled by:", context.Cause(ctx), ")")
	}

	logger.Fatal(err)
}
