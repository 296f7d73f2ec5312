package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/weeklog/internal/buildinfo"
	"github.com/dmitrijs2005/weeklog/internal/client/cli"
	"github.com/dmitrijs2005/weeklog/internal/client/config"
	"github.com/dmitrijs2005/weeklog/internal/client/metrics"
	"github.com/dmitrijs2005/weeklog/internal/client/services"
	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/dmitrijs2005/weeklog/internal/logging"
	"github.com/dmitrijs2005/weeklog/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	log, closer, err := logging.New(logging.Options{File: cfg.LogFile, Debug: cfg.Debug})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, common.AppName, buildinfo.Version())
	if err != nil {
		log.Warn(ctx, "tracing disabled", "err", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn(ctx, "tracer shutdown failed", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, log); err != nil {
				log.Error(ctx, "metrics endpoint stopped", "err", err)
			}
		}()
	}

	app, err := cli.Build(ctx, cfg, log, services.WithMetrics(m))
	if err != nil {
		return err
	}
	app.Run(ctx)
	return nil
}
