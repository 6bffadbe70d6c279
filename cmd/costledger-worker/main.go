package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"costledger/internal/amqp"
	"costledger/internal/cache"
	"costledger/internal/cli"
	applog "costledger/internal/log"
	"costledger/internal/worker"
)

const (
	refreshInterval = 15 * time.Minute
	sweepInterval   = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stdout).WithComponent(applog.ComponentWorker)
	logger.Info("Starting costledger-worker")

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(context.Background(), logger)
	defer stop()

	// The worker only consumes; it never republishes the events it reads.
	res, err := cli.OpenLedger(ctx, cfg, logger, cli.LedgerOptions{})
	if err != nil {
		logger.Error("Failed to open ledger", applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Failed to close ledger", applog.FieldError, err)
		}
	}()
	svc := res.Service

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	janitor := cache.NewJanitor()
	janitor.Register(svc.Rates().Cache())
	janitor.Start(sweepInterval)
	defer janitor.Stop()

	w := worker.NewReportWorker(svc, worker.Options{Logger: logger.Logger})
	if err := w.StartupWarmup(ctx, time.Now()); err != nil {
		// Not fatal: the next event recomputes the month anyway.
		logger.Error("Startup warmup failed", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeCostEvents(gctx, w.HandleCostAdded)
	})
	g.Go(func() error {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := w.RefreshCached(gctx); err != nil {
					logger.Error("Periodic refresh failed", applog.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
