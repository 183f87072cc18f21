package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"financeflow/internal/backend"
	"financeflow/internal/cli"
	"financeflow/internal/log"
	"financeflow/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting financeflow-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	// The worker does not see the server's writes, so it must not cache overviews.
	res := cli.InitBackend(ctx, logger, cfg, func(b *backend.Config) { b.CacheSize = 0 })
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.LogError(context.Background(), "Backend cleanup failed", err, log.OpShutdown, log.ErrorTypeDatabase)
		}
	}()

	rollover := worker.NewRolloverProcessor(res.Service, worker.RolloverConfig{Interval: cfg.RolloverInterval}, logger)
	if err := rollover.Start(ctx); err != nil {
		logger.LogError(ctx, "Failed to start rollover processor", err, log.OpStartup, log.ErrorTypeInternal)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if res.Events != nil {
		alerts := worker.NewAlertWorker(res.Service, logger)
		g.Go(func() error {
			return res.Events.ConsumeBudgetEvents(gctx, alerts.HandleBudgetEvent)
		})
	} else {
		logger.Info("Skipping budget event consumption - no AMQP_URL provided")
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.LogError(ctx, "Message consumption failed", err, log.OpAlert, log.ErrorTypeNetwork)
	}
	<-ctx.Done()

	logger.Info("Shutting down worker...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := rollover.Stop(shutdownCtx); err != nil {
		logger.LogError(shutdownCtx, "Rollover processor did not stop cleanly", err, log.OpShutdown, log.ErrorTypeInternal)
		return
	}
	logger.Info("Worker shutdown complete")
}
