package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financeflow/internal/auth"
	"financeflow/internal/cache"
	"financeflow/internal/cli"
	apphttp "financeflow/internal/http"
	"financeflow/internal/log"
	"financeflow/internal/middleware/ratelimit"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger := cli.LoadAndValidateConfig()
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res := cli.InitBackend(ctx, logger, cfg, nil)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.LogError(context.Background(), "Backend cleanup failed", err, log.OpShutdown, log.ErrorTypeDatabase)
		}
	}()

	if res.Overviews != nil {
		janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache).Logger)
		janitor.Register(res.Overviews)
		go janitor.Run(ctx, cfg.CacheTTL)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	srv := apphttp.NewServer(":"+cfg.Port, res.Service, tokens, apphttp.Options{
		RateLimit: ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Burst:             cfg.RateLimitBurst,
		},
		Logger: logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogError(shutdownCtx, "Server shutdown error", err, log.OpShutdown, log.ErrorTypeNetwork)
		}
	}()

	logger.Info("Starting financeflow server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.LogError(ctx, "Server error", err, log.OpStartup, log.ErrorTypeNetwork, "port", cfg.Port)
		cancel()
		<-stopped
		os.Exit(1)
	}

	<-stopped
	logger.Info("Server stopped gracefully")
}
