// Package cli provides the initialization steps shared by the financeflow
// binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"financeflow/internal/backend"
	"financeflow/internal/config"
	"financeflow/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, validates it and builds the
// root logger, which also becomes the slog default. Exits on invalid config.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger := log.New(log.DefaultConfig())
		logger.LogError(context.Background(), "Configuration validation failed", err, log.OpStartup, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	logger := cfg.Logger()
	log.SetDefault(logger)
	return cfg, logger
}

// InitBackend creates the store, event client and budget service described
// by cfg. Exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, mutate func(*backend.Config)) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.LogError(ctx, "Invalid backend configuration", err, log.OpStartup, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	if mutate != nil {
		mutate(&bcfg)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.LogError(ctx, "Failed to initialize backend", err, log.OpStartup, log.ErrorTypeDatabase,
			"backend", bcfg.Type.String())
		os.Exit(1)
	}
	return res
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
