// Package cli holds the startup steps shared by cmd/ledger-api and
// cmd/ledger-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"familyledger/internal/backend"
	"familyledger/internal/config"
	applog "familyledger/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from configuration and installs it
// as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and configuration, sets up logging and exits the
// process when the configuration is invalid.
func Bootstrap(component string) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenStore opens the configured ledger store or exits the process.
// withSeed controls whether LEDGER_SEED_FILE is applied.
func OpenStore(ctx context.Context, logger *applog.Logger, cfg *config.Config, withSeed bool) *backend.Result {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if !withSeed {
		backendCfg.SeedFile = ""
	}
	opened, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).Open(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to open ledger store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return opened
}

// WaitForShutdown blocks until SIGINT/SIGTERM arrives or ctx is done.
func WaitForShutdown(ctx context.Context, logger *applog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}
}
