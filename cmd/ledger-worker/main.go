package main

import (
	"context"
	"errors"
	"os"
	"time"

	"familyledger/internal/amqp"
	"familyledger/internal/backend"
	"familyledger/internal/cli"
	applog "familyledger/internal/log"
	"familyledger/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting ledger-worker")

	// The auditor reads what the API wrote; an in-process store would be empty.
	if cfg.DataBackend != backend.SQLite.String() {
		logger.Error("Worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("Worker requires AMQP_URL")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The API owns seeding.
	opened := cli.OpenStore(ctx, logger, cfg, false)
	defer opened.Cleanup()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	auditor := worker.NewAuditWorker(opened.Store)
	if err := auditor.Start(ctx, cfg.AuditInterval); err != nil {
		logger.Error("Failed to start audit worker", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := amqpClient.Consume(ctx, auditor.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	cli.WaitForShutdown(ctx, logger)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := auditor.Stop(shutdownCtx); err != nil {
		logger.Error("Audit worker shutdown error", "error", err)
	}

	stats := auditor.Stats()
	logger.Info("Worker stopped gracefully",
		"handled", stats.Handled,
		"violations", stats.Violations,
		"errors", stats.Errors,
		"ignored", stats.Ignored)
}
