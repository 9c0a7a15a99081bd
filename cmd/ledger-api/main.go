package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"familyledger/internal/amqp"
	"familyledger/internal/cache"
	"familyledger/internal/cli"
	apphttp "familyledger/internal/http"
	applog "familyledger/internal/log"
	"familyledger/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opened := cli.OpenStore(ctx, logger, cfg, true)
	defer opened.Cleanup()

	opts := services.Options{
		Clock:  services.SystemClock{Location: cfg.Location()},
		Window: cfg.ProjectionWindow,
	}

	// Events are optional for the API; writes still commit without a broker.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer amqpClient.Close()
			opts.Publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	cacheManager := cache.NewManager()
	if cfg.ProjectionCacheSize > 0 && cfg.ProjectionCacheTTL > 0 {
		projections := cache.NewLRUCache[services.Projection](cfg.ProjectionCacheSize, cfg.ProjectionCacheTTL)
		cacheManager.Register(projections)
		cacheManager.StartCleanup(cfg.ProjectionCacheTTL)
		opts.Cache = projections
	}
	defer cacheManager.Stop()

	engine := services.NewEngine(opened.Store, opts)
	srv := apphttp.NewServer(":"+cfg.Port, engine, logger, apphttp.Options{WritesPerMinute: cfg.WritesPerMinute})

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		cli.WaitForShutdown(ctx, logger)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting ledger API",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone,
		"projection_window", cfg.ProjectionWindow,
		"events_enabled", opts.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-stopped
	m := srv.Metrics()
	logger.Info("Server stopped gracefully",
		"requests", m.TotalRequests,
		"server_errors", m.ServerErrors)
}
