package backend

import (
	"context"
	"fmt"
	"log/slog"

	"familyledger/internal/ledger"
	"familyledger/internal/storage"
	"familyledger/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Open implements Factory.Open
func (f *DefaultFactory) Open(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLite:
		return f.openSQLite(ctx, cfg)
	case Memory:
		return f.openMemory(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) openSQLite(ctx context.Context, cfg Config) (*Result, error) {
	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	if cfg.SeedFile != "" {
		seed, ok, err := ledger.ReadSeedFile(cfg.SeedFile)
		if err == nil && ok {
			err = store.Load(ctx, seed)
		}
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to seed SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Seeded SQLite store", "seed_file", cfg.SeedFile, "found", ok)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) openMemory(cfg Config) (*Result, error) {
	store := memory.New()
	if cfg.SeedFile != "" {
		var err error
		if store, err = memory.NewFromFile(cfg.SeedFile); err != nil {
			return nil, fmt.Errorf("failed to seed memory store: %w", err)
		}
	}

	f.logger.Info("Initialized memory backend", "seed_file", cfg.SeedFile)
	return &Result{Store: store, Cleanup: func() error { return nil }}, nil
}
