package backend

import (
	"context"

	"familyledger/internal/ledger"
)

// CleanupFunc releases resources held by a store.
type CleanupFunc func() error

// Result is an opened store and the function that closes it. Cleanup is
// never nil.
type Result struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

// Factory opens ledger stores from configuration.
type Factory interface {
	Open(ctx context.Context, cfg Config) (*Result, error)
}

// Config selects and parameterises a store.
type Config struct {
	Type Type

	SQLiteDBPath string

	// SeedFile is loaded into the store after opening when set.
	SeedFile string
}

// Type names a storage implementation.
type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	default:
		return false
	}
}
