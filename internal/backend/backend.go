// Package backend selects and constructs the ledger store from
// configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/config"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"
	"bilancio/internal/storage"
)

type Type string

const (
	SQLiteBackend   Type = "sqlite"
	PostgresBackend Type = "postgres"
	MemoryBackend   Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result holds the constructed store and its cleanup function.
type Result struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

// Open builds the store named by cfg.DataBackend.
func Open(ctx context.Context, cfg *config.Config) (*Result, error) {
	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}

	switch backendType {
	case SQLiteBackend:
		return openSQLite(cfg.SQLiteDBPath)
	case PostgresBackend:
		return openPostgres(ctx, cfg.PostgresDSN)
	default:
		return openMemory()
	}
}

func openSQLite(dbPath string) (*Result, error) {
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite store: %w", err)
	}

	slog.Info("Storage backend ready",
		applog.FieldComponent, applog.ComponentBackend,
		"backend", SQLiteBackend,
		"path", dbPath)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func openPostgres(ctx context.Context, dsn string) (*Result, error) {
	store, err := storage.NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres store: %w", err)
	}

	slog.Info("Storage backend ready",
		applog.FieldComponent, applog.ComponentBackend,
		"backend", PostgresBackend)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func openMemory() (*Result, error) {
	store := storage.NewMemoryStore()

	slog.Info("Storage backend ready",
		applog.FieldComponent, applog.ComponentBackend,
		"backend", MemoryBackend)
	return &Result{Store: store, Cleanup: func() error { return nil }}, nil
}
