package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fidde/drift_monitor/internal/storage/clickhouse"
	"github.com/fidde/drift_monitor/internal/storage/dual"
	"github.com/fidde/drift_monitor/internal/storage/memory"
	"github.com/fidde/drift_monitor/internal/storage/sqlite"
)

// Config holds backend selection.
type Config struct {
	// Backend selects the report backend: "memory", "sqlite" or "clickhouse"
	Backend string

	// DurableMirror keeps an authoritative in-memory copy in front of a
	// durable backend. Only meaningful for sqlite and clickhouse.
	DurableMirror bool

	// SQLite-specific config
	DBPath string

	// ClickHouse-specific config
	ClickHouseAddr string
}

// DefaultConfig returns default backend configuration.
func DefaultConfig() Config {
	return Config{
		Backend:        "memory",
		DurableMirror:  true,
		DBPath:         "./data/drift.db",
		ClickHouseAddr: "localhost:9000",
	}
}

// NewBackend creates a report backend based on configuration.
func NewBackend(ctx context.Context, cfg Config, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "memory":
		logger.Info("using in-memory report backend")
		return memory.New(), nil

	case "sqlite":
		durable, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("creating SQLite backend: %w", err)
		}
		if !cfg.DurableMirror {
			logger.Info("using SQLite report backend", "path", cfg.DBPath)
			return durable, nil
		}

		logger.Info("using SQLite report backend with in-memory mirror", "path", cfg.DBPath)
		return dual.New(ctx, dual.Config{
			Primary:   memory.New(),
			Secondary: durable,
			Logger:    logger,
		})

	case "clickhouse":
		chCfg := clickhouse.DefaultConfig()
		chCfg.Addr = cfg.ClickHouseAddr

		durable, err := clickhouse.New(ctx, chCfg)
		if err != nil {
			return nil, fmt.Errorf("creating ClickHouse backend: %w", err)
		}
		if !cfg.DurableMirror {
			logger.Info("using ClickHouse report backend", "addr", cfg.ClickHouseAddr)
			return durable, nil
		}

		logger.Info("using ClickHouse report backend with in-memory mirror", "addr", cfg.ClickHouseAddr)
		return dual.New(ctx, dual.Config{
			Primary:   memory.New(),
			Secondary: durable,
			Logger:    logger,
		})

	default:
		return nil, fmt.Errorf("unknown report backend: %s (supported: memory, sqlite, clickhouse)", cfg.Backend)
	}
}
