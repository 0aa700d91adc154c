// Package history stores the record of generated listings.
//
// Three backends implement core.HistoryStore: an in-process store for
// single-instance deployments, SQLite for a durable local file, and
// PostgreSQL when several instances share one history.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/fichas/internal/config"
	"github.com/JonMunkholm/fichas/internal/core"
)

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.HistoryConfig) (core.HistoryStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemoryStore(0), nil
	case "sqlite":
		store, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}
