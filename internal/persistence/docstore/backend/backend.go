// Package backend opens the document store named in the [store] config.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"acre.game/internal/config"
	"acre.game/internal/persistence/docstore"
	"acre.game/internal/persistence/docstore/memstore"
	"acre.game/internal/persistence/docstore/pgstore"
	"acre.game/internal/persistence/docstore/sqlitestore"
	"acre.game/internal/transport/ws"
)

// Open returns a ready store. The relay backend dials cfg.RelayURL with dial.
func Open(ctx context.Context, cfg config.StoreConfig, dial ws.DialOptions, log *zap.Logger) (docstore.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memstore.New(), nil
	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", cfg.SQLitePath, err)
		}
		return s, nil
	case config.BackendPostgres:
		s, err := pgstore.Open(ctx, pgstore.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns}, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	case config.BackendRelay:
		c, err := ws.Dial(ctx, cfg.RelayURL, dial, log)
		if err != nil {
			return nil, fmt.Errorf("dial relay %s: %w", cfg.RelayURL, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
