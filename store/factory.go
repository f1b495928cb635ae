package store

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/stevemurr/record-gateway/config"
)

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// New creates a Store based on cfg.Backend and verifies it is reachable.
//
// Supported backends:
//
//	"mongo"    - MongoDB at cfg.MongoURI (default)
//	"sqlite"   - SQLite database at DataDir/gateway.db
//	"postgres" - PostgreSQL at cfg.PostgresDSN
//	"json"     - JSON file in DataDir
//	"memory"   - In-memory (ephemeral, for testing)
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	if cfg.ConnectTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout.Duration)
		defer cancel()
	}

	switch cfg.Backend {
	case "mongo", "":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.Database, cfg.Collection)
	case "sqlite":
		return NewSqliteStore(ctx, filepath.Join(cfg.DataDir, "gateway.db"), cfg.Collection)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresDSN, cfg.Collection)
	case "json":
		return NewJsonFileStore(cfg.DataDir, cfg.Collection)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q (supported: mongo, sqlite, postgres, json, memory)", cfg.Backend)
	}
}
