// Package store opens the configured persistence backend.
//
// Both backends satisfy repository.Store, so nothing above this package
// knows which one is running.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sakif/eventhub/internal/config"
	"github.com/sakif/eventhub/internal/repository"
	mongostore "github.com/sakif/eventhub/internal/repository/mongo"
	sqlitestore "github.com/sakif/eventhub/internal/repository/sqlite"
)

// Open connects to the backend named by cfg.StoreDriver and brings its
// schema up to date: migrations for sqlite, indexes for mongo.
func Open(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite, "":
		if cfg.DBPath != ":memory:" {
			// like `mkdir -p`
			dir := filepath.Dir(cfg.DBPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqlitestore.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil

	case config.DriverMongo:
		s, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.StoreDriver)
	}
}

// Describe names the backend for startup logs without leaking credentials.
func Describe(cfg config.Config) string {
	if cfg.StoreDriver == config.DriverMongo {
		return "mongo/" + cfg.MongoDatabase
	}
	return "sqlite/" + cfg.DBPath
}
