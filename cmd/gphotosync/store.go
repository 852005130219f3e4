package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/gphotosync/internal/config"
	"github.com/kailas-cloud/gphotosync/internal/db"
	dbBolt "github.com/kailas-cloud/gphotosync/internal/db/bolt"
	dbFile "github.com/kailas-cloud/gphotosync/internal/db/file"
	dbRedis "github.com/kailas-cloud/gphotosync/internal/db/redis"
	dbSqlite "github.com/kailas-cloud/gphotosync/internal/db/sqlite"
)

// openStore creates the state store for the configured driver.
func openStore(ctx context.Context, cfg config.StorageConfig) (db.Store, error) {
	switch cfg.Driver {
	case "file":
		return dbFile.NewStore(cfg.Dir)
	case "bolt":
		return dbBolt.NewStore(dbBolt.Config{Path: cfg.Path, OpenTimeout: 5 * time.Second})
	case "sqlite":
		return dbSqlite.NewStore(cfg.Path)
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Addrs,
			Username:  cfg.Username,
			Password:  cfg.Password,
			DB:        cfg.DB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		if err := s.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
