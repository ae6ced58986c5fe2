// Package featurestore persists per-device, per-minute feature counters.
//
// The store is the only shared mutable resource between the ingestion and
// scoring flows. All writers go through AtomicAdd, a store-native additive
// update, so concurrent merges against the same key converge regardless of
// interleaving. Implementations: Redis (hash increments), Postgres
// (additive upsert), and an in-memory fake for tests.
package featurestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sentryflow/shared/config"
	"sentryflow/shared/types"
)

// ErrNotFound is returned by Get when no row exists for the key.
var ErrNotFound = errors.New("featurestore: row not found")

// Store is the capability surface the pipeline needs from the persistent
// feature store. AtomicAdd must be a native atomic increment at the store,
// not a read-modify-write, so concurrent mergers never lose updates.
type Store interface {
	// Get fetches one row, or ErrNotFound.
	Get(ctx context.Context, key types.AggregationKey) (*types.FeatureWindow, error)
	// AtomicAdd increments each metric in deltas on the row for key,
	// creating the row from zero if absent. Metrics not present in deltas
	// are left untouched.
	AtomicAdd(ctx context.Context, key types.AggregationKey, deltas types.Delta) error
	// QueryByWindow fetches every device's row for one window identifier.
	QueryByWindow(ctx context.Context, window string) ([]types.FeatureWindow, error)
	// ScanRecent returns up to limit rows ordered most recently written
	// first.
	ScanRecent(ctx context.Context, limit int) ([]types.FeatureWindow, error)
}

// OpenFromEnv builds the backend selected by STORE_BACKEND. Both services
// share this so they always agree on the row layout.
func OpenFromEnv(ctx context.Context) (Store, error) {
	backend := config.Get("STORE_BACKEND", "redis")
	table := config.Get("FEATURE_TABLE", "feature_windows")
	switch backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr: config.Get("REDIS_ADDR", "localhost:6379"),
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedis(rdb, table), nil
	case "postgres":
		db, err := sql.Open("postgres", config.Get("DATABASE_URL",
			"postgres://localhost:5432/sentryflow?sslmode=disable"))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		return NewPostgres(db, table)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
