// Package bootstrap wires the process-level runtime: document store
// selection, Redis, and optional demo seeding, shared by the server and
// seeder commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"pointchat/internal/cache"
	"pointchat/internal/config"
	"pointchat/internal/seed"
	"pointchat/internal/store"
	"pointchat/internal/store/firestore"
	"pointchat/internal/store/memstore"

	"github.com/redis/go-redis/v9"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemoData bool
}

// InitRuntime establishes the document store and Redis and optionally seeds
// demo data. Without a Firebase project the store falls back to an in-memory
// backend, which is only useful for development.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (store.Store, *redis.Client, error) {
	var st store.Store
	if cfg.FirebaseProjectID != "" {
		fs, err := firestore.New(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore connection failed: %w", err)
		}
		st = fs
	} else {
		log.Println("WARNING: FIREBASE_PROJECT_ID not set, using in-memory store (data is not persisted)")
		st = memstore.New()
	}

	// May result in a nil client if unreachable; callers treat Redis as
	// optional.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemoData {
		if err := ensureDemoData(ctx, cfg, st); err != nil {
			return nil, nil, err
		}
	}

	return st, r, nil
}

// ensureDemoData seeds demo accounts in development environments only.
func ensureDemoData(ctx context.Context, cfg *config.Config, st store.Store) error {
	if cfg.Env == "production" || cfg.Env == "prod" {
		log.Println("WARNING: refusing to seed demo data in production")
		return nil
	}

	if err := seed.NewSeeder(st).Seed(ctx, seed.DefaultOptions()); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	return nil
}
