package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"bustracker.transport.org/internal/config"
	"bustracker.transport.org/internal/gtfs"
	"bustracker.transport.org/internal/store"
)

// openStore connects to Postgres when DATABASE_URL is set. Otherwise it
// builds an in-memory store, seeded from GTFS_SEED_FILE when given.
func openStore(ctx context.Context, cfg *config.Config, client *http.Client, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.Open(cfg.DatabaseURL, store.PoolOptions{
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := store.WaitForDatabase(ctx, pg, cfg.DB.ConnectRetries, store.DefaultBackoff, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("database unavailable: %w", err)
		}
		logger.Info("Database connection verified")
		return pg, nil
	}

	mem := store.NewMemory()
	if cfg.GTFSSeedFile == "" {
		logger.Warn("No DATABASE_URL or GTFS_SEED_FILE configured, starting with an empty in-memory store")
		return mem, nil
	}

	static, err := gtfs.LoadStatic(ctx, client, cfg.GTFSSeedFile)
	if err != nil {
		return nil, err
	}
	summary, err := gtfs.Seed(static, mem, gtfs.SeedOptions{DemoBuses: cfg.DemoBuses})
	if err != nil {
		return nil, fmt.Errorf("seed from %s: %w", cfg.GTFSSeedFile, err)
	}
	logger.Info("Seeded in-memory store from GTFS",
		"source", cfg.GTFSSeedFile,
		"routes", summary.Routes,
		"stops", summary.Stops,
		"buses", summary.Buses)
	return mem, nil
}
