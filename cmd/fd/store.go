package main

import (
	"context"
	"log/slog"

	"github.com/alfredjeanlab/formdesk/internal/config"
	"github.com/alfredjeanlab/formdesk/internal/store"
	"github.com/alfredjeanlab/formdesk/internal/store/bolt"
	"github.com/alfredjeanlab/formdesk/internal/store/postgres"
	formsync "github.com/alfredjeanlab/formdesk/internal/sync"
)

// openStore opens PostgreSQL when a database URL is configured and the
// bbolt file otherwise.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Backend() == "postgres" {
		return postgres.New(cfg.DatabaseURL)
	}
	return bolt.New(cfg.BoltPath)
}

// syncDestinations returns the configured export targets. A destination
// that fails to initialize is logged and skipped.
func syncDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []formsync.Destination {
	var dests []formsync.Destination
	if cfg.SyncS3Bucket != "" {
		d, err := formsync.NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Prefix, cfg.SyncS3Region, cfg.SyncS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, d)
			logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "prefix", cfg.SyncS3Prefix)
		}
	}
	return dests
}
