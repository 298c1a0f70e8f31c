// Package app wires the ingestion services shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/smart-ledger/internal/config"
	"github.com/dvloznov/smart-ledger/internal/extraction"
	"github.com/dvloznov/smart-ledger/internal/gcsuploader"
	infraBQ "github.com/dvloznov/smart-ledger/internal/infra/bigquery"
	"github.com/dvloznov/smart-ledger/internal/lock"
	"github.com/dvloznov/smart-ledger/internal/logger"
	"github.com/dvloznov/smart-ledger/internal/notionsync"
	"github.com/dvloznov/smart-ledger/internal/pipeline"
	"github.com/dvloznov/smart-ledger/internal/quota"
)

// App holds the long-lived clients and the pipeline built on them.
type App struct {
	Config   *config.Config
	Repo     *infraBQ.LedgerRepository
	Quota    *quota.Gate
	Ingestor *pipeline.Ingestor
	// Storage is nil when no GCS bucket is configured.
	Storage *gcsuploader.GCSStorageService
	// Mirror is nil when Notion is not configured.
	Mirror *notionsync.Mirror

	closers []func() error
}

// New connects to BigQuery, Gemini, and the optional Redis, Cloud Storage
// and Notion backends described by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	a := &App{Config: cfg}

	repo, err := infraBQ.NewLedgerRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a.Repo = repo
	a.closers = append(a.closers, repo.Close)

	extractor, err := extraction.NewGeminiExtractorFromEnv(ctx, cfg.ModelName)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}

	a.Quota = quota.NewGate(repo, quota.WithLocation(cfg.QuotaLocation))

	var locker pipeline.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		client := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = a.Close()
			return nil, fmt.Errorf("app.New: connecting to redis %s: %w", cfg.RedisAddr, err)
		}
		a.closers = append(a.closers, client.Close)
		locker = lock.NewRedisLocker(client, cfg.LockTTL)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis commit lock")
	} else {
		log.Info().Msg("Using in-process commit lock")
	}

	opts := []pipeline.IngestorOption{
		pipeline.WithModelOutputs(repo),
		pipeline.WithLocker(locker),
	}
	if cfg.NotionEnabled() {
		a.Mirror = notionsync.NewMirror(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDBID)
		opts = append(opts, pipeline.WithMirror(a.Mirror))
	}
	a.Ingestor = pipeline.NewIngestor(a.Quota, extractor, repo, opts...)

	if cfg.Bucket != "" {
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.Storage = storage
		a.closers = append(a.closers, storage.Close)
	}

	return a, nil
}

// Close releases every client in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
