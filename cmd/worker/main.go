package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/smart-ledger/internal/app"
	"github.com/dvloznov/smart-ledger/internal/config"
	"github.com/dvloznov/smart-ledger/internal/jobs"
	"github.com/dvloznov/smart-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}

	var (
		bucket   = flag.String("bucket", cfg.Bucket, "GCS bucket holding the receipt inbox (or set GCS_BUCKET env)")
		interval = flag.Duration("interval", 30*time.Second, "Inbox poll interval")
		workers  = flag.Int("workers", 5, "Number of concurrent scans")
		linkBill = flag.Bool("link-bill", false, "Settle matched bills when receipts commit")
	)
	flag.Parse()
	cfg.Bucket = *bucket

	log := logger.NewWithLevel(cfg.LogLevel)

	if cfg.Bucket == "" {
		log.Fatal().Msg("A GCS bucket is required (use -bucket or GCS_BUCKET)")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer a.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(config.DefaultQueueDepth, jobStore, inmemory.WithWorkers(*workers))

	if err := jobQueue.Start(ctx, jobs.NewScanHandler(a.Storage, a.Ingestor)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	poller := jobs.NewInboxPoller(a.Storage, jobQueue, cfg.Bucket, *linkBill)
	pollCtx, stopPolling := context.WithCancel(ctx)
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		poller.Run(pollCtx, *interval)
	}()

	log.Info().
		Str("bucket", cfg.Bucket).
		Dur("interval", *interval).
		Msg("Worker service started, polling inbox")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	stopPolling()
	<-pollDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight scans
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	log.Info().Msg("Worker service exited")
}
