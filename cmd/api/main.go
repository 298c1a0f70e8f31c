package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/smart-ledger/internal/api/handlers"
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
		port    = flag.String("port", cfg.Port, "HTTP server port")
		bucket  = flag.String("bucket", cfg.Bucket, "GCS bucket for receipt images (or set GCS_BUCKET env)")
		workers = flag.Int("workers", 5, "Number of receipt scan workers")
	)
	flag.Parse()
	cfg.Bucket = *bucket

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	if cfg.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - receipts will be processed synchronously")
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer a.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(config.DefaultQueueDepth, jobStore, inmemory.WithWorkers(*workers))

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Receipts are only queued when they can be fetched back from storage.
	var (
		uploader  handlers.ReceiptUploader
		publisher jobs.Publisher
	)
	if a.Storage != nil {
		uploader = a.Storage
		publisher = jobQueue
		if err := jobQueue.Start(workerCtx, jobs.NewScanHandler(a.Storage, a.Ingestor)); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job worker")
		}
		log.Info().Int("workers", *workers).Msg("Started receipt scan workers")
	}

	router := handlers.NewRouter(log, handlers.Handlers{
		Ingest:       handlers.NewIngestHandler(a.Ingestor, uploader, publisher, cfg.Bucket),
		Quota:        handlers.NewQuotaHandler(a.Quota, log),
		Transactions: handlers.NewTransactionsHandler(a.Repo, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
	})

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight scans finish before cancelling the workers.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
