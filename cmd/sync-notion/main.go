package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/smart-ledger/internal/config"
	"github.com/dvloznov/smart-ledger/internal/domain"
	infraBQ "github.com/dvloznov/smart-ledger/internal/infra/bigquery"
	"github.com/dvloznov/smart-ledger/internal/logger"
	"github.com/dvloznov/smart-ledger/internal/notionsync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	userID := flag.String("user", "", "User whose transactions are mirrored (required)")
	bucket := flag.String("bucket", string(domain.BucketPersonal), "Allocation bucket (PERSONAL or BUSINESS)")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDBID, "Notion database ID (or set NOTION_DB_ID env)")
	dryRun := flag.Bool("dry-run", false, "Count the transactions without writing to Notion")
	flag.Parse()

	if *startDateStr == "" || *endDateStr == "" {
		log.Fatal().Msg("Error: --start-date and --end-date are required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if !*dryRun && (*notionToken == "" || *notionDBID == "") {
		log.Fatal().Msg("Error: --notion-token and --notion-db-id are required")
	}

	startDate, err := time.Parse("2006-01-02", *startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}
	endDate, err := time.Parse("2006-01-02", *endDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		log.Fatal().
			Time("start_date", startDate).
			Time("end_date", endDate).
			Msg("Error: end-date must be after start-date")
	}

	// Timeout so the CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("start_date", *startDateStr).
		Str("end_date", *endDateStr).
		Str("user_id", *userID).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	repo, err := infraBQ.NewLedgerRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	allocation := domain.ParseAllocationBucket(*bucket)

	if *dryRun {
		rows, err := repo.QueryTransactionsByDateRange(ctx, *userID, allocation, civil.DateOf(startDate), civil.DateOf(endDate))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to query transactions")
		}
		for _, row := range rows {
			log.Info().
				Str("transaction_id", row.TransactionID).
				Str("merchant", row.Merchant).
				Str("date", row.TransactionDate.String()).
				Msg("[DRY RUN] Would mirror transaction")
		}
		fmt.Printf("Dry run: %d transactions in range.\n", len(rows))
		return
	}

	mirror := notionsync.NewMirror(notionsync.NewNotionClient(*notionToken), *notionDBID)
	if err := notionsync.Backfill(ctx, repo, mirror, *userID, allocation, startDate, endDate); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
