package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/smart-ledger/internal/app"
	"github.com/dvloznov/smart-ledger/internal/config"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/gcsuploader"
	"github.com/dvloznov/smart-ledger/internal/logger"
	"github.com/dvloznov/smart-ledger/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	switch os.Args[1] {
	case "text":
		runText(cfg, log)
	case "scan":
		runScan(cfg, log)
	case "upload":
		runUpload(cfg, log)
	case "quota":
		runQuota(cfg, log)
	case "transactions":
		runTransactions(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Smart Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  text          Extract and commit transactions from free text")
	fmt.Println("  scan          Extract and commit a receipt image from a local file")
	fmt.Println("  upload        Upload a receipt image to the GCS inbox")
	fmt.Println("  quota         Show a user's remaining AI quota")
	fmt.Println("  transactions  List a user's transactions")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) *app.App {
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	return a
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encoding output: %v\n", err)
	}
}

// runPipeline prepares req and, unless dryRun is set, commits the draft.
func runPipeline(ctx context.Context, a *app.App, req pipeline.Request, linkBill, dryRun bool, log zerolog.Logger) {
	draft, err := a.Ingestor.Prepare(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}
	if dryRun {
		printJSON(draft)
		return
	}

	res, err := a.Ingestor.Commit(ctx, draft, linkBill)
	if err != nil {
		log.Fatal().Err(err).Msg("Commit failed")
	}
	printJSON(struct {
		Draft  *pipeline.Draft        `json:"draft"`
		Result *pipeline.CommitResult `json:"result"`
	}{draft, res})

	if len(res.Errors) > 0 {
		os.Exit(2)
	}
}

func runText(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("text", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	bucket := fs.String("bucket", string(domain.BucketPersonal), "Allocation bucket (PERSONAL or BUSINESS)")
	text := fs.String("text", "", "Free text describing one or more transactions")
	linkBill := fs.Bool("link-bill", false, "Settle the matched bill")
	dryRun := fs.Bool("dry-run", false, "Print the draft without committing")
	fs.Parse(os.Args[2:])

	if *userID == "" || *text == "" {
		log.Fatal().Msg("Usage: cli text -user ID -text TEXT")
	}

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), 2*time.Minute)
	defer cancel()

	a := newApp(ctx, cfg, log)
	defer a.Close()

	runPipeline(ctx, a, pipeline.Request{
		UserID:  *userID,
		Bucket:  domain.ParseAllocationBucket(*bucket),
		Feature: domain.FeatureVoice,
		Text:    *text,
	}, *linkBill, *dryRun, log)
}

func runScan(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	bucket := fs.String("bucket", string(domain.BucketPersonal), "Allocation bucket (PERSONAL or BUSINESS)")
	filePath := fs.String("file", "", "Path to a receipt image")
	linkBill := fs.Bool("link-bill", false, "Settle the matched bill")
	dryRun := fs.Bool("dry-run", false, "Print the draft without committing")
	fs.Parse(os.Args[2:])

	if *userID == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli scan -user ID -file PATH")
	}

	img, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read image")
	}

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), 2*time.Minute)
	defer cancel()

	a := newApp(ctx, cfg, log)
	defer a.Close()

	runPipeline(ctx, a, pipeline.Request{
		UserID:   *userID,
		Bucket:   domain.ParseAllocationBucket(*bucket),
		Feature:  domain.FeatureScan,
		Image:    img,
		MIMEType: gcsuploader.MIMETypeForName(*filePath),
	}, *linkBill, *dryRun, log)
}

func runUpload(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("gcs-bucket", cfg.Bucket, "GCS bucket name")
	userID := fs.String("user", "", "User ID that owns the receipt")
	allocation := fs.String("bucket", "", "Allocation bucket; empty means PERSONAL")
	filePath := fs.String("file", "", "Path to a receipt image")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *userID == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -gcs-bucket NAME -user ID -file PATH")
	}

	objectName := gcsuploader.InboxPrefix + *userID + "/"
	if *allocation != "" {
		objectName += string(domain.ParseAllocationBucket(*allocation)) + "/"
	}
	objectName += filepath.Base(*filePath)

	ctx := logger.WithContext(context.Background(), log)

	storage, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	log.Info().
		Str("bucket", *bucketName).
		Str("object", objectName).
		Str("file", *filePath).
		Msg("Uploading receipt to inbox")

	if err := storage.UploadFile(ctx, *bucketName, objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, objectName)
}

func runQuota(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("quota", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Usage: cli quota -user ID")
	}

	ctx := logger.WithContext(context.Background(), log)
	a := newApp(ctx, cfg, log)
	defer a.Close()

	for _, f := range []domain.FeatureClass{domain.FeatureVoice, domain.FeatureScan, domain.FeatureAdvisor} {
		d := a.Quota.Check(ctx, *userID, f)
		status := "allowed"
		if !d.Allowed {
			status = "denied"
		}
		fmt.Printf("%-8s %-7s tier=%s used=%d limit=%d %s\n", f, status, d.Tier, d.Used, d.Limit, d.Message)
	}
}

func runTransactions(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	bucket := fs.String("bucket", string(domain.BucketPersonal), "Allocation bucket (PERSONAL or BUSINESS)")
	days := fs.Int("days", 30, "Number of days to look back")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Usage: cli transactions -user ID")
	}

	ctx := logger.WithContext(context.Background(), log)
	a := newApp(ctx, cfg, log)
	defer a.Close()

	end := civil.DateOf(time.Now())
	start := end.AddDays(-*days)

	rows, err := a.Repo.QueryTransactionsByDateRange(ctx, *userID, domain.ParseAllocationBucket(*bucket), start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	fmt.Printf("\n=== Transactions %s to %s (%d) ===\n", start, end, len(rows))
	for i, row := range rows {
		amount := "?"
		if row.TotalAmount != nil {
			amount = row.TotalAmount.FloatString(2)
		}
		fmt.Printf("\n%d. %s\n", i+1, row.Merchant)
		fmt.Printf("   Date:     %s\n", row.TransactionDate)
		fmt.Printf("   Amount:   %s (%s)\n", amount, row.Type)
		fmt.Printf("   Category: %s\n", row.Category)
		if row.WalletID.Valid {
			fmt.Printf("   Wallet:   %s\n", row.WalletID.StringVal)
		}
	}
	fmt.Println()
}
