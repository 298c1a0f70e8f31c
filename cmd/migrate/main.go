package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/smart-ledger/internal/config"
	"github.com/dvloznov/smart-ledger/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	var (
		projectID     = flag.String("project", cfg.ProjectID, "GCP project ID (or set GCP_PROJECT_ID env)")
		datasetID     = flag.String("dataset", cfg.Dataset, "BigQuery dataset ID")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
		dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
	)
	flag.Parse()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
	}

	ctx := logger.WithContext(context.Background(), log)

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	m := &migrator{client: client, projectID: *projectID, datasetID: *datasetID, appliedBy: *appliedBy}

	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	dir, err := resolveMigrationsDir(*migrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to locate migrations")
	}

	migrations, skipped, err := readMigrations(dir, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	for _, name := range skipped {
		log.Warn().Str("file", name).Msg("Skipping file with invalid format")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	plan := planMigrations(migrations, applied)
	for _, mod := range plan.Modified {
		log.Warn().Str("migration", mod.Filename).Msg("Applied migration was modified since it ran")
	}

	if len(plan.Pending) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return
	}

	for _, migration := range plan.Pending {
		mlog := log.With().Str("migration", migration.Filename).Logger()
		if *dryRun {
			mlog.Info().Msg("[DRY RUN] Would apply migration")
			continue
		}

		mlog.Info().Msg("Applying migration")
		if err := m.runStatement(ctx, client.Query(migration.SQL)); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to execute migration")
		}
		if err := m.recordMigration(ctx, migration); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to record migration")
		}
		mlog.Info().Msg("Migration applied")
	}

	if !*dryRun {
		log.Info().Int("count", len(plan.Pending)).Msg("Successfully applied migrations")
	}
}

type migrator struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
}

func (m *migrator) table() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", m.projectID, m.datasetID)
}

func (m *migrator) runStatement(ctx context.Context, query *bigquery.Query) error {
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func (m *migrator) ensureSchemaMigrationsTable(ctx context.Context) error {
	return m.runStatement(ctx, m.client.Query(`
		CREATE TABLE IF NOT EXISTS `+m.table()+` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`))
}

// getAppliedMigrations retrieves the list of already applied migrations
func (m *migrator) getAppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	query := m.client.Query(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + m.table() + `
		ORDER BY version ASC
	`)
	it, err := query.Read(ctx)
	if err != nil {
		// If table doesn't exist yet, return empty list
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func (m *migrator) recordMigration(ctx context.Context, migration Migration) error {
	query := m.client.Query(`
		INSERT INTO ` + m.table() + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`)
	query.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: m.appliedBy},
	}
	return m.runStatement(ctx, query)
}
