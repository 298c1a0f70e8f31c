package main

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Pattern to match migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// parseMigrationFilename extracts the version and name of a migration file.
func parseMigrationFilename(filename string) (int, string, bool) {
	matches := migrationPattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// renderSQL fills the project and dataset placeholders of a migration.
func renderSQL(content, projectID, datasetID string) string {
	sql := strings.ReplaceAll(content, "{{PROJECT_ID}}", projectID)
	return strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)
}

// checksum hashes the unrendered file so the same migration has the same
// checksum in every project.
func checksum(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// resolveMigrationsDir accepts the directory relative to the repository
// root or to cmd/migrate.
func resolveMigrationsDir(dir string) (string, error) {
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	parent := filepath.Join("..", "..", dir)
	if _, err := os.Stat(parent); err == nil {
		return parent, nil
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}

// readMigrations reads all migration files from dir, sorted by version.
// Files that do not follow the naming pattern are returned in skipped.
func readMigrations(dir, projectID, datasetID string) (migrations []Migration, skipped []string, err error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	seen := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		version, name, ok := parseMigrationFilename(file.Name())
		if !ok {
			skipped = append(skipped, file.Name())
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, file.Name())
		}
		seen[version] = file.Name()

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      renderSQL(string(content), projectID, datasetID),
			Checksum: checksum(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, skipped, nil
}

// Plan is the outcome of comparing migration files with schema_migrations.
type Plan struct {
	Pending []Migration
	// Modified lists applied migrations whose file changed since.
	Modified []Migration
}

// planMigrations returns the migrations not yet applied, in version order.
func planMigrations(migrations []Migration, applied []AppliedMigration) Plan {
	byVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		byVersion[am.Version] = am
	}

	var plan Plan
	for _, m := range migrations {
		am, ok := byVersion[m.Version]
		if !ok {
			plan.Pending = append(plan.Pending, m)
			continue
		}
		if am.Checksum != "" && am.Checksum != m.Checksum {
			plan.Modified = append(plan.Modified, m)
		}
	}
	return plan
}
