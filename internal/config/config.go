package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default values used when the environment does not set them.
const (
	DefaultDataset    = "finance"
	DefaultModelName  = "gemini-2.5-flash"
	DefaultPort       = "8080"
	DefaultLogLevel   = "info"
	DefaultLockTTL    = 2 * time.Minute
	DefaultQueueDepth = 100
)

// Config holds runtime settings shared by every binary.
type Config struct {
	ProjectID string
	Dataset   string
	Bucket    string
	ModelName string

	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration

	NotionToken string
	NotionDBID  string

	Port     string
	LogLevel string

	// QuotaLocation is the zone whose calendar day bounds daily quotas.
	QuotaLocation *time.Location
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		ProjectID:     getEnv("GCP_PROJECT_ID", ""),
		Dataset:       getEnv("BQ_DATASET", DefaultDataset),
		Bucket:        getEnv("GCS_BUCKET", ""),
		ModelName:     getEnv("GEMINI_MODEL", DefaultModelName),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LockTTL:       DefaultLockTTL,
		NotionToken:   getEnv("NOTION_TOKEN", ""),
		NotionDBID:    getEnv("NOTION_DB_ID", ""),
		Port:          getEnv("PORT", DefaultPort),
		LogLevel:      getEnv("LOG_LEVEL", DefaultLogLevel),
		QuotaLocation: time.Local,
	}

	if raw := getEnv("LOCK_TTL", ""); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: invalid LOCK_TTL %q: %w", raw, err)
		}
		cfg.LockTTL = ttl
	}

	if tz := getEnv("QUOTA_TZ", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("config: invalid QUOTA_TZ %q: %w", tz, err)
		}
		cfg.QuotaLocation = loc
	}

	return cfg, nil
}

// Validate reports the first missing setting required to reach BigQuery.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("config: GCP_PROJECT_ID is required")
	}
	if c.Dataset == "" {
		return fmt.Errorf("config: BQ_DATASET is required")
	}
	return nil
}

// NotionEnabled reports whether committed transactions should be mirrored.
func (c *Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDBID != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultVal
}
