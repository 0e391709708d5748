// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names. Single source of truth, matches the generated schema
// --------------------------------------------------------------------------

const (
	PassingTable      = "nfl_ngs_passing_stats"
	RushingTable      = "nfl_ngs_rushing_stats"
	ReceivingTable    = "nfl_ngs_receiving_stats"
	CombinedView      = "master_player_stats"
	IngestionRunTable = "ingestion_runs"
)

// NotifyChannel is the Postgres channel ingestion publishes to after a
// successful scope run.
const NotifyChannel = "fantasy_ingested"

// --------------------------------------------------------------------------
// Config is populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database targets. The primary target is required unless SQLitePath is
	// set; the secondary target mirrors every run when enabled.
	DatabaseURL          string
	SecondaryDatabaseURL string
	EnableDatabase       bool
	EnableDatabase2      bool
	SQLitePath           string
	DBPoolMinConns       int
	DBPoolMaxConns       int
	DBPoolMaxLife        time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool
	AdminToken  string // required by admin endpoints; empty disables them

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Upstream
	NFLVerseBaseURL           string
	UpstreamRequestsPerMinute int

	// Backup
	BackupS3Bucket string
	BackupS3Prefix string

	// Cache
	CacheEnabled bool
	RedisURL     string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("SUPABASE_DB_URL", ""))
	sqlitePath := envOr("SQLITE_PATH", "")
	if dbURL == "" && sqlitePath == "" {
		return nil, fmt.Errorf("DATABASE_URL, SUPABASE_DB_URL, or SQLITE_PATH must be set")
	}

	return &Config{
		DatabaseURL:          dbURL,
		SecondaryDatabaseURL: envOr("DATABASE_URL_SECONDARY", envOr("SUPABASE_DB_URL_2", "")),
		EnableDatabase:       envBool("ENABLE_DATABASE", true),
		EnableDatabase2:      envBool("ENABLE_DATABASE_2", false),
		SQLitePath:           sqlitePath,
		DBPoolMinConns:       envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns:       envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:        time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),
		AdminToken:  envOr("API_ADMIN_TOKEN", ""),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		NFLVerseBaseURL:           envOr("NFLVERSE_BASE_URL", "https://github.com/nflverse/nflverse-data/releases/download"),
		UpstreamRequestsPerMinute: envInt("UPSTREAM_REQUESTS_PER_MINUTE", 30),

		BackupS3Bucket: envOr("BACKUP_S3_BUCKET", ""),
		BackupS3Prefix: envOr("BACKUP_S3_PREFIX", "firstballot/backups"),

		CacheEnabled: envBool("CACHE_ENABLED", true),
		RedisURL:     envOr("REDIS_URL", ""),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Database drivers a Target can name.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Target names one database an ingestion run writes to.
type Target struct {
	Label  string
	Driver string
	URL    string // connection string, or file path for SQLite
}

// Targets returns the enabled database targets in write order. A configured
// SQLite path is always enabled and comes last.
func (c *Config) Targets() []Target {
	var targets []Target
	if c.DatabaseURL != "" && c.EnableDatabase {
		targets = append(targets, Target{Label: "primary", Driver: DriverPostgres, URL: c.DatabaseURL})
	}
	if c.SecondaryDatabaseURL != "" && c.EnableDatabase2 {
		targets = append(targets, Target{Label: "secondary", Driver: DriverPostgres, URL: c.SecondaryDatabaseURL})
	}
	if c.SQLitePath != "" {
		targets = append(targets, Target{Label: "sqlite", Driver: DriverSQLite, URL: c.SQLitePath})
	}
	return targets
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
