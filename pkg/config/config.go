package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Env string // development, staging, production

	// Database
	Database DatabaseConfig

	// Upstream sources
	OpenData OpenDataConfig
	ParksAPI ParksAPIConfig
	Scraper  ScraperConfig
	Registry RegistryConfig

	// Pipeline
	Pipeline PipelineConfig

	// Scheduler cron expressions
	Scheduler SchedulerConfig

	// Ops HTTP surface
	OpsAddr string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OpenDataConfig holds the CKAN open-data feed endpoints
type OpenDataConfig struct {
	ProgramsURL  string
	LocationsURL string
	Timeout      time.Duration
}

// ParksAPIConfig holds the Parks weekly JSON API configuration.
// LocationIDs is the curated list of location ids whose schedules are not
// in the open-data feed and must be fetched per location.
type ParksAPIConfig struct {
	BaseURL     string
	LocationIDs []int
	Timeout     time.Duration
}

// ScraperConfig holds the best-effort facility page scraper configuration
type ScraperConfig struct {
	Enabled   bool
	UserAgent string
	Timeout   time.Duration
	PageURLs  []string
}

// RegistryConfig holds the facility registry feed configuration
type RegistryConfig struct {
	PoolsXMLURL string
	Timeout     time.Duration
}

// PipelineConfig holds reconciliation engine tunables
type PipelineConfig struct {
	HorizonWeeks   int
	MatchThreshold float64
	Workers        int
	MinFacilities  int // low-coverage day threshold
	PeakWindows    int // top-k coverage cells reported
	RatePerSecond  float64
	RateBurst      int
}

// SchedulerConfig holds cron schedules for the background jobs
type SchedulerConfig struct {
	RefreshCron  string
	RegistryCron string
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		OpenData: OpenDataConfig{
			ProgramsURL:  getEnv("OPEN_DATA_PROGRAMS_URL", "https://ckan0.cf.opendata.inter.prod-toronto.ca/datastore/dump/c99ec04f-4540-482c-9ee4-efb38774eab4"),
			LocationsURL: getEnv("OPEN_DATA_LOCATIONS_URL", "https://ckan0.cf.opendata.inter.prod-toronto.ca/datastore/dump/f23ac1ad-6f46-4b59-811f-eb34be9b1f7a"),
			Timeout:      getEnvAsDuration("OPEN_DATA_TIMEOUT", "60s"),
		},

		ParksAPI: ParksAPIConfig{
			BaseURL:     getEnv("PARKS_API_BASE_URL", "https://www.toronto.ca/data/parks/live/locations"),
			LocationIDs: getEnvAsInts("PARKS_API_LOCATION_IDS", []int{797}),
			Timeout:     getEnvAsDuration("PARKS_API_TIMEOUT", "10s"),
		},

		Scraper: ScraperConfig{
			Enabled:   getEnvAsBool("SCRAPER_ENABLED", true),
			UserAgent: getEnv("SCRAPER_USER_AGENT", "Mozilla/5.0 (compatible; SwimTO/2.0; +https://github.com/raolivei/swimTO)"),
			Timeout:   getEnvAsDuration("SCRAPER_TIMEOUT", "30s"),
			PageURLs:  getEnvAsStrings("SCRAPER_PAGE_URLS", nil),
		},

		Registry: RegistryConfig{
			PoolsXMLURL: getEnv("POOLS_XML_URL", "https://www.toronto.ca/data/parks/prd/facilities/recreationcentres/index.xml"),
			Timeout:     getEnvAsDuration("POOLS_XML_TIMEOUT", "30s"),
		},

		Pipeline: PipelineConfig{
			HorizonWeeks:   getEnvAsInt("PIPELINE_HORIZON_WEEKS", 4),
			MatchThreshold: getEnvAsFloat("PIPELINE_MATCH_THRESHOLD", 0.6),
			Workers:        getEnvAsInt("PIPELINE_WORKERS", 5),
			MinFacilities:  getEnvAsInt("PIPELINE_MIN_FACILITIES_PER_DAY", 3),
			PeakWindows:    getEnvAsInt("PIPELINE_PEAK_WINDOWS", 5),
			RatePerSecond:  getEnvAsFloat("PIPELINE_RATE_PER_SECOND", 2.0),
			RateBurst:      getEnvAsInt("PIPELINE_RATE_BURST", 4),
		},

		Scheduler: SchedulerConfig{
			RefreshCron:  getEnv("SCHEDULE_REFRESH_CRON", "0 6 * * *"),
			RegistryCron: getEnv("SCHEDULE_REGISTRY_CRON", "0 4 * * 1"),
		},

		OpsAddr: getEnv("OPS_ADDR", ":8089"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.HorizonWeeks < 1 {
		return fmt.Errorf("PIPELINE_HORIZON_WEEKS must be >= 1")
	}

	if c.Pipeline.MatchThreshold < 0 || c.Pipeline.MatchThreshold > 1 {
		return fmt.Errorf("PIPELINE_MATCH_THRESHOLD must be in [0,1]")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsInts parses a comma-separated list of integers
func getEnvAsInts(key string, defaultValue []int) []int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []int
	for _, part := range strings.Split(valueStr, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		values = append(values, n)
	}

	return values
}

// getEnvAsStrings parses a comma-separated list of strings
func getEnvAsStrings(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}
