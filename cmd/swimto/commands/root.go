package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raolivei/swimTO-sub000/internal/ingest"
	"github.com/raolivei/swimTO-sub000/internal/ingest/opendata"
	"github.com/raolivei/swimTO-sub000/internal/ingest/parksjson"
	"github.com/raolivei/swimTO-sub000/internal/ingest/scraper"
	"github.com/raolivei/swimTO-sub000/internal/pipeline"
	"github.com/raolivei/swimTO-sub000/internal/registry"
	"github.com/raolivei/swimTO-sub000/internal/store"
	"github.com/raolivei/swimTO-sub000/pkg/config"
	"github.com/raolivei/swimTO-sub000/pkg/database"
	"github.com/raolivei/swimTO-sub000/pkg/httputil"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "swimto",
	Short: "SwimTO schedule reconciliation engine",
	Long: `SwimTO aggregates swim program listings from Toronto's open data
feed, the parks JSON API and facility web pages into a canonical
session calendar.

Examples:
  go run ./cmd/swimto refresh
  go run ./cmd/swimto serve
  go run ./cmd/swimto seed
  go run ./cmd/swimto status`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads configuration and builds the logger every command needs
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)
	return cfg, log, nil
}

// connectDB opens the shared connection pool
func connectDB(cfg *config.Config, log *logger.Logger) (*database.DB, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// buildSources wires every enabled upstream adapter
func buildSources(cfg *config.Config, log *logger.Logger) []ingest.Source {
	var sources []ingest.Source

	openDataClient := httputil.New(log, cfg.OpenData.Timeout).
		WithRateLimit(cfg.Pipeline.RatePerSecond, cfg.Pipeline.RateBurst)
	sources = append(sources, opendata.NewClient(
		openDataClient, log, cfg.OpenData.ProgramsURL, cfg.OpenData.LocationsURL))

	parksClient := httputil.New(log, cfg.ParksAPI.Timeout).
		WithRateLimit(cfg.Pipeline.RatePerSecond, cfg.Pipeline.RateBurst)
	sources = append(sources, parksjson.NewClient(
		parksClient, log, cfg.ParksAPI.BaseURL,
		parksjson.LocationsForIDs(cfg.ParksAPI.LocationIDs), cfg.Pipeline.HorizonWeeks))

	if cfg.Scraper.Enabled && len(cfg.Scraper.PageURLs) > 0 {
		scraperClient := httputil.New(log, cfg.Scraper.Timeout).
			WithRateLimit(cfg.Pipeline.RatePerSecond, cfg.Pipeline.RateBurst).
			WithUserAgent(cfg.Scraper.UserAgent)
		sources = append(sources, scraper.New(scraperClient, log, cfg.Scraper.PageURLs))
	}

	return sources
}

// buildPipeline assembles the full engine over the shared database
func buildPipeline(cfg *config.Config, log *logger.Logger, db *database.DB) *pipeline.Pipeline {
	sessionStore := store.New(db, log)
	facilityRegistry := registry.NewRepository(db, log)

	return pipeline.New(log, pipeline.Config{
		HorizonWeeks:   cfg.Pipeline.HorizonWeeks,
		MatchThreshold: cfg.Pipeline.MatchThreshold,
		Workers:        cfg.Pipeline.Workers,
		MinFacilities:  cfg.Pipeline.MinFacilities,
		PeakWindows:    cfg.Pipeline.PeakWindows,
	}, buildSources(cfg, log), facilityRegistry, sessionStore)
}
