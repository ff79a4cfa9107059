package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	refreshTimeout time.Duration
	refreshWeeks   int
	refreshDryRun  bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one full schedule reconciliation pass",
	Long: `Fetches every upstream source, reconciles the records into a
canonical session calendar and replaces the session store.

Example:
  go run ./cmd/swimto refresh
  go run ./cmd/swimto refresh --weeks 2 --dry-run`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().DurationVar(&refreshTimeout, "timeout", 15*time.Minute, "overall run timeout")
	refreshCmd.Flags().IntVar(&refreshWeeks, "weeks", 0, "override the expansion horizon in weeks")
	refreshCmd.Flags().BoolVar(&refreshDryRun, "dry-run", false, "run every stage but leave the store untouched")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	db, err := connectDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if refreshWeeks > 0 {
		cfg.Pipeline.HorizonWeeks = refreshWeeks
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), refreshTimeout)
	defer cancel()

	summary, err := buildPipeline(cfg, log, db).WithDryRun(refreshDryRun).Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if refreshDryRun {
		fmt.Println("Dry run, session store not modified")
	}
	fmt.Printf("Run complete in %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Printf("  sources:     %d attempted, %d failed\n", summary.SourcesAttempted, len(summary.SourcesFailed))
	fmt.Printf("  records:     %d fetched\n", summary.RecordsFetched)
	fmt.Printf("  sessions:    %d produced\n", summary.SessionsProduced)
	fmt.Printf("  quarantined: %d\n", summary.QuarantineCount)
	fmt.Printf("  conflicts:   %d groups resolved\n", summary.ConflictGroups)
	fmt.Printf("  quality:     %.2f\n", summary.Quality.QualityScore)
	return nil
}
