package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raolivei/swimTO-sub000/internal/registry"
	"github.com/raolivei/swimTO-sub000/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and registry status",
	Long: `Prints database health, the facility registry size and the
current canonical session count.

Example:
  go run ./cmd/swimto status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	db, err := connectDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()

	health, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	facilityCount, err := registry.NewRepository(db, log).Count(ctx)
	if err != nil {
		return err
	}

	sessionCount, err := store.New(db, log).Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Database:   healthy=%v response=%s\n", health.Healthy, health.ResponseTime)
	fmt.Printf("Facilities: %d registered\n", facilityCount)
	fmt.Printf("Sessions:   %d stored\n", sessionCount)
	return nil
}
