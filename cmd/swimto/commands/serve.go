package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raolivei/swimTO-sub000/internal/ops"
	"github.com/raolivei/swimTO-sub000/internal/registry"
	"github.com/raolivei/swimTO-sub000/internal/registry/poolsxml"
	"github.com/raolivei/swimTO-sub000/internal/scheduler"
	"github.com/raolivei/swimTO-sub000/internal/scheduler/jobs"
	"github.com/raolivei/swimTO-sub000/pkg/httputil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and ops server",
	Long: `Starts the background scheduler (daily schedule refresh, weekly
registry refresh) and the ops HTTP surface, then blocks until
interrupted.

Example:
  go run ./cmd/swimto serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	db, err := connectDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	opsServer := ops.NewServer(log, db, cfg.OpsAddr)
	p := buildPipeline(cfg, log, db)

	registryClient := httputil.New(log, cfg.Registry.Timeout)
	poolsParser := poolsxml.New(registryClient, log, cfg.Registry.PoolsXMLURL)
	facilityRepo := registry.NewRepository(db, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewScheduleRefreshJob(log, p, opsServer, cfg.Scheduler.RefreshCron)); err != nil {
		return err
	}
	if err := sched.AddJob(jobs.NewRegistryRefreshJob(log, poolsParser, facilityRepo, cfg.Scheduler.RegistryCron)); err != nil {
		return err
	}
	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- opsServer.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("Ops server failed")
		}
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return opsServer.Shutdown(ctx)
}
