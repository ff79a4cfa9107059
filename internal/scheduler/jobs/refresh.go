package jobs

import (
	"context"
	"fmt"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/internal/pipeline"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// SummaryPublisher receives the run summary after each successful
// refresh; the ops server implements it.
type SummaryPublisher interface {
	SetSummary(summary *pipeline.RunSummary)
}

// ScheduleRefreshJob runs the full reconciliation pipeline on a daily
// schedule and publishes the summary.
type ScheduleRefreshJob struct {
	logger    *logger.Logger
	pipeline  *pipeline.Pipeline
	publisher SummaryPublisher
	schedule  string
}

// NewScheduleRefreshJob creates the daily refresh job
func NewScheduleRefreshJob(log *logger.Logger, p *pipeline.Pipeline, publisher SummaryPublisher, schedule string) *ScheduleRefreshJob {
	if schedule == "" {
		schedule = "0 6 * * *"
	}
	return &ScheduleRefreshJob{
		logger:    log.WithField("job", "schedule_refresh"),
		pipeline:  p,
		publisher: publisher,
		schedule:  schedule,
	}
}

// Name implements scheduler.Job
func (j *ScheduleRefreshJob) Name() string { return "schedule_refresh" }

// Schedule implements scheduler.Job
func (j *ScheduleRefreshJob) Schedule() string { return j.schedule }

// Run implements scheduler.Job. The summary is published even when the
// run fails, so the ops surface shows the failed attempt.
func (j *ScheduleRefreshJob) Run(ctx context.Context) error {
	summary, err := j.pipeline.Run(ctx)
	if summary != nil && j.publisher != nil {
		j.publisher.SetSummary(summary)
	}
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	return nil
}

// FacilityFetcher pulls the upstream facility index; the pools XML
// parser implements it.
type FacilityFetcher interface {
	Fetch(ctx context.Context) ([]contracts.Facility, error)
}

// FacilityWriter persists fetched facilities; the registry repository
// implements it.
type FacilityWriter interface {
	Upsert(ctx context.Context, facilities []contracts.Facility) error
}

// RegistryRefreshJob refreshes the facility registry from the upstream
// index on its own schedule, independent of the pipeline.
type RegistryRefreshJob struct {
	logger   *logger.Logger
	fetcher  FacilityFetcher
	writer   FacilityWriter
	schedule string
}

// NewRegistryRefreshJob creates the registry refresh job
func NewRegistryRefreshJob(log *logger.Logger, fetcher FacilityFetcher, writer FacilityWriter, schedule string) *RegistryRefreshJob {
	if schedule == "" {
		schedule = "0 4 * * 1"
	}
	return &RegistryRefreshJob{
		logger:   log.WithField("job", "registry_refresh"),
		fetcher:  fetcher,
		writer:   writer,
		schedule: schedule,
	}
}

// Name implements scheduler.Job
func (j *RegistryRefreshJob) Name() string { return "registry_refresh" }

// Schedule implements scheduler.Job
func (j *RegistryRefreshJob) Schedule() string { return j.schedule }

// Run implements scheduler.Job
func (j *RegistryRefreshJob) Run(ctx context.Context) error {
	facilities, err := j.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch facility index: %w", err)
	}
	if len(facilities) == 0 {
		j.logger.Warn("Facility index came back empty, keeping current registry")
		return nil
	}

	if err := j.writer.Upsert(ctx, facilities); err != nil {
		return fmt.Errorf("upsert facilities: %w", err)
	}

	j.logger.WithField("count", len(facilities)).Info("Registry refreshed")
	return nil
}
