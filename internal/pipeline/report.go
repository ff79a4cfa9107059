package pipeline

import (
	"time"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
)

// RunSummary is the machine-readable outcome of one pipeline run,
// served through the ops surface. It never carries stack traces; errors
// are aggregated into counts and source name lists.
type RunSummary struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	SourcesAttempted int      `json:"sources_attempted"`
	SourcesFailed    []string `json:"sources_failed,omitempty"`
	RecordsFetched   int      `json:"records_fetched"`

	SessionsProduced   int `json:"sessions_produced"`
	QuarantineCount    int `json:"quarantine_count"`
	LowConfidenceCount int `json:"low_confidence_count"`
	ConflictGroups     int `json:"conflict_groups"`

	Analysis contracts.ScheduleAnalysis `json:"analysis"`
	Quality  contracts.QualityReport    `json:"quality"`

	// Quarantined records held for manual review, not published
	Quarantine []contracts.RawRecord `json:"-"`
}

// Succeeded reports whether the run produced a usable session set
func (s *RunSummary) Succeeded() bool {
	return s.SessionsProduced > 0 || s.RecordsFetched == 0
}
