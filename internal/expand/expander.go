package expand

import (
	"strings"
	"time"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// Input is one fully classified and matched record ready for expansion
type Input struct {
	Record         contracts.RawRecord
	Classification contracts.ClassificationResult
	Match          contracts.MatchResult
}

// Expander turns recurring definitions into concrete dated sessions
// within a rolling horizon. Records without a facility match are routed
// to a quarantine list, never silently dropped.
type Expander struct {
	logger       *logger.Logger
	horizonWeeks int
	now          func() time.Time
}

// New creates an Expander with the given horizon
func New(log *logger.Logger, horizonWeeks int) *Expander {
	return &Expander{
		logger:       log.WithField("component", "expander"),
		horizonWeeks: horizonWeeks,
		now:          time.Now,
	}
}

// WithClock fixes the expander's notion of today. Used in tests.
func (e *Expander) WithClock(now func() time.Time) *Expander {
	e.now = now
	return e
}

// Expand generates one session per weekday occurrence inside the
// half-open window [today, today + horizon), so every weekday occurs
// exactly horizonWeeks times. Sessions are deduplicated by content hash
// as they accumulate, so identical inputs can never grow the output.
func (e *Expander) Expand(inputs []Input) ([]contracts.Session, []contracts.RawRecord) {
	today := startOfDay(e.now())
	horizonEnd := today.AddDate(0, 0, e.horizonWeeks*7)

	var sessions []contracts.Session
	var quarantine []contracts.RawRecord
	seen := make(map[string]bool)

	for _, in := range inputs {
		if !in.Match.Matched() {
			quarantine = append(quarantine, in.Record)
			continue
		}

		for _, weekday := range in.Record.Weekdays {
			for date := today; date.Before(horizonEnd); date = date.AddDate(0, 0, 1) {
				if date.Weekday() != weekday {
					continue
				}
				if !inDateRange(date, in.Record.Dates) {
					continue
				}

				hash := contracts.ComputeDedupHash(
					in.Match.FacilityID, in.Classification.SwimType, date,
					in.Record.StartTime, in.Record.EndTime, in.Record.SourceID)
				if seen[hash] {
					continue
				}
				seen[hash] = true

				sessions = append(sessions, contracts.Session{
					FacilityID:      in.Match.FacilityID,
					SwimType:        in.Classification.SwimType,
					Date:            date,
					StartTime:       in.Record.StartTime,
					EndTime:         in.Record.EndTime,
					Notes:           buildNotes(in.Record),
					SourceID:        in.Record.SourceID,
					MatchConfidence: in.Match.Confidence,
					DedupHash:       hash,
				})
			}
		}
	}

	if len(quarantine) > 0 {
		e.logger.WithField("count", len(quarantine)).Warn("Quarantined unmatched records")
	}

	return sessions, quarantine
}

// buildNotes assembles human-readable session notes from the course name
// and any audience hints on the record.
func buildNotes(record contracts.RawRecord) string {
	var parts []string
	if record.CourseName != "" {
		parts = append(parts, record.CourseName)
	}
	switch {
	case record.AgeMin != "" && record.AgeMax != "":
		parts = append(parts, "Ages "+record.AgeMin+"-"+record.AgeMax)
	case record.AgeMin != "":
		parts = append(parts, record.AgeMin)
	case record.AgeMax != "":
		parts = append(parts, "Up to age "+record.AgeMax)
	}
	return strings.Join(parts, "; ")
}

// inDateRange checks the record's own date bounds; zero bounds are open
func inDateRange(date time.Time, r contracts.DateRange) bool {
	if !r.Start.IsZero() && date.Before(startOfDay(r.Start)) {
		return false
	}
	if !r.End.IsZero() && date.After(startOfDay(r.End)) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
