package quality

import (
	"fmt"
	"time"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
)

// Validator runs per-session structural checks and aggregates them into
// a quality report. Validation never blocks output; issues are counted,
// not fatal.
type Validator struct {
	horizonWeeks int
	now          func() time.Time
}

// New creates a Validator. horizonWeeks bounds how far in the future a
// session date may legitimately fall.
func New(horizonWeeks int) *Validator {
	if horizonWeeks < 1 {
		horizonWeeks = 4
	}
	return &Validator{horizonWeeks: horizonWeeks, now: time.Now}
}

// WithClock fixes the validator's notion of today. Used in tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate checks every session and returns the aggregate report. The
// quality score is valid/total, defined as 1.0 for an empty set; that
// state also raises the distinct NoData signal so an empty run is never
// mistaken for a perfect one.
func (v *Validator) Validate(sessions []contracts.Session) contracts.QualityReport {
	report := contracts.QualityReport{
		Total:        len(sessions),
		IssuesByType: make(map[contracts.IssueKind]int),
	}

	if len(sessions) == 0 {
		report.QualityScore = 1.0
		report.NoData = true
		report.Recommendations = []string{"No sessions were produced; check source availability before publishing"}
		return report
	}

	today := v.now().Truncate(24 * time.Hour)
	earliest := today.AddDate(0, 0, -1)
	latest := today.AddDate(0, 0, v.horizonWeeks*7)

	for _, s := range sessions {
		if valid := v.check(s, earliest, latest, report.IssuesByType); valid {
			report.ValidCount++
		}
	}

	report.QualityScore = float64(report.ValidCount) / float64(report.Total)
	report.Recommendations = recommendations(report)
	return report
}

// check records every issue the session has and reports whether it had
// none.
func (v *Validator) check(s contracts.Session, earliest, latest time.Time, issues map[contracts.IssueKind]int) bool {
	valid := true

	if s.FacilityID == "" {
		issues[contracts.IssueUnresolvedFacility]++
		valid = false
	}
	if s.SwimType == "" || s.SourceID == "" || s.DedupHash == "" || s.Date.IsZero() {
		issues[contracts.IssueMissingField]++
		valid = false
	}
	if s.StartTime >= s.EndTime || !s.StartTime.Valid() || !s.EndTime.Valid() {
		issues[contracts.IssueInvalidTimeRange]++
		valid = false
	}
	if !s.Date.IsZero() && (s.Date.Before(earliest) || s.Date.After(latest)) {
		issues[contracts.IssueDateOutOfRange]++
		valid = false
	}

	return valid
}

// recommendations renders template advice keyed off the dominant issue
// type.
func recommendations(report contracts.QualityReport) []string {
	kind, count := dominantIssue(report.IssuesByType)
	if count == 0 {
		return nil
	}

	pct := count * 100 / report.Total

	var recs []string
	switch kind {
	case contracts.IssueUnresolvedFacility:
		recs = append(recs, fmt.Sprintf("%d%% of sessions lack a facility match; review source location names against the registry", pct))
	case contracts.IssueInvalidTimeRange:
		recs = append(recs, fmt.Sprintf("%d%% of sessions have invalid time ranges; review upstream schedule parsing", pct))
	case contracts.IssueDateOutOfRange:
		recs = append(recs, fmt.Sprintf("%d%% of sessions fall outside the publishing horizon; check source date handling", pct))
	case contracts.IssueMissingField:
		recs = append(recs, fmt.Sprintf("%d%% of sessions are missing required fields; check source adapters", pct))
	}
	return recs
}

// dominantIssue picks the most frequent issue kind, breaking ties by
// kind name for determinism.
func dominantIssue(issues map[contracts.IssueKind]int) (contracts.IssueKind, int) {
	var best contracts.IssueKind
	bestCount := 0
	for kind, count := range issues {
		if count > bestCount || (count == bestCount && count > 0 && kind < best) {
			best = kind
			bestCount = count
		}
	}
	return best, bestCount
}
