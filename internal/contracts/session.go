package contracts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Session is the canonical output unit of the reconciliation engine.
// Sessions are never mutated after creation; the conflict resolver may
// remove them but replacement is always a new value.
type Session struct {
	FacilityID      string
	SwimType        SwimType
	Date            time.Time
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	Notes           string
	SourceID        string
	MatchConfidence float64
	DedupHash       string
}

// ComputeDedupHash returns the stable content hash used for session
// deduplication: sha256 over (facility_id, swim_type, date, start_time,
// end_time, source_id).
func ComputeDedupHash(facilityID string, swimType SwimType, date time.Time, start, end TimeOfDay, sourceID string) string {
	content := fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		facilityID, swimType, date.Format("2006-01-02"), start, end, sourceID)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Duration returns the session length
func (s Session) Duration() time.Duration {
	return time.Duration(s.EndTime-s.StartTime) * time.Minute
}

// Overlaps reports whether two sessions occupy intersecting half-open
// [start, end) intervals on the same facility and date.
func (s Session) Overlaps(other Session) bool {
	if s.FacilityID != other.FacilityID || !s.Date.Equal(other.Date) {
		return false
	}
	return s.StartTime < other.EndTime && other.StartTime < s.EndTime
}

// SortSessions orders sessions canonically so that identical inputs
// always produce byte-identical output sets.
func SortSessions(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if a.FacilityID != b.FacilityID {
			return a.FacilityID < b.FacilityID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.SwimType != b.SwimType {
			return a.SwimType < b.SwimType
		}
		return a.DedupHash < b.DedupHash
	})
}

// ConflictReason codes why a session lost a conflict resolution
type ConflictReason string

const (
	ReasonLowerPriorityType ConflictReason = "lower_priority_type"
	ReasonShorterDuration   ConflictReason = "shorter_duration"
	ReasonLaterStart        ConflictReason = "later_start"
)

// RemovedSession records a conflict loser and why it was removed
type RemovedSession struct {
	Session Session
	Reason  ConflictReason
}

// ConflictGroup is a set of same-facility same-date sessions whose time
// ranges overlapped, resolved to a kept subset plus a removal log.
type ConflictGroup struct {
	FacilityID string
	Date       time.Time
	Kept       []Session
	Removed    []RemovedSession
}

// PeakWindow is a high-traffic (weekday, hour) coverage cell
type PeakWindow struct {
	Day   time.Weekday
	Hour  int
	Count int
}

// ScheduleAnalysis is a read-only coverage summary over the final
// session set.
type ScheduleAnalysis struct {
	TotalSessions   int
	FacilityCount   int
	Coverage        [7][24]int // [weekday][hour] -> session count
	PeakWindows     []PeakWindow
	LowCoverageDays []time.Weekday
}

// IssueKind categorizes a per-session validation failure
type IssueKind string

const (
	IssueMissingField       IssueKind = "MISSING_FIELD"
	IssueInvalidTimeRange   IssueKind = "INVALID_TIME_RANGE"
	IssueDateOutOfRange     IssueKind = "DATE_OUT_OF_RANGE"
	IssueUnresolvedFacility IssueKind = "UNRESOLVED_FACILITY"
)

// QualityReport aggregates structural validation over the final session
// set. QualityScore is ValidCount/Total, defined as 1.0 when Total is 0;
// that empty state additionally sets NoData.
type QualityReport struct {
	Total           int
	ValidCount      int
	QualityScore    float64
	NoData          bool
	IssuesByType    map[IssueKind]int
	Recommendations []string
}
