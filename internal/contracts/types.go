package contracts

import (
	"fmt"
	"time"
)

// SwimType is the canonical activity classification for a session
type SwimType string

const (
	LaneSwim     SwimType = "LANE_SWIM"
	Recreational SwimType = "RECREATIONAL"
	AdultSwim    SwimType = "ADULT_SWIM"
	SeniorSwim   SwimType = "SENIOR_SWIM"
	FamilySwim   SwimType = "FAMILY_SWIM"
	OtherSwim    SwimType = "OTHER"
)

// Valid reports whether t is one of the known swim types
func (t SwimType) Valid() bool {
	switch t {
	case LaneSwim, Recreational, AdultSwim, SeniorSwim, FamilySwim, OtherSwim:
		return true
	}
	return false
}

// AgeGroup is the audience inferred from program text
type AgeGroup string

const (
	AgeYouth   AgeGroup = "youth"
	AgeAdult   AgeGroup = "adult"
	AgeSenior  AgeGroup = "senior"
	AgeFamily  AgeGroup = "family"
	AgeGeneral AgeGroup = "general"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// The zero value is 00:00; valid values are in [0, 1440).
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// Hour returns the hour component (0-23)
func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

// Minute returns the minute component (0-59)
func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

// Valid reports whether t falls within a single day
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < 24*60
}

// String formats the time as HH:MM
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// ParseClock parses a strict 24-hour "HH:MM" string
func ParseClock(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	t := NewTimeOfDay(h, m)
	if !t.Valid() || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return t, nil
}

// DateRange bounds a recurring program. Zero Start/End mean unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// RawRecord is an unnormalized program listing produced by a source
// adapter. Immutable once created; lives for one pipeline run.
type RawRecord struct {
	SourceID        string
	LocationNameRaw string
	AddressRaw      string
	PostalCodeRaw   string
	CourseName      string
	CategoryText    string
	Weekdays        []time.Weekday
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	Dates           DateRange

	// Optional audience hints carried through to session notes
	AgeMin string
	AgeMax string
}

// ClassificationResult is the deterministic activity classification of a
// RawRecord. Never mutated after creation.
type ClassificationResult struct {
	SwimType   SwimType
	Confidence float64
	Tags       []string
	AgeGroup   AgeGroup
}

// HasTag reports whether the classification carries the given tag
func (c ClassificationResult) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Facility is a canonical facility registry entry. The engine only reads
// a snapshot per run; the registry collaborator owns the data.
type Facility struct {
	FacilityID string
	Name       string
	Address    string
	PostalCode string
	Latitude   float64
	Longitude  float64
}

// MatchBasis breaks a composite match score into its signals
type MatchBasis struct {
	NameScore    float64
	AddressScore float64
	PostalScore  float64
}

// MatchResult resolves a RawRecord to a canonical facility. FacilityID is
// empty when the best composite score fell below the threshold.
type MatchResult struct {
	FacilityID string
	Confidence float64
	Basis      MatchBasis
}

// Matched reports whether a facility was confidently resolved
func (m MatchResult) Matched() bool {
	return m.FacilityID != ""
}
