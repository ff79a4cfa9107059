package expand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// fixedNow is a Wednesday
var fixedNow = time.Date(2026, 1, 7, 10, 30, 0, 0, time.UTC)

func newExpander(t *testing.T, horizonWeeks int) *Expander {
	t.Helper()
	return New(logger.NewNop(), horizonWeeks).WithClock(func() time.Time { return fixedNow })
}

func laneSwimInput() Input {
	return Input{
		Record: contracts.RawRecord{
			SourceID:        "toronto_open_data",
			LocationNameRaw: "High Park Pool",
			CourseName:      "Adult Lane Swim",
			Weekdays:        []time.Weekday{time.Monday},
			StartTime:       contracts.NewTimeOfDay(6, 0),
			EndTime:         contracts.NewTimeOfDay(7, 30),
		},
		Classification: contracts.ClassificationResult{
			SwimType:   contracts.LaneSwim,
			Confidence: 1.0,
		},
		Match: contracts.MatchResult{
			FacilityID: "high-park-pool",
			Confidence: 0.97,
		},
	}
}

func TestExpandWeeklyOccurrences(t *testing.T) {
	e := newExpander(t, 4)

	sessions, quarantine := e.Expand([]Input{laneSwimInput()})
	require.Empty(t, quarantine)

	// Exactly one session per Monday inside the 4-week horizon
	require.Len(t, sessions, 4)

	hashes := make(map[string]bool)
	for _, s := range sessions {
		assert.Equal(t, "high-park-pool", s.FacilityID)
		assert.Equal(t, contracts.LaneSwim, s.SwimType)
		assert.Equal(t, time.Monday, s.Date.Weekday())
		assert.Equal(t, contracts.NewTimeOfDay(6, 0), s.StartTime)
		assert.Equal(t, contracts.NewTimeOfDay(7, 30), s.EndTime)
		assert.Equal(t, 0.97, s.MatchConfidence)
		hashes[s.DedupHash] = true
	}
	assert.Len(t, hashes, 4)

	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), sessions[0].Date)
}

func TestExpandQuarantinesUnmatched(t *testing.T) {
	e := newExpander(t, 4)

	unmatched := laneSwimInput()
	unmatched.Match = contracts.MatchResult{}

	sessions, quarantine := e.Expand([]Input{unmatched, laneSwimInput()})

	assert.Len(t, sessions, 4)
	require.Len(t, quarantine, 1)
	assert.Equal(t, "High Park Pool", quarantine[0].LocationNameRaw)
}

func TestExpandDeduplicates(t *testing.T) {
	e := newExpander(t, 2)

	// Identical inputs twice must not grow the output
	sessions, _ := e.Expand([]Input{laneSwimInput(), laneSwimInput()})
	assert.Len(t, sessions, 2)
}

func TestExpandRespectsDateRange(t *testing.T) {
	e := newExpander(t, 4)

	in := laneSwimInput()
	// Program ends after the second Monday of the horizon
	in.Record.Dates = contracts.DateRange{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC),
	}

	sessions, _ := e.Expand([]Input{in})
	require.Len(t, sessions, 2)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), sessions[0].Date)
	assert.Equal(t, time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC), sessions[1].Date)
}

func TestExpandSingleDatedRecord(t *testing.T) {
	e := newExpander(t, 4)

	// A record pinned to one concrete date expands to exactly one session
	date := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	in := laneSwimInput()
	in.Record.Dates = contracts.DateRange{Start: date, End: date}

	sessions, _ := e.Expand([]Input{in})
	require.Len(t, sessions, 1)
	assert.Equal(t, date, sessions[0].Date)
}

func TestExpandIdempotent(t *testing.T) {
	e := newExpander(t, 4)
	inputs := []Input{laneSwimInput()}

	first, _ := e.Expand(inputs)
	second, _ := e.Expand(inputs)
	assert.Equal(t, first, second)
}

func TestBuildNotes(t *testing.T) {
	assert.Equal(t, "Lane Swim; Ages 18-64", buildNotes(contracts.RawRecord{
		CourseName: "Lane Swim", AgeMin: "18", AgeMax: "64",
	}))
	assert.Equal(t, "Lane Swim; 18yrs and over", buildNotes(contracts.RawRecord{
		CourseName: "Lane Swim", AgeMin: "18yrs and over",
	}))
	assert.Equal(t, "", buildNotes(contracts.RawRecord{}))
}
