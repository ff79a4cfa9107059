package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/internal/ingest"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// fixedNow is a Wednesday
var fixedNow = time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)

type fakeSource struct {
	name    string
	records []contracts.RawRecord
	err     error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) ([]contracts.RawRecord, error) {
	return f.records, f.err
}

type fakeRegistry struct {
	facilities []contracts.Facility
	err        error
}

func (f *fakeRegistry) Facilities(ctx context.Context) ([]contracts.Facility, error) {
	return f.facilities, f.err
}

type fakeStore struct {
	sessions     []contracts.Session
	replaceCalls int
	lockBusy     bool
}

func (f *fakeStore) AcquireRunLock(ctx context.Context) (func(), error) {
	if f.lockBusy {
		return nil, errors.New("another pipeline run is in progress")
	}
	return func() {}, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.sessions), nil
}

func (f *fakeStore) Replace(ctx context.Context, sessions []contracts.Session) error {
	f.sessions = sessions
	f.replaceCalls++
	return nil
}

func highParkRecord() contracts.RawRecord {
	return contracts.RawRecord{
		SourceID:        "toronto_open_data",
		LocationNameRaw: "High Park Pool",
		CourseName:      "Adult Lane Swim",
		Weekdays:        []time.Weekday{time.Monday},
		StartTime:       contracts.NewTimeOfDay(6, 0),
		EndTime:         contracts.NewTimeOfDay(7, 30),
	}
}

func highParkRegistry() *fakeRegistry {
	return &fakeRegistry{facilities: []contracts.Facility{
		{FacilityID: "high-park-pool", Name: "High Park Pool", PostalCode: "M6R2Z6"},
	}}
}

func newPipeline(sources []*fakeSource, reg *fakeRegistry, store *fakeStore) *Pipeline {
	converted := make([]ingest.Source, len(sources))
	for i, s := range sources {
		converted[i] = s
	}

	cfg := Config{HorizonWeeks: 4, MatchThreshold: 0.6, Workers: 3, MinFacilities: 3, PeakWindows: 5}

	p := New(logger.NewNop(), cfg, converted, reg, store)
	return p.WithClock(func() time.Time { return fixedNow })
}

func TestRunHighParkScenario(t *testing.T) {
	store := &fakeStore{}
	src := &fakeSource{name: "toronto_open_data", records: []contracts.RawRecord{highParkRecord()}}

	p := newPipeline([]*fakeSource{src}, highParkRegistry(), store)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SourcesAttempted)
	assert.Empty(t, summary.SourcesFailed)
	assert.Equal(t, 1, summary.RecordsFetched)
	assert.Equal(t, 4, summary.SessionsProduced)
	assert.Zero(t, summary.QuarantineCount)
	assert.Equal(t, 1.0, summary.Quality.QualityScore)

	require.Len(t, store.sessions, 4)
	hashes := make(map[string]bool)
	for _, s := range store.sessions {
		assert.Equal(t, "high-park-pool", s.FacilityID)
		assert.Equal(t, contracts.LaneSwim, s.SwimType)
		assert.Equal(t, time.Monday, s.Date.Weekday())
		assert.Equal(t, contracts.NewTimeOfDay(6, 0), s.StartTime)
		assert.Equal(t, contracts.NewTimeOfDay(7, 30), s.EndTime)
		hashes[s.DedupHash] = true
	}
	assert.Len(t, hashes, 4)
}

func TestRunIdempotent(t *testing.T) {
	src := &fakeSource{name: "toronto_open_data", records: []contracts.RawRecord{highParkRecord()}}

	store1 := &fakeStore{}
	first, err := newPipeline([]*fakeSource{src}, highParkRegistry(), store1).Run(context.Background())
	require.NoError(t, err)

	store2 := &fakeStore{}
	second, err := newPipeline([]*fakeSource{src}, highParkRegistry(), store2).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.SessionsProduced, second.SessionsProduced)
	assert.Equal(t, store1.sessions, store2.sessions)
}

func TestRunEmptyResultSafeguard(t *testing.T) {
	prior := contracts.Session{FacilityID: "high-park-pool", DedupHash: "prior"}
	store := &fakeStore{sessions: []contracts.Session{prior}}

	// The only source yields records that cannot be matched
	src := &fakeSource{name: "toronto_open_data", records: []contracts.RawRecord{
		{
			SourceID:        "toronto_open_data",
			LocationNameRaw: "Unknown Venue",
			CourseName:      "Lane Swim",
			Weekdays:        []time.Weekday{time.Monday},
			StartTime:       contracts.NewTimeOfDay(6, 0),
			EndTime:         contracts.NewTimeOfDay(7, 0),
		},
	}}

	p := newPipeline([]*fakeSource{src}, highParkRegistry(), store)

	summary, err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrEmptyResult)

	// Store untouched, quarantine reported
	assert.Zero(t, store.replaceCalls)
	require.Len(t, store.sessions, 1)
	assert.Equal(t, "prior", store.sessions[0].DedupHash)
	assert.Equal(t, 1, summary.QuarantineCount)
}

func TestRunEmptyResultOverEmptyStoreAllowed(t *testing.T) {
	store := &fakeStore{}
	src := &fakeSource{name: "toronto_open_data", records: nil}

	p := newPipeline([]*fakeSource{src}, highParkRegistry(), store)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.SessionsProduced)
	assert.True(t, summary.Quality.NoData)
	assert.Equal(t, 1, store.replaceCalls)
}

func TestRunSourceFailureIsolated(t *testing.T) {
	store := &fakeStore{}
	good := &fakeSource{name: "toronto_open_data", records: []contracts.RawRecord{highParkRecord()}}
	bad := &fakeSource{name: "facility_scraper", err: errors.New("boom")}

	p := newPipeline([]*fakeSource{good, bad}, highParkRegistry(), store)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SourcesAttempted)
	assert.Equal(t, []string{"facility_scraper"}, summary.SourcesFailed)
	assert.Equal(t, 4, summary.SessionsProduced)
}

func TestRunAllSourcesFailed(t *testing.T) {
	store := &fakeStore{}
	bad1 := &fakeSource{name: "toronto_open_data", err: errors.New("boom")}
	bad2 := &fakeSource{name: "facility_scraper", err: errors.New("boom")}

	p := newPipeline([]*fakeSource{bad1, bad2}, highParkRegistry(), store)

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.Zero(t, store.replaceCalls)
}

func TestRunEmptyRegistryQuarantinesEverything(t *testing.T) {
	store := &fakeStore{}
	src := &fakeSource{name: "toronto_open_data", records: []contracts.RawRecord{highParkRecord()}}

	p := newPipeline([]*fakeSource{src}, &fakeRegistry{}, store)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.SessionsProduced)
	assert.Equal(t, 1, summary.QuarantineCount)
}

func TestRunLockBusy(t *testing.T) {
	store := &fakeStore{lockBusy: true}
	src := &fakeSource{name: "toronto_open_data", records: []contracts.RawRecord{highParkRecord()}}

	p := newPipeline([]*fakeSource{src}, highParkRegistry(), store)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run lock")
}

func TestRunDryRunLeavesStoreUntouched(t *testing.T) {
	store := &fakeStore{}
	src := &fakeSource{name: "toronto_open_data", records: []contracts.RawRecord{highParkRecord()}}

	p := newPipeline([]*fakeSource{src}, highParkRegistry(), store).WithDryRun(true)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.SessionsProduced)
	assert.Zero(t, store.replaceCalls)
}

func TestRunLowConfidenceCounted(t *testing.T) {
	store := &fakeStore{}
	record := highParkRecord()
	record.CourseName = "Mystery Program"
	record.StartTime = contracts.NewTimeOfDay(12, 0)
	record.EndTime = contracts.NewTimeOfDay(13, 0)
	src := &fakeSource{name: "toronto_open_data", records: []contracts.RawRecord{record}}

	p := newPipeline([]*fakeSource{src}, highParkRegistry(), store)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.LowConfidenceCount)
	assert.Equal(t, 4, summary.SessionsProduced)
}
