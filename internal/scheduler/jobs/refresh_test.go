package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

type stubFetcher struct {
	facilities []contracts.Facility
	err        error
}

func (s *stubFetcher) Fetch(ctx context.Context) ([]contracts.Facility, error) {
	return s.facilities, s.err
}

type stubWriter struct {
	upserted []contracts.Facility
	err      error
}

func (s *stubWriter) Upsert(ctx context.Context, facilities []contracts.Facility) error {
	s.upserted = facilities
	return s.err
}

func TestRegistryRefreshJob(t *testing.T) {
	fetcher := &stubFetcher{facilities: []contracts.Facility{
		{FacilityID: "high-park-pool", Name: "High Park Pool"},
	}}
	writer := &stubWriter{}

	job := NewRegistryRefreshJob(logger.NewNop(), fetcher, writer, "")
	assert.Equal(t, "registry_refresh", job.Name())
	assert.Equal(t, "0 4 * * 1", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, writer.upserted, 1)
	assert.Equal(t, "high-park-pool", writer.upserted[0].FacilityID)
}

func TestRegistryRefreshJobFetchError(t *testing.T) {
	job := NewRegistryRefreshJob(logger.NewNop(), &stubFetcher{err: errors.New("down")}, &stubWriter{}, "")
	require.Error(t, job.Run(context.Background()))
}

func TestRegistryRefreshJobEmptyIndexKeepsRegistry(t *testing.T) {
	writer := &stubWriter{}
	job := NewRegistryRefreshJob(logger.NewNop(), &stubFetcher{}, writer, "")

	require.NoError(t, job.Run(context.Background()))
	assert.Nil(t, writer.upserted)
}

func TestRegistryRefreshJobWriteError(t *testing.T) {
	fetcher := &stubFetcher{facilities: []contracts.Facility{{FacilityID: "x", Name: "X"}}}
	job := NewRegistryRefreshJob(logger.NewNop(), fetcher, &stubWriter{err: errors.New("db down")}, "")
	require.Error(t, job.Run(context.Background()))
}

func TestScheduleRefreshJobDefaults(t *testing.T) {
	job := NewScheduleRefreshJob(logger.NewNop(), nil, nil, "")
	assert.Equal(t, "schedule_refresh", job.Name())
	assert.Equal(t, "0 6 * * *", job.Schedule())
}
