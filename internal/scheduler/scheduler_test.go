package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	err      error
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(logger.NewNop())
	s.retryDelay = time.Millisecond
	return s
}

func TestAddJobDuplicate(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddJob(&stubJob{name: "refresh", schedule: "@daily"}))
	err := s.AddJob(&stubJob{name: "refresh", schedule: "@daily"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestAddJobBadSchedule(t *testing.T) {
	s := newScheduler(t)

	err := s.AddJob(&stubJob{name: "broken", schedule: "not a cron"})
	require.Error(t, err)
}

func TestRunNow(t *testing.T) {
	s := newScheduler(t)

	job := &stubJob{name: "refresh", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunNow("refresh"))

	assert.Eventually(t, func() bool {
		return job.runs.Load() == 1
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		history, err := s.History("refresh")
		if err != nil {
			return false
		}
		latest, ok := history.Latest()
		return ok && latest.Success
	}, time.Second, 10*time.Millisecond)
}

func TestRunNowUnknownJob(t *testing.T) {
	s := newScheduler(t)
	require.Error(t, s.RunNow("missing"))
}

func TestRunJobRetriesAndRecordsFailure(t *testing.T) {
	s := newScheduler(t)

	job := &stubJob{name: "flaky", schedule: "@daily", err: errors.New("boom")}
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.RunNow("flaky"))

	assert.Eventually(t, func() bool {
		history, err := s.History("flaky")
		if err != nil {
			return false
		}
		latest, ok := history.Latest()
		return ok && !latest.Success && latest.Error == "boom"
	}, time.Second, 10*time.Millisecond)

	// Initial attempt plus retries
	assert.Equal(t, int32(3), job.runs.Load())
}

func TestHistoryBounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+10; i++ {
		h.Add(JobResult{JobName: "x", Success: true})
	}
	assert.Len(t, h.Results, historyLimit)
}
