package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

var testDate = time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

func session(facilityID string, swimType contracts.SwimType, startH, startM, endH, endM int) contracts.Session {
	start := contracts.NewTimeOfDay(startH, startM)
	end := contracts.NewTimeOfDay(endH, endM)
	return contracts.Session{
		FacilityID: facilityID,
		SwimType:   swimType,
		Date:       testDate,
		StartTime:  start,
		EndTime:    end,
		SourceID:   "test",
		DedupHash:  contracts.ComputeDedupHash(facilityID, swimType, testDate, start, end, "test"),
	}
}

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	return New(logger.NewNop())
}

func TestResolveLaneSwimWins(t *testing.T) {
	r := newResolver(t)

	lane := session("pool-a", contracts.LaneSwim, 6, 0, 7, 0)
	rec := session("pool-a", contracts.Recreational, 6, 30, 8, 30)

	kept, conflicts := r.Resolve([]contracts.Session{rec, lane})

	require.Len(t, kept, 1)
	assert.Equal(t, contracts.LaneSwim, kept[0].SwimType)

	require.Len(t, conflicts, 1)
	require.Len(t, conflicts[0].Removed, 1)
	assert.Equal(t, contracts.ReasonLowerPriorityType, conflicts[0].Removed[0].Reason)
}

func TestResolveLongerDurationWins(t *testing.T) {
	r := newResolver(t)

	long := session("pool-a", contracts.Recreational, 13, 0, 16, 0)
	short := session("pool-a", contracts.Recreational, 14, 0, 15, 0)

	kept, conflicts := r.Resolve([]contracts.Session{short, long})

	require.Len(t, kept, 1)
	assert.Equal(t, long.DedupHash, kept[0].DedupHash)
	require.Len(t, conflicts, 1)
	assert.Equal(t, contracts.ReasonShorterDuration, conflicts[0].Removed[0].Reason)
}

func TestResolveEarlierStartWins(t *testing.T) {
	r := newResolver(t)

	early := session("pool-a", contracts.LaneSwim, 6, 0, 7, 0)
	late := session("pool-a", contracts.LaneSwim, 6, 30, 7, 30)

	kept, conflicts := r.Resolve([]contracts.Session{late, early})

	require.Len(t, kept, 1)
	assert.Equal(t, early.DedupHash, kept[0].DedupHash)
	require.Len(t, conflicts, 1)
	assert.Equal(t, contracts.ReasonLaterStart, conflicts[0].Removed[0].Reason)
}

func TestResolveNoOverlapKeepsAll(t *testing.T) {
	r := newResolver(t)

	morning := session("pool-a", contracts.LaneSwim, 6, 0, 7, 0)
	evening := session("pool-a", contracts.Recreational, 19, 0, 21, 0)
	otherPool := session("pool-b", contracts.LaneSwim, 6, 0, 7, 0)

	kept, conflicts := r.Resolve([]contracts.Session{evening, otherPool, morning})

	assert.Len(t, kept, 3)
	assert.Empty(t, conflicts)
}

func TestResolveAdjacentNotConflicting(t *testing.T) {
	r := newResolver(t)

	// Back-to-back half-open intervals share an endpoint, not time
	first := session("pool-a", contracts.LaneSwim, 6, 0, 7, 0)
	second := session("pool-a", contracts.Recreational, 7, 0, 8, 0)

	kept, conflicts := r.Resolve([]contracts.Session{first, second})
	assert.Len(t, kept, 2)
	assert.Empty(t, conflicts)
}

func TestResolveTransitiveChain(t *testing.T) {
	r := newResolver(t)

	// a overlaps b, b overlaps c, a does not overlap c. The strongest
	// session wins its overlaps; c survives because its only overlap
	// (b) was already removed.
	a := session("pool-a", contracts.LaneSwim, 6, 0, 8, 0)
	b := session("pool-a", contracts.Recreational, 7, 30, 9, 30)
	c := session("pool-a", contracts.Recreational, 9, 0, 10, 0)

	kept, _ := r.Resolve([]contracts.Session{c, b, a})

	require.Len(t, kept, 2)
	assert.Equal(t, a.DedupHash, kept[0].DedupHash)
	assert.Equal(t, c.DedupHash, kept[1].DedupHash)
}

func TestResolveNoResidualOverlap(t *testing.T) {
	r := newResolver(t)

	sessions := []contracts.Session{
		session("pool-a", contracts.LaneSwim, 6, 0, 7, 30),
		session("pool-a", contracts.Recreational, 6, 30, 8, 0),
		session("pool-a", contracts.FamilySwim, 7, 0, 9, 0),
		session("pool-a", contracts.AdultSwim, 8, 30, 10, 0),
		session("pool-b", contracts.LaneSwim, 6, 0, 9, 0),
	}

	kept, _ := r.Resolve(sessions)

	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			assert.False(t, kept[i].Overlaps(kept[j]),
				"sessions %d and %d overlap", i, j)
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := newResolver(t)

	sessions := []contracts.Session{
		session("pool-a", contracts.Recreational, 6, 30, 8, 30),
		session("pool-a", contracts.LaneSwim, 6, 0, 7, 0),
		session("pool-b", contracts.FamilySwim, 13, 0, 15, 0),
	}

	firstKept, firstConflicts := r.Resolve(sessions)

	// Shuffled input order must not change the outcome
	shuffled := []contracts.Session{sessions[2], sessions[0], sessions[1]}
	secondKept, secondConflicts := r.Resolve(shuffled)

	assert.Equal(t, firstKept, secondKept)
	assert.Equal(t, len(firstConflicts), len(secondConflicts))
}
