package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

var testRegistry = []contracts.Facility{
	{FacilityID: "high-park-pool", Name: "High Park Pool", Address: "1765 Bloor St W", PostalCode: "M6R2Z6"},
	{FacilityID: "regent-park-aquatic-centre", Name: "Regent Park Aquatic Centre", Address: "640 Dundas St E", PostalCode: "M5A2B9"},
	{FacilityID: "norseman-community-school-and-pool", Name: "Norseman Community School and Pool", Address: "105 Norseman St", PostalCode: "M8Z2P7"},
}

func newMatcher(t *testing.T, snapshot []contracts.Facility) *Matcher {
	t.Helper()
	return New(logger.NewNop(), snapshot, DefaultThreshold)
}

func TestMatchExactName(t *testing.T) {
	m := newMatcher(t, testRegistry)

	result := m.Match(contracts.RawRecord{LocationNameRaw: "High Park Pool"})

	require.True(t, result.Matched())
	assert.Equal(t, "high-park-pool", result.FacilityID)
	assert.GreaterOrEqual(t, result.Confidence, 0.95)
	assert.Equal(t, 1.0, result.Basis.NameScore)
}

func TestMatchPostalDominates(t *testing.T) {
	m := newMatcher(t, testRegistry)

	result := m.Match(contracts.RawRecord{
		LocationNameRaw: "Regent Park A.C.",
		PostalCodeRaw:   "m5a 2b9",
	})

	require.True(t, result.Matched())
	assert.Equal(t, "regent-park-aquatic-centre", result.FacilityID)
	assert.Equal(t, 1.0, result.Basis.PostalScore)
}

func TestMatchBelowThreshold(t *testing.T) {
	m := newMatcher(t, testRegistry)

	result := m.Match(contracts.RawRecord{LocationNameRaw: "Completely Different Venue"})

	assert.False(t, result.Matched())
	assert.Empty(t, result.FacilityID)
}

func TestMatchEmptyRegistry(t *testing.T) {
	m := newMatcher(t, nil)

	result := m.Match(contracts.RawRecord{LocationNameRaw: "High Park Pool"})
	assert.False(t, result.Matched())
}

func TestMatchDeterminism(t *testing.T) {
	m := newMatcher(t, testRegistry)
	record := contracts.RawRecord{LocationNameRaw: "Norseman Community School", AddressRaw: "105 Norseman St"}

	first := m.Match(record)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Match(record))
	}
}

func TestMatchTieBreaksLexicographic(t *testing.T) {
	// Two candidates with identical names score identically; the
	// lexicographically smaller facility ID must win every time.
	snapshot := []contracts.Facility{
		{FacilityID: "b-pool", Name: "Community Pool"},
		{FacilityID: "a-pool", Name: "Community Pool"},
	}
	m := newMatcher(t, snapshot)

	result := m.Match(contracts.RawRecord{LocationNameRaw: "Community Pool"})
	require.True(t, result.Matched())
	assert.Equal(t, "a-pool", result.FacilityID)
}

func TestMatchTiePrefersPostal(t *testing.T) {
	snapshot := []contracts.Facility{
		{FacilityID: "a-pool", Name: "Community Pool"},
		{FacilityID: "b-pool", Name: "Community Pool", PostalCode: "M1B2C3"},
	}
	m := newMatcher(t, snapshot)

	// Name scores are identical for both; only b-pool matches postal.
	// With the postal signal present for b-pool only, its composite
	// equals a-pool's renormalized name-only score.
	result := m.Match(contracts.RawRecord{
		LocationNameRaw: "Community Pool",
		PostalCodeRaw:   "M1B 2C3",
	})

	require.True(t, result.Matched())
	assert.Equal(t, "b-pool", result.FacilityID)
}

func TestMatchMissingSignalsNotPenalized(t *testing.T) {
	m := newMatcher(t, testRegistry)

	// No address or postal on the record: the name signal alone should
	// carry the match above threshold.
	result := m.Match(contracts.RawRecord{LocationNameRaw: "Norseman Community School and Pool"})
	require.True(t, result.Matched())
	assert.Equal(t, "norseman-community-school-and-pool", result.FacilityID)
}

func TestJaccard(t *testing.T) {
	a := tokenSet("high park pool")
	b := tokenSet("high park swimming pool")
	assert.InDelta(t, 0.75, jaccard(a, b), 0.001)

	assert.Zero(t, jaccard(a, nil))
	assert.Equal(t, 1.0, jaccard(a, a))
}
