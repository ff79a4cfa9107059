package match

import (
	"regexp"
	"strings"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/internal/registry"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// Signal weights. Postal code dominates because it is the strongest
// unambiguous signal when present; weights renormalize over the signals
// both sides actually carry.
const (
	weightName    = 0.45
	weightAddress = 0.15
	weightPostal  = 0.40

	substringBonus = 0.3
)

// DefaultThreshold is the minimum composite score for a match
const DefaultThreshold = 0.6

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// candidate is a registry entry with its tokens precomputed once per
// run. The cache lives inside the Matcher, never as package state, so
// concurrent runs stay independent.
type candidate struct {
	facility      contracts.Facility
	nameTokens    map[string]bool
	nameNorm      string
	addressTokens map[string]bool
	postal        string
}

// Matcher resolves raw location fragments against a registry snapshot.
// A Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	logger     *logger.Logger
	candidates []candidate
	threshold  float64
}

// New builds a Matcher over a registry snapshot. An empty snapshot is
// legal: every match comes back unmatched and a distinct EMPTY_REGISTRY
// warning is logged once.
func New(log *logger.Logger, snapshot []contracts.Facility, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	m := &Matcher{
		logger:    log.WithField("component", "matcher"),
		threshold: threshold,
	}

	if len(snapshot) == 0 {
		m.logger.Warn("EMPTY_REGISTRY: no facilities in registry snapshot, all matches will fail")
		return m
	}

	m.candidates = make([]candidate, 0, len(snapshot))
	for _, f := range snapshot {
		nameNorm := normalize(f.Name)
		m.candidates = append(m.candidates, candidate{
			facility:      f,
			nameTokens:    tokenSet(nameNorm),
			nameNorm:      nameNorm,
			addressTokens: tokenSet(normalize(f.Address)),
			postal:        registry.NormalizePostal(f.PostalCode),
		})
	}
	return m
}

// Match scores the record against every candidate and returns the best
// composite above the threshold. Deterministic: ties prefer the
// candidate with a postal match, then the lexicographically smaller
// facility ID.
func (m *Matcher) Match(record contracts.RawRecord) contracts.MatchResult {
	if len(m.candidates) == 0 {
		return contracts.MatchResult{}
	}

	recordName := normalize(record.LocationNameRaw)
	recordNameTokens := tokenSet(recordName)
	recordAddressTokens := tokenSet(normalize(record.AddressRaw))
	recordPostal := registry.NormalizePostal(record.PostalCodeRaw)

	var (
		best       contracts.MatchResult
		bestPostal bool
		found      bool
	)

	for _, c := range m.candidates {
		basis, score, postalMatched := m.score(recordName, recordNameTokens, recordAddressTokens, recordPostal, c)
		if score < m.threshold {
			continue
		}

		better := !found || score > best.Confidence
		if found && score == best.Confidence {
			if postalMatched != bestPostal {
				better = postalMatched
			} else {
				better = c.facility.FacilityID < best.FacilityID
			}
		}

		if better {
			best = contracts.MatchResult{
				FacilityID: c.facility.FacilityID,
				Confidence: score,
				Basis:      basis,
			}
			bestPostal = postalMatched
			found = true
		}
	}

	return best
}

// score computes the weighted composite for one candidate. Signals
// missing on either side are dropped and the remaining weights
// renormalized, so a record without an address is not penalized for it.
func (m *Matcher) score(recordName string, nameTokens, addressTokens map[string]bool, recordPostal string, c candidate) (contracts.MatchBasis, float64, bool) {
	var basis contracts.MatchBasis
	var weighted, totalWeight float64
	postalMatched := false

	if len(nameTokens) > 0 && len(c.nameTokens) > 0 {
		basis.NameScore = nameSimilarity(recordName, nameTokens, c)
		weighted += weightName * basis.NameScore
		totalWeight += weightName
	}

	if len(addressTokens) > 0 && len(c.addressTokens) > 0 {
		basis.AddressScore = jaccard(addressTokens, c.addressTokens)
		weighted += weightAddress * basis.AddressScore
		totalWeight += weightAddress
	}

	if recordPostal != "" && c.postal != "" {
		if recordPostal == c.postal {
			basis.PostalScore = 1.0
			postalMatched = true
		}
		weighted += weightPostal * basis.PostalScore
		totalWeight += weightPostal
	}

	if totalWeight == 0 {
		return basis, 0, false
	}
	return basis, weighted / totalWeight, postalMatched
}

// nameSimilarity is token-set Jaccard plus a containment bonus when one
// normalized name is a substring of the other, capped at 1.0.
func nameSimilarity(recordName string, recordTokens map[string]bool, c candidate) float64 {
	score := jaccard(recordTokens, c.nameTokens)
	if strings.Contains(recordName, c.nameNorm) || strings.Contains(c.nameNorm, recordName) {
		score += substringBonus
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if b[token] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func tokenSet(s string) map[string]bool {
	tokens := tokenRe.FindAllString(s, -1)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
