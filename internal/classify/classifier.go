package classify

import (
	"regexp"
	"strings"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
)

// TagLowConfidenceDefault marks results produced by the fallback rule
// rather than a keyword match. Downstream consumers use it to separate
// guesses from real classifications.
const TagLowConfidenceDefault = "low_confidence_default"

// rule is one entry in the prioritized classification ladder. Rules are
// evaluated in declaration order within a tier; the first match wins.
type rule struct {
	pattern    *regexp.Regexp
	swimType   contracts.SwimType
	confidence float64
}

// Exact controlled-vocabulary phrases.
var exactRules = []rule{
	{regexp.MustCompile(`(?i)lane\s+swim`), contracts.LaneSwim, 1.0},
	{regexp.MustCompile(`(?i)lap\s+swim`), contracts.LaneSwim, 1.0},
	{regexp.MustCompile(`(?i)leisure\s+swim`), contracts.Recreational, 1.0},
	{regexp.MustCompile(`(?i)recreational\s+swim`), contracts.Recreational, 1.0},
	{regexp.MustCompile(`(?i)family\s+swim`), contracts.FamilySwim, 1.0},
	{regexp.MustCompile(`(?i)adult\s+swim`), contracts.AdultSwim, 1.0},
	{regexp.MustCompile(`(?i)senior\s+swim`), contracts.SeniorSwim, 1.0},
}

// Synonyms and partial phrases.
var strongRules = []rule{
	{regexp.MustCompile(`(?i)length\s+swim`), contracts.LaneSwim, 0.85},
	{regexp.MustCompile(`(?i)adult\s+lane`), contracts.LaneSwim, 0.85},
	{regexp.MustCompile(`(?i)senior\s+lane`), contracts.LaneSwim, 0.85},
	{regexp.MustCompile(`(?i)public\s+swim`), contracts.Recreational, 0.8},
	{regexp.MustCompile(`(?i)open\s+swim`), contracts.Recreational, 0.8},
	{regexp.MustCompile(`(?i)adults?\s+only`), contracts.AdultSwim, 0.8},
	{regexp.MustCompile(`(?i)seniors?\s+only`), contracts.SeniorSwim, 0.8},
	{regexp.MustCompile(`(?i)older\s+adult`), contracts.SeniorSwim, 0.75},
	{regexp.MustCompile(`(?i)aqua\s*fit|water\s+fit|aqua\s*cise|aqua\s+aerobics|water\s+aerobics`), contracts.OtherSwim, 0.8},
}

var (
	weakSwimRe   = regexp.MustCompile(`(?i)\bswim|\baquatic`)
	earlyMorning = contracts.NewTimeOfDay(9, 0)
)

var tagRules = []struct {
	substr string
	tag    string
}{
	{"adult", "adults_only"},
	{"senior", "seniors"},
	{"family", "family_friendly"},
	{"deep", "deep_water"},
	{"shallow", "shallow_water"},
}

var (
	ageYouthRe  = regexp.MustCompile(`(?i)\b(child|kid|youth)\b`)
	ageAdultRe  = regexp.MustCompile(`(?i)\badult\b|\b(18|19)\+`)
	ageSeniorRe = regexp.MustCompile(`(?i)\bsenior\b|\b(55|60|65)\+`)
	ageFamilyRe = regexp.MustCompile(`(?i)\bfamily\b`)
)

// Classifier maps a record's free-text course and category into a swim
// type with confidence, tags and an age group. Pure and deterministic,
// no I/O.
type Classifier struct{}

// New creates a Classifier
func New() *Classifier {
	return &Classifier{}
}

// Classify evaluates the rule ladder over the record text: exact
// vocabulary match, then synonyms, then weak signals, then the declared
// default (lane swim at confidence 0.5, tagged low_confidence_default).
func (c *Classifier) Classify(record contracts.RawRecord) contracts.ClassificationResult {
	text := strings.ToLower(record.CourseName + " " + record.CategoryText)

	result := contracts.ClassificationResult{
		Tags:     extractTags(text),
		AgeGroup: inferAgeGroup(text),
	}

	for _, r := range exactRules {
		if r.pattern.MatchString(text) {
			result.SwimType = r.swimType
			result.Confidence = r.confidence
			return result
		}
	}

	for _, r := range strongRules {
		if r.pattern.MatchString(text) {
			result.SwimType = r.swimType
			result.Confidence = r.confidence
			return result
		}
	}

	if swimType, confidence, ok := weakSignal(text, record); ok {
		result.SwimType = swimType
		result.Confidence = confidence
		return result
	}

	result.SwimType = contracts.LaneSwim
	result.Confidence = 0.5
	result.Tags = append(result.Tags, TagLowConfidenceDefault)
	return result
}

// weakSignal infers a type from category hints and time of day when no
// phrase matched. Early-morning slots are almost always lane swims;
// otherwise generic aquatic wording reads as recreational.
func weakSignal(text string, record contracts.RawRecord) (contracts.SwimType, float64, bool) {
	if !weakSwimRe.MatchString(text) {
		return "", 0, false
	}
	if record.StartTime.Valid() && record.StartTime < earlyMorning {
		return contracts.LaneSwim, 0.6, true
	}
	return contracts.Recreational, 0.55, true
}

func extractTags(text string) []string {
	var tags []string
	for _, tr := range tagRules {
		if strings.Contains(text, tr.substr) {
			tags = append(tags, tr.tag)
		}
	}
	return tags
}

func inferAgeGroup(text string) contracts.AgeGroup {
	switch {
	case ageYouthRe.MatchString(text):
		return contracts.AgeYouth
	case ageAdultRe.MatchString(text):
		return contracts.AgeAdult
	case ageSeniorRe.MatchString(text):
		return contracts.AgeSenior
	case ageFamilyRe.MatchString(text):
		return contracts.AgeFamily
	default:
		return contracts.AgeGeneral
	}
}
