package registry

import (
	"context"
	"regexp"
	"strings"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
)

// Provider supplies the canonical facility registry. The engine reads a
// snapshot once per run; providers own freshness and storage.
type Provider interface {
	Facilities(ctx context.Context) ([]contracts.Facility, error)
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a stable facility ID from a facility name, e.g.
// "Norseman Community School and Pool" becomes
// "norseman-community-school-and-pool".
func Slugify(name string) string {
	slug := slugStripRe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// NormalizePostal uppercases a postal code and strips whitespace so
// "m6p 1b7" compares equal to "M6P1B7".
func NormalizePostal(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
