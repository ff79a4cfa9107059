package poolsxml

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/internal/registry"
	"github.com/raolivei/swimTO-sub000/pkg/httputil"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// facilityXML mirrors one <facility> element of the recreation centres
// index feed.
type facilityXML struct {
	ID         string `xml:"id"`
	Name       string `xml:"name"`
	Address    string `xml:"address"`
	PostalCode string `xml:"postalcode"`
	Latitude   string `xml:"latitude"`
	Longitude  string `xml:"longitude"`
	Type       string `xml:"type"`
}

type indexXML struct {
	Facilities []facilityXML `xml:"facility"`
}

// outdoorKeywords exclude non-pool aquatic features from the registry
var outdoorKeywords = []string{"splash pad", "wading"}

// Parser fetches the recreation centres XML index and converts it into
// canonical facility entries.
type Parser struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	url        string
}

// New creates a pools XML registry parser
func New(httpClient *httputil.Client, log *logger.Logger, url string) *Parser {
	return &Parser{
		httpClient: httpClient,
		logger:     log.WithField("component", "poolsxml"),
		url:        url,
	}
}

// Fetch downloads and parses the facility index
func (p *Parser) Fetch(ctx context.Context) ([]contracts.Facility, error) {
	resp, err := p.httpClient.Get(ctx, p.url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var index indexXML
	if err := xml.NewDecoder(resp.Body).Decode(&index); err != nil {
		return nil, fmt.Errorf("decode XML: %w", err)
	}

	facilities := p.convert(index.Facilities)
	p.logger.WithFields(map[string]interface{}{
		"parsed":   len(index.Facilities),
		"accepted": len(facilities),
	}).Info("Parsed facility index")

	return facilities, nil
}

// convert maps XML elements to facilities, dropping nameless entries and
// non-pool features. Facility IDs are name slugs so that every source
// and store agrees on the identifier.
func (p *Parser) convert(elems []facilityXML) []contracts.Facility {
	var facilities []contracts.Facility
	for _, elem := range elems {
		name := strings.TrimSpace(elem.Name)
		if name == "" {
			continue
		}
		if isExcluded(name, elem.Type) {
			continue
		}

		facilities = append(facilities, contracts.Facility{
			FacilityID: registry.Slugify(name),
			Name:       name,
			Address:    strings.TrimSpace(elem.Address),
			PostalCode: registry.NormalizePostal(elem.PostalCode),
			Latitude:   parseFloat(elem.Latitude),
			Longitude:  parseFloat(elem.Longitude),
		})
	}
	return facilities
}

func isExcluded(name, facilityType string) bool {
	text := strings.ToLower(name + " " + facilityType)
	for _, kw := range outdoorKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
