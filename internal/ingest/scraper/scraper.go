package scraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/internal/ingest"
	"github.com/raolivei/swimTO-sub000/pkg/httputil"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// SourceName identifies records produced by this adapter
const SourceName = "facility_scraper"

// scheduleKeywords score candidate tables. A table mentioning at least
// three of these is treated as a swim schedule.
var scheduleKeywords = []string{"swim", "lane", "time", "monday", "tuesday", "wednesday"}

const scheduleKeywordMin = 3

var (
	titleSuffixRe = regexp.MustCompile(`\s*-\s*City of Toronto.*$`)
	addressRe     = regexp.MustCompile(`\d+\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Boulevard|Blvd)`)
)

// Scraper is a best-effort source that pulls swim schedules out of
// facility web pages. Pages change without notice, so every extraction
// step degrades to skipping rather than failing the run.
type Scraper struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	pageURLs   []string
}

// New creates a facility page scraper over the given page URLs
func New(httpClient *httputil.Client, log *logger.Logger, pageURLs []string) *Scraper {
	return &Scraper{
		httpClient: httpClient,
		logger:     log.WithField("source", SourceName),
		pageURLs:   pageURLs,
	}
}

// Name implements ingest.Source
func (s *Scraper) Name() string {
	return SourceName
}

// Fetch implements ingest.Source. Pages that fail to load or parse are
// skipped; the scraper only errors when every page fails.
func (s *Scraper) Fetch(ctx context.Context) ([]contracts.RawRecord, error) {
	if len(s.pageURLs) == 0 {
		return nil, nil
	}

	var records []contracts.RawRecord
	failures := 0

	for _, url := range s.pageURLs {
		pageRecords, err := s.scrapePage(ctx, url)
		if err != nil {
			s.logger.WithError(err).WithField("url", url).Warn("Failed to scrape page")
			failures++
			continue
		}
		records = append(records, pageRecords...)
	}

	if failures == len(s.pageURLs) {
		return nil, fmt.Errorf("all %d pages failed", failures)
	}

	s.logger.WithFields(map[string]interface{}{
		"pages":    len(s.pageURLs),
		"failures": failures,
		"records":  len(records),
	}).Info("Scraped facility pages")

	return records, nil
}

func (s *Scraper) scrapePage(ctx context.Context, url string) ([]contracts.RawRecord, error) {
	resp, err := s.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	name := extractName(doc)
	if name == "" {
		return nil, fmt.Errorf("no facility name on page")
	}
	address := addressRe.FindString(doc.Text())

	var records []contracts.RawRecord
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if !isScheduleTable(table) {
			return
		}
		records = append(records, s.parseScheduleTable(table, name, address)...)
	})

	return records, nil
}

// extractName prefers the page h1, falling back to the document title
// with the site suffix stripped.
func extractName(doc *goquery.Document) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return strings.TrimSpace(titleSuffixRe.ReplaceAllString(title, ""))
}

func isScheduleTable(table *goquery.Selection) bool {
	text := strings.ToLower(table.Text())
	score := 0
	for _, kw := range scheduleKeywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	return score >= scheduleKeywordMin
}

// parseScheduleTable reads rows as (day, time, program) cell triples,
// skipping the header row and anything that does not parse.
func (s *Scraper) parseScheduleTable(table *goquery.Selection, name, address string) []contracts.RawRecord {
	var records []contracts.RawRecord

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td, th")
		if cells.Length() < 3 {
			return
		}

		dayText := strings.TrimSpace(cells.Eq(0).Text())
		timeText := strings.TrimSpace(cells.Eq(1).Text())
		typeText := strings.TrimSpace(cells.Eq(2).Text())

		weekdays := ingest.ParseWeekdays(dayText)
		ranges := ingest.ParseTimeRanges(timeText)
		if len(weekdays) == 0 || len(ranges) == 0 {
			return
		}

		for _, tr := range ranges {
			records = append(records, contracts.RawRecord{
				SourceID:        SourceName,
				LocationNameRaw: name,
				AddressRaw:      address,
				CourseName:      typeText,
				Weekdays:        weekdays,
				StartTime:       tr.Start,
				EndTime:         tr.End,
			})
		}
	})

	return records
}
