package opendata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/internal/ingest"
	"github.com/raolivei/swimTO-sub000/pkg/httputil"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// SourceName identifies records produced by this adapter
const SourceName = "toronto_open_data"

// swimKeywords prefilter the city-wide drop-in feed down to aquatic
// programs before classification. The feed covers every drop-in program
// (fitness, arts, sports); everything without one of these phrases is
// not a swim listing.
var swimKeywords = []string{
	"lane swim", "lane swimming", "lap swim", "lap swimming",
	"leisure swim", "recreational swim", "family swim",
	"adult swim", "senior swim", "aquafit", "aqua fit",
	"water fit", "aquacise", "aqua aerobics",
	"public swim", "open swim", "drop-in swim",
}

// Client fetches the open-data drop-in programs feed and normalizes it
// into RawRecords, joining program rows with the locations feed for
// address and postal data.
type Client struct {
	httpClient   *httputil.Client
	logger       *logger.Logger
	programsURL  string
	locationsURL string
}

// NewClient creates a new open-data feed client
func NewClient(httpClient *httputil.Client, log *logger.Logger, programsURL, locationsURL string) *Client {
	return &Client{
		httpClient:   httpClient,
		logger:       log.WithField("source", SourceName),
		programsURL:  programsURL,
		locationsURL: locationsURL,
	}
}

// Name implements ingest.Source
func (c *Client) Name() string {
	return SourceName
}

// Fetch implements ingest.Source
func (c *Client) Fetch(ctx context.Context) ([]contracts.RawRecord, error) {
	programs, err := c.fetchCSV(ctx, c.programsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch programs: %w", err)
	}

	locations, err := c.fetchCSV(ctx, c.locationsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch locations: %w", err)
	}

	locationsByID := indexLocations(locations)

	var records []contracts.RawRecord
	swimCount := 0
	for _, program := range programs {
		courseName := getField(program, "Course Title", "CourseName", "Course_Title")
		category := getField(program, "Category")

		if !isSwimProgram(courseName, category) {
			continue
		}
		swimCount++

		records = append(records, c.normalize(program, locationsByID)...)
	}

	c.logger.WithFields(map[string]interface{}{
		"programs": len(programs),
		"swim":     swimCount,
		"records":  len(records),
	}).Info("Normalized open data feed")

	return records, nil
}

// normalize expands one program row into RawRecords, one per parsed
// time range. Rows whose schedule text yields no weekdays or no time
// ranges are skipped.
func (c *Client) normalize(program map[string]string, locations map[string]map[string]string) []contracts.RawRecord {
	scheduleText := getField(program, "Schedule", "Days", "Day")
	weekdays := ingest.ParseWeekdays(scheduleText)
	timeRanges := ingest.ParseTimeRanges(scheduleText)

	if len(weekdays) == 0 || len(timeRanges) == 0 {
		c.logger.WithField("course", getField(program, "Course Title", "CourseName")).
			Debug("Could not parse schedule text")
		return nil
	}

	dates := ingest.ParseDateRange(
		getField(program, "Start Date", "StartDate"),
		getField(program, "End Date", "EndDate"),
	)

	locationName := getField(program, "Location Name", "LocationName", "Location_Name")
	var address, postal string
	locationID := getField(program, "Location ID", "LocationID", "Location_ID")
	if loc, ok := locations[locationID]; ok {
		if name := getField(loc, "Location Name", "LocationName", "Location_Name"); name != "" {
			locationName = name
		}
		address = getField(loc, "Address")
		postal = getField(loc, "PostalCode", "Postal Code")
	}

	records := make([]contracts.RawRecord, 0, len(timeRanges))
	for _, tr := range timeRanges {
		records = append(records, contracts.RawRecord{
			SourceID:        SourceName,
			LocationNameRaw: locationName,
			AddressRaw:      address,
			PostalCodeRaw:   postal,
			CourseName:      getField(program, "Course Title", "CourseName", "Course_Title"),
			CategoryText:    getField(program, "Category"),
			Weekdays:        weekdays,
			StartTime:       tr.Start,
			EndTime:         tr.End,
			Dates:           dates,
			AgeMin:          getField(program, "Age Min", "AgeMin", "Age_Min"),
			AgeMax:          getField(program, "Age Max", "AgeMax", "Age_Max"),
		})
	}
	return records
}

// fetchCSV downloads a CKAN datastore dump and parses it into rows keyed
// by header name.
func (c *Client) fetchCSV(ctx context.Context, url string) ([]map[string]string, error) {
	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return parseCSV(resp.Body)
}

func parseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	var rows []map[string]string
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = strings.TrimSpace(fields[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// indexLocations keys the locations feed by its id column for fast join
func indexLocations(rows []map[string]string) map[string]map[string]string {
	index := make(map[string]map[string]string, len(rows))
	for _, row := range rows {
		id := getField(row, "LocationID", "Location ID", "_id")
		if id != "" {
			index[id] = row
		}
	}
	return index
}

// getField returns the first non-empty value among the candidate column
// names. Upstream dumps have shipped several header spellings over time.
func getField(row map[string]string, names ...string) string {
	for _, name := range names {
		if v := row[name]; v != "" {
			return v
		}
	}
	return ""
}

// isSwimProgram reports whether the program text mentions any aquatic
// keyword.
func isSwimProgram(courseName, category string) bool {
	text := strings.ToLower(courseName + " " + category)
	for _, kw := range swimKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
