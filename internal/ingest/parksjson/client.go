package parksjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/internal/ingest"
	"github.com/raolivei/swimTO-sub000/pkg/httputil"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// SourceName identifies records produced by this adapter
const SourceName = "toronto_parks_json"

// Location is a curated facility whose schedule lives behind the parks
// JSON API rather than the open-data feed. The location ID comes from
// the facility's toronto.ca URL.
type Location struct {
	ID   int
	Name string
}

// DefaultLocations lists the facilities known to publish schedules only
// through the parks JSON API.
var DefaultLocations = []Location{
	{ID: 797, Name: "Norseman Community School and Pool"},
}

// LocationsForIDs filters DefaultLocations to the given IDs. An empty
// id list selects every curated location.
func LocationsForIDs(ids []int) []Location {
	if len(ids) == 0 {
		return DefaultLocations
	}
	var out []Location
	for _, id := range ids {
		for _, loc := range DefaultLocations {
			if loc.ID == id {
				out = append(out, loc)
			}
		}
	}
	return out
}

// swimInfo is the per-location info.json metadata payload
type swimInfo struct {
	Weeks []struct {
		Title string `json:"title"`
	} `json:"weeks"`
}

// weekSchedule is the week{n}.json payload
type weekSchedule struct {
	Programs []struct {
		Program string `json:"program"`
		Days    []struct {
			Title string `json:"title"`
			Age   string `json:"age"`
			Times []struct {
				Day   string `json:"day"`
				Title string `json:"title"`
			} `json:"times"`
		} `json:"days"`
	} `json:"programs"`
}

// Client fetches weekly schedule JSON for curated locations. The API
// serves UTF-16-LE payloads with a BOM, so every body runs through a
// charset decode before unmarshaling.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	locations  []Location
	weeksAhead int
}

// NewClient creates a parks JSON API client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string, locations []Location, weeksAhead int) *Client {
	if weeksAhead < 1 {
		weeksAhead = 4
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("source", SourceName),
		baseURL:    baseURL,
		locations:  locations,
		weeksAhead: weeksAhead,
	}
}

// Name implements ingest.Source
func (c *Client) Name() string {
	return SourceName
}

// Fetch implements ingest.Source. A failing location is logged and
// skipped; the adapter only errors when every location fails.
func (c *Client) Fetch(ctx context.Context) ([]contracts.RawRecord, error) {
	var records []contracts.RawRecord
	failures := 0

	for _, loc := range c.locations {
		locRecords, err := c.fetchLocation(ctx, loc)
		if err != nil {
			c.logger.WithError(err).WithField("location_id", loc.ID).
				Warn("Failed to fetch location schedule")
			failures++
			continue
		}
		records = append(records, locRecords...)
	}

	if failures == len(c.locations) && len(c.locations) > 0 {
		return nil, fmt.Errorf("all %d parks locations failed", failures)
	}

	c.logger.WithFields(map[string]interface{}{
		"locations": len(c.locations),
		"failures":  failures,
		"records":   len(records),
	}).Info("Normalized parks JSON feed")

	return records, nil
}

func (c *Client) fetchLocation(ctx context.Context, loc Location) ([]contracts.RawRecord, error) {
	info, err := c.fetchInfo(ctx, loc.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch info: %w", err)
	}
	if len(info.Weeks) == 0 {
		c.logger.WithField("location_id", loc.ID).Warn("No schedule weeks published")
		return nil, nil
	}

	weeks := c.weeksAhead
	if len(info.Weeks) < weeks {
		weeks = len(info.Weeks)
	}

	var records []contracts.RawRecord
	for weekNum := 1; weekNum <= weeks; weekNum++ {
		weekStart := ingest.ParseDate(info.Weeks[weekNum-1].Title)
		if weekStart.IsZero() {
			c.logger.WithField("title", info.Weeks[weekNum-1].Title).
				Warn("Could not parse week start date")
			continue
		}

		schedule, err := c.fetchWeek(ctx, loc.ID, weekNum)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"location_id": loc.ID,
				"week":        weekNum,
			}).Warn("Failed to fetch week schedule")
			continue
		}

		records = append(records, c.parseWeek(loc, schedule, weekStart)...)
	}
	return records, nil
}

// dayOffsets maps the API's lowercase day names to offsets from the
// Monday-based week start.
var dayOffsets = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// parseWeek flattens one week payload into dated RawRecords. Each time
// slot carries its own day name, so a record covers exactly one date:
// Dates.Start equals Dates.End and Weekdays holds that date's weekday.
func (c *Client) parseWeek(loc Location, schedule *weekSchedule, weekStart time.Time) []contracts.RawRecord {
	var records []contracts.RawRecord

	for _, program := range schedule.Programs {
		for _, day := range program.Days {
			courseName := day.Title
			if courseName == "" {
				courseName = program.Program
			}

			for _, slot := range day.Times {
				offset, ok := dayOffsets[strings.ToLower(slot.Day)]
				if !ok {
					continue
				}
				date := weekStart.AddDate(0, 0, offset)

				ranges := ingest.ParseTimeRanges(slot.Title)
				if len(ranges) == 0 {
					c.logger.WithField("title", slot.Title).Debug("Could not parse time slot")
					continue
				}

				for _, tr := range ranges {
					records = append(records, contracts.RawRecord{
						SourceID:        SourceName,
						LocationNameRaw: loc.Name,
						CourseName:      courseName,
						CategoryText:    program.Program,
						Weekdays:        []time.Weekday{date.Weekday()},
						StartTime:       tr.Start,
						EndTime:         tr.End,
						Dates:           contracts.DateRange{Start: date, End: date},
						AgeMin:          day.Age,
					})
				}
			}
		}
	}
	return records
}

func (c *Client) fetchInfo(ctx context.Context, locationID int) (*swimInfo, error) {
	var info swimInfo
	url := fmt.Sprintf("%s/%d/swim/info.json", c.baseURL, locationID)
	if err := c.getJSON(ctx, url, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetchWeek(ctx context.Context, locationID, weekNum int) (*weekSchedule, error) {
	var schedule weekSchedule
	url := fmt.Sprintf("%s/%d/swim/week%d.json", c.baseURL, locationID, weekNum)
	if err := c.getJSON(ctx, url, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v interface{}) error {
	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	decoded, err := decodePayload(body)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if err := json.Unmarshal(decoded, v); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return nil
}

// decodePayload converts the API's UTF-16-LE BOM payloads to UTF-8.
// Payloads without the BOM pass through with any UTF-8 BOM stripped.
func decodePayload(body []byte) ([]byte, error) {
	if bytes.HasPrefix(body, []byte{0xFF, 0xFE}) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, body)
		if err != nil {
			return nil, fmt.Errorf("UTF-16 decode: %w", err)
		}
		return decoded, nil
	}
	return bytes.TrimPrefix(body, []byte{0xEF, 0xBB, 0xBF}), nil
}
