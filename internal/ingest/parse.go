package ingest

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
)

// Schedule text arrives in many upstream shapes ("Mon/Wed/Fri 12:00 PM -
// 1:00 PM", "Monday 6:00AM-7:30AM"). The helpers here normalize weekday
// sets, time ranges and date ranges out of that free text.

var weekdayNames = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday}, {"mon", time.Monday},
	{"tuesday", time.Tuesday}, {"tue", time.Tuesday}, {"tues", time.Tuesday},
	{"wednesday", time.Wednesday}, {"wed", time.Wednesday},
	{"thursday", time.Thursday}, {"thu", time.Thursday}, {"thurs", time.Thursday},
	{"friday", time.Friday}, {"fri", time.Friday},
	{"saturday", time.Saturday}, {"sat", time.Saturday},
	{"sunday", time.Sunday}, {"sun", time.Sunday},
}

// ParseWeekdays extracts the set of weekdays mentioned in schedule text,
// sorted Sunday-first for determinism.
func ParseWeekdays(text string) []time.Weekday {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	seen := make(map[time.Weekday]bool)

	for _, w := range weekdayNames {
		if strings.Contains(lower, w.name) {
			seen[w.day] = true
		}
	}

	days := make([]time.Weekday, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

var (
	ampmRe      = regexp.MustCompile(`(?i)\s*(AM|PM)`)
	timeRangeRe = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*(?:AM|PM)?)\s*(?:-|–|to)\s*(\d{1,2}:\d{2}\s*(?:AM|PM)?)`)
	clockRe     = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*(AM|PM)?$`)
)

// ParseTime parses a single clock string. Accepted forms: "10:00 AM",
// "10:00AM", "10:00", "22:00", "10AM", "10 AM". Returns ok=false when
// the text is not a recognizable time.
func ParseTime(s string) (contracts.TimeOfDay, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	hour := atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute = atoi(m[2])
	}

	switch m[3] {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return 0, false
	}
	return contracts.NewTimeOfDay(hour, minute), true
}

// TimeRange is a parsed (start, end) pair with start < end
type TimeRange struct {
	Start contracts.TimeOfDay
	End   contracts.TimeOfDay
}

// ParseTimeRanges extracts every valid time range from schedule text.
// When the end time lacks an AM/PM marker it inherits the start's, so
// "6:00AM-7:30" reads as 06:00-07:30. Ranges with end <= start are
// discarded.
func ParseTimeRanges(text string) []TimeRange {
	if text == "" {
		return nil
	}

	var ranges []TimeRange
	for _, m := range timeRangeRe.FindAllStringSubmatch(text, -1) {
		startStr, endStr := m[1], m[2]

		if !ampmRe.MatchString(endStr) {
			if am := ampmRe.FindString(startStr); am != "" {
				endStr += am
			}
		}

		start, okS := ParseTime(startStr)
		end, okE := ParseTime(endStr)
		if !okS || !okE {
			continue
		}
		if end <= start {
			continue
		}

		ranges = append(ranges, TimeRange{Start: start, End: end})
	}
	return ranges
}

var dateFormats = []string{"2006-01-02", "01/02/2006", "02-01-2006", "2006/01/02"}

// ParseDate parses a date from any of the upstream formats. The zero
// time means the string was empty or unparseable.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d
		}
	}
	return time.Time{}
}

// ParseDateRange parses program start/end date strings into a DateRange
func ParseDateRange(startStr, endStr string) contracts.DateRange {
	return contracts.DateRange{
		Start: ParseDate(startStr),
		End:   ParseDate(endStr),
	}
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
