package analyze

import (
	"sort"
	"time"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
)

// Defaults for coverage analysis tunables
const (
	DefaultMinFacilities = 3
	DefaultPeakWindows   = 5
)

// Analyzer computes read-only coverage summaries over a final session
// set. Pure aggregation, no mutation of input.
type Analyzer struct {
	minFacilities int
	peakWindows   int
}

// New creates an Analyzer. minFacilities is the distinct-facility count
// below which a weekday reads as low coverage; peakWindows is the number
// of top cells reported.
func New(minFacilities, peakWindows int) *Analyzer {
	if minFacilities <= 0 {
		minFacilities = DefaultMinFacilities
	}
	if peakWindows <= 0 {
		peakWindows = DefaultPeakWindows
	}
	return &Analyzer{minFacilities: minFacilities, peakWindows: peakWindows}
}

// Analyze builds the 7x24 coverage matrix, incrementing every hour a
// session spans, and derives peak windows and low-coverage days from it.
func (a *Analyzer) Analyze(sessions []contracts.Session) contracts.ScheduleAnalysis {
	analysis := contracts.ScheduleAnalysis{
		TotalSessions: len(sessions),
	}

	facilities := make(map[string]bool)
	facilitiesByDay := make(map[time.Weekday]map[string]bool)

	for _, s := range sessions {
		facilities[s.FacilityID] = true

		day := s.Date.Weekday()
		if facilitiesByDay[day] == nil {
			facilitiesByDay[day] = make(map[string]bool)
		}
		facilitiesByDay[day][s.FacilityID] = true

		for hour := range spannedHours(s) {
			analysis.Coverage[day][hour]++
		}
	}

	analysis.FacilityCount = len(facilities)
	analysis.PeakWindows = a.topCells(analysis.Coverage)
	analysis.LowCoverageDays = a.lowCoverageDays(facilitiesByDay)
	return analysis
}

// spannedHours returns the set of hours a session touches. The end hour
// is excluded when the session ends exactly on it.
func spannedHours(s contracts.Session) map[int]bool {
	hours := make(map[int]bool)
	endHour := s.EndTime.Hour()
	if s.EndTime.Minute() > 0 {
		endHour++
	}
	for h := s.StartTime.Hour(); h < endHour && h < 24; h++ {
		hours[h] = true
	}
	return hours
}

// topCells returns the k highest-count (day, hour) cells, ordered by
// count descending with (day, hour) ascending as the stable tiebreak.
// Empty cells are never reported.
func (a *Analyzer) topCells(coverage [7][24]int) []contracts.PeakWindow {
	var cells []contracts.PeakWindow
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			if coverage[day][hour] > 0 {
				cells = append(cells, contracts.PeakWindow{
					Day:   time.Weekday(day),
					Hour:  hour,
					Count: coverage[day][hour],
				})
			}
		}
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Count != cells[j].Count {
			return cells[i].Count > cells[j].Count
		}
		if cells[i].Day != cells[j].Day {
			return cells[i].Day < cells[j].Day
		}
		return cells[i].Hour < cells[j].Hour
	})

	if len(cells) > a.peakWindows {
		cells = cells[:a.peakWindows]
	}
	return cells
}

func (a *Analyzer) lowCoverageDays(facilitiesByDay map[time.Weekday]map[string]bool) []time.Weekday {
	var days []time.Weekday
	for day := time.Sunday; day <= time.Saturday; day++ {
		if len(facilitiesByDay[day]) < a.minFacilities {
			days = append(days, day)
		}
	}
	return days
}
