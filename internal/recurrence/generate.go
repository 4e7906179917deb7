package recurrence

import (
	"slices"
	"time"
)

// Occurrence is one concrete session date. Dates are civil dates at UTC
// midnight; SequenceNumber is 1-based in chronological order.
type Occurrence struct {
	Date           time.Time
	SequenceNumber int
}

// CivilDate truncates t to its calendar date at UTC midnight, keeping the
// year, month and day as seen in t's own location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Generate expands rule over the inclusive range [start, end]. It returns an
// empty slice when end is not after start. Output depends only on the inputs.
func Generate(rule Rule, start, end time.Time) []Occurrence {
	start, end = CivilDate(start), CivilDate(end)
	if !end.After(start) || rule.Interval < 1 || len(rule.Weekdays) == 0 {
		return []Occurrence{}
	}

	var dates []time.Time
	switch rule.Kind {
	case Weekly:
		dates = weeklyDates(rule, start, end)
	case Monthly:
		dates = monthlyDates(rule, start, end)
	}

	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	dates = slices.CompactFunc(dates, func(a, b time.Time) bool { return a.Equal(b) })

	occurrences := make([]Occurrence, len(dates))
	for i, d := range dates {
		occurrences[i] = Occurrence{Date: d, SequenceNumber: i + 1}
	}
	return occurrences
}

// Weeks run Sunday to Saturday and are counted from the week holding start.
func weeklyDates(rule Rule, start, end time.Time) []time.Time {
	firstWeek := start.AddDate(0, 0, -int(start.Weekday()))

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		week := daysBetween(firstWeek, d) / 7
		if week%rule.Interval != 0 {
			continue
		}
		if slices.Contains(rule.Weekdays, d.Weekday()) {
			dates = append(dates, d)
		}
	}
	return dates
}

func monthlyDates(rule Rule, start, end time.Time) []time.Time {
	var dates []time.Time
	for month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !month.After(end); month = month.AddDate(0, rule.Interval, 0) {
		for _, wd := range rule.Weekdays {
			d, ok := NthWeekday(month.Year(), month.Month(), wd, rule.Nth)
			if !ok || d.Before(start) || d.After(end) {
				continue
			}
			dates = append(dates, d)
		}
	}
	return dates
}

// NthWeekday returns the nth occurrence of wd in the given month. For
// LastOccurrence it tries the 5th and falls back to the 4th. ok is false when
// the requested occurrence does not exist in that month.
func NthWeekday(year int, month time.Month, wd time.Weekday, nth int) (time.Time, bool) {
	if nth == LastOccurrence {
		if d, ok := NthWeekday(year, month, wd, 5); ok {
			return d, true
		}
		return NthWeekday(year, month, wd, 4)
	}
	if nth < 1 {
		return time.Time{}, false
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	day := 1 + (7+int(wd)-int(first.Weekday()))%7 + 7*(nth-1)

	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
