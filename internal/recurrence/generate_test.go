package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func dateStrings(occ []Occurrence) []string {
	out := make([]string, len(occ))
	for i, o := range occ {
		out[i] = o.Date.Format(time.DateOnly)
	}
	return out
}

func mustParse(t *testing.T, pattern string) Rule {
	t.Helper()
	rule, err := ParsePattern(pattern)
	require.NoError(t, err)
	return rule
}

func TestGenerate_WeeklyMondayThursdayJanuary(t *testing.T) {
	rule := mustParse(t, "weekly_1_monday,thursday")

	occ := Generate(rule, day("2024-01-01"), day("2024-01-31"))

	assert.Equal(t, []string{
		"2024-01-01", "2024-01-04", "2024-01-08", "2024-01-11", "2024-01-15",
		"2024-01-18", "2024-01-22", "2024-01-25", "2024-01-29",
	}, dateStrings(occ))
	for i, o := range occ {
		assert.Equal(t, i+1, o.SequenceNumber)
	}
}

func TestGenerate_MonthlySecondSaturday(t *testing.T) {
	rule := mustParse(t, "monthly_1_2_saturday")

	occ := Generate(rule, day("2024-01-01"), day("2024-03-31"))

	assert.Equal(t, []string{"2024-01-13", "2024-02-10", "2024-03-09"}, dateStrings(occ))
}

func TestGenerate_WeeklyIntervalCountsFromStartWeek(t *testing.T) {
	rule := mustParse(t, "weekly_2_monday")

	// 2024-01-03 is a Wednesday; its week's Monday is before start.
	occ := Generate(rule, day("2024-01-03"), day("2024-02-15"))

	assert.Equal(t, []string{"2024-01-15", "2024-01-29", "2024-02-12"}, dateStrings(occ))
}

func TestGenerate_MonthlyLastIsDynamic(t *testing.T) {
	rule := mustParse(t, "monthly_1_last_wednesday")

	occ := Generate(rule, day("2024-01-01"), day("2024-04-30"))

	// Only January has a fifth Wednesday.
	assert.Equal(t, []string{"2024-01-31", "2024-02-28", "2024-03-27", "2024-04-24"}, dateStrings(occ))
}

func TestGenerate_MonthlyMultipleWeekdaysSortedByDate(t *testing.T) {
	// Saturday is listed first in iteration but Monday falls earlier in the month.
	rule := Rule{Kind: Monthly, Interval: 1, Nth: 1, Weekdays: []time.Weekday{time.Saturday, time.Monday}}

	occ := Generate(rule, day("2024-01-01"), day("2024-02-29"))

	assert.Equal(t, []string{"2024-01-01", "2024-01-06", "2024-02-03", "2024-02-05"}, dateStrings(occ))
	assert.Equal(t, []int{1, 2, 3, 4}, []int{occ[0].SequenceNumber, occ[1].SequenceNumber, occ[2].SequenceNumber, occ[3].SequenceNumber})
}

func TestGenerate_MonthlyIntervalSkipsMonths(t *testing.T) {
	rule := mustParse(t, "monthly_2_1_friday")

	occ := Generate(rule, day("2024-01-15"), day("2024-07-31"))

	// January's first Friday (5th) is before start, so the series begins in March.
	assert.Equal(t, []string{"2024-03-01", "2024-05-03", "2024-07-05"}, dateStrings(occ))
}

func TestGenerate_EmptyWhenEndNotAfterStart(t *testing.T) {
	rule := mustParse(t, "weekly_1_monday")

	assert.Empty(t, Generate(rule, day("2024-01-01"), day("2024-01-01")))
	assert.Empty(t, Generate(rule, day("2024-02-01"), day("2024-01-01")))
}

func TestGenerate_IgnoresTimeOfDayAndLocation(t *testing.T) {
	rule := mustParse(t, "weekly_1_monday")
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 23, 30, 0, 0, kolkata)
	end := time.Date(2024, 1, 8, 0, 15, 0, 0, kolkata)

	assert.Equal(t, []string{"2024-01-01", "2024-01-08"}, dateStrings(Generate(rule, start, end)))
}

func TestGenerate_IsPure(t *testing.T) {
	rule := mustParse(t, "monthly_1_last_friday,monday")

	first := Generate(rule, day("2024-01-01"), day("2024-12-31"))
	second := Generate(rule, day("2024-01-01"), day("2024-12-31"))

	assert.Equal(t, first, second)
	assert.Len(t, first, 24)
}

func TestGenerate_WeeklyProperties(t *testing.T) {
	for _, pattern := range []string{"weekly_1_tuesday", "weekly_3_sunday,wednesday,saturday", "weekly_2_mon,fri"} {
		t.Run(pattern, func(t *testing.T) {
			rule := mustParse(t, pattern)
			start, end := day("2024-03-06"), day("2024-11-20")
			firstWeek := start.AddDate(0, 0, -int(start.Weekday()))

			occ := Generate(rule, start, end)
			require.NotEmpty(t, occ)

			for i, o := range occ {
				assert.Contains(t, rule.Weekdays, o.Date.Weekday())
				assert.False(t, o.Date.Before(start))
				assert.False(t, o.Date.After(end))
				assert.Zero(t, (daysBetween(firstWeek, o.Date)/7)%rule.Interval)
				if i > 0 {
					assert.True(t, o.Date.After(occ[i-1].Date))
				}
			}
		})
	}
}

func TestGenerate_MonthlyMatchesFormula(t *testing.T) {
	for _, nth := range []int{1, 2, 3, 4} {
		rule := Rule{Kind: Monthly, Interval: 1, Nth: nth, Weekdays: []time.Weekday{time.Tuesday}}

		for _, o := range Generate(rule, day("2024-01-01"), day("2025-12-31")) {
			first := time.Date(o.Date.Year(), o.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
			expected := 1 + (7+int(time.Tuesday)-int(first.Weekday()))%7 + 7*(nth-1)
			assert.Equal(t, expected, o.Date.Day())
		}
	}
}

func TestNthWeekday(t *testing.T) {
	tests := []struct {
		name     string
		year     int
		month    time.Month
		weekday  time.Weekday
		nth      int
		expected string
		ok       bool
	}{
		{"first monday", 2024, time.January, time.Monday, 1, "2024-01-01", true},
		{"fourth sunday", 2024, time.February, time.Sunday, 4, "2024-02-25", true},
		{"fifth thursday in leap february", 2024, time.February, time.Thursday, 5, "2024-02-29", true},
		{"fifth friday missing", 2024, time.February, time.Friday, 5, "", false},
		{"last friday falls back to fourth", 2024, time.February, time.Friday, LastOccurrence, "2024-02-23", true},
		{"last sunday is fifth", 2024, time.March, time.Sunday, LastOccurrence, "2024-03-31", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := NthWeekday(tt.year, tt.month, tt.weekday, tt.nth)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, d.Format(time.DateOnly))
			}
		})
	}
}
