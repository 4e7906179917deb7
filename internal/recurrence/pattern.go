// Package recurrence parses compact recurrence patterns and expands them into
// concrete session dates. Everything here is pure; callers pass all inputs.
package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPattern = errors.New("invalid recurrence pattern")

type Kind int

const (
	Weekly Kind = iota + 1
	Monthly
)

func (k Kind) String() string {
	switch k {
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	}
	return "unknown"
}

// LastOccurrence selects the final matching weekday of a month, which is the
// 4th or 5th depending on the month.
const LastOccurrence = -1

type Rule struct {
	Kind     Kind
	Interval int
	Weekdays []time.Weekday // ascending, no duplicates
	Nth      int            // Monthly only: 1..4 or LastOccurrence
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParsePattern decodes "weekly_<interval>_<days>" or
// "monthly_<interval>_<nth>_<days>" where days is a comma separated list of
// weekday names and nth is one of 1, 2, 3, 4 or last.
func ParsePattern(pattern string) (Rule, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(pattern)), "_")
	if len(parts) < 3 {
		return Rule{}, invalid("expected kind, interval and weekdays")
	}

	var rule Rule
	var days string

	switch parts[0] {
	case "weekly":
		if len(parts) != 3 {
			return Rule{}, invalid("weekly pattern takes exactly 3 segments")
		}
		rule.Kind = Weekly
		days = parts[2]
	case "monthly":
		if len(parts) != 4 {
			return Rule{}, invalid("monthly pattern takes exactly 4 segments")
		}
		rule.Kind = Monthly
		nth, err := parseNth(parts[2])
		if err != nil {
			return Rule{}, err
		}
		rule.Nth = nth
		days = parts[3]
	default:
		return Rule{}, invalid(fmt.Sprintf("unknown kind %q", parts[0]))
	}

	interval, err := parseInterval(parts[1])
	if err != nil {
		return Rule{}, err
	}
	rule.Interval = interval

	weekdays, err := parseWeekdays(days)
	if err != nil {
		return Rule{}, err
	}
	rule.Weekdays = weekdays

	return rule, nil
}

func parseInterval(s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, invalid(fmt.Sprintf("interval %q is not a positive integer", s))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, invalid(fmt.Sprintf("interval %q is not a positive integer", s))
	}
	return n, nil
}

func parseNth(s string) (int, error) {
	switch s {
	case "1", "2", "3", "4":
		return int(s[0] - '0'), nil
	case "last":
		return LastOccurrence, nil
	}
	return 0, invalid(fmt.Sprintf("occurrence %q must be one of 1, 2, 3, 4, last", s))
}

func parseWeekdays(csv string) ([]time.Weekday, error) {
	var weekdays []time.Weekday
	for _, name := range strings.Split(csv, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, invalid("empty weekday in list")
		}
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, invalid(fmt.Sprintf("unknown weekday %q", name))
		}
		if !slices.Contains(weekdays, wd) {
			weekdays = append(weekdays, wd)
		}
	}
	slices.Sort(weekdays)
	return weekdays, nil
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPattern, reason)
}

// String renders the canonical pattern, which is what gets persisted.
func (r Rule) String() string {
	names := make([]string, len(r.Weekdays))
	for i, wd := range r.Weekdays {
		names[i] = strings.ToLower(wd.String())
	}
	days := strings.Join(names, ",")

	if r.Kind == Monthly {
		nth := strconv.Itoa(r.Nth)
		if r.Nth == LastOccurrence {
			nth = "last"
		}
		return fmt.Sprintf("monthly_%d_%s_%s", r.Interval, nth, days)
	}
	return fmt.Sprintf("weekly_%d_%s", r.Interval, days)
}
