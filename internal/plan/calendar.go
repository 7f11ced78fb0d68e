package plan

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/myrjola/runplan/internal/errors"
)

const daysPerWeek = 7

// Day truncates t to its calendar day. The result is midnight UTC of t's year, month and day so that dates from
// different locations compare equal.
func Day(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// isoIndex orders weekdays Monday first: Monday is 0 and Sunday is 6.
func isoIndex(w time.Weekday) int {
	return (int(w) + daysPerWeek - 1) % daysPerWeek
}

// WeekStart returns the Monday of the calendar week d falls in.
func WeekStart(d time.Time) time.Time {
	d = Day(d)
	return d.AddDate(0, 0, -isoIndex(d.Weekday()))
}

// NextMonday returns today when it is a Monday and the following Monday otherwise.
func NextMonday(today time.Time) time.Time {
	today = Day(today)
	offset := (daysPerWeek - isoIndex(today.Weekday())) % daysPerWeek
	return today.AddDate(0, 0, offset)
}

// NormalizeWeekdays removes duplicates and invalid values and sorts Monday first.
func NormalizeWeekdays(days []time.Weekday) []time.Weekday {
	normalized := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || slices.Contains(normalized, d) {
			continue
		}
		normalized = append(normalized, d)
	}
	slices.SortFunc(normalized, func(a, b time.Weekday) int {
		return isoIndex(a) - isoIndex(b)
	})
	return normalized
}

// AllWeekdays lists the week Monday first.
func AllWeekdays() []time.Weekday {
	return []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
	}
}

// ParseWeekday accepts English weekday names and their three letter abbreviations in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 { //nolint:mnd // shortest accepted abbreviation.
		for _, d := range AllWeekdays() {
			name := strings.ToLower(d.String())
			if s == name || s == name[:3] {
				return d, nil
			}
		}
	}
	return 0, errors.Wrap(ErrInvalidInput, "parse weekday", slog.String("weekday", s))
}

// ParseWeekdays parses a comma separated list such as "mon,wed,fri". The result is normalized.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	for field := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(field) == "" {
			continue
		}
		d, err := ParseWeekday(field)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return NormalizeWeekdays(days), nil
}

// FormatWeekdays renders days as a comma separated list of abbreviations, the inverse of [ParseWeekdays].
func FormatWeekdays(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, d := range NormalizeWeekdays(days) {
		names = append(names, strings.ToLower(d.String()[:3]))
	}
	return strings.Join(names, ",")
}
