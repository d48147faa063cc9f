package domain

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// MaxBoardSpanDays bounds the number of days a board projection covers.
const MaxBoardSpanDays = 31

// DateOnly truncates t to midnight UTC of its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp and returns the UTC day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return DateOnly(t), nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// Nights counts calendar days between two dates; check-out day is not a night.
func Nights(from, toExclusive time.Time) int {
	return int(DateOnly(toExclusive).Sub(DateOnly(from)).Hours() / 24)
}

// DateRange lists every day in [from, toExclusive).
func DateRange(from, toExclusive time.Time) []time.Time {
	from, toExclusive = DateOnly(from), DateOnly(toExclusive)
	if !toExclusive.After(from) {
		return nil
	}
	days := make([]time.Time, 0, Nights(from, toExclusive))
	for d := from; d.Before(toExclusive); d = AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// StartOfISOWeek returns the Monday of t's ISO week.
func StartOfISOWeek(t time.Time) time.Time {
	d := DateOnly(t)
	offset := (int(d.Weekday()) + 6) % 7
	return AddDays(d, -offset)
}

// ClampRange caps an inclusive [from, to] span at maxSpanDays days.
func ClampRange(from, to time.Time, maxSpanDays int) time.Time {
	if Nights(from, to) > maxSpanDays-1 {
		return AddDays(from, maxSpanDays-1)
	}
	return to
}

// ValidateStay checks a half-open stay range.
func ValidateStay(from, toExclusive time.Time) error {
	if from.IsZero() || toExclusive.IsZero() {
		return ErrInvalidDate
	}
	if !DateOnly(toExclusive).After(DateOnly(from)) {
		return ErrInvalidDateRange
	}
	return nil
}
