package series

import (
	"sort"
	"time"
)

// DateLayout is the wire layout of every date the data source emits.
const DateLayout = "2006-01-02"

// Day is the length of one step on a daily series.
const Day = 24 * time.Hour

// DayMillis is [Day] in milliseconds, the unit of calendar x values.
const DayMillis = int64(Day / time.Millisecond)

// ParseDate parses a "YYYY-MM-DD" date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// MustParseDate is like [ParseDate] but panics on malformed input.
// It is meant for fixtures and tests.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Millis returns the UTC epoch milliseconds of t.
func Millis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// IndexOfDate returns the index of d in the strictly increasing dates, or -1.
func IndexOfDate(dates []time.Time, d time.Time) int {
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(d) })
	if i < len(dates) && dates[i].Equal(d) {
		return i
	}
	return -1
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.UTC().Sub(a.UTC()).Round(time.Hour) / Day)
}
