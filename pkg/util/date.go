package util

import (
	"strconv"
	"strings"
	"time"
)

// Layouts that carry an explicit offset.
var zonedLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05 -0700 MST",
}

// Layouts without an offset; they are interpreted in a caller-given location.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseTime tries zoned layouts, then unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeIn is ParseTime that also accepts naive layouts, localizing them
// to loc. The second result reports whether the input was naive.
func ParseTimeIn(s string, loc *time.Location) (t time.Time, naive bool, ok bool) {
	if t, ok := ParseTime(s); ok {
		return t, false, true
	}
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true, true
		}
	}
	return time.Time{}, false, false
}

// AlignFromTo rounds the range to bar boundaries of the given length. Ranges
// of a day or more are aligned to whole days in the range's own location.
func AlignFromTo(from, to time.Time, step time.Duration) (time.Time, time.Time) {
	if step <= 0 {
		step = time.Minute
	}
	if step >= 24*time.Hour {
		return startOfDay(from), startOfDay(to)
	}
	return from.Truncate(step), to.Truncate(step)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
