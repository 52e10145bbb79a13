package models

import (
	"strings"
	"time"
)

// Interval is the bar resolution, spelled the way market-data providers do.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval1d:  24 * time.Hour,
	Interval1wk: 7 * 24 * time.Hour,
	Interval1mo: 30 * 24 * time.Hour,
}

// IsValid returns true if the interval is supported.
func (i Interval) IsValid() bool {
	_, ok := intervalDurations[i]
	return ok
}

// IsIntraday is true for minute and hour bars. Daily and coarser bars are
// analysed as a single all-day session.
func (i Interval) IsIntraday() bool {
	s := string(i)
	if strings.HasSuffix(s, "mo") {
		return false
	}
	return strings.HasSuffix(s, "m") || strings.HasSuffix(s, "h")
}

// Duration returns the nominal bar length, zero for unknown intervals.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

// DefaultInterval returns the default bar interval.
func DefaultInterval() Interval { return Interval1h }

// NormalizeInterval converts a raw string to a valid interval (or the default).
func NormalizeInterval(s string) Interval {
	iv := Interval(strings.ToLower(strings.TrimSpace(s)))
	if iv.IsValid() {
		return iv
	}
	return DefaultInterval()
}
