// Package timeseries aligns bar and event series onto one timezone-aware
// representation.
package timeseries

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"FinEvent/internal/domain/models"
	"FinEvent/pkg/util"
)

// Normalizer converts timestamps to a reference timezone. Timestamps that
// arrive without an offset are read in the source timezone first.
type Normalizer struct {
	source *time.Location
	target *time.Location
}

func NewNormalizer(sourceTZ, targetTZ string) (*Normalizer, error) {
	source, err := time.LoadLocation(sourceTZ)
	if err != nil {
		return nil, fmt.Errorf("load source timezone %q: %w", sourceTZ, err)
	}
	target, err := time.LoadLocation(targetTZ)
	if err != nil {
		return nil, fmt.Errorf("load target timezone %q: %w", targetTZ, err)
	}
	return &Normalizer{source: source, target: target}, nil
}

// Location returns the reference timezone.
func (n *Normalizer) Location() *time.Location { return n.target }

// Source returns the timezone naive timestamps are read in.
func (n *Normalizer) Source() *time.Location { return n.source }

// ParseTimestamp parses s and converts it to the reference timezone.
func (n *Normalizer) ParseTimestamp(s string) (time.Time, error) {
	t, _, ok := util.ParseTimeIn(s, n.source)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}
	return t.In(n.target), nil
}

// Convert moves t to the reference timezone.
func (n *Normalizer) Convert(t time.Time) time.Time { return t.In(n.target) }

// StampDaily pins a daily bar to 23:59:59 of its calendar day, so it sorts
// after every intraday event of that day.
func (n *Normalizer) StampDaily(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, n.target)
}

// Bars converts, sorts and deduplicates a bar series. Bars with missing
// prices are dropped. When two bars share a timestamp the later one in the
// input wins, so appending fresh data to history refreshes overlapping bars.
func (n *Normalizer) Bars(bars []models.Bar, interval models.Interval) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp.IsZero() || hasNaN(b) {
			continue
		}
		if interval.IsIntraday() {
			b.Timestamp = n.Convert(b.Timestamp)
		} else {
			b.Timestamp = n.StampDaily(b.Timestamp)
		}
		if b.Interval == "" {
			b.Interval = interval
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	deduped := out[:0]
	for _, b := range out {
		last := len(deduped) - 1
		if last >= 0 && deduped[last].Timestamp.Equal(b.Timestamp) {
			deduped[last] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

// Merge appends fresh bars to history and normalizes the result.
func (n *Normalizer) Merge(history, fresh []models.Bar, interval models.Interval) []models.Bar {
	all := make([]models.Bar, 0, len(history)+len(fresh))
	all = append(all, history...)
	all = append(all, fresh...)
	return n.Bars(all, interval)
}

// Events converts and sorts raw events. Blank names and zero timestamps are
// dropped; events sharing a timestamp keep their input order.
func (n *Normalizer) Events(events []models.RawEvent) []models.RawEvent {
	out := make([]models.RawEvent, 0, len(events))
	for _, ev := range events {
		name := strings.TrimSpace(ev.Name)
		if ev.Timestamp.IsZero() || name == "" {
			continue
		}
		out = append(out, models.RawEvent{Timestamp: n.Convert(ev.Timestamp), Name: name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func hasNaN(b models.Bar) bool {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
