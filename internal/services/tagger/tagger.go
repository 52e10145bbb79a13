// Package tagger joins a bar series with an event series on time.
package tagger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"FinEvent/internal/domain/models"
)

// Mode selects the join semantics.
type Mode int

const (
	// ModeAsOf attaches to every bar the events exactly at its timestamp and
	// the nearest events at or before and at or after it. Output has one row
	// per bar.
	ModeAsOf Mode = iota
	// ModeOuter is the legacy outer union on exact timestamps. Event-only
	// rows are folded back into the series events by Coalesce.
	ModeOuter
)

func (m Mode) String() string {
	switch m {
	case ModeAsOf:
		return "asof"
	case ModeOuter:
		return "outer"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "asof" and "outer"; empty means ModeAsOf.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asof", "as-of":
		return ModeAsOf, nil
	case "outer":
		return ModeOuter, nil
	}
	return 0, fmt.Errorf("%w: unknown join mode %q", models.ErrInvalidArgument, s)
}

// Tag joins bars and events with the given mode.
func Tag(bars []models.Bar, events models.ClassifiedEvents, mode Mode) models.TaggedSeries {
	if mode == ModeOuter {
		return Coalesce(Outer(bars, events), events)
	}
	return AsOf(bars, events)
}

type eventGroup struct {
	ts  time.Time
	ref *models.EventRef
}

// groupEvents sorts events and folds those that share a timestamp. The
// returned references are shared by every bar they attach to and must be
// treated as read-only.
func groupEvents(events []models.EventRecord) []eventGroup {
	sorted := make([]models.EventRecord, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var groups []eventGroup
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Timestamp.Equal(sorted[start].Timestamp) {
			end++
		}
		groups = append(groups, eventGroup{ts: sorted[start].Timestamp, ref: models.FoldEvents(sorted[start:end])})
		start = end
	}
	return groups
}

func sortedBars(bars []models.Bar) []models.Bar {
	out := models.CloneBars(bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// AsOf performs the bar-anchored three-way join in one forward sweep.
func AsOf(bars []models.Bar, events models.ClassifiedEvents) models.TaggedSeries {
	sb := sortedBars(bars)
	groups := groupEvents(events.Events)
	out := make([]models.TaggedBar, len(sb))

	// after: first group with ts > bar; atOrAfter: first group with ts >= bar.
	after, atOrAfter := 0, 0
	for i, b := range sb {
		for after < len(groups) && !groups[after].ts.After(b.Timestamp) {
			after++
		}
		for atOrAfter < len(groups) && groups[atOrAfter].ts.Before(b.Timestamp) {
			atOrAfter++
		}

		tb := models.TaggedBar{Bar: b}
		if after > 0 {
			tb.EventBefore = groups[after-1].ref
		}
		if atOrAfter < len(groups) {
			tb.EventAfter = groups[atOrAfter].ref
			if groups[atOrAfter].ts.Equal(b.Timestamp) {
				tb.EventAt = groups[atOrAfter].ref
			}
		}
		out[i] = tb
	}

	return models.TaggedSeries{Bars: out, Events: events}
}

// OuterRow is one row of the outer union: a bar, an event group, or both.
type OuterRow struct {
	Timestamp time.Time
	Bar       *models.Bar
	Event     *models.EventRef
}

// Outer merges bars and events on exact timestamp equality, producing a row
// for every bar and for every event timestamp with no matching bar.
func Outer(bars []models.Bar, events models.ClassifiedEvents) []OuterRow {
	sb := sortedBars(bars)
	groups := groupEvents(events.Events)
	rows := make([]OuterRow, 0, len(sb)+len(groups))

	i, j := 0, 0
	for i < len(sb) || j < len(groups) {
		switch {
		case j >= len(groups) || (i < len(sb) && sb[i].Timestamp.Before(groups[j].ts)):
			rows = append(rows, OuterRow{Timestamp: sb[i].Timestamp, Bar: &sb[i]})
			i++
		case i >= len(sb) || groups[j].ts.Before(sb[i].Timestamp):
			rows = append(rows, OuterRow{Timestamp: groups[j].ts, Event: groups[j].ref})
			j++
		default:
			rows = append(rows, OuterRow{Timestamp: sb[i].Timestamp, Bar: &sb[i], Event: groups[j].ref})
			i++
			j++
		}
	}
	return rows
}

// Coalesce folds outer rows back to one tagged bar per bar timestamp. Only
// EventAt is filled; event-only rows survive as part of the series events.
func Coalesce(rows []OuterRow, events models.ClassifiedEvents) models.TaggedSeries {
	out := make([]models.TaggedBar, 0, len(rows))
	for _, r := range rows {
		if r.Bar == nil {
			continue
		}
		out = append(out, models.TaggedBar{Bar: *r.Bar, EventAt: r.Event})
	}
	return models.TaggedSeries{Bars: out, Events: events}
}
