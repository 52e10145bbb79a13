package models

import (
	"sort"
	"strings"
	"time"
)

// Flag columns produced by the classifier that the non-event filter relies on.
const (
	FlagTier1 = "Tier1"
	FlagTier2 = "Tier2"
	FlagTier3 = "Tier3"
	FlagTier4 = "Tier4"
	FlagFed   = "Fed"
	FlagMacro = "Macro"
)

// DefaultTier is assigned to events that match no tier keyword.
const DefaultTier = 4

// RawEvent is an unclassified calendar entry.
type RawEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
}

// EventRecord is a classified event. Tier and Flags are set once by the
// classifier and never modified afterwards.
type EventRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Name      string          `json:"name"`
	Tier      int             `json:"tier"`
	Flags     map[string]bool `json:"flags"`
}

// Flag reports the named flag, false when absent.
func (e EventRecord) Flag(name string) bool {
	return e.Flags[name]
}

// ClassifiedEvents is the classifier output: the events plus the flag columns
// that were derived for them.
type ClassifiedEvents struct {
	Events     []EventRecord
	Flags      []string
	classified bool
}

// NewClassifiedEvents marks events as carrying tier and flag columns.
func NewClassifiedEvents(events []EventRecord, flags []string) ClassifiedEvents {
	sorted := append([]string(nil), flags...)
	sort.Strings(sorted)
	return ClassifiedEvents{Events: events, Flags: sorted, classified: true}
}

// Classified reports whether the events went through classification.
func (c ClassifiedEvents) Classified() bool { return c.classified }

// HasFlag reports whether the flag column exists.
func (c ClassifiedEvents) HasFlag(name string) bool {
	i := sort.SearchStrings(c.Flags, name)
	return i < len(c.Flags) && c.Flags[i] == name
}

// EventRef is the view of one or more events attached to a bar. Events that
// share a timestamp are folded together: names are comma-joined, the tier is
// the most severe one and flags are OR-ed.
type EventRef struct {
	Timestamp time.Time       `json:"timestamp"`
	Names     string          `json:"names"`
	Tier      int             `json:"tier"`
	Flags     map[string]bool `json:"flags,omitempty"`
}

// Flag reports the named flag, false when absent.
func (r *EventRef) Flag(name string) bool {
	if r == nil {
		return false
	}
	return r.Flags[name]
}

// FoldEvents merges events that share one timestamp into a single reference.
func FoldEvents(events []EventRecord) *EventRef {
	if len(events) == 0 {
		return nil
	}
	ref := &EventRef{Timestamp: events[0].Timestamp, Tier: events[0].Tier}
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Name)
		if ev.Tier > 0 && (ref.Tier == 0 || ev.Tier < ref.Tier) {
			ref.Tier = ev.Tier
		}
		for k, v := range ev.Flags {
			if !v {
				continue
			}
			if ref.Flags == nil {
				ref.Flags = make(map[string]bool)
			}
			ref.Flags[k] = true
		}
	}
	ref.Names = strings.Join(names, ", ")
	return ref
}
