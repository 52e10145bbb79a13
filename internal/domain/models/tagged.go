package models

// TaggedBar is a bar annotated with its session, neighbouring events and the
// non-event exclusion mark.
type TaggedBar struct {
	Bar
	Session     Session   `json:"session"`
	EventBefore *EventRef `json:"event_before,omitempty"`
	EventAt     *EventRef `json:"event_at,omitempty"`
	EventAfter  *EventRef `json:"event_after,omitempty"`
	Exclude     bool      `json:"exclude"`
}

// TaggedSeries is a bar-aligned series together with the event set it was
// tagged against.
type TaggedSeries struct {
	Bars   []TaggedBar
	Events ClassifiedEvents
}

// PlainBars strips the tags.
func (s TaggedSeries) PlainBars() []Bar {
	out := make([]Bar, len(s.Bars))
	for i, tb := range s.Bars {
		out[i] = tb.Bar
	}
	return out
}

// Excluded counts bars marked for exclusion.
func (s TaggedSeries) Excluded() int {
	n := 0
	for _, tb := range s.Bars {
		if tb.Exclude {
			n++
		}
	}
	return n
}
