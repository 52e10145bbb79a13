// Package sessions buckets timestamps into trading sessions.
package sessions

import (
	"fmt"
	"sort"
	"time"

	"FinEvent/internal/domain/models"
)

// Bound is a half-open hour range [Start, End) in the reference timezone.
type Bound struct {
	Session models.Session `yaml:"session" json:"session" validate:"required"`
	Start   int            `yaml:"start" json:"start" validate:"gte=0,lte=23"`
	End     int            `yaml:"end" json:"end" validate:"gte=1,lte=24"`
}

// DefaultBounds is the US/Eastern session table. 17:00-18:00 is left to
// the Other bucket.
func DefaultBounds() []Bound {
	return []Bound{
		{Session: models.SessionAsia, Start: 18, End: 24},
		{Session: models.SessionLondon, Start: 0, End: 7},
		{Session: models.SessionUSOpen, Start: 7, End: 10},
		{Session: models.SessionUSMid, Start: 10, End: 15},
		{Session: models.SessionUSClose, Start: 15, End: 17},
	}
}

// Segmenter maps timestamps to sessions by hour of day.
type Segmenter struct {
	loc    *time.Location
	byHour [24]models.Session
	bounds []Bound
}

// New validates bounds and builds the hour table. Hours no bound covers map
// to Other.
func New(loc *time.Location, bounds []Bound) (*Segmenter, error) {
	if loc == nil {
		return nil, fmt.Errorf("%w: nil session timezone", models.ErrInvalidArgument)
	}
	if len(bounds) == 0 {
		bounds = DefaultBounds()
	}

	s := &Segmenter{loc: loc, bounds: append([]Bound(nil), bounds...)}
	for h := range s.byHour {
		s.byHour[h] = models.SessionOther
	}

	covered := [24]bool{}
	for _, b := range bounds {
		if b.Start < 0 || b.End > 24 || b.Start >= b.End {
			return nil, fmt.Errorf("%w: session %q has bad hours [%d,%d)", models.ErrInvalidArgument, b.Session, b.Start, b.End)
		}
		if b.Session == models.SessionAllDay || b.Session == models.SessionOther {
			return nil, fmt.Errorf("%w: session name %q is reserved", models.ErrInvalidArgument, b.Session)
		}
		for h := b.Start; h < b.End; h++ {
			if covered[h] {
				return nil, fmt.Errorf("%w: hour %d is claimed by %q and %q", models.ErrInvalidArgument, h, s.byHour[h], b.Session)
			}
			covered[h] = true
			s.byHour[h] = b.Session
		}
	}

	sort.Slice(s.bounds, func(i, j int) bool { return s.bounds[i].Start < s.bounds[j].Start })
	return s, nil
}

// Location returns the reference timezone.
func (s *Segmenter) Location() *time.Location { return s.loc }

// SessionOf returns the session of ts. It is total: every instant maps to
// exactly one session.
func (s *Segmenter) SessionOf(ts time.Time) models.Session {
	return s.byHour[ts.In(s.loc).Hour()]
}

// Uncovered lists the hours that fall to Other.
func (s *Segmenter) Uncovered() []int {
	var hours []int
	for h, sess := range s.byHour {
		if sess == models.SessionOther {
			hours = append(hours, h)
		}
	}
	return hours
}

// Sessions lists the configured sessions ordered by start hour.
func (s *Segmenter) Sessions() []models.Session {
	out := make([]models.Session, len(s.bounds))
	for i, b := range s.bounds {
		out[i] = b.Session
	}
	return out
}

// Assign sets the session of every bar. Daily and coarser bars skip
// segmentation and all belong to the all-day session.
func (s *Segmenter) Assign(series models.TaggedSeries, interval models.Interval) models.TaggedSeries {
	bars := make([]models.TaggedBar, len(series.Bars))
	copy(bars, series.Bars)
	for i := range bars {
		if interval.IsIntraday() {
			bars[i].Session = s.SessionOf(bars[i].Timestamp)
		} else {
			bars[i].Session = models.SessionAllDay
		}
	}
	return models.TaggedSeries{Bars: bars, Events: series.Events}
}
