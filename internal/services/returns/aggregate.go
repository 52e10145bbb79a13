// Package returns turns tagged bar series into per-session daily returns
// and range volatility, with descriptive statistics over their history.
package returns

import (
	"math"
	"sort"
	"time"

	"FinEvent/internal/domain/models"
)

// DefaultScale converts a price difference into the instrument's basis
// point convention.
const DefaultScale = 16.0

// Aggregator groups bars by (calendar day, session).
type Aggregator struct {
	scale float64
	loc   *time.Location
}

// New returns an aggregator that multiplies price differences by scale and
// resolves calendar days in loc. A non-positive scale falls back to
// DefaultScale.
func New(scale float64, loc *time.Location) *Aggregator {
	if scale <= 0 || math.IsNaN(scale) {
		scale = DefaultScale
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{scale: scale, loc: loc}
}

func (a *Aggregator) Scale() float64 { return a.scale }

type groupKey struct {
	date    models.Date
	session models.Session
}

type group struct {
	key        groupKey
	firstClose float64
	lastClose  float64
	high       float64
	low        float64
}

// groups walks bars in time order and folds them per key. allDay collapses
// every session into the all-day bucket.
func (a *Aggregator) groups(bars []models.TaggedBar, allDay bool) []*group {
	sorted := make([]models.TaggedBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	index := make(map[groupKey]*group)
	var out []*group
	for _, tb := range sorted {
		key := groupKey{date: models.DateOf(tb.Timestamp, a.loc), session: tb.Session}
		if allDay {
			key.session = models.SessionAllDay
		}
		g, ok := index[key]
		if !ok {
			g = &group{key: key, firstClose: tb.Close, high: tb.High, low: tb.Low}
			index[key] = g
			out = append(out, g)
		}
		g.lastClose = tb.Close
		g.high = math.Max(g.high, tb.High)
		g.low = math.Min(g.low, tb.Low)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].key.date.Compare(out[j].key.date); c != 0 {
			return c < 0
		}
		return out[i].key.session < out[j].key.session
	})
	return out
}

// SessionReturns is |last close - first close| * scale per day and session.
func (a *Aggregator) SessionReturns(bars []models.TaggedBar) []models.SessionValue {
	return a.returns(bars, false)
}

// DailyReturns is SessionReturns over whole calendar days.
func (a *Aggregator) DailyReturns(bars []models.TaggedBar) []models.SessionValue {
	return a.returns(bars, true)
}

// SessionVolatility is scale * (max high - min low) per day and session.
func (a *Aggregator) SessionVolatility(bars []models.TaggedBar) []models.SessionValue {
	return a.volatility(bars, false)
}

// DailyVolatility is SessionVolatility over whole calendar days.
func (a *Aggregator) DailyVolatility(bars []models.TaggedBar) []models.SessionValue {
	return a.volatility(bars, true)
}

func (a *Aggregator) returns(bars []models.TaggedBar, allDay bool) []models.SessionValue {
	gs := a.groups(bars, allDay)
	out := make([]models.SessionValue, len(gs))
	for i, g := range gs {
		out[i] = models.SessionValue{
			Date:    g.key.date,
			Session: g.key.session,
			Value:   math.Abs(g.lastClose-g.firstClose) * a.scale,
		}
	}
	return out
}

func (a *Aggregator) volatility(bars []models.TaggedBar, allDay bool) []models.SessionValue {
	gs := a.groups(bars, allDay)
	out := make([]models.SessionValue, len(gs))
	for i, g := range gs {
		out[i] = models.SessionValue{
			Date:    g.key.date,
			Session: g.key.session,
			Value:   a.scale * (g.high - g.low),
			High:    g.high,
			Low:     g.low,
		}
	}
	return out
}

// ForSession selects one session's rows, keeping date order.
func ForSession(values []models.SessionValue, session models.Session) []models.SessionValue {
	var out []models.SessionValue
	for _, v := range values {
		if v.Session == session {
			out = append(out, v)
		}
	}
	return out
}

// Values extracts the numeric column.
func Values(rows []models.SessionValue) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out
}
