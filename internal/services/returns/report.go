package returns

import (
	"math"

	"FinEvent/internal/domain/models"
)

// ReportOptions controls a session report.
type ReportOptions struct {
	Symbol     string
	Interval   models.Interval
	Measure    models.Measure
	NonEvent   bool
	LatestDays int
	Filter     DateFilter
	// Sessions to report for intraday bars; the all-day row is always added.
	Sessions []models.Session
}

// Report aggregates bars into per-session histories. Intraday bars report
// every session, Other when it has rows, and the all-day series; daily bars
// report all-day only.
// No bars yields an empty report rather than an error.
func (a *Aggregator) Report(bars []models.TaggedBar, opts ReportOptions) models.SessionReport {
	if opts.Measure == "" {
		opts.Measure = models.MeasureReturn
	}
	rep := models.SessionReport{
		Symbol:   opts.Symbol,
		Interval: opts.Interval,
		Measure:  opts.Measure,
		NonEvent: opts.NonEvent,
	}

	bars = opts.Filter.Apply(bars, a.loc)
	if len(bars) == 0 {
		rep.Empty = true
		return rep
	}

	rep.From = models.DateOf(bars[0].Timestamp, a.loc)
	rep.To = rep.From
	for _, tb := range bars {
		d := models.DateOf(tb.Timestamp, a.loc)
		if d.Before(rep.From) {
			rep.From = d
		}
		if d.After(rep.To) {
			rep.To = d
		}
	}

	sessions := []models.Session{models.SessionAllDay}
	var bySession []models.SessionValue
	if opts.Interval.IsIntraday() {
		list := opts.Sessions
		if len(list) == 0 {
			list = models.ReportSessions
		}
		bySession = a.measure(opts.Measure, bars, false)
		sessions = withAllDayLast(withOther(list, bySession))
	}
	daily := a.measure(opts.Measure, bars, true)

	for _, s := range sessions {
		series := daily
		if s != models.SessionAllDay {
			series = ForSession(bySession, s)
		}
		rep.Sessions = append(rep.Sessions, a.sessionStats(s, series, opts.LatestDays))
	}
	return rep
}

func (a *Aggregator) measure(m models.Measure, bars []models.TaggedBar, allDay bool) []models.SessionValue {
	if m == models.MeasureVolatility {
		return a.volatility(bars, allDay)
	}
	return a.returns(bars, allDay)
}

func (a *Aggregator) sessionStats(s models.Session, series []models.SessionValue, latestDays int) models.SessionStats {
	values := Values(series)
	st := models.SessionStats{
		Session:          s,
		Series:           series,
		Summary:          Describe(values),
		Latest:           Latest(series, latestDays),
		LatestPercentile: models.Number(math.NaN()),
	}
	if n := len(series); n > 0 {
		last := series[n-1]
		st.LatestValue = last.Value
		st.LatestDate = last.Date
		st.LatestPercentile = models.Number(PercentileOfScore(values, last.Value))
	}
	return st
}

// withOther adds the Other bucket when bars fell outside every session.
func withOther(list []models.Session, values []models.SessionValue) []models.Session {
	for _, s := range list {
		if s == models.SessionOther {
			return list
		}
	}
	if len(ForSession(values, models.SessionOther)) == 0 {
		return list
	}
	return append(append([]models.Session(nil), list...), models.SessionOther)
}

func withAllDayLast(list []models.Session) []models.Session {
	out := make([]models.Session, 0, len(list)+1)
	for _, s := range list {
		if s != models.SessionAllDay {
			out = append(out, s)
		}
	}
	return append(out, models.SessionAllDay)
}
