package returns

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
)

func tb(ts time.Time, session models.Session, high, low, closePx float64) models.TaggedBar {
	return models.TaggedBar{
		Bar:     models.Bar{Timestamp: ts, Symbol: "ZN", Open: closePx, High: high, Low: low, Close: closePx},
		Session: session,
	}
}

func TestSessionReturnScenario(t *testing.T) {
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	bars := []models.TaggedBar{
		tb(day.Add(9*time.Hour), models.SessionUSMid, 100, 100, 100),
		tb(day.Add(10*time.Hour), models.SessionUSMid, 101, 101, 101),
		tb(day.Add(11*time.Hour), models.SessionUSMid, 99, 99, 99),
	}
	a := New(16, time.UTC)

	ret := a.SessionReturns(bars)
	require.Len(t, ret, 1)
	assert.InDelta(t, 16, ret[0].Value, 1e-9)
	assert.Equal(t, models.Date{Year: 2024, Month: time.March, Day: 8}, ret[0].Date)

	vol := a.SessionVolatility(bars)
	require.Len(t, vol, 1)
	assert.InDelta(t, 32, vol[0].Value, 1e-9)
	assert.Equal(t, 101.0, vol[0].High)
	assert.Equal(t, 99.0, vol[0].Low)
}

func TestScaleIsConfigurable(t *testing.T) {
	day := time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)
	bars := []models.TaggedBar{
		tb(day, models.SessionUSOpen, 100, 100, 100),
		tb(day.Add(time.Hour), models.SessionUSOpen, 102, 102, 102),
	}

	assert.InDelta(t, 200, New(100, time.UTC).SessionReturns(bars)[0].Value, 1e-9)
	assert.Equal(t, DefaultScale, New(0, nil).Scale())
}

func TestGroupsByDayAndSession(t *testing.T) {
	d1 := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	bars := []models.TaggedBar{
		tb(d2.Add(8*time.Hour), models.SessionUSOpen, 11, 9, 10),
		tb(d1.Add(1*time.Hour), models.SessionLondon, 11, 9, 10),
		tb(d1.Add(2*time.Hour), models.SessionLondon, 12, 9, 11),
		tb(d1.Add(8*time.Hour), models.SessionUSOpen, 10, 8, 9),
		tb(d2.Add(9*time.Hour), models.SessionUSOpen, 13, 10, 12),
	}
	a := New(16, time.UTC)

	ret := a.SessionReturns(bars)
	require.Len(t, ret, 3)
	assert.Equal(t, models.SessionLondon, ret[0].Session)
	assert.InDelta(t, 16, ret[0].Value, 1e-9)
	assert.Equal(t, models.SessionUSOpen, ret[1].Session)
	assert.InDelta(t, 0, ret[1].Value, 1e-9, "single bar group has zero return")
	assert.InDelta(t, 32, ret[2].Value, 1e-9)

	daily := a.DailyVolatility(bars)
	require.Len(t, daily, 2)
	assert.Equal(t, models.SessionAllDay, daily[0].Session)
	assert.InDelta(t, 16*(12-8), daily[0].Value, 1e-9)
	assert.InDelta(t, 16*(13-9), daily[1].Value, 1e-9)

	open := ForSession(ret, models.SessionUSOpen)
	require.Len(t, open, 2)
	assert.True(t, open[0].Date.Before(open[1].Date))
}

func TestDescribeMatchesKnownMoments(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	s := Describe(values)

	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5, s.Mean, 1e-12)
	assert.InDelta(t, 4.5, s.Median, 1e-12)
	assert.InDelta(t, 2.138089935, s.Std.Float(), 1e-9)
	assert.InDelta(t, 0.818487553, s.Skew.Float(), 1e-9)
	assert.InDelta(t, 0.940625, s.Kurtosis.Float(), 1e-9)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)

	require.Len(t, s.Quantiles, len(models.SummaryQuantiles))
	assert.Equal(t, 25.0, s.Quantiles[2].Percent)
	assert.InDelta(t, 4, s.Quantiles[2].Value, 1e-12)
	assert.InDelta(t, 8.958, s.Quantiles[len(s.Quantiles)-1].Value, 1e-9)
}

func TestDescribeSmallSamples(t *testing.T) {
	empty := Describe(nil)
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.Quantiles)

	one := Describe([]float64{3})
	assert.Equal(t, 1, one.Count)
	assert.False(t, one.Std.Defined())
	assert.False(t, one.Skew.Defined())
	assert.False(t, one.Kurtosis.Defined())

	flat := Describe([]float64{1, 1, 1, 1})
	assert.Equal(t, 0.0, flat.Std.Float())
	assert.Equal(t, 0.0, flat.Skew.Float())
	assert.Equal(t, 0.0, flat.Kurtosis.Float())
}

func TestQuantileLinear(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	assert.InDelta(t, 2.5, Quantile(v, 0.5), 1e-12)
	assert.InDelta(t, 1.75, Quantile(v, 0.25), 1e-12)
	assert.Equal(t, 1.0, Quantile(v, 0))
	assert.Equal(t, 4.0, Quantile(v, 1))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestPercentileOfScoreRank(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	assert.InDelta(t, 75, PercentileOfScore(v, 3), 1e-12)
	assert.InDelta(t, 100, PercentileOfScore(v, 9), 1e-12)
	assert.InDelta(t, 0, PercentileOfScore(v, 0), 1e-12)
	assert.InDelta(t, 70, PercentileOfScore([]float64{1, 2, 3, 3, 4}, 3), 1e-12)
}

func series(values ...float64) []models.SessionValue {
	out := make([]models.SessionValue, len(values))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		out[i] = models.SessionValue{Date: models.DateOf(start.AddDate(0, 0, i), nil), Session: models.SessionUSOpen, Value: v}
	}
	return out
}

func TestLatestZScores(t *testing.T) {
	rows := series(2, 4, 4, 4, 5, 5, 7, 9)
	view := Latest(rows, 3)

	require.Equal(t, 3, view.Days)
	require.Len(t, view.Rows, 3)
	last := view.Rows[2]
	assert.Equal(t, 9.0, last.Value)
	assert.InDelta(t, (9-5)/2.138089935, last.ZAll.Float(), 1e-6)
	assert.InDelta(t, (9-7)/2.0, last.ZLatestN.Float(), 1e-9)
	assert.Equal(t, 3, view.Summary.Count)
}

func TestLatestCustomNClamps(t *testing.T) {
	rows := series(1, 2, 3)
	assert.Len(t, Latest(rows, 0).Rows, 3)
	assert.Len(t, Latest(rows, 10).Rows, 3)
	assert.Len(t, Latest(rows, 2).Rows, 2)
	assert.Empty(t, Latest(nil, 5).Rows)
}

func TestDateFilter(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var bars []models.TaggedBar
	for i := 0; i < 40; i++ {
		bars = append(bars, tb(start.AddDate(0, 0, i), models.SessionUSMid, 1, 1, 1))
	}

	byRange := DateFilter{
		Start: models.Date{Year: 2024, Month: time.March, Day: 5},
		End:   models.Date{Year: 2024, Month: time.March, Day: 9},
	}
	require.NoError(t, byRange.Validate())
	assert.Len(t, byRange.Apply(bars, time.UTC), 5)

	openEnded := DateFilter{Start: models.Date{Year: 2024, Month: time.April, Day: 1}}
	assert.Len(t, openEnded.Apply(bars, time.UTC), 9)

	monthDay := DateFilter{Month: time.March, DayFrom: 10, DayTo: 12, Start: models.Date{Year: 2030, Month: 1, Day: 1}}
	assert.Len(t, monthDay.Apply(bars, time.UTC), 3, "month window overrides range")

	assert.Error(t, DateFilter{Month: 13, DayFrom: 1, DayTo: 2}.Validate())
	assert.Error(t, DateFilter{Month: time.May, DayFrom: 5, DayTo: 2}.Validate())
	assert.Error(t, DateFilter{Start: byRange.End, End: byRange.Start}.Validate())
}

func TestReportIntradaySessions(t *testing.T) {
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	bars := []models.TaggedBar{
		tb(day.Add(1*time.Hour), models.SessionLondon, 101, 99, 100),
		tb(day.Add(2*time.Hour), models.SessionLondon, 102, 100, 101),
		tb(day.Add(8*time.Hour), models.SessionUSOpen, 103, 100, 102),
	}
	a := New(16, time.UTC)

	rep := a.Report(bars, ReportOptions{Symbol: "ZN", Interval: models.Interval1h, LatestDays: 14})
	assert.False(t, rep.Empty)
	assert.Equal(t, models.MeasureReturn, rep.Measure)
	require.Len(t, rep.Sessions, len(models.ReportSessions))
	assert.Equal(t, models.SessionAllDay, rep.Sessions[len(rep.Sessions)-1].Session)

	london := rep.Sessions[0]
	assert.Equal(t, models.SessionLondon, london.Session)
	assert.InDelta(t, 16, london.LatestValue, 1e-9)
	assert.InDelta(t, 100, london.LatestPercentile.Float(), 1e-9)

	allDay := rep.Sessions[len(rep.Sessions)-1]
	assert.InDelta(t, 32, allDay.LatestValue, 1e-9)

	asia := rep.Sessions[4]
	assert.Equal(t, models.SessionAsia, asia.Session)
	assert.Zero(t, asia.Summary.Count)
	assert.False(t, asia.LatestPercentile.Defined())
}

func TestReportIncludesPopulatedOther(t *testing.T) {
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	bars := []models.TaggedBar{
		tb(day.Add(8*time.Hour), models.SessionUSOpen, 103, 100, 102),
		tb(day.Add(17*time.Hour), models.SessionOther, 104, 101, 103),
		tb(day.Add(17*time.Hour+30*time.Minute), models.SessionOther, 105, 102, 104),
	}

	rep := New(16, time.UTC).Report(bars, ReportOptions{Interval: models.Interval30m})
	require.Len(t, rep.Sessions, len(models.ReportSessions)+1)
	other := rep.Sessions[len(rep.Sessions)-2]
	assert.Equal(t, models.SessionOther, other.Session)
	assert.InDelta(t, 16, other.LatestValue, 1e-9)
	assert.Equal(t, models.SessionAllDay, rep.Sessions[len(rep.Sessions)-1].Session)
}

func TestReportDailyUsesAllDayOnly(t *testing.T) {
	day := time.Date(2024, 3, 8, 23, 59, 59, 0, time.UTC)
	bars := []models.TaggedBar{
		tb(day, models.SessionAllDay, 101, 99, 100),
		tb(day.AddDate(0, 0, 1), models.SessionAllDay, 103, 100, 102),
	}

	rep := New(16, time.UTC).Report(bars, ReportOptions{Interval: models.Interval1d, Measure: models.MeasureVolatility})
	require.Len(t, rep.Sessions, 1)
	assert.Equal(t, models.SessionAllDay, rep.Sessions[0].Session)
	assert.InDelta(t, 48, rep.Sessions[0].LatestValue, 1e-9)
	assert.Equal(t, "2024-03-09", rep.To.String())
}

func TestReportEmpty(t *testing.T) {
	rep := New(16, time.UTC).Report(nil, ReportOptions{Symbol: "ZN", Interval: models.Interval1h})
	assert.True(t, rep.Empty)
	assert.Empty(t, rep.Sessions)
}
