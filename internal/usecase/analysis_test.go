package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
	domsvc "FinEvent/internal/domain/service"
	"FinEvent/internal/repository"
	"FinEvent/internal/services/classifier"
	"FinEvent/internal/services/nonevent"
	"FinEvent/internal/services/probability"
	"FinEvent/internal/services/returns"
	"FinEvent/internal/services/sessions"
	"FinEvent/internal/services/tagger"
	"FinEvent/internal/services/timeseries"
	"FinEvent/pkg/cache"
	"FinEvent/pkg/metrics"
)

var nfp = time.Date(2024, 3, 8, 13, 30, 0, 0, time.UTC) // 08:30 New York

func testEngines(t *testing.T) Engines {
	t.Helper()
	norm, err := timeseries.NewNormalizer("UTC", "America/New_York")
	require.NoError(t, err)
	loc := norm.Location()
	seg, err := sessions.New(loc, nil)
	require.NoError(t, err)
	return Engines{
		Normalizer:  norm,
		Segmenter:   seg,
		Filter:      nonevent.New(loc, nonevent.DefaultWindows()),
		Aggregator:  returns.New(16, loc),
		Probability: probability.New(16, 0.5),
	}
}

// hourly bars 09:00..15:00 New York on the NFP day and the following Monday
func seedBars(t *testing.T, store *repository.MemoryStore) {
	t.Helper()
	var bars []models.Bar
	for _, day := range []time.Time{
		time.Date(2024, 3, 8, 14, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 11, 13, 0, 0, 0, time.UTC),
	} {
		for h := 0; h < 7; h++ {
			p := 110 + float64(h)*0.0625
			bars = append(bars, models.Bar{
				Timestamp: day.Add(time.Duration(h) * time.Hour),
				Symbol:    "ZN", Interval: models.Interval1h,
				Open: p, High: p + 0.05, Low: p - 0.05, Close: p + 0.03125, AdjClose: p + 0.03125,
			})
		}
	}
	require.NoError(t, store.StoreBars(context.Background(), bars))
	require.NoError(t, store.StoreEvents(context.Background(), []models.RawEvent{{Timestamp: nfp, Name: "Nonfarm Payrolls"}}, "test"))
}

func newAnalysis(t *testing.T, kw classifier.Keywords) (*AnalysisUseCase, *repository.MemoryStore, *cache.MemoryCache) {
	t.Helper()
	store := repository.NewMemoryStore()
	seedBars(t, store)
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	uc := NewAnalysisUseCase(store, store, testEngines(t), kw, c, metrics.Nop{}, nil, AnalysisConfig{
		Mode: tagger.ModeAsOf, LatestDays: 5, MaxHorizon: 3,
		ReportTTL: time.Minute, MatrixTTL: time.Minute, KeyPrefix: "test",
	})
	uc.SetTaggedStore(store)
	return uc, store, c
}

func series(sym string) SeriesParams {
	return SeriesParams{Symbol: sym, Interval: models.Interval1h}
}

func TestSeriesExcludesTier1Day(t *testing.T) {
	uc, store, _ := newAnalysis(t, classifier.DefaultKeywords())

	p := series("ZN")
	p.NonEvent = true
	s, err := uc.Series(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, s.Bars, 14)
	assert.Equal(t, 7, s.Excluded())
	for _, tb := range s.Bars {
		assert.Equal(t, tb.Timestamp.Day() == 8, tb.Exclude, tb.Timestamp)
	}
	assert.Equal(t, models.SessionUSOpen, s.Bars[0].Session)
	require.NotNil(t, s.Bars[0].EventBefore)
	assert.Equal(t, "Nonfarm Payrolls", s.Bars[0].EventBefore.Names)

	stored, ok := store.Tagged("ZN", models.Interval1h)
	require.True(t, ok)
	assert.Len(t, stored.Bars, 14)
}

func TestSeriesWithoutFilterKeepsEveryBar(t *testing.T) {
	uc, _, _ := newAnalysis(t, classifier.Keywords{})
	s, err := uc.Series(context.Background(), series("ZN"))
	require.NoError(t, err)
	assert.Zero(t, s.Excluded())

	p := series("ZN")
	p.NonEvent = true
	_, err = uc.Series(context.Background(), p)
	assert.ErrorIs(t, err, models.ErrMissingRequiredColumn)
}

func TestSeriesValidates(t *testing.T) {
	uc, _, _ := newAnalysis(t, classifier.DefaultKeywords())
	_, err := uc.Series(context.Background(), SeriesParams{Interval: models.Interval1h})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = uc.Series(context.Background(), SeriesParams{Symbol: "ZN", Interval: "2h"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestSessionReportNonEventAndCache(t *testing.T) {
	uc, _, _ := newAnalysis(t, classifier.DefaultKeywords())
	p := ReportParams{SeriesParams: series("ZN"), Measure: models.MeasureReturn}
	p.NonEvent = true

	rep, hit, err := uc.SessionReport(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, rep.Empty)
	assert.Equal(t, models.Date{Year: 2024, Month: 3, Day: 11}, rep.From)
	assert.Equal(t, rep.From, rep.To)

	var allDay *models.SessionStats
	for i := range rep.Sessions {
		if rep.Sessions[i].Session == models.SessionAllDay {
			allDay = &rep.Sessions[i]
		}
	}
	require.NotNil(t, allDay)
	require.Len(t, allDay.Series, 1)
	// |close(15:00) - close(09:00)| * 16 = 6 * 0.0625 * 16
	assert.InDelta(t, 6.0, allDay.Series[0].Value, 1e-9)

	_, hit, err = uc.SessionReport(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, uc.Invalidate(context.Background(), "ZN"))
	_, hit, err = uc.SessionReport(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSessionReportEmptyAndBadMeasure(t *testing.T) {
	uc, _, _ := newAnalysis(t, classifier.DefaultKeywords())

	rep, _, err := uc.SessionReport(context.Background(), ReportParams{SeriesParams: series("ZB")})
	require.NoError(t, err)
	assert.True(t, rep.Empty)

	_, _, err = uc.SessionReport(context.Background(), ReportParams{SeriesParams: series("ZN"), Measure: "skew"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, _, err = uc.SessionReport(context.Background(), ReportParams{
		SeriesParams: series("ZN"),
		Filter:       returns.DateFilter{Month: time.March, DayFrom: 10, DayTo: 2},
	})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestMatrix(t *testing.T) {
	uc, _, _ := newAnalysis(t, classifier.DefaultKeywords())

	res, hit, err := uc.Matrix(context.Background(), MatrixParams{SeriesParams: series("ZN"), Target: 1, Version: models.VersionAbsolute})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, res.Empty)
	assert.Equal(t, "ZN", res.Symbol)
	assert.Equal(t, 3, res.MaxHorizon)
	assert.Equal(t, []int{1, 2, 3}, res.Matrix.Hours)

	_, _, err = uc.Matrix(context.Background(), MatrixParams{SeriesParams: series("ZN"), Hours: 2, Version: models.Version(9)})
	assert.ErrorIs(t, err, models.ErrInvalidVersion)

	_, _, err = uc.Matrix(context.Background(), MatrixParams{SeriesParams: series("ZN"), Hours: -1})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestOverview(t *testing.T) {
	uc, _, _ := newAnalysis(t, classifier.DefaultKeywords())
	p := OverviewParams{SeriesParams: series("ZN"), Hours: 2, Target: 0.5}
	p.NonEvent = true

	ov, err := uc.Overview(context.Background(), p)
	require.NoError(t, err)
	assert.Nil(t, ov.Errors)
	require.NotNil(t, ov.Returns)
	require.NotNil(t, ov.Volatility)
	require.NotNil(t, ov.Matrix)
	assert.Equal(t, models.MeasureReturn, ov.Returns.Measure)
	assert.Equal(t, models.MeasureVolatility, ov.Volatility.Measure)
	assert.Equal(t, 2, ov.Matrix.MaxHorizon)
}

func TestOverviewReportsFailingView(t *testing.T) {
	uc, _, _ := newAnalysis(t, classifier.DefaultKeywords())
	ov, err := uc.Overview(context.Background(), OverviewParams{SeriesParams: series("ZN"), Hours: 2, Version: models.Version(5)})
	require.NoError(t, err)
	assert.Contains(t, ov.Errors, "matrix")
	assert.NotNil(t, ov.Returns)
}

func TestUseSheetTiers(t *testing.T) {
	flagsOnly := classifier.Keywords{Flags: classifier.DefaultKeywords().Flags}
	uc, _, _ := newAnalysis(t, flagsOnly)

	ok, err := uc.UseSheetTiers([]domsvc.TierKeyword{{Keyword: "Payrolls", Tier: 1}})
	require.NoError(t, err)
	assert.True(t, ok)

	ev, err := uc.Classify([]models.RawEvent{{Timestamp: nfp, Name: "Nonfarm Payrolls"}}, nil)
	require.NoError(t, err)
	require.Len(t, ev.Events, 1)
	assert.Equal(t, 1, ev.Events[0].Tier)

	ok, err = uc.UseSheetTiers([]domsvc.TierKeyword{{Keyword: "CPI", Tier: 1}})
	require.NoError(t, err)
	assert.False(t, ok, "a tier table is already active")
}

func TestUseSheetTiersRejectsBadTier(t *testing.T) {
	uc, _, _ := newAnalysis(t, classifier.Keywords{})
	_, err := uc.UseSheetTiers([]domsvc.TierKeyword{{Keyword: "CPI", Tier: 7}})
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestClassifyWithSuppliedKeywords(t *testing.T) {
	uc, _, _ := newAnalysis(t, classifier.DefaultKeywords())
	kw := classifier.Keywords{Tiers: []classifier.TierKeyword{{Keyword: "auction", Tier: 2}}}
	ev, err := uc.Classify([]models.RawEvent{{Timestamp: nfp, Name: "10-Year Note Auction"}}, &kw)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Events[0].Tier)
	assert.False(t, ev.Events[0].Flag(models.FlagTier1))

	bad := classifier.Keywords{Tiers: []classifier.TierKeyword{{Keyword: "x", Tier: 0}}}
	_, err = uc.Classify(nil, &bad)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
