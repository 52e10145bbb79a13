package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/repository"
	"FinEvent/internal/services/classifier"
	"FinEvent/internal/services/timeseries"
	"FinEvent/pkg/metrics"
)

func newEvents(t *testing.T, analysis *AnalysisUseCase, store *repository.MemoryStore) *EventsUseCase {
	t.Helper()
	norm, err := timeseries.NewNormalizer("UTC", "America/New_York")
	require.NoError(t, err)
	return NewEventsUseCase(store, norm, analysis, metrics.Nop{}, nil)
}

func TestStoreEventsDropsCachedMatrix(t *testing.T) {
	uc, store, _ := newAnalysis(t, classifier.DefaultKeywords())
	events := newEvents(t, uc, store)
	ctx := context.Background()

	p := MatrixParams{SeriesParams: series("ZN"), Target: 0.5, Version: models.VersionAbsolute}
	p.NonEvent = true
	before, _, err := uc.Matrix(ctx, p)
	require.NoError(t, err)
	_, hit, err := uc.Matrix(ctx, p)
	require.NoError(t, err)
	require.True(t, hit)

	// 11:00 New York on the Monday, inside the session of the kept day
	fomc := time.Date(2024, 3, 11, 15, 0, 0, 0, time.UTC)
	n, err := events.Store(ctx, []models.RawEvent{{Timestamp: fomc, Name: "FOMC Statement"}}, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after, hit, err := uc.Matrix(ctx, p)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Less(t, after.Pooled.Count, before.Pooled.Count)
}

func TestStoreEventsDropsCachedReports(t *testing.T) {
	uc, store, _ := newAnalysis(t, classifier.DefaultKeywords())
	events := newEvents(t, uc, store)
	ctx := context.Background()

	p := ReportParams{SeriesParams: series("ZN"), Measure: models.MeasureVolatility}
	_, _, err := uc.SessionReport(ctx, p)
	require.NoError(t, err)
	_, hit, err := uc.SessionReport(ctx, p)
	require.NoError(t, err)
	require.True(t, hit)

	_, err = events.Store(ctx, []models.RawEvent{{Timestamp: nfp.Add(72 * time.Hour), Name: "CPI"}}, "test")
	require.NoError(t, err)

	_, hit, err = uc.SessionReport(ctx, p)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStoreEventsSkipsBlankRows(t *testing.T) {
	uc, store, _ := newAnalysis(t, classifier.DefaultKeywords())
	events := newEvents(t, uc, store)

	n, err := events.Store(context.Background(), []models.RawEvent{{Name: "no time"}, {Timestamp: nfp}}, "test")
	require.NoError(t, err)
	assert.Zero(t, n)
}
