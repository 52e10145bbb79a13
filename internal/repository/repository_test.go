package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
)

func bar(ts time.Time, close float64) models.Bar {
	return models.Bar{Timestamp: ts, Symbol: "ZN", Interval: models.Interval1h,
		Open: close, High: close + 0.5, Low: close - 0.5, Close: close}
}

func TestBuildBarQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args := buildBarQuery("finevent", domrepo.BarQuery{Symbol: "ZN", Interval: "1h", From: from})
	assert.Equal(t,
		"SELECT symbol, interval, ts, open, high, low, close, adj_close, volume FROM finevent.bars FINAL WHERE symbol = ? AND interval = ? AND ts >= ? ORDER BY ts ASC",
		q)
	assert.Equal(t, []any{"ZN", "1h", from}, args)

	q, args = buildBarQuery("finevent", domrepo.BarQuery{Symbol: "ZN", Interval: "1h", Limit: 10})
	assert.Contains(t, q, "ORDER BY ts DESC LIMIT ?) ORDER BY ts ASC")
	assert.Equal(t, 10, args[len(args)-1])
}

func TestMemoryStoreReplacesDuplicatesAndLimitsToNewest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.StoreBars(ctx, []models.Bar{bar(t0, 100), bar(t0.Add(time.Hour), 101), bar(t0.Add(2*time.Hour), 102)}))
	require.NoError(t, s.StoreBars(ctx, []models.Bar{bar(t0.Add(time.Hour), 105)}))

	all, err := s.QueryBars(ctx, domrepo.BarQuery{Symbol: "ZN", Interval: "1h"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 105.0, all[1].Close)

	last2, err := s.QueryBars(ctx, domrepo.BarQuery{Symbol: "ZN", Interval: "1h", Limit: 2})
	require.NoError(t, err)
	require.Len(t, last2, 2)
	assert.True(t, last2[0].Timestamp.Equal(t0.Add(time.Hour)))

	latest, err := s.LatestBarTime(ctx, "ZN", "1h")
	require.NoError(t, err)
	assert.True(t, latest.Equal(t0.Add(2*time.Hour)))
}

func TestMemoryStoreEventsSortedAndDeduplicated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t0 := time.Date(2024, 3, 8, 13, 30, 0, 0, time.UTC)
	events := []models.RawEvent{{Timestamp: t0, Name: "NFP"}, {Timestamp: t0, Name: "Unemployment Rate"}, {Timestamp: t0.Add(-time.Hour), Name: "ADP"}}
	require.NoError(t, s.StoreEvents(ctx, events, "test"))
	require.NoError(t, s.StoreEvents(ctx, events[:1], "test"))

	got, err := s.QueryEvents(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ADP", got[0].Name)
	assert.Equal(t, "NFP", got[1].Name)
}

func TestBarMessageRoundTrip(t *testing.T) {
	b := bar(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 110.25)
	data, err := json.Marshal(NewBarMessage(b))
	require.NoError(t, err)

	var m BarMessage
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, b, m.Bar())
}
