package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
)

func newNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer("Asia/Kolkata", "America/New_York")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	return n
}

func TestParseTimestampLocalizesNaiveInput(t *testing.T) {
	n := newNormalizer(t)

	got, err := n.ParseTimestamp("2024-03-08 19:00:00")
	require.NoError(t, err)

	assert.Equal(t, "2024-03-08 08:30", got.Format("2006-01-02 15:04"))
	assert.Equal(t, "America/New_York", got.Location().String())
}

func TestParseTimestampKeepsExplicitOffset(t *testing.T) {
	n := newNormalizer(t)

	got, err := n.ParseTimestamp("2024-03-08T13:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Hour())
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	n := newNormalizer(t)
	_, err := n.ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestBarsSortsDedupsAndDropsNaN(t *testing.T) {
	n := newNormalizer(t)
	t0 := time.Date(2024, 3, 8, 14, 0, 0, 0, time.UTC)

	bars := []models.Bar{
		{Timestamp: t0.Add(time.Hour), Symbol: "ZN", Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: t0, Symbol: "ZN", Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: t0, Symbol: "ZN", Open: 2, High: 2, Low: 2, Close: 2},
		{Timestamp: t0.Add(2 * time.Hour), Symbol: "ZN", Open: math.NaN(), High: 1, Low: 1, Close: 1},
	}

	got := n.Bars(bars, models.Interval1h)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Equal(t0))
	assert.Equal(t, 2.0, got[0].Close, "later duplicate wins")
	assert.Equal(t, models.Interval1h, got[0].Interval)
	assert.Equal(t, 9, got[0].Timestamp.Hour())
}

func TestBarsStampsDailyBarsEndOfDay(t *testing.T) {
	n := newNormalizer(t)
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	got := n.Bars([]models.Bar{{Timestamp: day, Symbol: "ZN", Open: 1, High: 1, Low: 1, Close: 1}}, models.Interval1d)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-03-08 23:59:59", got[0].Timestamp.Format("2006-01-02 15:04:05"))
}

func TestMergePrefersFreshBars(t *testing.T) {
	n := newNormalizer(t)
	t0 := time.Date(2024, 3, 8, 14, 0, 0, 0, time.UTC)

	history := []models.Bar{{Timestamp: t0, Symbol: "ZN", Open: 1, High: 1, Low: 1, Close: 1}}
	fresh := []models.Bar{
		{Timestamp: t0, Symbol: "ZN", Open: 1, High: 1, Low: 1, Close: 5},
		{Timestamp: t0.Add(time.Hour), Symbol: "ZN", Open: 1, High: 1, Low: 1, Close: 6},
	}

	got := n.Merge(history, fresh, models.Interval1h)
	require.Len(t, got, 2)
	assert.Equal(t, 5.0, got[0].Close)
}

func TestEventsDropsBlankAndSorts(t *testing.T) {
	n := newNormalizer(t)
	t0 := time.Date(2024, 3, 8, 13, 30, 0, 0, time.UTC)

	got := n.Events([]models.RawEvent{
		{Timestamp: t0.Add(time.Hour), Name: "ISM"},
		{Timestamp: t0, Name: "  Nonfarm Payrolls "},
		{Timestamp: t0, Name: "   "},
		{Name: "no time"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "Nonfarm Payrolls", got[0].Name)
	assert.Equal(t, 8, got[0].Timestamp.Hour())
}
