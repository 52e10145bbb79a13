package tagger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/services/classifier"
)

var base = time.Date(2024, 3, 8, 8, 0, 0, 0, time.UTC)

func hourlyBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Timestamp: base.Add(time.Duration(i) * time.Hour), Symbol: "ZN", Open: 100, High: 101, Low: 99, Close: 100}
	}
	return bars
}

func classify(events ...models.RawEvent) models.ClassifiedEvents {
	return classifier.Classify(events, classifier.DefaultKeywords())
}

func TestAsOfEmptyEventsLeavesFieldsNil(t *testing.T) {
	got := AsOf(hourlyBars(4), classify())

	require.Len(t, got.Bars, 4)
	for _, tb := range got.Bars {
		assert.Nil(t, tb.EventBefore)
		assert.Nil(t, tb.EventAt)
		assert.Nil(t, tb.EventAfter)
		assert.False(t, tb.Exclude)
	}
}

func TestAsOfThreeWayJoin(t *testing.T) {
	events := classify(
		models.RawEvent{Timestamp: base.Add(90 * time.Minute), Name: "ADP Employment Change"},
		models.RawEvent{Timestamp: base.Add(2 * time.Hour), Name: "CPI m/m"},
	)

	got := AsOf(hourlyBars(4), events)
	require.Len(t, got.Bars, 4)

	// 08:00: nothing before, ADP after
	assert.Nil(t, got.Bars[0].EventBefore)
	assert.Nil(t, got.Bars[0].EventAt)
	require.NotNil(t, got.Bars[0].EventAfter)
	assert.Equal(t, "ADP Employment Change", got.Bars[0].EventAfter.Names)

	// 10:00: CPI exactly at the bar is also the nearest before and after
	b := got.Bars[2]
	require.NotNil(t, b.EventAt)
	assert.Equal(t, "CPI m/m", b.EventAt.Names)
	assert.Equal(t, "CPI m/m", b.EventBefore.Names)
	assert.Equal(t, "CPI m/m", b.EventAfter.Names)

	// 11:00: CPI before, nothing after
	assert.Equal(t, "CPI m/m", got.Bars[3].EventBefore.Names)
	assert.Nil(t, got.Bars[3].EventAfter)
}

func TestAsOfConcatenatesSimultaneousEvents(t *testing.T) {
	at := base.Add(time.Hour)
	events := classify(
		models.RawEvent{Timestamp: at, Name: "Nonfarm Payrolls"},
		models.RawEvent{Timestamp: at, Name: "Unemployment Rate"},
		models.RawEvent{Timestamp: at, Name: "Average Hourly Earnings"},
	)

	got := AsOf(hourlyBars(3), events)
	ref := got.Bars[1].EventAt
	require.NotNil(t, ref)
	assert.Equal(t, "Nonfarm Payrolls, Unemployment Rate, Average Hourly Earnings", ref.Names)
	assert.Equal(t, 1, ref.Tier)
	assert.True(t, ref.Flag(models.FlagTier1))
}

func TestAsOfCardinalityEqualsBars(t *testing.T) {
	bars := hourlyBars(24)
	var raw []models.RawEvent
	for i := 0; i < 50; i++ {
		raw = append(raw, models.RawEvent{Timestamp: base.Add(time.Duration(i*17) * time.Minute), Name: "PMI"})
	}

	got := AsOf(bars, classify(raw...))
	assert.Len(t, got.Bars, len(bars))
}

func TestAsOfSortsUnorderedInput(t *testing.T) {
	bars := hourlyBars(3)
	bars[0], bars[2] = bars[2], bars[0]

	got := AsOf(bars, classify())
	assert.True(t, got.Bars[0].Timestamp.Equal(base))
	assert.True(t, got.Bars[2].Timestamp.Equal(base.Add(2*time.Hour)))
}

func TestOuterAddsEventOnlyRows(t *testing.T) {
	events := classify(
		models.RawEvent{Timestamp: base.Add(30 * time.Minute), Name: "FOMC Minutes"},
		models.RawEvent{Timestamp: base.Add(time.Hour), Name: "CPI"},
	)

	rows := Outer(hourlyBars(2), events)
	require.Len(t, rows, 3)
	assert.NotNil(t, rows[0].Bar)
	assert.Nil(t, rows[0].Event)
	assert.Nil(t, rows[1].Bar)
	assert.Equal(t, "FOMC Minutes", rows[1].Event.Names)
	assert.NotNil(t, rows[2].Bar)
	assert.Equal(t, "CPI", rows[2].Event.Names)

	series := Coalesce(rows, events)
	require.Len(t, series.Bars, 2)
	assert.Equal(t, "CPI", series.Bars[1].EventAt.Names)
	assert.Len(t, series.Events.Events, 2)
}

func TestTagDispatchesOnMode(t *testing.T) {
	events := classify(models.RawEvent{Timestamp: base.Add(30 * time.Minute), Name: "CPI"})

	asof := Tag(hourlyBars(2), events, ModeAsOf)
	outer := Tag(hourlyBars(2), events, ModeOuter)

	assert.NotNil(t, asof.Bars[1].EventBefore)
	assert.Nil(t, outer.Bars[1].EventBefore)
	assert.Len(t, outer.Bars, 2)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAsOf, m)

	m, err = ParseMode("Outer")
	require.NoError(t, err)
	assert.Equal(t, ModeOuter, m)

	_, err = ParseMode("left")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
