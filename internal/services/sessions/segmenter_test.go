package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
)

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	return loc
}

func TestSessionOfDefaultTable(t *testing.T) {
	loc := eastern(t)
	s, err := New(loc, nil)
	require.NoError(t, err)

	want := map[int]models.Session{
		0: models.SessionLondon, 6: models.SessionLondon,
		7: models.SessionUSOpen, 9: models.SessionUSOpen,
		10: models.SessionUSMid, 14: models.SessionUSMid,
		15: models.SessionUSClose, 16: models.SessionUSClose,
		17: models.SessionOther,
		18: models.SessionAsia, 23: models.SessionAsia,
	}
	for hour, sess := range want {
		ts := time.Date(2024, 3, 8, hour, 59, 59, 0, loc)
		assert.Equal(t, sess, s.SessionOf(ts), "hour %d", hour)
	}
}

func TestSessionOfIsTotal(t *testing.T) {
	loc := eastern(t)
	s, err := New(loc, nil)
	require.NoError(t, err)

	start := time.Date(2024, 3, 8, 0, 0, 0, 0, loc)
	for m := 0; m < 24*60; m += 15 {
		sess := s.SessionOf(start.Add(time.Duration(m) * time.Minute))
		assert.NotEmpty(t, sess)
	}
	assert.Equal(t, []int{17}, s.Uncovered())
}

func TestSessionOfConvertsToReferenceZone(t *testing.T) {
	loc := eastern(t)
	s, err := New(loc, nil)
	require.NoError(t, err)

	// 13:30 UTC is 08:30 in New York during standard time.
	ts := time.Date(2024, 3, 8, 13, 30, 0, 0, time.UTC)
	assert.Equal(t, models.SessionUSOpen, s.SessionOf(ts))
}

func TestNewRejectsBadTables(t *testing.T) {
	loc := eastern(t)

	_, err := New(loc, []Bound{{Session: "A", Start: 5, End: 5}})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = New(loc, []Bound{{Session: "A", Start: 0, End: 10}, {Session: "B", Start: 9, End: 12}})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = New(loc, []Bound{{Session: models.SessionAllDay, Start: 0, End: 24}})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = New(nil, nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestCustomTableCoveringWholeDay(t *testing.T) {
	loc := eastern(t)
	bounds := append(DefaultBounds(), Bound{Session: "Settlement", Start: 17, End: 18})
	s, err := New(loc, bounds)
	require.NoError(t, err)

	assert.Empty(t, s.Uncovered())
	assert.Equal(t, models.Session("Settlement"), s.SessionOf(time.Date(2024, 3, 8, 17, 30, 0, 0, loc)))
	assert.Equal(t, models.SessionLondon, s.Sessions()[0])
}

func TestAssignDailyBarsUseAllDay(t *testing.T) {
	loc := eastern(t)
	s, err := New(loc, nil)
	require.NoError(t, err)

	series := models.TaggedSeries{Bars: []models.TaggedBar{
		{Bar: models.Bar{Timestamp: time.Date(2024, 3, 8, 23, 59, 59, 0, loc)}},
	}}

	daily := s.Assign(series, models.Interval1d)
	assert.Equal(t, models.SessionAllDay, daily.Bars[0].Session)
	assert.Empty(t, series.Bars[0].Session, "input is not mutated")

	hourly := s.Assign(series, models.Interval1h)
	assert.Equal(t, models.SessionAsia, hourly.Bars[0].Session)
}
