package probability

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
)

var t0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// barsFromOC builds hourly bars with the given opens and closes.
func barsFromOC(opens, closes []float64) []models.Bar {
	bars := make([]models.Bar, len(opens))
	for i := range opens {
		bars[i] = models.Bar{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Symbol:    "ZN",
			Open:      opens[i],
			High:      math.Max(opens[i], closes[i]),
			Low:       math.Min(opens[i], closes[i]),
			Close:     closes[i],
		}
	}
	return bars
}

func randomWalk(n int, seed int64) []models.Bar {
	r := rand.New(rand.NewSource(seed))
	opens := make([]float64, n)
	closes := make([]float64, n)
	px := 110.0
	for i := 0; i < n; i++ {
		opens[i] = px
		px += float64(r.Intn(9)-4) / 64
		closes[i] = px
	}
	return barsFromOC(opens, closes)
}

func TestRoundToHalfBuckets(t *testing.T) {
	cases := map[float64]float64{
		2.25:  2.5,
		2.75:  2.5,
		2.1:   2.0,
		2.6:   2.5,
		2.9:   3.0,
		3.0:   3.0,
		-2.25: -2.5,
		-2.75: -2.5,
		-0.1:  0,
		0.25:  0.5,
	}
	for in, want := range cases {
		assert.Equal(t, want, roundToBucket(in, 0.5), "round(%v)", in)
	}
}

func TestRoundQuarterGranularity(t *testing.T) {
	assert.Equal(t, 1.25, roundToBucket(1.125, 0.25))
	assert.Equal(t, 1.75, roundToBucket(1.875, 0.25))
	assert.Equal(t, 1.5, roundToBucket(1.4, 0.25))
}

func TestMovesPerHorizon(t *testing.T) {
	bars := barsFromOC([]float64{100, 101, 102}, []float64{101, 102, 103})
	e := New(16, 0.5)

	assert.Equal(t, []float64{-32, -32}, e.Moves(bars, 1))
	assert.Equal(t, []float64{-48}, e.Moves(bars, 2))
	assert.Nil(t, e.Moves(bars, 3))
}

func TestBuildVersions(t *testing.T) {
	// h=1 moves: (100-100.5)*16=-8, (100.5-99.75)*16=12; h=2: (100-99.75)*16=4
	bars := barsFromOC([]float64{100, 100.5, 99.5}, []float64{100, 100.5, 99.75})
	e := New(16, 0.5)

	abs, err := e.Build(bars, 2, 8, models.VersionAbsolute)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 8, 12}, abs.Matrix.Buckets)
	assert.InDelta(t, 200.0/3, abs.CDF.Float(), 1e-9)
	assert.InDelta(t, 100.0/3, abs.CCDF.Float(), 1e-9)

	up, err := e.Build(bars, 2, 8, models.VersionUp)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 12}, up.Matrix.Buckets)

	down, err := e.Build(bars, 2, 8, models.VersionDown)
	require.NoError(t, err)
	assert.Equal(t, []float64{8}, down.Matrix.Buckets)
	assert.InDelta(t, 100, down.CDF.Float(), 1e-9)
	assert.Equal(t, 0.0, down.Matrix.Cells[0][0].Float())
	assert.Equal(t, 0.0, down.Matrix.Cells[0][1].Float())
}

func TestMatrixIsCumulativeInHorizon(t *testing.T) {
	bars := barsFromOC([]float64{100, 100.5, 99.5}, []float64{100, 100.5, 99.75})
	res, err := New(16, 0.5).Build(bars, 2, 0, models.VersionAbsolute)
	require.NoError(t, err)

	// h=1 pool {8,12}; h=1..2 pool {4,8,12}.
	m := res.Matrix
	require.Equal(t, []int{1, 2}, m.Hours)
	assert.Equal(t, 100.0, m.Cells[0][0].Float()) // P(>4) over {8,12}
	assert.Equal(t, 66.67, m.Cells[0][1].Float()) // P(>4) over {4,8,12}
	assert.Equal(t, 50.0, m.Cells[1][0].Float())  // P(>8) over {8,12}
	assert.Equal(t, 33.33, m.Cells[1][1].Float())
	assert.Equal(t, 0.0, m.Cells[2][1].Float())

	cell := m.Cell(1, 1)
	assert.Equal(t, 8.0, cell.Bucket)
	assert.Equal(t, 2, cell.Hours)
}

func TestUndefinedColumnWhenPoolEmpty(t *testing.T) {
	// Both 1-hour moves are upward, the 2-hour move is downward.
	bars := barsFromOC([]float64{100, 101.5, 100}, []float64{100, 99.5, 100.5})
	res, err := New(16, 0.5).Build(bars, 2, 1, models.VersionDown)
	require.NoError(t, err)
	require.False(t, res.Empty)

	require.Equal(t, []float64{8}, res.Matrix.Buckets)
	assert.False(t, res.Matrix.Cells[0][0].Defined())
	assert.Equal(t, 0.0, res.Matrix.Cells[0][1].Float())
}

func TestCDFNonDecreasingInTarget(t *testing.T) {
	bars := randomWalk(400, 7)
	e := New(16, 0.5)

	prev := -1.0
	for target := -10.0; target <= 40; target += 0.5 {
		res, err := e.Build(bars, 6, target, models.VersionAbsolute)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.CDF.Float(), prev)
		prev = res.CDF.Float()
	}
}

func TestTailProbabilityNonIncreasingInBucket(t *testing.T) {
	res, err := New(16, 0.5).Build(randomWalk(300, 11), 5, 3, models.VersionAbsolute)
	require.NoError(t, err)

	m := res.Matrix
	for j := range m.Hours {
		for i := 1; i < len(m.Buckets); i++ {
			assert.LessOrEqual(t, m.Cells[i][j].Float(), m.Cells[i-1][j].Float())
		}
	}
}

func TestTailProbabilityGrowsWithHorizonOnTrend(t *testing.T) {
	n := 50
	opens := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		opens[i] = 100 + float64(i)/16
		closes[i] = opens[i] + 1.0/16
	}
	res, err := New(16, 0.5).Build(barsFromOC(opens, closes), 8, 2, models.VersionAbsolute)
	require.NoError(t, err)

	// Every h-hour move is h+1 bps, so each horizon adds larger moves.
	m := res.Matrix
	require.Len(t, m.Buckets, 8)
	for i := range m.Buckets {
		for j := 1; j < len(m.Hours); j++ {
			assert.GreaterOrEqual(t, m.Cells[i][j].Float(), m.Cells[i][j-1].Float())
		}
	}
}

func TestBuildEmptyAndInvalid(t *testing.T) {
	e := New(16, 0.5)

	res, err := e.Build(nil, 3, 5, models.VersionUp)
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.False(t, res.CDF.Defined())

	_, err = e.Build(randomWalk(10, 1), 0, 5, models.VersionUp)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = e.Build(randomWalk(10, 1), 3, 5, models.Version(7))
	assert.ErrorIs(t, err, models.ErrInvalidVersion)
}

func TestParseVersionIsClosed(t *testing.T) {
	v, err := models.ParseVersion("down")
	require.NoError(t, err)
	assert.Equal(t, models.VersionDown, v)

	_, err = models.ParseVersion("Sideways")
	assert.ErrorIs(t, err, models.ErrInvalidVersion)
}

func TestBuildAll(t *testing.T) {
	results, err := New(16, 0.5).BuildAll(randomWalk(100, 3), 4, 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, models.VersionAbsolute, results[0].Version)
	assert.Equal(t, models.VersionUp, results[1].Version)
	assert.Equal(t, models.VersionDown, results[2].Version)
	assert.Positive(t, results[0].Pooled.Count)
}
