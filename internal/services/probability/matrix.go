// Package probability builds empirical tail-probability tables of price
// moves over a range of look-ahead horizons.
package probability

import (
	"fmt"
	"math"
	"sort"

	"FinEvent/internal/domain/models"
	"FinEvent/internal/services/returns"
)

// Engine computes probability matrices. It holds no state between builds.
type Engine struct {
	scale       float64
	granularity float64
}

// New returns an engine. Non-positive arguments fall back to the defaults.
func New(scale, granularity float64) *Engine {
	if scale <= 0 {
		scale = returns.DefaultScale
	}
	if granularity <= 0 || granularity > 1 {
		granularity = DefaultGranularity
	}
	return &Engine{scale: scale, granularity: granularity}
}

// Round snaps a move to its bucket.
func (e *Engine) Round(x float64) float64 { return roundToBucket(x, e.granularity) }

// Moves returns (open[t] - close[t+h]) * scale, bucketed, for every t with
// t+h inside the series. Bars must be in time order.
func (e *Engine) Moves(bars []models.Bar, h int) []float64 {
	if h < 1 || h >= len(bars) {
		return nil
	}
	out := make([]float64, 0, len(bars)-h)
	for t := 0; t+h < len(bars); t++ {
		out = append(out, e.Round((bars[t].Open-bars[t+h].Close)*e.scale))
	}
	return out
}

// selectVersion keeps the side of the distribution the version asks for.
func selectVersion(moves []float64, v models.Version) []float64 {
	out := make([]float64, 0, len(moves))
	for _, m := range moves {
		switch v {
		case models.VersionAbsolute:
			out = append(out, math.Abs(m))
		case models.VersionUp:
			if m >= 0 {
				out = append(out, m)
			}
		case models.VersionDown:
			if m <= 0 {
				out = append(out, math.Abs(m))
			}
		}
	}
	return out
}

// Build computes, for horizons 1..maxHorizon, the pooled CDF at target and
// the tail-probability matrix. Column h of the matrix is computed over the
// moves of every horizon up to and including h. Horizons count bars, which
// are hours for hourly bars.
func (e *Engine) Build(bars []models.Bar, maxHorizon int, target float64, v models.Version) (models.ProbabilityResult, error) {
	if v < models.VersionAbsolute || v > models.VersionDown {
		return models.ProbabilityResult{}, &models.InvalidVersionError{Value: v.String()}
	}
	if maxHorizon < 1 {
		return models.ProbabilityResult{}, fmt.Errorf("%w: max horizon %d, want >= 1", models.ErrInvalidArgument, maxHorizon)
	}

	sorted := models.CloneBars(bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	res := models.ProbabilityResult{
		Version:    v,
		MaxHorizon: maxHorizon,
		Target:     target,
		CDF:        models.Number(math.NaN()),
		CCDF:       models.Number(math.NaN()),
	}

	perHorizon := make([][]float64, maxHorizon)
	total := 0
	for h := 1; h <= maxHorizon; h++ {
		moves := selectVersion(e.Moves(sorted, h), v)
		sort.Float64s(moves)
		perHorizon[h-1] = moves
		total += len(moves)
	}
	if total == 0 {
		res.Empty = true
		return res, nil
	}

	buckets := distinct(perHorizon, total)
	hours := make([]int, maxHorizon)
	cells := make([][]models.Number, len(buckets))
	for i := range cells {
		cells[i] = make([]models.Number, maxHorizon)
	}

	pool := make([]float64, 0, total)
	for h := 1; h <= maxHorizon; h++ {
		hours[h-1] = h
		pool = mergeSorted(pool, perHorizon[h-1])
		for i, b := range buckets {
			if len(pool) == 0 {
				cells[i][h-1] = models.Number(math.NaN())
				continue
			}
			cells[i][h-1] = models.Number(round2(100 - percentAtOrBelow(pool, b)))
		}
	}

	cdf := percentAtOrBelow(pool, target)
	res.CDF = models.Number(cdf)
	res.CCDF = models.Number(100 - cdf)
	res.Pooled = returns.Describe(pool)
	res.Matrix = models.ProbabilityMatrix{Buckets: buckets, Hours: hours, Cells: cells}
	return res, nil
}

// BuildAll runs Build for every version.
func (e *Engine) BuildAll(bars []models.Bar, maxHorizon int, target float64) ([]models.ProbabilityResult, error) {
	out := make([]models.ProbabilityResult, 0, 3)
	for _, v := range models.Versions() {
		res, err := e.Build(bars, maxHorizon, target, v)
		if err != nil {
			return nil, fmt.Errorf("build %s matrix: %w", v, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// percentAtOrBelow is the empirical CDF of a sorted sample at x, in percent.
func percentAtOrBelow(sorted []float64, x float64) float64 {
	n := sort.Search(len(sorted), func(i int) bool { return sorted[i] > x })
	return float64(n) / float64(len(sorted)) * 100
}

// mergeSorted merges b into a; both must be sorted.
func mergeSorted(a, b []float64) []float64 {
	if len(b) == 0 {
		return a
	}
	out := make([]float64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func distinct(groups [][]float64, hint int) []float64 {
	seen := make(map[float64]struct{}, hint)
	var out []float64
	for _, g := range groups {
		for _, v := range g {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Float64s(out)
	return out
}
