package returns

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"FinEvent/internal/domain/models"
)

// Describe summarizes values. Quantiles use linear interpolation between
// order statistics; std is the sample standard deviation; skew and kurtosis
// are the bias-corrected sample estimators (kurtosis in excess of normal).
func Describe(values []float64) models.Summary {
	if len(values) == 0 {
		return models.Summary{}
	}

	data := stats.Float64Data(values)
	mean, _ := data.Mean()
	median, _ := data.Median()
	lo, _ := data.Min()
	hi, _ := data.Max()

	sum := models.Summary{
		Count:    len(values),
		Mean:     mean,
		Median:   median,
		Std:      models.Number(math.NaN()),
		Skew:     models.Number(skewness(values, mean)),
		Kurtosis: models.Number(kurtosis(values, mean)),
		Min:      lo,
		Max:      hi,
	}
	if len(values) > 1 {
		std, _ := data.StandardDeviationSample()
		sum.Std = models.Number(std)
	}

	sorted := sortedCopy(values)
	sum.Quantiles = make([]models.Quantile, len(models.SummaryQuantiles))
	for i, p := range models.SummaryQuantiles {
		sum.Quantiles[i] = models.Quantile{Percent: p, Value: quantileSorted(sorted, p/100)}
	}
	return sum
}

// Quantile returns the q-th quantile (0..1) with linear interpolation, NaN
// for an empty sample.
func Quantile(values []float64, q float64) float64 {
	return quantileSorted(sortedCopy(values), q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= n {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// PercentileOfScore ranks score within values, averaging the strict and
// weak ranks so ties land in the middle. Result is in percent, NaN for an
// empty sample.
func PercentileOfScore(values []float64, score float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	left, right := 0, 0
	for _, v := range values {
		if v < score {
			left++
		}
		if v <= score {
			right++
		}
	}
	extra := 0
	if right > left {
		extra = 1
	}
	return float64(left+right+extra) * 50 / float64(n)
}

// ZScore is (v - mean) / std; undefined when std is zero or undefined.
func ZScore(v float64, s models.Summary) models.Number {
	std := s.Std.Float()
	if !s.Std.Defined() || std == 0 {
		return models.Number(math.NaN())
	}
	return models.Number((v - s.Mean) / std)
}

func centralSums(values []float64, mean float64) (m2, m3, m4 float64) {
	for _, v := range values {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	return m2, m3, m4
}

func skewness(values []float64, mean float64) float64 {
	n := float64(len(values))
	if len(values) < 3 {
		return math.NaN()
	}
	m2, m3, _ := centralSums(values, mean)
	if m2 == 0 {
		return 0
	}
	m2 /= n
	m3 /= n
	return math.Sqrt(n*(n-1)) / (n - 2) * m3 / math.Pow(m2, 1.5)
}

func kurtosis(values []float64, mean float64) float64 {
	n := float64(len(values))
	if len(values) < 4 {
		return math.NaN()
	}
	m2, _, m4 := centralSums(values, mean)
	if m2 == 0 {
		return 0
	}
	adj := (n + 1) * n * (n - 1) / ((n - 2) * (n - 3))
	return adj*m4/(m2*m2) - 3*(n-1)*(n-1)/((n-2)*(n-3))
}

func sortedCopy(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}
