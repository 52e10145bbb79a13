package probability

import "math"

// DefaultGranularity is the bucket width in bps.
const DefaultGranularity = 0.5

// roundToBucket snaps x to a multiple of g within its unit interval:
// floor(x) + round(frac(x)/g)*g. A tie resolves toward the middle of the
// unit, so with g = 0.5 both X.25 and X.75 land on X.5.
func roundToBucket(x, g float64) float64 {
	if g <= 0 || g > 1 {
		g = DefaultGranularity
	}
	steps := math.Round(1 / g)
	floor := math.Floor(x)
	r := (x - floor) * steps

	var n float64
	if r-math.Floor(r) == 0.5 {
		if r < steps/2 {
			n = math.Ceil(r)
		} else {
			n = math.Floor(r)
		}
	} else {
		n = math.Round(r)
	}
	return floor + n/steps
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
