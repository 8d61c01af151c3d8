package stats

import (
	"math"
)

// RatioResult holds the approximate first and second moments of a ratio of
// two independent normal variables.
type RatioResult struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// IsFinite reports whether both moments are usable numbers.
func (r RatioResult) IsFinite() bool {
	return !math.IsNaN(r.Mean) && !math.IsInf(r.Mean, 0) &&
		!math.IsNaN(r.StdDev) && !math.IsInf(r.StdDev, 0)
}

// RatioStats approximates the mean and standard deviation of A/B, where
// A ~ N(meanNum, stdNum^2) and B ~ N(meanDen, stdDen^2) are uncorrelated.
//
// References:
// - Marsaglia, G. (1965). "Ratios of normal variables and ratios of sums of uniform variables"
// - Hayya, J., Armstrong, D., Gressis, N. (1975). "A note on the ratio of two normally distributed variables"
//
// The ratio is rewritten in the standard form (a + X) / (b + Y) with X, Y
// standard normal, and the moments of that form are taken from the
// F-distribution style approximation
//
//	E  ~ a*b / (b^2 - 1)
//	SD ~ |b| / (b^2 - 1) * sqrt((a^2 + b^2 - 1) / (b^2 - 2))
//
// The approximation breaks down as |b| approaches 1 or sqrt(2). In that
// regime the returned moments are NaN or infinite and are passed through
// unchanged.
func RatioStats(meanNum, stdNum, meanDen, stdDen float64) RatioResult {
	a, b := meanNum, meanDen/stdDen

	// The scale h carries the sign needed for both means to land in the same
	// half plane of the standard form.
	signH := -1.0
	if a >= 0 && b >= 0 {
		signH = 1.0
	}
	h := signH * stdNum
	a, r := a/h, stdDen/h

	b2 := b * b
	meanAXBY := a * b / (b2 - 1)
	stdAXBY := math.Abs(b) / (b2 - 1) * math.Sqrt((a*a+b2-1)/(b2-2))

	return RatioResult{
		Mean:   meanAXBY / r,
		StdDev: stdAXBY / math.Abs(r),
	}
}
