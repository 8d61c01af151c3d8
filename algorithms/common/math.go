package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers shared by the jump and timing code. Unlike plain
// summary helpers these never coerce degenerate input to zero: an empty slice
// yields NaN so the caller can surface it.

// Mean calculates the arithmetic mean of a slice using gonum.
// An empty slice returns NaN.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.Mean(data, nil)
}

// SampleStdDev calculates the unbiased (n-1) sample standard deviation.
// A single value has no scatter and returns 0; an empty slice returns NaN.
func SampleStdDev(data []float64) float64 {
	switch len(data) {
	case 0:
		return math.NaN()
	case 1:
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// QuadratureSum returns sqrt(sum(x_i^2)).
func QuadratureSum(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Norm(data, 2)
}

// PropagatedStdError returns the standard error of the mean of independent
// samples with the given standard deviations: sqrt(sum(std_i^2)) / n.
// An empty slice returns NaN.
func PropagatedStdError(std []float64) float64 {
	if len(std) == 0 {
		return math.NaN()
	}
	return QuadratureSum(std) / float64(len(std))
}

// Quadrature combines two independent uncertainties.
func Quadrature(a, b float64) float64 {
	return math.Sqrt(a*a + b*b)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteOrNil returns nil for NaN and infinite values so they encode as JSON
// null instead of failing the encoder.
func FiniteOrNil(v float64) *float64 {
	if !IsFinite(v) {
		return nil
	}
	return &v
}
