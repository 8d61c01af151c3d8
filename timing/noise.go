package timing

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// NoiseModel converts recorded power into its theoretical per-sample
// standard deviation (radiometer equation).
type NoiseModel struct {
	// Effective number of real normal variables squared and added together
	// per sample
	DOF float64 `json:"dof"`
}

// DegreesOfFreedom returns the degrees of freedom of power averaged over the
// inclusive channel range [startChan, endChan] with accumPerInt accumulations
// per integration.
func DegreesOfFreedom(accumPerInt, startChan, endChan int) float64 {
	return 2.0 * float64(accumPerInt) * float64(endChan+1-startChan)
}

// NewNoiseModel creates a noise model. When summed is true the power is the
// sum of two independent signal paths (e.g. HH + VV) rather than their
// average, which halves the degrees of freedom.
func NewNoiseModel(dof float64, summed bool) NoiseModel {
	if summed {
		dof /= 2.0
	}
	return NoiseModel{DOF: dof}
}

// StdPower returns power * sqrt(2/dof) for every sample
func (m NoiseModel) StdPower(power []float64) []float64 {
	scale := math.Sqrt(2.0 / m.DOF)
	std := make([]float64, len(power))
	for i, p := range power {
		std[i] = p * scale
	}
	return std
}

// CombinePower sums the non-nil power paths sample by sample and reports how
// many were summed. All non-nil paths must have length n; gonum panics
// otherwise.
func CombinePower(n int, paths ...[]float64) ([]float64, int) {
	total := make([]float64, n)
	used := 0
	for _, path := range paths {
		if path == nil {
			continue
		}
		used++
		floats.Add(total, path)
	}
	return total, used
}
