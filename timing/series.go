package timing

import (
	"errors"
	"fmt"
)

var (
	// ErrSeriesLength is returned when the sample slices of a series differ in length
	ErrSeriesLength = errors.New("series slices differ in length")

	// ErrNotIncreasing is returned when series timestamps are not strictly increasing
	ErrNotIncreasing = errors.New("series timestamps not strictly increasing")
)

// MinSeriesLength is the shortest series with an interior sample
const MinSeriesLength = 3

// Series is a power time series with its per-sample standard deviation
type Series struct {
	Timestamps []float64 `json:"timestamps"` // seconds, strictly increasing
	Power      []float64 `json:"power"`
	StdPower   []float64 `json:"std_power"`
}

// Len returns the number of samples
func (s Series) Len() int {
	return len(s.Timestamps)
}

// Analysable reports whether the series is long enough to hold a jump
func (s Series) Analysable() bool {
	return s.Len() >= MinSeriesLength
}

// Start returns the first timestamp
func (s Series) Start() float64 {
	return s.Timestamps[0]
}

// End returns the last timestamp
func (s Series) End() float64 {
	return s.Timestamps[len(s.Timestamps)-1]
}

// Validate checks the length and ordering preconditions of the series
func (s Series) Validate() error {
	if len(s.Power) != s.Len() || len(s.StdPower) != s.Len() {
		return fmt.Errorf("%w: %d timestamps, %d power, %d std", ErrSeriesLength,
			s.Len(), len(s.Power), len(s.StdPower))
	}
	for i := 1; i < s.Len(); i++ {
		if !(s.Timestamps[i] > s.Timestamps[i-1]) {
			return fmt.Errorf("%w: sample %d (%v after %v)", ErrNotIncreasing,
				i, s.Timestamps[i], s.Timestamps[i-1])
		}
	}
	return nil
}
