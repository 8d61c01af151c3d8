package temporal

import (
	"encoding/json"
	"sort"

	"github.com/RyanBlaney/diode-timing/algorithms/common"
	"github.com/RyanBlaney/diode-timing/algorithms/stats"
)

// Direction is the sense of a step in power
type Direction int

const (
	Fall Direction = -1
	Rise Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Rise:
		return "rise"
	case Fall:
		return "fall"
	default:
		return "unknown"
	}
}

// DirectionOf returns the direction implied by the sign of v, or 0 when v is
// zero or NaN.
func DirectionOf(v float64) Direction {
	switch {
	case v > 0:
		return Rise
	case v < 0:
		return Fall
	default:
		return 0
	}
}

// JumpParams configures jump detection
type JumpParams struct {
	// Allowed variation in power, as multiple of the per-sample standard deviation
	MarginFactor float64 `json:"margin_factor"`

	// Keep jumps whose delta exceeds the margin by this factor
	JumpSignificance float64 `json:"jump_significance"`

	// Maximum time radius (seconds) around a jump used to average the power
	// levels before and after it
	MaxSegmentDuration float64 `json:"max_onoff_segment_duration"`

	// How a zero MaxSegmentDuration bounds the averaging windows
	WindowPolicy WindowPolicy `json:"window_policy"`
}

// LocalizedJump is a significant step in power with a sub-sample estimate of
// when it happened.
type LocalizedJump struct {
	Index     int     `json:"index"`     // Sample at which the jump was flagged
	Time      float64 `json:"time"`      // Estimated jump instant (seconds)
	StdTime   float64 `json:"std_time"`  // 1-sigma uncertainty of Time (seconds)
	Magnitude float64 `json:"magnitude"` // Signed jump size as multiple of margin

	// Fractional position of the jump within the sample interval and its
	// uncertainty, as returned by the ratio estimate
	SubSample    float64 `json:"sub_sample"`
	StdSubSample float64 `json:"std_sub_sample"`
}

// Direction returns the direction of the jump from the sign of its magnitude.
func (j LocalizedJump) Direction() Direction {
	return DirectionOf(j.Magnitude)
}

// IsFinite reports whether the time estimate is usable. Jumps with non-finite
// estimates are still reported and should be treated as low confidence.
func (j LocalizedJump) IsFinite() bool {
	return common.IsFinite(j.Time) && common.IsFinite(j.StdTime)
}

// MarshalJSON encodes non-finite estimates as null
func (j LocalizedJump) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"index":          j.Index,
		"time":           common.FiniteOrNil(j.Time),
		"std_time":       common.FiniteOrNil(j.StdTime),
		"magnitude":      common.FiniteOrNil(j.Magnitude),
		"sub_sample":     common.FiniteOrNil(j.SubSample),
		"std_sub_sample": common.FiniteOrNil(j.StdSubSample),
	})
}

// jumpCandidate is a flagged sample before significance filtering
type jumpCandidate struct {
	index     int
	direction Direction
	delta     float64
}

// JumpDetector finds significant steps in a power time series and estimates
// the instant of each step to a fraction of a sample interval.
type JumpDetector struct {
	params JumpParams
}

// NewJumpDetector creates a jump detector with the given parameters
func NewJumpDetector(params JumpParams) *JumpDetector {
	return &JumpDetector{params: params}
}

// Params returns the detector configuration
func (jd *JumpDetector) Params() JumpParams {
	return jd.params
}

// FindJumps is a convenience wrapper around JumpDetector.FindJumps
func FindJumps(timestamps, power, stdPower []float64, marginFactor, jumpSignificance, maxSegmentDuration float64) []LocalizedJump {
	return NewJumpDetector(JumpParams{
		MarginFactor:       marginFactor,
		JumpSignificance:   jumpSignificance,
		MaxSegmentDuration: maxSegmentDuration,
	}).FindJumps(timestamps, power, stdPower)
}

// FindJumps returns the localized jumps in the series, ordered by sample
// index. Series with fewer than three samples have no interior and yield no
// jumps. timestamps must be strictly increasing and all three slices must
// have the same length.
func (jd *JumpDetector) FindJumps(timestamps, power, stdPower []float64) []LocalizedJump {
	if len(power) < 3 || len(timestamps) != len(power) || len(stdPower) != len(power) {
		return []LocalizedJump{}
	}

	band := newNoiseBand(power, stdPower, jd.params.MarginFactor)

	var accepted []jumpCandidate
	for _, c := range band.candidates() {
		if jd.significant(band, c) {
			accepted = append(accepted, c)
		}
	}

	sort.Slice(accepted, func(i, k int) bool { return accepted[i].index < accepted[k].index })

	jumps := make([]LocalizedJump, 0, len(accepted))
	for _, c := range accepted {
		jumps = append(jumps, jd.localize(timestamps, band, c))
	}

	return jumps
}

// significant applies the edge and significance tests to a candidate
func (jd *JumpDetector) significant(band *noiseBand, c jumpCandidate) bool {
	if c.index == 0 || c.index == band.n-1 {
		return false
	}
	return float64(c.direction)*c.delta/band.margin[c.index] > jd.params.JumpSignificance
}

// localize estimates the sub-sample instant of the jump at c.index by
// comparing the power at the jump sample with the mean levels on either side.
func (jd *JumpDetector) localize(timestamps []float64, band *noiseBand, c jumpCandidate) LocalizedJump {
	j := c.index
	before, after := jd.segmentBounds(timestamps, band, j)

	meanBefore, stdBefore := windowStats(band.power[before:j], band.std[before:j])
	meanAfter, stdAfter := windowStats(band.power[j+1:after+1], band.std[j+1:after+1])

	// Ratio of power differences at and across the jump gives the fraction of
	// the jump sample that was integrated after the step.
	meanNum, meanDen := band.power[j]-meanBefore, meanAfter-meanBefore
	stdNum := common.Quadrature(band.std[j], stdBefore)
	stdDen := common.Quadrature(stdAfter, stdBefore)
	sub := stats.RatioStats(meanNum, stdNum, meanDen, stdDen)

	return LocalizedJump{
		Index:        j,
		Time:         sub.Mean*timestamps[j] + (1.0-sub.Mean)*timestamps[j+1],
		StdTime:      sub.StdDev * (timestamps[j+1] - timestamps[j]),
		Magnitude:    c.delta / band.margin[j],
		SubSample:    sub.Mean,
		StdSubSample: sub.StdDev,
	}
}

// windowStats returns the mean power of a window and the standard error of
// that mean. An empty window returns NaN for both.
func windowStats(power, std []float64) (float64, float64) {
	return common.Mean(power), common.PropagatedStdError(std)
}

// noiseBand holds the per-sample tolerance band and the neighbour
// comparisons derived from it.
type noiseBand struct {
	n      int
	power  []float64
	std    []float64
	margin []float64
	delta  []float64

	// Power stays within the band of the previous/next sample
	sameAsPrevious []bool
	sameAsNext     []bool

	// Rising/falling step flags
	rise []bool
	fall []bool
}

func newNoiseBand(power, stdPower []float64, marginFactor float64) *noiseBand {
	n := len(power)
	b := &noiseBand{
		n:              n,
		power:          power,
		std:            stdPower,
		margin:         make([]float64, n),
		delta:          make([]float64, n),
		sameAsPrevious: make([]bool, n),
		sameAsNext:     make([]bool, n),
		rise:           make([]bool, n),
		fall:           make([]bool, n),
	}

	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := range n {
		b.margin[i] = marginFactor * stdPower[i]
		upper[i] = power[i] + b.margin[i]
		lower[i] = power[i] - b.margin[i]
	}

	for i := range n {
		// Neighbours clamp to the series edges
		prev, next := max(i-1, 0), min(i+1, n-1)

		b.delta[i] = power[next] - power[prev]

		b.sameAsPrevious[i] = power[i] > lower[prev] && power[i] < upper[prev]
		b.sameAsNext[i] = power[i] > lower[next] && power[i] < upper[next]

		b.rise[i] = power[i] > upper[prev] && power[i] < upper[next]
		b.fall[i] = power[i] < lower[prev] && power[i] > lower[next]
	}
	b.sameAsPrevious[0] = false
	b.sameAsNext[n-1] = false

	return b
}

// candidates groups the rise and fall flags into runs and resolves each run
// to at most one candidate.
func (b *noiseBand) candidates() []jumpCandidate {
	var out []jumpCandidate
	for _, dir := range []Direction{Rise, Fall} {
		flags := b.rise
		if dir == Fall {
			flags = b.fall
		}

		var flagged []int
		for i, f := range flags {
			if f {
				flagged = append(flagged, i)
			}
		}

		for _, run := range common.ContiguousRuns(flagged, 1) {
			if idx, ok := b.resolveRun(run, dir); ok {
				out = append(out, jumpCandidate{index: idx, direction: dir, delta: b.delta[idx]})
			}
		}
	}
	return out
}

// resolveRun picks the jump sample of a run of flagged samples.
//
//	length 1                           -> run[0]
//	length 2, rise, delta0 > delta1    -> run[0]
//	length 2, fall, delta0 < delta1    -> run[0]
//	anything else                      -> ambiguous, dropped
func (b *noiseBand) resolveRun(run []int, dir Direction) (int, bool) {
	switch len(run) {
	case 1:
		return run[0], true
	case 2:
		d0, d1 := b.delta[run[0]], b.delta[run[1]]
		if (dir == Rise && d0 > d1) || (dir == Fall && d0 < d1) {
			return run[0], true
		}
	}
	return 0, false
}

// runStart returns the first sample of the stretch of samples, ending at
// from, that each match their predecessor.
func (b *noiseBand) runStart(from int) int {
	i := from
	for i > 0 && b.sameAsPrevious[i] {
		i--
	}
	return i
}

// runEnd returns the last sample of the stretch of samples, starting at
// from, that each match their successor.
func (b *noiseBand) runEnd(from int) int {
	i := from
	for i < b.n-1 && b.sameAsNext[i] {
		i++
	}
	return i
}
