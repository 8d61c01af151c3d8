package temporal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepSeries returns n samples at one second spacing with power levels[i]
// and a constant standard deviation.
func stepSeries(levels []float64, std float64) (timestamps, power, stdPower []float64) {
	n := len(levels)
	timestamps = make([]float64, n)
	power = make([]float64, n)
	stdPower = make([]float64, n)
	for i := range n {
		timestamps[i] = float64(i)
		power[i] = levels[i]
		stdPower[i] = std
	}
	return timestamps, power, stdPower
}

func levels(n int, level func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level(i)
	}
	return out
}

func step(at int, from, to float64) func(int) float64 {
	return func(i int) float64 {
		if i < at {
			return from
		}
		return to
	}
}

func TestFindJumpsSyntheticRise(t *testing.T) {
	t.Parallel()

	ts, p, sp := stepSeries(levels(50, step(25, 10, 20)), 0.1)
	jumps := FindJumps(ts, p, sp, 3, 2, 0)

	require.Len(t, jumps, 1)
	j := jumps[0]
	assert.Equal(t, 25, j.Index)
	assert.Equal(t, Rise, j.Direction())
	assert.GreaterOrEqual(t, j.Time, 23.5)
	assert.LessOrEqual(t, j.Time, 25.5)
	assert.InDelta(t, 25.0, j.Time, 0.01)
	assert.Greater(t, j.Magnitude, 2.0)
	assert.InDelta(t, 10.0/0.3, j.Magnitude, 1e-9)
	assert.True(t, j.IsFinite())
	assert.Greater(t, j.StdTime, 0.0)
}

func TestFindJumpsSyntheticFall(t *testing.T) {
	t.Parallel()

	ts, p, sp := stepSeries(levels(50, step(25, 20, 10)), 0.1)
	jumps := FindJumps(ts, p, sp, 3, 2, 0)

	require.Len(t, jumps, 1)
	j := jumps[0]
	assert.Equal(t, 25, j.Index)
	assert.Equal(t, Fall, j.Direction())
	assert.InDelta(t, 25.0, j.Time, 0.01)
	assert.Less(t, j.Magnitude, -2.0)
}

func TestFindJumpsFlatSeries(t *testing.T) {
	t.Parallel()

	flat := levels(50, func(i int) float64 {
		// Wiggle well inside the 3-sigma band
		if i%2 == 0 {
			return 10.05
		}
		return 9.95
	})
	ts, p, sp := stepSeries(flat, 0.1)

	assert.Empty(t, FindJumps(ts, p, sp, 3, 2, 0))
}

func TestFindJumpsShortSeries(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FindJumps([]float64{0, 1}, []float64{1, 5}, []float64{0.1, 0.1}, 3, 2, 0))
	assert.Empty(t, FindJumps(nil, nil, nil, 3, 2, 0))
}

func TestFindJumpsBelowSignificance(t *testing.T) {
	t.Parallel()

	// Step of 2.0 against a 0.3 margin is 6.7 margins wide
	ts, p, sp := stepSeries(levels(30, step(15, 10, 12)), 0.1)

	assert.Len(t, FindJumps(ts, p, sp, 3, 5, 0), 1)
	assert.Empty(t, FindJumps(ts, p, sp, 3, 10, 0))
}

func TestFindJumpsTwoSampleTransition(t *testing.T) {
	t.Parallel()

	// The step is spread over samples 25 and 26: the run has length two and
	// the first sample carries the larger delta.
	lv := levels(50, step(26, 10, 20))
	lv[25] = 15
	ts, p, sp := stepSeries(lv, 0.1)

	jumps := FindJumps(ts, p, sp, 3, 2, 0)
	require.Len(t, jumps, 1)
	assert.Equal(t, 25, jumps[0].Index)
	assert.InDelta(t, 0.5, jumps[0].SubSample, 1e-3)
	assert.InDelta(t, 25.5, jumps[0].Time, 1e-2)
}

func TestFindJumpsRampIsAmbiguous(t *testing.T) {
	t.Parallel()

	lv := levels(50, step(28, 10, 20))
	lv[25], lv[26], lv[27] = 12.5, 15, 17.5
	ts, p, sp := stepSeries(lv, 0.1)

	assert.Empty(t, FindJumps(ts, p, sp, 3, 2, 0))
}

func TestFindJumpsOnOffCycle(t *testing.T) {
	t.Parallel()

	lv := levels(60, func(i int) float64 {
		if i >= 20 && i < 40 {
			return 20
		}
		return 10
	})
	ts, p, sp := stepSeries(lv, 0.1)

	jumps := FindJumps(ts, p, sp, 3, 2, 0)
	require.Len(t, jumps, 2)
	assert.Equal(t, Rise, jumps[0].Direction())
	assert.Equal(t, Fall, jumps[1].Direction())
	assert.InDelta(t, 20.0, jumps[0].Time, 0.01)
	assert.InDelta(t, 40.0, jumps[1].Time, 0.01)
}

func TestFindJumpsWindowPolicy(t *testing.T) {
	t.Parallel()

	ts, p, sp := stepSeries(levels(50, step(25, 10, 20)), 0.1)

	runOnly := NewJumpDetector(JumpParams{MarginFactor: 3, JumpSignificance: 2}).FindJumps(ts, p, sp)
	singleDump := NewJumpDetector(JumpParams{
		MarginFactor:     3,
		JumpSignificance: 2,
		WindowPolicy:     SingleDumpWhenZero,
	}).FindJumps(ts, p, sp)

	require.Len(t, runOnly, 1)
	require.Len(t, singleDump, 1)
	assert.InDelta(t, runOnly[0].Time, singleDump[0].Time, 1e-3)
	// Averaging over one sample per side leaves more noise in the estimate
	assert.Greater(t, singleDump[0].StdTime, runOnly[0].StdTime)
	assert.InDelta(t, 0.02, singleDump[0].StdTime, 1e-3)
}

func TestSegmentBounds(t *testing.T) {
	t.Parallel()

	ts, p, sp := stepSeries(levels(50, step(25, 10, 20)), 0.1)
	band := newNoiseBand(p, sp, 3)

	tests := []struct {
		name       string
		params     JumpParams
		wantBefore int
		wantAfter  int
	}{
		{name: "run only", params: JumpParams{}, wantBefore: 0, wantAfter: 49},
		{name: "single dump", params: JumpParams{WindowPolicy: SingleDumpWhenZero}, wantBefore: 24, wantAfter: 26},
		{name: "time radius", params: JumpParams{MaxSegmentDuration: 2.5}, wantBefore: 23, wantAfter: 27},
		{name: "radius inclusive", params: JumpParams{MaxSegmentDuration: 3}, wantBefore: 22, wantAfter: 28},
		{name: "radius wider than run", params: JumpParams{MaxSegmentDuration: 100}, wantBefore: 0, wantAfter: 49},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			before, after := NewJumpDetector(tt.params).segmentBounds(ts, band, 25)
			assert.Equal(t, tt.wantBefore, before)
			assert.Equal(t, tt.wantAfter, after)
		})
	}
}

func TestSegmentBoundsStopAtPreviousJump(t *testing.T) {
	t.Parallel()

	lv := levels(30, func(i int) float64 {
		switch {
		case i < 10:
			return 5
		case i < 20:
			return 10
		default:
			return 20
		}
	})
	ts, p, sp := stepSeries(lv, 0.1)
	band := newNoiseBand(p, sp, 3)

	before, after := NewJumpDetector(JumpParams{}).segmentBounds(ts, band, 20)
	assert.Equal(t, 10, before)
	assert.Equal(t, 29, after)
}

func TestNoiseBandEdges(t *testing.T) {
	t.Parallel()

	_, p, sp := stepSeries(levels(5, func(int) float64 { return 1 }), 0.1)
	band := newNoiseBand(p, sp, 3)

	assert.False(t, band.sameAsPrevious[0])
	assert.False(t, band.sameAsNext[4])
	assert.True(t, band.sameAsPrevious[4])
	assert.True(t, band.sameAsNext[0])
	for i := range 5 {
		assert.Equal(t, 0.0, band.delta[i])
	}
}

func TestLocalizedJumpIsFinite(t *testing.T) {
	t.Parallel()

	assert.True(t, LocalizedJump{Time: 1, StdTime: 0.1}.IsFinite())
	assert.False(t, LocalizedJump{Time: math.NaN(), StdTime: 0.1}.IsFinite())
	assert.False(t, LocalizedJump{Time: 1, StdTime: math.Inf(1)}.IsFinite())
}

func TestDirectionOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Rise, DirectionOf(3))
	assert.Equal(t, Fall, DirectionOf(-0.5))
	assert.Equal(t, Direction(0), DirectionOf(0))
	assert.Equal(t, Direction(0), DirectionOf(math.NaN()))
	assert.Equal(t, "rise", Rise.String())
}
