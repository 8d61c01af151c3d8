package temporal

// WindowPolicy decides how a zero MaxSegmentDuration bounds the windows used
// to average the power on either side of a jump.
type WindowPolicy string

const (
	// RunOnlyWhenZero disables the time bound when the duration is zero, so
	// the windows extend over the whole stretch of unchanged power.
	RunOnlyWhenZero WindowPolicy = "run_only_when_zero"

	// SingleDumpWhenZero applies the time bound even when the duration is
	// zero, which shrinks each window to the one adjacent sample.
	SingleDumpWhenZero WindowPolicy = "single_dump_when_zero"
)

// segmentBounds returns the inclusive sample range [before, j-1] and
// [j+1, after] used to estimate the power level before and after the jump
// at j. Each side is limited by the stretch of samples whose power matches
// its neighbour and by the time radius around the jump; the bound nearer to
// the jump wins.
func (jd *JumpDetector) segmentBounds(timestamps []float64, band *noiseBand, j int) (int, int) {
	before := band.runStart(j - 1)
	after := band.runEnd(j + 1)

	if jd.params.MaxSegmentDuration <= 0 && jd.params.WindowPolicy != SingleDumpWhenZero {
		return before, after
	}

	first, last := timeRadius(timestamps, j, jd.params.MaxSegmentDuration)

	// The time range always holds at least one sample on either side
	first = min(first, j-1)
	last = max(last, j+1)

	return max(before, first), min(after, last)
}

// timeRadius returns the first and last sample within radius seconds of
// sample j. Timestamps are strictly increasing so the range is contiguous.
func timeRadius(timestamps []float64, j int, radius float64) (int, int) {
	first, last := j, j
	for first > 0 && timestamps[j]-timestamps[first-1] <= radius {
		first--
	}
	for last < len(timestamps)-1 && timestamps[last+1]-timestamps[j] <= radius {
		last++
	}
	return first, last
}
