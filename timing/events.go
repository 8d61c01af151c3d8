package timing

import (
	"github.com/RyanBlaney/diode-timing/algorithms/temporal"
)

// Direction is the expected sense of a switching transition
type Direction = temporal.Direction

const (
	Rise = temporal.Rise
	Fall = temporal.Fall
)

// ExpectedEvent is a commanded switching transition logged by the control
// system
type ExpectedEvent struct {
	Timestamp float64   `json:"timestamp"` // seconds
	Direction Direction `json:"direction"`
}

// EventsFromSensor converts a device's logged (timestamp, state) pairs into
// expected events. The first entry only announces the initial state and is
// dropped, so logs with fewer than two entries produce no events. A nonzero
// state switches the device on (rise), zero switches it off (fall).
func EventsFromSensor(timestamps []float64, states []int) []ExpectedEvent {
	n := min(len(timestamps), len(states))
	if n <= 1 {
		return []ExpectedEvent{}
	}

	events := make([]ExpectedEvent, 0, n-1)
	for i := 1; i < n; i++ {
		dir := Fall
		if states[i] != 0 {
			dir = Rise
		}
		events = append(events, ExpectedEvent{Timestamp: timestamps[i], Direction: dir})
	}
	return events
}

// EventsWithin keeps the events strictly inside the time span of the
// series. Events on the series edges cannot be bracketed by samples and are
// dropped.
func EventsWithin(events []ExpectedEvent, series Series) []ExpectedEvent {
	if series.Len() == 0 {
		return []ExpectedEvent{}
	}

	start, end := series.Start(), series.End()
	out := make([]ExpectedEvent, 0, len(events))
	for _, ev := range events {
		if ev.Timestamp > start && ev.Timestamp < end {
			out = append(out, ev)
		}
	}
	return out
}
