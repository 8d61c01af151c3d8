package timing

import (
	"encoding/json"
	"math"

	"github.com/RyanBlaney/diode-timing/algorithms/common"
	"github.com/RyanBlaney/diode-timing/algorithms/temporal"
)

// UnmatchedReason explains why an expected event has no matching jump
type UnmatchedReason string

const (
	// ReasonNone marks a matched event
	ReasonNone UnmatchedReason = ""

	// ReasonNoCandidate means no jump in the series has the expected direction
	ReasonNoCandidate UnmatchedReason = "no jump in expected direction"

	// ReasonOutsideWindow means the closest jump in the expected direction is
	// not within the maximum offset
	ReasonOutsideWindow UnmatchedReason = "not found"
)

// MatchedOffset pairs an expected event with the observed jump closest to it
type MatchedOffset struct {
	Key   string        `json:"key,omitempty"` // group the event belongs to
	Event ExpectedEvent `json:"event"`

	Matched bool                    `json:"matched"`
	Reason  UnmatchedReason         `json:"reason,omitempty"`
	Jump    *temporal.LocalizedJump `json:"jump,omitempty"`

	Offset    float64 `json:"offset"`     // jump time - event time (seconds)
	StdOffset float64 `json:"std_offset"` // seconds
	Magnitude float64 `json:"magnitude"`  // signed jump size in margins
}

// MarshalJSON encodes non-finite offsets as null
func (m MatchedOffset) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"key":        m.Key,
		"event":      m.Event,
		"matched":    m.Matched,
		"offset":     common.FiniteOrNil(m.Offset),
		"std_offset": common.FiniteOrNil(m.StdOffset),
		"magnitude":  common.FiniteOrNil(m.Magnitude),
	}
	if m.Reason != ReasonNone {
		out["reason"] = m.Reason
	}
	if m.Jump != nil {
		out["jump"] = m.Jump
	}
	return json.Marshal(out)
}

// EventMatcher pairs expected events with localized jumps
type EventMatcher struct {
	maxOffset float64
}

// NewEventMatcher creates a matcher accepting jumps strictly closer than
// maxOffset seconds to the event
func NewEventMatcher(maxOffset float64) *EventMatcher {
	return &EventMatcher{maxOffset: maxOffset}
}

// MatchEvents is a convenience wrapper around EventMatcher.Match
func MatchEvents(events []ExpectedEvent, jumps []temporal.LocalizedJump, maxOffset float64) []MatchedOffset {
	return NewEventMatcher(maxOffset).Match(events, jumps)
}

// Match returns one MatchedOffset per event, in event order. Events should
// already be restricted to the span of the series the jumps came from.
func (m *EventMatcher) Match(events []ExpectedEvent, jumps []temporal.LocalizedJump) []MatchedOffset {
	out := make([]MatchedOffset, 0, len(events))
	for _, ev := range events {
		out = append(out, m.matchOne(ev, jumps))
	}
	return out
}

// matchOne picks the jump in the event's direction with the smallest
// absolute offset. Jumps with a non-finite time are never closest.
func (m *EventMatcher) matchOne(ev ExpectedEvent, jumps []temporal.LocalizedJump) MatchedOffset {
	best := -1
	bestAbs := math.Inf(1)
	candidates := 0

	for k, j := range jumps {
		if j.Direction() != ev.Direction {
			continue
		}
		candidates++
		abs := math.Abs(j.Time - ev.Timestamp)
		if abs < bestAbs {
			best, bestAbs = k, abs
		}
	}

	if candidates == 0 {
		return MatchedOffset{Event: ev, Reason: ReasonNoCandidate}
	}
	if best < 0 || !(bestAbs < m.maxOffset) {
		return MatchedOffset{Event: ev, Reason: ReasonOutsideWindow}
	}

	jump := jumps[best]
	return MatchedOffset{
		Event:     ev,
		Matched:   true,
		Jump:      &jump,
		Offset:    jump.Time - ev.Timestamp,
		StdOffset: jump.StdTime,
		Magnitude: jump.Magnitude,
	}
}
