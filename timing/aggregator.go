package timing

import (
	"encoding/json"
	"math"
	"sort"
	"sync"

	"github.com/RyanBlaney/diode-timing/algorithms/common"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GroupStatistics summarises the matched offsets of one group
type GroupStatistics struct {
	Key   string `json:"key"`
	Count int    `json:"count"`

	MeanOffset    float64 `json:"mean_offset"`     // seconds
	StdMeanOffset float64 `json:"std_mean_offset"` // combined uncertainty of MeanOffset

	// Uncertainty of the mean propagated from the individual measurement
	// uncertainties
	StdMeasurement float64 `json:"std_measurement"`

	// Standard error from the scatter of the offsets themselves; 0 for a
	// single offset
	StdScatter float64 `json:"std_scatter"`

	// Most negative and most positive individual offsets with their own
	// uncertainties
	MinOffset    float64 `json:"min_offset"`
	MinStdOffset float64 `json:"min_std_offset"`
	MaxOffset    float64 `json:"max_offset"`
	MaxStdOffset float64 `json:"max_std_offset"`
}

// MarshalJSON encodes non-finite statistics as null
func (g GroupStatistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"key":             g.Key,
		"count":           g.Count,
		"mean_offset":     common.FiniteOrNil(g.MeanOffset),
		"std_mean_offset": common.FiniteOrNil(g.StdMeanOffset),
		"std_measurement": common.FiniteOrNil(g.StdMeasurement),
		"std_scatter":     common.FiniteOrNil(g.StdScatter),
		"min_offset":      common.FiniteOrNil(g.MinOffset),
		"min_std_offset":  common.FiniteOrNil(g.MinStdOffset),
		"max_offset":      common.FiniteOrNil(g.MaxOffset),
		"max_std_offset":  common.FiniteOrNil(g.MaxStdOffset),
	})
}

// AggregateGroup reduces the matched offsets of one group. Unmatched entries
// are ignored; ok is false when nothing was matched.
func AggregateGroup(key string, matches []MatchedOffset) (GroupStatistics, bool) {
	offsets := make([]float64, 0, len(matches))
	stds := make([]float64, 0, len(matches))
	for _, m := range matches {
		if !m.Matched {
			continue
		}
		offsets = append(offsets, m.Offset)
		stds = append(stds, m.StdOffset)
	}
	if len(offsets) == 0 {
		return GroupStatistics{Key: key}, false
	}

	stdMeasurement := common.PropagatedStdError(stds)
	stdScatter := common.SampleStdDev(offsets) / math.Sqrt(float64(len(offsets)))

	lo, hi := floats.MinIdx(offsets), floats.MaxIdx(offsets)

	return GroupStatistics{
		Key:            key,
		Count:          len(offsets),
		MeanOffset:     stat.Mean(offsets, nil),
		StdMeanOffset:  common.Quadrature(stdMeasurement, stdScatter),
		StdMeasurement: stdMeasurement,
		StdScatter:     stdScatter,
		MinOffset:      offsets[lo],
		MinStdOffset:   stds[lo],
		MaxOffset:      offsets[hi],
		MaxStdOffset:   stds[hi],
	}, true
}

// Aggregate reduces every group and returns the statistics ordered by key.
// Groups without a single matched offset are omitted.
func Aggregate(byKey map[string][]MatchedOffset) []GroupStatistics {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]GroupStatistics, 0, len(keys))
	for _, k := range keys {
		if gs, ok := AggregateGroup(k, byKey[k]); ok {
			out = append(out, gs)
		}
	}
	return out
}

// OffsetCollector accumulates matched offsets per group key. It is
// append-only and safe for concurrent use; aggregation runs once all offsets
// are in.
type OffsetCollector struct {
	mu     sync.Mutex
	groups map[string][]MatchedOffset
}

// NewOffsetCollector creates an empty collector
func NewOffsetCollector() *OffsetCollector {
	return &OffsetCollector{groups: make(map[string][]MatchedOffset)}
}

// Add appends offsets under their own Key
func (c *OffsetCollector) Add(offsets ...MatchedOffset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range offsets {
		c.groups[o.Key] = append(c.groups[o.Key], o)
	}
}

// Groups returns a copy of the accumulated offsets per key
func (c *OffsetCollector) Groups() map[string][]MatchedOffset {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]MatchedOffset, len(c.groups))
	for k, v := range c.groups {
		out[k] = append([]MatchedOffset(nil), v...)
	}
	return out
}

// Aggregate reduces the collected offsets
func (c *OffsetCollector) Aggregate() []GroupStatistics {
	return Aggregate(c.Groups())
}
