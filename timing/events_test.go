package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventsFromSensor(t *testing.T) {
	t.Parallel()

	events := EventsFromSensor([]float64{0, 10, 20, 30}, []int{0, 1, 0, 1})
	assert.Equal(t, []ExpectedEvent{
		{Timestamp: 10, Direction: Rise},
		{Timestamp: 20, Direction: Fall},
		{Timestamp: 30, Direction: Rise},
	}, events)
}

func TestEventsFromSensorInitialValueOnly(t *testing.T) {
	t.Parallel()

	assert.Empty(t, EventsFromSensor([]float64{5}, []int{1}))
	assert.Empty(t, EventsFromSensor(nil, nil))
}

func TestEventsWithin(t *testing.T) {
	t.Parallel()

	s := Series{Timestamps: []float64{10, 11, 12, 13}}
	events := []ExpectedEvent{
		{Timestamp: 9, Direction: Rise},
		{Timestamp: 10, Direction: Rise}, // on the edge
		{Timestamp: 11.5, Direction: Fall},
		{Timestamp: 13, Direction: Rise}, // on the edge
		{Timestamp: 14, Direction: Fall},
	}

	assert.Equal(t, []ExpectedEvent{{Timestamp: 11.5, Direction: Fall}}, EventsWithin(events, s))
	assert.Empty(t, EventsWithin(events, Series{}))
}

func TestSeriesValidate(t *testing.T) {
	t.Parallel()

	ok := Series{Timestamps: []float64{0, 1, 2}, Power: []float64{1, 1, 1}, StdPower: []float64{0.1, 0.1, 0.1}}
	assert.NoError(t, ok.Validate())
	assert.True(t, ok.Analysable())

	short := Series{Timestamps: []float64{0, 1}, Power: []float64{1, 1}, StdPower: []float64{0.1, 0.1}}
	assert.NoError(t, short.Validate())
	assert.False(t, short.Analysable())

	ragged := Series{Timestamps: []float64{0, 1, 2}, Power: []float64{1, 1}, StdPower: []float64{0.1, 0.1, 0.1}}
	assert.ErrorIs(t, ragged.Validate(), ErrSeriesLength)

	repeated := Series{Timestamps: []float64{0, 1, 1}, Power: []float64{1, 1, 1}, StdPower: []float64{0.1, 0.1, 0.1}}
	assert.ErrorIs(t, repeated.Validate(), ErrNotIncreasing)
}
