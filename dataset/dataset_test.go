package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/diode-timing/timing"
	"github.com/RyanBlaney/diode-timing/timing/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDoc = `
accum_per_int: 50
scans:
  - name: scan0
    timestamps: [0, 1, 2, 3]
    data:
      ant1:
        h: [[1, 2, 3], [1, 2, 3], [5, 6, 7], [5, 6, 7]]
        v: [[1, 2, 3], [1, 2, 3], [5, 6, 7], [5, 6, 7]]
      ant2:
        h: [[4, 4, 4], [4, 4, 4], [4, 4, 4], [4, 4, 4]]
antennas:
  - name: ant1
    sensors:
      pin: {timestamps: [-10, 1.5], values: [0, 1]}
      coupler: {timestamps: [-10], values: [0]}
  - name: ant2
    sensors:
      pin: {timestamps: [-10, 1.5, 2.5], values: [0, 1, 0]}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig() *config.AnalysisConfig {
	cfg := config.Default()
	cfg.FreqChans = [2]int{1, 2}
	return cfg
}

func TestLoadYAMLObservations(t *testing.T) {
	t.Parallel()

	ds, err := Load(writeFile(t, "obs.yaml", yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, 50, ds.AccumPerInt)
	require.Len(t, ds.Scans, 1)

	obs, err := ds.Observations(testConfig())
	require.NoError(t, err)
	// ant1 coupler only has its initial state
	require.Len(t, obs, 2)

	ant1 := obs[0]
	assert.Equal(t, "ant1 pin", ant1.Key)
	assert.Equal(t, "scan0", ant1.Name)
	assert.Equal(t, []timing.ExpectedEvent{{Timestamp: 1.5, Direction: timing.Rise}}, ant1.Events)
	// Mean of channels 1-2 summed over h and v
	assert.Equal(t, []float64{5, 5, 13, 13}, ant1.Series.Power)

	// Summed polarisations halve the dof: 2*50*2/2 = 100
	assert.InDelta(t, 5*math.Sqrt(2.0/100), ant1.Series.StdPower[0], 1e-12)

	ant2 := obs[1]
	assert.Equal(t, "ant2 pin", ant2.Key)
	assert.Len(t, ant2.Events, 2)
	assert.Equal(t, []float64{4, 4, 4, 4}, ant2.Series.Power)
	// Single polarisation keeps the full dof of 200
	assert.InDelta(t, 4*math.Sqrt(2.0/200), ant2.Series.StdPower[0], 1e-12)
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	doc := `{"accum_per_int": 10, "scans": [{"name": "s", "timestamps": [0, 1, 2],
		"data": {"a": {"v": [[1], [1], [1]]}}}],
		"antennas": [{"name": "a", "sensors": {"pin": {"timestamps": [0, 1], "values": [1, 0]}}}]}`

	ds, err := Load(writeFile(t, "obs.json", doc))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.FreqChans = [2]int{0, 0}
	obs, err := ds.Observations(cfg)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, []timing.ExpectedEvent{{Timestamp: 1, Direction: timing.Fall}}, obs[0].Events)
}

func TestObservationsChannelRange(t *testing.T) {
	t.Parallel()

	ds, err := Load(writeFile(t, "obs.yaml", yamlDoc))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.FreqChans = [2]int{0, 5}
	_, err = ds.Observations(cfg)
	assert.ErrorIs(t, err, ErrChannelRange)
}

func TestObservationsDumpCountMismatch(t *testing.T) {
	t.Parallel()

	ds := &Dataset{
		AccumPerInt: 1,
		Scans: []Scan{{
			Name:       "s",
			Timestamps: []float64{0, 1, 2},
			Data:       map[string]map[string][][]float64{"a": {"h": {{1}, {1}}}},
		}},
		Antennas: []Antenna{{
			Name:    "a",
			Sensors: map[string]SensorLog{"pin": {Timestamps: []float64{0, 1}, Values: []int{0, 1}}},
		}},
	}

	cfg := config.Default()
	cfg.FreqChans = [2]int{0, 0}
	_, err := ds.Observations(cfg)
	assert.ErrorIs(t, err, timing.ErrSeriesLength)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.json", "{"))
	assert.Error(t, err)
}
