package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RyanBlaney/diode-timing/algorithms/common"
	"github.com/RyanBlaney/diode-timing/logging"
	"github.com/RyanBlaney/diode-timing/timing"
	"github.com/RyanBlaney/diode-timing/timing/config"
	"gopkg.in/yaml.v3"
)

// ErrChannelRange is returned when the configured channel range does not fit
// the recorded spectra
var ErrChannelRange = errors.New("channel range outside recorded spectra")

// Dataset is a recorded observation: power spectra per scan and antenna
// polarisation, plus the sensor logs of the switching devices.
type Dataset struct {
	// Accumulations per correlator integration, used by the noise model
	AccumPerInt int       `json:"accum_per_int" yaml:"accum_per_int"`
	Scans       []Scan    `json:"scans" yaml:"scans"`
	Antennas    []Antenna `json:"antennas" yaml:"antennas"`
}

// Scan holds the sample timestamps of one scan and the recorded spectra
type Scan struct {
	Name string `json:"name" yaml:"name"`

	// Seconds since epoch, one per dump
	Timestamps []float64 `json:"timestamps" yaml:"timestamps"`

	// Antenna name -> polarisation ("h" or "v") -> spectra[dump][channel]
	Data map[string]map[string][][]float64 `json:"data" yaml:"data"`
}

// Antenna names a receiver and the sensor logs of its switching devices
type Antenna struct {
	Name    string               `json:"name" yaml:"name"`
	Sensors map[string]SensorLog `json:"sensors" yaml:"sensors"`
}

// SensorLog is a device's logged state changes. The first entry is the
// initial state.
type SensorLog struct {
	Timestamps []float64 `json:"timestamps" yaml:"timestamps"`
	Values     []int     `json:"values" yaml:"values"`
}

// Polarisations summed into total power, in order
var Polarisations = []string{"h", "v"}

// Load reads a dataset document. Files ending in .yaml or .yml are decoded
// as YAML, everything else as JSON.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var ds Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ds)
	default:
		err = json.Unmarshal(data, &ds)
	}
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}

	return &ds, nil
}

// Observations builds one analyzer observation per antenna, switching
// device and scan. Devices whose log holds only the initial state are
// skipped, as are antennas without data in a scan. Power is the channel
// average over cfg.FreqChans summed over the available polarisations.
func (ds *Dataset) Observations(cfg *config.AnalysisConfig) ([]timing.Observation, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "dataset",
		"function":  "Observations",
	})

	dof := timing.DegreesOfFreedom(ds.AccumPerInt, cfg.FreqChans[0], cfg.FreqChans[1])

	var observations []timing.Observation
	for _, ant := range ds.Antennas {
		for _, device := range sortedKeys(ant.Sensors) {
			log := ant.Sensors[device]
			events := timing.EventsFromSensor(log.Timestamps, log.Values)
			if len(events) == 0 {
				logger.Debug("Sensor has no transitions", logging.Fields{
					"antenna": ant.Name,
					"device":  device,
				})
				continue
			}

			for _, scan := range ds.Scans {
				series, ok, err := scan.powerSeries(ant.Name, cfg.FreqChans, dof)
				if err != nil {
					return nil, fmt.Errorf("scan %q antenna %q: %w", scan.Name, ant.Name, err)
				}
				if !ok {
					continue
				}
				observations = append(observations, timing.Observation{
					Name:   scan.Name,
					Key:    ant.Name + " " + device,
					Series: series,
					Events: events,
				})
			}
		}
	}

	logger.Debug("Built observations", logging.Fields{
		"observations": len(observations),
		"dof":          dof,
	})

	return observations, nil
}

// powerSeries averages each polarisation over the channel range, sums the
// polarisations and attaches the noise model. ok is false when the scan has
// no data for the antenna.
func (s Scan) powerSeries(antenna string, chans [2]int, dof float64) (timing.Series, bool, error) {
	pols, found := s.Data[antenna]
	if !found {
		return timing.Series{}, false, nil
	}

	n := len(s.Timestamps)
	paths := make([][]float64, 0, len(Polarisations))
	for _, pol := range Polarisations {
		spectra, ok := pols[pol]
		if !ok {
			continue
		}
		if len(spectra) != n {
			return timing.Series{}, false, fmt.Errorf("polarisation %s has %d dumps, want %d: %w",
				pol, len(spectra), n, timing.ErrSeriesLength)
		}
		power, err := channelAverage(spectra, chans)
		if err != nil {
			return timing.Series{}, false, fmt.Errorf("polarisation %s: %w", pol, err)
		}
		paths = append(paths, power)
	}
	if len(paths) == 0 {
		return timing.Series{}, false, nil
	}

	power, used := timing.CombinePower(n, paths...)
	model := timing.NewNoiseModel(dof, used > 1)

	return timing.Series{
		Timestamps: s.Timestamps,
		Power:      power,
		StdPower:   model.StdPower(power),
	}, true, nil
}

// channelAverage returns the mean over the inclusive channel range for each dump
func channelAverage(spectra [][]float64, chans [2]int) ([]float64, error) {
	power := make([]float64, len(spectra))
	for i, spectrum := range spectra {
		if chans[0] < 0 || chans[1] >= len(spectrum) || chans[1] < chans[0] {
			return nil, fmt.Errorf("%w: channels %d-%d of %d in dump %d",
				ErrChannelRange, chans[0], chans[1], len(spectrum), i)
		}
		power[i] = common.Mean(spectrum[chans[0] : chans[1]+1])
	}
	return power, nil
}

func sortedKeys(m map[string]SensorLog) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
