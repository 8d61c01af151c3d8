package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration value is out of range
var ErrInvalidConfig = errors.New("invalid analysis config")

// WindowPolicy selects how a zero max_onoff_segment_duration bounds the power
// averaging windows around a jump
type WindowPolicy string

const (
	WindowRunOnlyWhenZero    WindowPolicy = "run_only_when_zero"
	WindowSingleDumpWhenZero WindowPolicy = "single_dump_when_zero"
)

// AnalysisConfig configures jump detection, event matching and the
// noise model used to turn recorded power into per-sample uncertainty.
type AnalysisConfig struct {
	// Allowed variation in power, as multiple of theoretical standard deviation
	MarginFactor float64 `yaml:"margin_factor" json:"margin_factor"`

	// Keep jumps that are bigger than the margin by this factor
	JumpSignificance float64 `yaml:"jump_significance" json:"jump_significance"`

	// Maximum allowed offset between commanded and observed event (seconds)
	MaxOffset float64 `yaml:"max_offset" json:"max_offset"`

	// Maximum duration of segments around a jump used to estimate its instant
	// (seconds); 0 means the window policy decides
	MaxSegmentDuration float64 `yaml:"max_onoff_segment_duration" json:"max_onoff_segment_duration"`

	WindowPolicy WindowPolicy `yaml:"window_policy" json:"window_policy"`

	// Inclusive [start, end] range of frequency channels averaged into power
	FreqChans [2]int `yaml:"freq_chans" json:"freq_chans"`

	// Number of series analysed concurrently; 0 uses GOMAXPROCS
	Workers int `yaml:"workers" json:"workers"`
}

// Default returns the defaults of the noise diode timing check
func Default() *AnalysisConfig {
	return &AnalysisConfig{
		MarginFactor:       24.0,
		JumpSignificance:   10.0,
		MaxOffset:          2.0,
		MaxSegmentDuration: 0.0,
		WindowPolicy:       WindowRunOnlyWhenZero,
		FreqChans:          [2]int{100, 400},
		Workers:            0,
	}
}

// Load reads a YAML config file. Keys absent from the file keep their
// default values.
func Load(path string) (*AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document over the defaults and validates the result
func Parse(data []byte) (*AnalysisConfig, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func applyDefaults(c *AnalysisConfig) {
	if c.WindowPolicy == "" {
		c.WindowPolicy = WindowRunOnlyWhenZero
	}
}

// Validate checks parameter ranges
func (c *AnalysisConfig) Validate() error {
	switch {
	case c.MarginFactor < 0:
		return fmt.Errorf("%w: margin_factor %v < 0", ErrInvalidConfig, c.MarginFactor)
	case c.JumpSignificance < 0:
		return fmt.Errorf("%w: jump_significance %v < 0", ErrInvalidConfig, c.JumpSignificance)
	case c.MaxOffset < 0:
		return fmt.Errorf("%w: max_offset %v < 0", ErrInvalidConfig, c.MaxOffset)
	case c.MaxSegmentDuration < 0:
		return fmt.Errorf("%w: max_onoff_segment_duration %v < 0", ErrInvalidConfig, c.MaxSegmentDuration)
	case c.FreqChans[0] < 0 || c.FreqChans[1] < c.FreqChans[0]:
		return fmt.Errorf("%w: freq_chans %v", ErrInvalidConfig, c.FreqChans)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d < 0", ErrInvalidConfig, c.Workers)
	}

	switch c.WindowPolicy {
	case WindowRunOnlyWhenZero, WindowSingleDumpWhenZero:
	default:
		return fmt.Errorf("%w: window_policy %q", ErrInvalidConfig, c.WindowPolicy)
	}
	return nil
}

// NumChans returns the number of channels averaged into power
func (c *AnalysisConfig) NumChans() int {
	return c.FreqChans[1] + 1 - c.FreqChans[0]
}
