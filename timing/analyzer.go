package timing

import (
	"context"
	"fmt"
	"runtime"

	"github.com/RyanBlaney/diode-timing/algorithms/temporal"
	"github.com/RyanBlaney/diode-timing/logging"
	"github.com/RyanBlaney/diode-timing/timing/config"
	"golang.org/x/sync/errgroup"
)

// Observation is one power series together with the switching events
// expected in it and the group its offsets are aggregated under
type Observation struct {
	Name   string          `json:"name"` // e.g. scan identifier
	Key    string          `json:"key"`  // e.g. "ant1 pin"
	Series Series          `json:"series"`
	Events []ExpectedEvent `json:"events"`
}

// ObservationResult holds the jumps and event matches of one observation
type ObservationResult struct {
	Name    string                   `json:"name"`
	Key     string                   `json:"key"`
	Skipped bool                     `json:"skipped"` // series too short to analyse
	Jumps   []temporal.LocalizedJump `json:"jumps"`
	Offsets []MatchedOffset          `json:"offsets"`
}

// Report is the outcome of an analysis run
type Report struct {
	Observations []ObservationResult `json:"observations"`
	Groups       []GroupStatistics   `json:"groups"`
}

// Matched counts the matched and unmatched events across all observations
func (r *Report) Matched() (matched, unmatched int) {
	for _, obs := range r.Observations {
		for _, o := range obs.Offsets {
			if o.Matched {
				matched++
			} else {
				unmatched++
			}
		}
	}
	return matched, unmatched
}

// Analyzer runs jump detection, event matching and group aggregation over a
// batch of observations
type Analyzer struct {
	config   *config.AnalysisConfig
	detector *temporal.JumpDetector
	matcher  *EventMatcher
	logger   logging.Logger
}

// NewAnalyzer creates an analyzer. A nil config uses config.Default().
func NewAnalyzer(cfg *config.AnalysisConfig) *Analyzer {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Analyzer{
		config:   cfg,
		detector: temporal.NewJumpDetector(JumpParams(cfg)),
		matcher:  NewEventMatcher(cfg.MaxOffset),
		logger: logging.WithFields(logging.Fields{
			"component": "timing_analyzer",
		}),
	}
}

// JumpParams maps the analysis config onto jump detector parameters
func JumpParams(cfg *config.AnalysisConfig) temporal.JumpParams {
	policy := temporal.RunOnlyWhenZero
	if cfg.WindowPolicy == config.WindowSingleDumpWhenZero {
		policy = temporal.SingleDumpWhenZero
	}
	return temporal.JumpParams{
		MarginFactor:       cfg.MarginFactor,
		JumpSignificance:   cfg.JumpSignificance,
		MaxSegmentDuration: cfg.MaxSegmentDuration,
		WindowPolicy:       policy,
	}
}

// AnalyzeObservation finds the jumps in one series and matches the events
// that fall strictly inside it. Series shorter than MinSeriesLength are
// skipped without error.
func (a *Analyzer) AnalyzeObservation(obs Observation) (ObservationResult, error) {
	result := ObservationResult{Name: obs.Name, Key: obs.Key}

	if err := obs.Series.Validate(); err != nil {
		return result, fmt.Errorf("observation %q (%s): %w", obs.Name, obs.Key, err)
	}

	logger := a.logger.WithFields(logging.Fields{
		"function":    "AnalyzeObservation",
		"observation": obs.Name,
		"key":         obs.Key,
		"samples":     obs.Series.Len(),
	})

	if !obs.Series.Analysable() {
		logger.Debug("Series too short, skipping")
		result.Skipped = true
		result.Jumps = []temporal.LocalizedJump{}
		result.Offsets = []MatchedOffset{}
		return result, nil
	}

	s := obs.Series
	result.Jumps = a.detector.FindJumps(s.Timestamps, s.Power, s.StdPower)
	for _, j := range result.Jumps {
		if !j.IsFinite() {
			logger.Warn("Jump instant estimate is not finite", logging.Fields{
				"index":     j.Index,
				"magnitude": j.Magnitude,
			})
		}
	}

	events := EventsWithin(obs.Events, s)
	result.Offsets = a.matcher.Match(events, result.Jumps)
	for i := range result.Offsets {
		result.Offsets[i].Key = obs.Key
		if !result.Offsets[i].Matched {
			logger.Debug("Event not matched", logging.Fields{
				"event_time": result.Offsets[i].Event.Timestamp,
				"direction":  result.Offsets[i].Event.Direction.String(),
				"reason":     string(result.Offsets[i].Reason),
			})
		}
	}

	logger.Debug("Observation analysed", logging.Fields{
		"jumps":  len(result.Jumps),
		"events": len(events),
	})

	return result, nil
}

// Run analyses every observation, concurrently up to the configured number
// of workers, and aggregates the matched offsets per group key. Results keep
// the order of the input observations.
func (a *Analyzer) Run(ctx context.Context, observations []Observation) (*Report, error) {
	results := make([]ObservationResult, len(observations))

	workers := a.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, obs := range observations {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := a.AnalyzeObservation(obs)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(err, "Analysis failed")
		return nil, err
	}

	// Collect in input order so ties between extreme offsets resolve the
	// same way on every run
	collector := NewOffsetCollector()
	for _, res := range results {
		collector.Add(res.Offsets...)
	}

	report := &Report{
		Observations: results,
		Groups:       collector.Aggregate(),
	}

	matched, unmatched := report.Matched()
	a.logger.Info("Analysis completed", logging.Fields{
		"observations": len(observations),
		"matched":      matched,
		"unmatched":    unmatched,
		"groups":       len(report.Groups),
	})

	return report, nil
}
