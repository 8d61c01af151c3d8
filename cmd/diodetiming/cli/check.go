package cli

import (
	"encoding/json"
	"fmt"

	"github.com/RyanBlaney/diode-timing/dataset"
	"github.com/RyanBlaney/diode-timing/timing"
	"github.com/RyanBlaney/diode-timing/timing/config"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	configPath   string
	maxOffset    float64
	maxDuration  float64
	margin       float64
	significance float64
	freqChans    []int
	asJSON       bool
}

func checkCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Check noise diode timing in a recorded dataset",
		Long: `Find noise diode firings in each scan of a dataset (JSON or YAML), match them
to the logged switching events and summarise the offsets per diode.
`,
		Example: `diodetiming check -o 1 -f 100,400 observation.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.analysisConfig(cmd)
			if err != nil {
				return err
			}

			ds, err := dataset.Load(args[0])
			if err != nil {
				return err
			}
			observations, err := ds.Observations(cfg)
			if err != nil {
				return err
			}

			report, err := timing.NewAnalyzer(cfg).Run(cmd.Context(), observations)
			if err != nil {
				return err
			}

			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return WriteReport(cmd.OutOrStdout(), report)
		},
	}

	def := config.Default()
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML analysis config; flags override its values")
	cmd.Flags().Float64VarP(&opts.maxOffset, "max-offset", "o", def.MaxOffset,
		"maximum allowed offset between logged and detected firing, in seconds")
	cmd.Flags().Float64VarP(&opts.maxDuration, "max-duration", "d", def.MaxSegmentDuration,
		"maximum duration of segments around jump used to estimate instant, in seconds")
	cmd.Flags().Float64VarP(&opts.margin, "margin", "m", def.MarginFactor,
		"allowed variation in power, as multiple of theoretical standard deviation")
	cmd.Flags().Float64VarP(&opts.significance, "significance", "s", def.JumpSignificance,
		"keep jumps that are bigger than margin by this factor")
	cmd.Flags().IntSliceVarP(&opts.freqChans, "freq-chans", "f", def.FreqChans[:],
		"range of frequency channels to use (zero-based, start,end)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "write the report as JSON")

	return cmd
}

// analysisConfig loads the config file, if any, and applies the flags the
// user set explicitly on top of it
func (o *checkOptions) analysisConfig(cmd *cobra.Command) (*config.AnalysisConfig, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("max-offset") {
		cfg.MaxOffset = o.maxOffset
	}
	if flags.Changed("max-duration") {
		cfg.MaxSegmentDuration = o.maxDuration
	}
	if flags.Changed("margin") {
		cfg.MarginFactor = o.margin
	}
	if flags.Changed("significance") {
		cfg.JumpSignificance = o.significance
	}
	if flags.Changed("freq-chans") {
		if len(o.freqChans) != 2 {
			return nil, fmt.Errorf("%w: freq-chans needs start,end, got %v", config.ErrInvalidConfig, o.freqChans)
		}
		cfg.FreqChans = [2]int{o.freqChans[0], o.freqChans[1]}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
