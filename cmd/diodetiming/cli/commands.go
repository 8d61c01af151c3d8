package cli

import (
	"github.com/RyanBlaney/diode-timing/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// New returns the root command
func New() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "diodetiming",
		Short: "Verify noise diode timing against recorded power",
		Long: `Detect noise diode firings as jumps in recorded total power and compare
their timing with the switching events logged by the control system.
`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd, verbose)
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-observation detail")

	cmd.AddCommand(checkCmd())
	return cmd
}

// setupLogging routes library logs through logrus on stderr
func setupLogging(cmd *cobra.Command, verbose bool) {
	l := logrus.New()
	l.SetOutput(cmd.ErrOrStderr())
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	logging.SetGlobalLogger(logging.NewLogrusLogger(l))
}
