package cli

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/RyanBlaney/diode-timing/timing"
)

const timestampLayout = "2006-01-02 15:04:05"

// WriteReport prints the individual firings grouped by diode followed by the
// per-diode offset summary. Offsets are detected minus logged time, in ms.
func WriteReport(w io.Writer, report *timing.Report) error {
	p := &printer{w: w}

	p.println("Individual firings: timestamp | offset +/- uncertainty (magnitude of jump)")
	p.println("--------------------------------------------------------------------------")
	lastKey := ""
	for _, obs := range report.Observations {
		if len(obs.Offsets) == 0 {
			continue
		}
		if obs.Key != lastKey {
			p.printf("Diode: %s\n", obs.Key)
			lastKey = obs.Key
		}
		for _, o := range obs.Offsets {
			p.println(FormatOffset(o))
		}
	}

	p.println()
	p.println("Summary of offsets (detected - logged) per diode")
	p.println("------------------------------------------------")
	for _, g := range report.Groups {
		p.println(FormatGroup(g))
	}

	return p.err
}

// FormatOffset renders one event line. The unmatched reason is only carried
// in the JSON report.
func FormatOffset(o timing.MatchedOffset) string {
	stamp := formatTimestamp(o.Event.Timestamp)
	if !o.Matched {
		return stamp + " | not found"
	}
	return fmt.Sprintf("%s | offset %8.2f +/- %5.2f ms (magnitude of %+.0f margins)",
		stamp, 1000*o.Offset, 1000*o.StdOffset, o.Magnitude)
}

// FormatGroup renders one summary line
func FormatGroup(g timing.GroupStatistics) string {
	return fmt.Sprintf("%s diode: mean %.2f +/- %.2f ms, min %.2f +/- %.2f ms, max %.2f +/- %.2f ms",
		g.Key,
		1000*g.MeanOffset, 1000*g.StdMeanOffset,
		1000*g.MinOffset, 1000*g.MinStdOffset,
		1000*g.MaxOffset, 1000*g.MaxStdOffset)
}

func formatTimestamp(sec float64) string {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC().Format(timestampLayout)
}

// printer keeps the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, format, args...)
	}
}

func (p *printer) println(args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintln(p.w, args...)
	}
}
