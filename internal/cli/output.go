package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/services"
	"github.com/ooi-data/ooi-hyd-tools/internal/metrics"
)

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusRepaired:
		return color.New(color.FgGreen).Sprint("✓ repaired ")
	case domain.StatusDiscarded:
		return color.New(color.FgYellow).Sprint("- discarded")
	default:
		return color.New(color.FgRed).Sprint("✗ failed   ")
	}
}

func runLabel(s domain.RunStatus) string {
	switch s {
	case domain.RunSucceeded:
		return color.New(color.FgGreen).Sprint(s)
	case domain.RunNoData:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgRed).Sprint(s)
	}
}

// printReport writes one line per interval followed by the day totals.
func printReport(out io.Writer, report services.DayReport, verbose bool) {
	run := report.Run
	fmt.Fprintf(out, "\n%s %s  run=%s status=%s attempts=%d\n",
		run.RefDes, run.Day.Format(domain.DayLayout), run.ID, runLabel(run.Status), run.Attempts)

	if verbose {
		fmt.Fprintln(out, "────────────────────────────────────────────────────────────────")
		for _, e := range run.Entries {
			fmt.Fprintf(out, "  %s  %s  %s\n", e.NominalStart.Format(time.TimeOnly), statusLabel(e.Status), entryDetail(e))
		}
		fmt.Fprintln(out)
	}

	repaired, discarded, failed := run.Counts()
	fmt.Fprintf(out, "repaired=%d discarded=%d failed=%d\n", repaired, discarded, failed)
	if run.Error != "" {
		fmt.Fprintf(out, "%s %s\n", color.New(color.FgRed).Sprint("error:"), run.Error)
	}
	if s := report.Sanity; s != nil {
		fmt.Fprintf(out, "sanity check: %s %s\n", s.Outcome.Segment.Start.Format(time.TimeOnly), sanityArtifact(run, s))
	}
}

func entryDetail(e domain.RunEntry) string {
	switch e.Status {
	case domain.StatusRepaired:
		d := fmt.Sprintf("%d samples  %s", e.SampleCount, e.Path)
		if e.Artifact != "" {
			d += "  " + e.Artifact
		}
		return d
	case domain.StatusDiscarded:
		return e.Reason
	default:
		return e.Error
	}
}

func sanityArtifact(run domain.RunRecord, s *domain.DayEntry) string {
	for _, e := range run.Entries {
		if e.URL == s.Interval.URL {
			return e.Artifact
		}
	}
	return ""
}

func printMetrics(out io.Writer, snap metrics.Snapshot) {
	fmt.Fprintf(out, "\nintervals: repaired=%d discarded=%d failed=%d samples=%d\n",
		snap.IntervalsRepaired, snap.IntervalsDiscarded, snap.IntervalsFailed, snap.SamplesRepaired)
	fmt.Fprintf(out, "days: succeeded=%d failed=%d no_data=%d retries=%d pool_width=%d\n",
		snap.DaysSucceeded, snap.DaysFailed, snap.DaysNoData, snap.DayRetries, snap.PoolWidth)
}
