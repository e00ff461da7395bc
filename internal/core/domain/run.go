package domain

import "time"

// RunStatus is the terminal state of one day run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunNoData    RunStatus = "no_data"
)

// RunRecord is the persisted manifest of a day run. It carries no samples.
type RunRecord struct {
	ID          string
	RefDes      string
	Day         time.Time
	Encoding    Encoding
	Params      RepairParams
	Concurrency int
	Status      RunStatus
	Attempts    int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Entries     []RunEntry
}

// RunEntry is the manifest line for one interval.
type RunEntry struct {
	Position     int
	URL          string
	NominalStart time.Time
	Status       Status
	Start        time.Time
	End          time.Time
	SampleCount  int
	TraceCount   int
	Path         RepairPath
	Reason       string
	Error        string
	Artifact     string
}

// Counts returns repaired, discarded and failed totals.
func (r RunRecord) Counts() (repaired, discarded, failed int) {
	for _, e := range r.Entries {
		switch e.Status {
		case StatusRepaired:
			repaired++
		case StatusDiscarded:
			discarded++
		case StatusFailed:
			failed++
		}
	}
	return repaired, discarded, failed
}

// ManifestEntries flattens a DayResult into manifest lines, naming the
// artifact of every repaired segment.
func ManifestEntries(result DayResult) []RunEntry {
	entries := make([]RunEntry, 0, len(result.Entries))
	for i, e := range result.Entries {
		line := RunEntry{
			Position:     i,
			URL:          e.Interval.URL,
			NominalStart: e.Interval.Start,
			Status:       e.Outcome.Status,
			Reason:       e.Outcome.Reason,
		}
		if e.Outcome.Err != nil {
			line.Error = e.Outcome.Err.Error()
		}
		if seg := e.Outcome.Segment; seg != nil {
			line.Start = seg.Start
			line.End = seg.End
			line.SampleCount = seg.SampleCount
			line.TraceCount = seg.TraceCount
			line.Path = seg.Path
			line.Artifact = ArtifactName(result.RefDes.ShortCode(), seg.Start)
		}
		entries = append(entries, line)
	}
	return entries
}
