package domain

import "time"

// Status tags an Outcome.
type Status string

const (
	StatusRepaired  Status = "repaired"
	StatusDiscarded Status = "discarded"
	StatusFailed    Status = "failed"
)

// Discard reasons.
const (
	ReasonUnrepairableGap = "unrepairable gap"
	ReasonNoTraces        = "no traces"
)

// RepairPath records which branch of the repair policy produced a segment.
type RepairPath string

const (
	PathJitterOnly   RepairPath = "jitter-only"
	PathGapsAbsorbed RepairPath = "gaps-absorbed"
)

// RepairedSegment is the continuous buffer built from one interval.
// End-Start may exceed SampleCount/SampleRate by AbsorbedGap seconds: merging
// concatenates samples and never inserts filler.
type RepairedSegment struct {
	Network     string
	Station     string
	Location    string
	Channel     string
	Start       time.Time
	End         time.Time
	SampleRate  float64
	Samples     Samples
	SampleCount int
	TraceCount  int
	Path        RepairPath
	AbsorbedGap float64
}

// Outcome is the result of processing one interval. Exactly one of Segment,
// Reason or Err is meaningful, selected by Status.
type Outcome struct {
	Status  Status
	Segment *RepairedSegment
	Reason  string
	Err     error
}

func Repaired(seg RepairedSegment) Outcome {
	return Outcome{Status: StatusRepaired, Segment: &seg}
}

func Discarded(reason string) Outcome {
	return Outcome{Status: StatusDiscarded, Reason: reason}
}

func Failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}

// DayEntry pairs an interval with its outcome.
type DayEntry struct {
	Interval Interval
	Outcome  Outcome
}

// Start is the ordering key: the repaired segment's start, or the interval's
// nominal start when nothing was repaired.
func (e DayEntry) Start() time.Time {
	if e.Outcome.Status == StatusRepaired && e.Outcome.Segment != nil {
		return e.Outcome.Segment.Start
	}
	return e.Interval.Start
}

// DayResult is the chronologically ordered outcome of one instrument-day.
type DayResult struct {
	RefDes  RefDes
	Day     time.Time
	Entries []DayEntry
}

// Empty reports a day for which the archive held no interval files.
func (d DayResult) Empty() bool {
	return len(d.Entries) == 0
}

// Repaired returns the repaired entries in order.
func (d DayResult) Repaired() []DayEntry {
	return d.filter(StatusRepaired)
}

func (d DayResult) Discarded() []DayEntry {
	return d.filter(StatusDiscarded)
}

func (d DayResult) Failures() []DayEntry {
	return d.filter(StatusFailed)
}

func (d DayResult) filter(status Status) []DayEntry {
	var out []DayEntry
	for _, e := range d.Entries {
		if e.Outcome.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// TotalSamples sums the sample counts of every repaired segment.
func (d DayResult) TotalSamples() int {
	total := 0
	for _, e := range d.Repaired() {
		total += e.Outcome.Segment.SampleCount
	}
	return total
}

// SegmentAt picks a repaired segment by time of day: the first one whose
// interval nominally starts at or after day+clock, or failing that the last
// one before it. A recorder that starts early does not push the pick to the
// next interval.
func (d DayResult) SegmentAt(clock time.Duration) (DayEntry, bool) {
	target := d.Day.Add(clock)
	var before *DayEntry
	for i, e := range d.Entries {
		if e.Outcome.Status != StatusRepaired {
			continue
		}
		if !e.Interval.Start.Before(target) {
			return e, true
		}
		before = &d.Entries[i]
	}
	if before != nil {
		return *before, true
	}
	return DayEntry{}, false
}
