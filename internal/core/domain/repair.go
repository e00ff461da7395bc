package domain

import (
	"fmt"
	"math"
	"time"
)

// Defaults for the OOI broadband hydrophones: 5 minute files at 64 kHz.
const (
	DefaultSampleRate      = 64000.0
	DefaultDuration        = 5 * time.Minute
	DefaultJitterTolerance = 640
	DefaultGapTolerance    = 0.02
)

// RepairParams configures the gap repair policy for one interval.
type RepairParams struct {
	SampleRate      float64
	Duration        time.Duration
	JitterTolerance int     // samples
	GapTolerance    float64 // seconds
}

func DefaultRepairParams() RepairParams {
	return RepairParams{
		SampleRate:      DefaultSampleRate,
		Duration:        DefaultDuration,
		JitterTolerance: DefaultJitterTolerance,
		GapTolerance:    DefaultGapTolerance,
	}
}

func (p RepairParams) Validate() error {
	if p.SampleRate <= 0 || math.IsNaN(p.SampleRate) {
		return fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidConfiguration, p.SampleRate)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("%w: interval duration must be positive, got %v", ErrInvalidConfiguration, p.Duration)
	}
	if p.JitterTolerance <= 0 {
		return fmt.Errorf("%w: jitter tolerance must be positive, got %d", ErrInvalidConfiguration, p.JitterTolerance)
	}
	if p.GapTolerance <= 0 || math.IsNaN(p.GapTolerance) {
		return fmt.Errorf("%w: gap tolerance must be positive, got %v", ErrInvalidConfiguration, p.GapTolerance)
	}
	return nil
}

// NominalSamples is duration × sample rate.
func (p RepairParams) NominalSamples() int {
	return NominalSamples(p.Duration, p.SampleRate)
}

// ReconstructParams are the per-day knobs of a reconstruction.
type ReconstructParams struct {
	Encoding    Encoding
	Repair      RepairParams
	Concurrency int
}

func (p ReconstructParams) Validate() error {
	if !p.Encoding.Valid() {
		return fmt.Errorf("%w: unsupported encoding %q", ErrInvalidConfiguration, p.Encoding)
	}
	if p.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidConfiguration, p.Concurrency)
	}
	return p.Repair.Validate()
}

// Repair merges the traces of one interval into a single segment or rejects
// the interval.
//
// When the total sample count is within JitterTolerance of the nominal count
// the traces are concatenated without looking at the gaps between them.
// Otherwise every gap is checked and a single gap longer than GapTolerance
// discards the whole interval; if all gaps are within tolerance the traces
// are concatenated anyway. Concatenation never inserts samples, so absorbed
// gaps shorten the reconstructed timeline.
func Repair(traces []RawTrace, params RepairParams) Outcome {
	if len(traces) == 0 {
		return Discarded(ReasonNoTraces)
	}

	nominal := params.NominalSamples()
	total := 0
	for _, tr := range traces {
		total += tr.Samples.Len()
	}

	if abs(total-nominal) <= params.JitterTolerance {
		return Repaired(merge(traces, PathJitterOnly, 0))
	}

	absorbed := 0.0
	for _, gap := range Gaps(traces) {
		if math.Abs(gap.Seconds) > params.GapTolerance {
			return Discarded(ReasonUnrepairableGap)
		}
		absorbed += gap.Seconds
	}
	return Repaired(merge(traces, PathGapsAbsorbed, absorbed))
}

func merge(traces []RawTrace, path RepairPath, absorbed float64) RepairedSegment {
	first, last := traces[0], traces[len(traces)-1]
	parts := make([]Samples, len(traces))
	for i, tr := range traces {
		parts[i] = tr.Samples
	}
	samples := ConcatSamples(first.Samples.Type, parts)
	return RepairedSegment{
		Network:     first.Network,
		Station:     first.Station,
		Location:    first.Location,
		Channel:     first.Channel,
		Start:       first.Start,
		End:         last.End(),
		SampleRate:  first.SampleRate,
		Samples:     samples,
		SampleCount: samples.Len(),
		TraceCount:  len(traces),
		Path:        path,
		AbsorbedGap: absorbed,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
