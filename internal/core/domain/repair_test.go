package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 16, 0, 5, 0, 0, time.UTC)

// testParams is a scaled down interval: 300 s at 100 Hz = 30000 samples.
func testParams() RepairParams {
	return RepairParams{
		SampleRate:      100,
		Duration:        5 * time.Minute,
		JitterTolerance: 10,
		GapTolerance:    0.02,
	}
}

func intTrace(start time.Time, rate float64, n int, base int32) RawTrace {
	data := make([]int32, n)
	for i := range data {
		data[i] = base + int32(i)
	}
	return RawTrace{Network: "OO", Station: "HYEA2", Channel: "YDH", Start: start, SampleRate: rate, Samples: IntSamples(data)}
}

// after returns the start time of a trace following prev with the given gap.
func after(prev RawTrace, gapSeconds float64) time.Time {
	return prev.End().Add(prev.Delta()).Add(time.Duration(gapSeconds * float64(time.Second)))
}

func TestRepair(t *testing.T) {
	p := testParams()
	nominal := p.NominalSamples()

	tests := []struct {
		name       string
		traces     func() []RawTrace
		wantStatus Status
		wantReason string
		wantCount  int
		wantPath   RepairPath
	}{
		{
			name: "single complete trace",
			traces: func() []RawTrace {
				return []RawTrace{intTrace(t0, 100, nominal, 0)}
			},
			wantStatus: StatusRepaired,
			wantCount:  nominal,
			wantPath:   PathJitterOnly,
		},
		{
			name: "jitter only ignores a large gap",
			traces: func() []RawTrace {
				a := intTrace(t0, 100, nominal/2, 0)
				b := intTrace(after(a, 5), 100, nominal/2-5, 0)
				return []RawTrace{a, b}
			},
			wantStatus: StatusRepaired,
			wantCount:  nominal - 5,
			wantPath:   PathJitterOnly,
		},
		{
			name: "short interval with large gap is discarded",
			traces: func() []RawTrace {
				a := intTrace(t0, 100, 1000, 0)
				b := intTrace(after(a, 5), 100, 1000, 0)
				return []RawTrace{a, b}
			},
			wantStatus: StatusDiscarded,
			wantReason: ReasonUnrepairableGap,
		},
		{
			name: "overlap beyond tolerance is discarded",
			traces: func() []RawTrace {
				a := intTrace(t0, 100, 1000, 0)
				b := intTrace(after(a, -1), 100, 1000, 0)
				return []RawTrace{a, b}
			},
			wantStatus: StatusDiscarded,
			wantReason: ReasonUnrepairableGap,
		},
		{
			name: "short interval with small gaps is concatenated",
			traces: func() []RawTrace {
				a := intTrace(t0, 100, 1000, 0)
				b := intTrace(after(a, 0.01), 100, 2000, 0)
				c := intTrace(after(b, -0.01), 100, 500, 0)
				return []RawTrace{a, b, c}
			},
			wantStatus: StatusRepaired,
			wantCount:  3500,
			wantPath:   PathGapsAbsorbed,
		},
		{
			name:       "no traces",
			traces:     func() []RawTrace { return nil },
			wantStatus: StatusDiscarded,
			wantReason: ReasonNoTraces,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			traces := tc.traces()
			got := Repair(traces, p)
			if got.Status != tc.wantStatus {
				t.Fatalf("status: got %s, want %s", got.Status, tc.wantStatus)
			}
			if tc.wantStatus == StatusDiscarded {
				if got.Reason != tc.wantReason {
					t.Fatalf("reason: got %q, want %q", got.Reason, tc.wantReason)
				}
				if got.Segment != nil {
					t.Fatalf("discarded outcome carries a segment")
				}
				return
			}
			seg := got.Segment
			if seg.SampleCount != tc.wantCount || seg.Samples.Len() != tc.wantCount {
				t.Fatalf("count: got %d (%d samples), want %d", seg.SampleCount, seg.Samples.Len(), tc.wantCount)
			}
			if seg.Path != tc.wantPath {
				t.Fatalf("path: got %s, want %s", seg.Path, tc.wantPath)
			}
			if !seg.Start.Equal(traces[0].Start) {
				t.Fatalf("start: got %v, want %v", seg.Start, traces[0].Start)
			}
			if !seg.End.Equal(traces[len(traces)-1].End()) {
				t.Fatalf("end: got %v, want %v", seg.End, traces[len(traces)-1].End())
			}
			if seg.TraceCount != len(traces) {
				t.Fatalf("trace count: got %d, want %d", seg.TraceCount, len(traces))
			}
		})
	}
}

func TestRepair_ConcatenatesInArrivalOrder(t *testing.T) {
	p := testParams()
	a := intTrace(t0, 100, 3, 10)
	b := intTrace(after(a, 0.005), 100, 2, 100)
	got := Repair([]RawTrace{a, b}, p)
	if got.Status != StatusRepaired {
		t.Fatalf("status: got %s", got.Status)
	}
	want := []int32{10, 11, 12, 100, 101}
	ints := got.Segment.Samples.Ints
	if len(ints) != len(want) {
		t.Fatalf("samples: got %v, want %v", ints, want)
	}
	for i := range want {
		if ints[i] != want[i] {
			t.Fatalf("samples: got %v, want %v", ints, want)
		}
	}
	if math.Abs(got.Segment.AbsorbedGap-0.005) > 1e-6 {
		t.Fatalf("absorbed gap: got %v, want 0.005", got.Segment.AbsorbedGap)
	}

	// the inputs are not aliased by the merged buffer
	got.Segment.Samples.Ints[0] = -1
	if a.Samples.Ints[0] != 10 {
		t.Fatalf("merge mutated its input")
	}
}

// Every total within the jitter band repairs and stays within the band,
// whatever the gaps look like.
func TestRepair_JitterBandAlwaysRepairs(t *testing.T) {
	p := testParams()
	nominal := p.NominalSamples()
	for delta := -p.JitterTolerance; delta <= p.JitterTolerance; delta++ {
		for _, gap := range []float64{0, 0.5, 30, -2} {
			a := intTrace(t0, 100, nominal/3, 0)
			b := intTrace(after(a, gap), 100, nominal-nominal/3+delta, 0)
			got := Repair([]RawTrace{a, b}, p)
			if got.Status != StatusRepaired {
				t.Fatalf("delta=%d gap=%v: got %s", delta, gap, got.Status)
			}
			if d := got.Segment.SampleCount - nominal; d < -p.JitterTolerance || d > p.JitterTolerance {
				t.Fatalf("delta=%d: count %d outside band", delta, got.Segment.SampleCount)
			}
		}
	}
}

// Outside the band, any single over-tolerance gap discards the interval
// regardless of where it sits.
func TestRepair_AnyLargeGapDiscards(t *testing.T) {
	p := testParams()
	for bad := 0; bad < 4; bad++ {
		traces := []RawTrace{intTrace(t0, 100, 500, 0)}
		for i := 0; i < 4; i++ {
			gap := 0.001
			if i == bad {
				gap = 0.021
			}
			traces = append(traces, intTrace(after(traces[i], gap), 100, 500, 0))
		}
		got := Repair(traces, p)
		if got.Status != StatusDiscarded || got.Reason != ReasonUnrepairableGap {
			t.Fatalf("bad gap at %d: got %s %q", bad, got.Status, got.Reason)
		}
	}
}

// Late recorder start: 300 samples short at 64 kHz with the default 640
// tolerance repairs without inspecting gaps.
func TestRepair_LateStartWithinDefaultTolerance(t *testing.T) {
	p := DefaultRepairParams()
	p.Duration = 2 * time.Second // keep the buffer small; tolerance is unchanged
	nominal := p.NominalSamples()
	a := intTrace(t0, p.SampleRate, 1000, 0)
	// a gap far above the tolerance proves gap inspection is skipped
	b := intTrace(after(a, 3), p.SampleRate, nominal-300-1000, 0)

	got := Repair([]RawTrace{a, b}, p)
	if got.Status != StatusRepaired {
		t.Fatalf("status: got %s", got.Status)
	}
	if got.Segment.SampleCount != nominal-300 {
		t.Fatalf("count: got %d, want %d", got.Segment.SampleCount, nominal-300)
	}
	if got.Segment.Path != PathJitterOnly {
		t.Fatalf("path: got %s", got.Segment.Path)
	}
}

func TestRepair_FloatSamples(t *testing.T) {
	p := testParams()
	a := RawTrace{Start: t0, SampleRate: 100, Samples: FloatSamples([]float64{0.5, 1.5})}
	b := RawTrace{Start: after(a, 0), SampleRate: 100, Samples: FloatSamples([]float64{2.5})}
	got := Repair([]RawTrace{a, b}, p)
	if got.Status != StatusRepaired {
		t.Fatalf("status: got %s", got.Status)
	}
	if got.Segment.Samples.Type != SampleFloat64 || len(got.Segment.Samples.Floats) != 3 {
		t.Fatalf("samples: got %+v", got.Segment.Samples)
	}
}

func TestGaps(t *testing.T) {
	a := intTrace(t0, 100, 100, 0)
	b := intTrace(after(a, 0), 100, 100, 0)
	c := intTrace(after(b, 5), 100, 100, 0)

	// a second channel interleaved with the first
	x := a
	x.Channel = "YDX"
	y := intTrace(after(x, 2), 100, 100, 0)
	y.Channel = "YDX"

	tests := []struct {
		name   string
		traces []RawTrace
		want   []Gap
	}{
		{name: "single trace", traces: []RawTrace{a}},
		{name: "in order", traces: []RawTrace{a, b, c}, want: []Gap{{After: 0, Seconds: 0}, {After: 1, Seconds: 5}}},
		{name: "out of order", traces: []RawTrace{c, a, b}, want: []Gap{{After: 1, Seconds: 0}, {After: 2, Seconds: 5}}},
		{name: "two streams", traces: []RawTrace{a, x, b, y}, want: []Gap{{After: 0, Seconds: 0}, {After: 1, Seconds: 2}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Gaps(tc.traces)
			if len(got) != len(tc.want) {
				t.Fatalf("gaps: got %+v, want %+v", got, tc.want)
			}
			for i := range got {
				if got[i].After != tc.want[i].After || math.Abs(got[i].Seconds-tc.want[i].Seconds) > 1e-6 {
					t.Fatalf("gap %d: got %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestReconstructParams_Validate(t *testing.T) {
	valid := ReconstructParams{Encoding: EncodingPCM32, Repair: DefaultRepairParams(), Concurrency: 4}
	tests := []struct {
		name   string
		mutate func(p *ReconstructParams)
	}{
		{name: "unsupported encoding", mutate: func(p *ReconstructParams) { p.Encoding = "PCM_16" }},
		{name: "zero concurrency", mutate: func(p *ReconstructParams) { p.Concurrency = 0 }},
		{name: "negative jitter", mutate: func(p *ReconstructParams) { p.Repair.JitterTolerance = -1 }},
		{name: "zero gap tolerance", mutate: func(p *ReconstructParams) { p.Repair.GapTolerance = 0 }},
		{name: "zero sample rate", mutate: func(p *ReconstructParams) { p.Repair.SampleRate = 0 }},
		{name: "zero duration", mutate: func(p *ReconstructParams) { p.Repair.Duration = 0 }},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestParseEncoding(t *testing.T) {
	for _, in := range []string{"PCM_32", "pcm_24", " FLOAT "} {
		if _, err := ParseEncoding(in); err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
	}
	if _, err := ParseEncoding("PCM_16"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if EncodingPCM24.SampleType() != SampleInt32 || EncodingFloat.SampleType() != SampleFloat64 {
		t.Fatalf("unexpected sample type mapping")
	}
}
