package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Encoding is the numeric subtype requested for decoded samples.
type Encoding string

const (
	EncodingPCM32 Encoding = "PCM_32"
	EncodingPCM24 Encoding = "PCM_24"
	EncodingFloat Encoding = "FLOAT"
)

// ParseEncoding normalizes and validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	e := Encoding(strings.ToUpper(strings.TrimSpace(s)))
	if !e.Valid() {
		return "", fmt.Errorf("%w: unsupported encoding %q (want PCM_32, PCM_24 or FLOAT)", ErrInvalidConfiguration, s)
	}
	return e, nil
}

func (e Encoding) Valid() bool {
	switch e {
	case EncodingPCM32, EncodingPCM24, EncodingFloat:
		return true
	}
	return false
}

// SampleType is the in-memory representation the encoding decodes to.
// Both PCM subtypes decode to int32; the 24-bit reduction belongs to the
// downstream encoder.
func (e Encoding) SampleType() SampleType {
	if e == EncodingFloat {
		return SampleFloat64
	}
	return SampleInt32
}

type SampleType int

const (
	SampleInt32 SampleType = iota
	SampleFloat64
)

func (t SampleType) String() string {
	if t == SampleFloat64 {
		return "float64"
	}
	return "int32"
}

// Samples holds one sample array; only the slice matching Type is populated.
type Samples struct {
	Type   SampleType
	Ints   []int32
	Floats []float64
}

func IntSamples(v []int32) Samples     { return Samples{Type: SampleInt32, Ints: v} }
func FloatSamples(v []float64) Samples { return Samples{Type: SampleFloat64, Floats: v} }

func (s Samples) Len() int {
	if s.Type == SampleFloat64 {
		return len(s.Floats)
	}
	return len(s.Ints)
}

// At returns sample i as float64 regardless of storage type.
func (s Samples) At(i int) float64 {
	if s.Type == SampleFloat64 {
		return s.Floats[i]
	}
	return float64(s.Ints[i])
}

// PeakAbs returns the largest absolute sample value.
func (s Samples) PeakAbs() float64 {
	peak := 0.0
	for i := 0; i < s.Len(); i++ {
		if v := math.Abs(s.At(i)); v > peak {
			peak = v
		}
	}
	return peak
}

// ConcatSamples joins sample arrays in order into a freshly allocated array.
// The inputs are never aliased by the result.
func ConcatSamples(typ SampleType, parts []Samples) Samples {
	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	if typ == SampleFloat64 {
		out := make([]float64, 0, total)
		for _, p := range parts {
			out = append(out, p.Floats...)
		}
		return FloatSamples(out)
	}
	out := make([]int32, 0, total)
	for _, p := range parts {
		out = append(out, p.Ints...)
	}
	return IntSamples(out)
}

// RawTrace is one contiguous run of samples decoded from an interval file.
type RawTrace struct {
	Network    string
	Station    string
	Location   string
	Channel    string
	Start      time.Time
	SampleRate float64
	Samples    Samples
}

// ID returns the SEED stream identifier "NET.STA.LOC.CHA".
func (t RawTrace) ID() string {
	return t.Network + "." + t.Station + "." + t.Location + "." + t.Channel
}

// Delta is the sample period.
func (t RawTrace) Delta() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / t.SampleRate)
}

// End is the timestamp of the last sample.
func (t RawTrace) End() time.Time {
	n := t.Samples.Len()
	if n == 0 || t.SampleRate <= 0 {
		return t.Start
	}
	return t.Start.Add(time.Duration(float64(n-1) / t.SampleRate * float64(time.Second)))
}

// Gap is the span between the end of one trace and the start of the next.
type Gap struct {
	After   int // input index of the trace preceding the gap
	Seconds float64
}

// Gaps lists the gap between every pair of consecutive traces of the same
// stream, ordered by stream ID then start time. The input order is not
// assumed. A positive length is missing time, a negative length is overlap;
// two sample-contiguous traces give zero.
func Gaps(traces []RawTrace) []Gap {
	if len(traces) < 2 {
		return nil
	}
	order := make([]int, len(traces))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := traces[order[i]], traces[order[j]]
		if a.ID() != b.ID() {
			return a.ID() < b.ID()
		}
		return a.Start.Before(b.Start)
	})

	gaps := make([]Gap, 0, len(traces)-1)
	for k := 0; k < len(order)-1; k++ {
		prev, next := traces[order[k]], traces[order[k+1]]
		if prev.ID() != next.ID() {
			continue
		}
		expected := prev.End().Add(prev.Delta())
		gaps = append(gaps, Gap{After: order[k], Seconds: next.Start.Sub(expected).Seconds()})
	}
	return gaps
}
