package mseed

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

// Codec adapts Decode to ports.Decoder.
type Codec struct{}

func (Codec) Decode(raw []byte, sampleType domain.SampleType) ([]domain.RawTrace, error) {
	return Decode(raw, sampleType)
}

// Decode parses every data record in raw and joins records of the same
// stream into traces. A record continues the latest trace of its stream when
// it starts within half a sample of where that trace is expected to continue;
// any other record starts a new trace. Traces are returned in the order their
// first record appears.
func Decode(raw []byte, sampleType domain.SampleType) ([]domain.RawTrace, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidRecord)
	}

	var b traceBuilder
	for off := 0; off < len(raw); {
		if padding(raw[off:]) {
			break
		}
		h, err := parseHeader(raw[off:])
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", off, err)
		}
		rec := raw[off : off+h.RecordLength]
		off += h.RecordLength

		rate := h.SampleRate()
		if h.NumSamples == 0 || rate <= 0 {
			// log, timing or end-of-detection records carry no waveform
			continue
		}
		samples, err := decodeSamples(h, rec)
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", off-h.RecordLength, err)
		}
		b.add(h, rate, convert(samples, sampleType))
	}

	if len(b.traces) == 0 {
		return nil, fmt.Errorf("%w: no data records", ErrInvalidRecord)
	}
	return b.traces, nil
}

func decodeSamples(h header, rec []byte) (domain.Samples, error) {
	if !h.HasB1000 {
		return domain.Samples{}, fmt.Errorf("%w: data record without blockette 1000", ErrInvalidRecord)
	}
	payload := rec[h.DataOffset:]
	n := h.NumSamples
	order := h.WordOrder

	switch h.Encoding {
	case EncodingInt16:
		if err := need(payload, n*2); err != nil {
			return domain.Samples{}, err
		}
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(int16(order.Uint16(payload[i*2:])))
		}
		return domain.IntSamples(out), nil
	case EncodingInt32:
		if err := need(payload, n*4); err != nil {
			return domain.Samples{}, err
		}
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(order.Uint32(payload[i*4:]))
		}
		return domain.IntSamples(out), nil
	case EncodingFloat32:
		if err := need(payload, n*4); err != nil {
			return domain.Samples{}, err
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(math.Float32frombits(order.Uint32(payload[i*4:])))
		}
		return domain.FloatSamples(out), nil
	case EncodingFloat64:
		if err := need(payload, n*8); err != nil {
			return domain.Samples{}, err
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(payload[i*8:]))
		}
		return domain.FloatSamples(out), nil
	case EncodingSteim1, EncodingSteim2:
		if h.FrameCount > 0 && h.FrameCount*frameSize < len(payload) {
			payload = payload[:h.FrameCount*frameSize]
		}
		out, err := decodeSteim(payload, order, n, int(h.Encoding)-EncodingSteim1+1)
		if err != nil {
			return domain.Samples{}, err
		}
		return domain.IntSamples(out), nil
	}
	return domain.Samples{}, fmt.Errorf("%w: unsupported encoding %d", ErrInvalidRecord, h.Encoding)
}

func need(payload []byte, n int) error {
	if len(payload) < n {
		return fmt.Errorf("%w: payload of %d bytes, need %d", ErrInvalidRecord, len(payload), n)
	}
	return nil
}

// convert maps decoded samples onto the requested in-memory type. Float data
// requested as integers is rounded and clamped to the int32 range.
func convert(s domain.Samples, want domain.SampleType) domain.Samples {
	if s.Type == want {
		return s
	}
	if want == domain.SampleFloat64 {
		out := make([]float64, len(s.Ints))
		for i, v := range s.Ints {
			out[i] = float64(v)
		}
		return domain.FloatSamples(out)
	}
	out := make([]int32, len(s.Floats))
	for i, v := range s.Floats {
		switch r := math.Round(v); {
		case math.IsNaN(r):
			out[i] = 0
		case r > math.MaxInt32:
			out[i] = math.MaxInt32
		case r < math.MinInt32:
			out[i] = math.MinInt32
		default:
			out[i] = int32(r)
		}
	}
	return domain.IntSamples(out)
}

// padding reports trailing filler after the last record.
func padding(b []byte) bool {
	return len(bytes.Trim(b, "\x00 ")) == 0
}

type streamKey struct {
	id   string
	rate float64
}

type traceBuilder struct {
	traces []domain.RawTrace
	latest map[streamKey]int
}

func (b *traceBuilder) add(h header, rate float64, samples domain.Samples) {
	if b.latest == nil {
		b.latest = make(map[streamKey]int)
	}
	key := streamKey{id: h.StreamID(), rate: rate}
	if i, ok := b.latest[key]; ok && continues(b.traces[i], h.Start) {
		tr := &b.traces[i]
		tr.Samples.Ints = append(tr.Samples.Ints, samples.Ints...)
		tr.Samples.Floats = append(tr.Samples.Floats, samples.Floats...)
		return
	}
	b.traces = append(b.traces, domain.RawTrace{
		Network:    h.Network,
		Station:    h.Station,
		Location:   h.Location,
		Channel:    h.Channel,
		Start:      h.Start,
		SampleRate: rate,
		Samples:    samples,
	})
	b.latest[key] = len(b.traces) - 1
}

func continues(tr domain.RawTrace, start time.Time) bool {
	expected := tr.End().Add(tr.Delta())
	diff := start.Sub(expected)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tr.Delta()/2
}
