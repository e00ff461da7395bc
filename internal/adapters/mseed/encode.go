package mseed

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
)

const (
	DefaultRecordLength = 4096

	// fixed header, then blockettes 1000 (48), 1001 (56) and 100 (64),
	// data aligned to the next frame boundary
	b1000Offset = 48
	b1001Offset = 56
	b100Offset  = 64
	dataOffset  = 128
)

// EncodeOptions controls Encode.
type EncodeOptions struct {
	RecordLength int  // power of two, 256 to 65536
	Quality      byte // D, R, Q or M
}

// Encode writes tr as big-endian INT32 (int samples) or FLOAT64 (float
// samples) records. Each record carries blockette 1000, blockette 1001 for
// microsecond start times and blockette 100 for the exact sample rate.
func Encode(tr domain.RawTrace, opts EncodeOptions) ([]byte, error) {
	if opts.RecordLength == 0 {
		opts.RecordLength = DefaultRecordLength
	}
	if opts.Quality == 0 {
		opts.Quality = 'D'
	}
	exp := recordExponent(opts.RecordLength)
	if exp == 0 {
		return nil, fmt.Errorf("mseed: record length %d is not a power of two between 256 and 65536", opts.RecordLength)
	}
	if tr.SampleRate <= 0 {
		return nil, fmt.Errorf("mseed: sample rate must be positive, got %v", tr.SampleRate)
	}
	if len(tr.Network) > 2 || len(tr.Station) > 5 || len(tr.Location) > 2 || len(tr.Channel) > 3 {
		return nil, fmt.Errorf("mseed: stream id %q does not fit the fixed header", tr.ID())
	}

	encoding, width := byte(EncodingInt32), 4
	if tr.Samples.Type == domain.SampleFloat64 {
		encoding, width = EncodingFloat64, 8
	}
	perRecord := (opts.RecordLength - dataOffset) / width
	total := tr.Samples.Len()
	records := (total + perRecord - 1) / perRecord

	out := make([]byte, 0, records*opts.RecordLength)
	for r := 0; r < records; r++ {
		first := r * perRecord
		n := min(perRecord, total-first)
		rec := make([]byte, opts.RecordLength)
		writeHeader(rec, recordSpec{
			Sequence:     r + 1,
			Quality:      opts.Quality,
			Network:      tr.Network,
			Station:      tr.Station,
			Location:     tr.Location,
			Channel:      tr.Channel,
			Start:        sampleTime(tr.Start, first, tr.SampleRate),
			NumSamples:   n,
			SampleRate:   tr.SampleRate,
			Encoding:     encoding,
			RecordLength: opts.RecordLength,
			DataOffset:   dataOffset,
			Order:        binary.BigEndian,
		})
		payload := rec[dataOffset:]
		for i := 0; i < n; i++ {
			if encoding == EncodingFloat64 {
				binary.BigEndian.PutUint64(payload[i*8:], math.Float64bits(tr.Samples.Floats[first+i]))
			} else {
				binary.BigEndian.PutUint32(payload[i*4:], uint32(tr.Samples.Ints[first+i]))
			}
		}
		out = append(out, rec...)
	}
	return out, nil
}

func sampleTime(start time.Time, index int, rate float64) time.Time {
	offset := time.Duration(float64(index) / rate * float64(time.Second))
	return start.Add(offset).Round(time.Microsecond)
}

// recordSpec describes one record header.
type recordSpec struct {
	Sequence     int
	Quality      byte
	Network      string
	Station      string
	Location     string
	Channel      string
	Start        time.Time
	NumSamples   int
	SampleRate   float64
	Encoding     byte
	RecordLength int
	DataOffset   int
	Order        binary.ByteOrder
}

// writeHeader fills the fixed header and the three blockettes of buf.
func writeHeader(buf []byte, s recordSpec) {
	o := s.Order
	copy(buf[0:6], fmt.Sprintf("%06d", s.Sequence%1000000))
	buf[6] = s.Quality
	buf[7] = ' '
	copy(buf[8:13], pad(s.Station, 5))
	copy(buf[13:15], pad(s.Location, 2))
	copy(buf[15:18], pad(s.Channel, 3))
	copy(buf[18:20], pad(s.Network, 2))

	t := s.Start.UTC()
	us := t.Nanosecond() / 1000
	o.PutUint16(buf[20:22], uint16(t.Year()))
	o.PutUint16(buf[22:24], uint16(t.YearDay()))
	buf[24] = byte(t.Hour())
	buf[25] = byte(t.Minute())
	buf[26] = byte(t.Second())
	buf[27] = 0
	o.PutUint16(buf[28:30], uint16(us/100))

	factor, mult := rateFactors(s.SampleRate)
	o.PutUint16(buf[30:32], uint16(s.NumSamples))
	o.PutUint16(buf[32:34], uint16(factor))
	o.PutUint16(buf[34:36], uint16(mult))
	buf[36], buf[37], buf[38] = 0, 0, 0
	buf[39] = 3
	o.PutUint32(buf[40:44], 0)
	o.PutUint16(buf[44:46], uint16(s.DataOffset))
	o.PutUint16(buf[46:48], b1000Offset)

	o.PutUint16(buf[b1000Offset:], 1000)
	o.PutUint16(buf[b1000Offset+2:], b1001Offset)
	buf[b1000Offset+4] = s.Encoding
	if o == binary.BigEndian {
		buf[b1000Offset+5] = 1
	}
	buf[b1000Offset+6] = recordExponent(s.RecordLength)

	o.PutUint16(buf[b1001Offset:], 1001)
	o.PutUint16(buf[b1001Offset+2:], b100Offset)
	buf[b1001Offset+4] = 100 // timing quality
	buf[b1001Offset+5] = byte(int8(us % 100))

	o.PutUint16(buf[b100Offset:], 100)
	o.PutUint16(buf[b100Offset+2:], 0)
	o.PutUint32(buf[b100Offset+4:], math.Float32bits(float32(s.SampleRate)))
}

// rateFactors expresses rate as a SEED factor/multiplier pair. Rates that
// cannot be expressed exactly rely on blockette 100.
func rateFactors(rate float64) (int16, int16) {
	if rate >= 1 && rate == math.Trunc(rate) {
		for m := 1.0; m <= math.MaxInt16; m++ {
			if f := rate / m; f <= math.MaxInt16 && f == math.Trunc(f) {
				return int16(f), int16(m)
			}
		}
	}
	if rate > 0 && rate < 1 {
		if period := math.Round(1 / rate); period <= math.MaxInt16 {
			return int16(-period), 1
		}
	}
	return 0, 0
}

func recordExponent(length int) byte {
	for e := byte(8); e <= 16; e++ {
		if 1<<e == length {
			return e
		}
	}
	return 0
}

func pad(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}
