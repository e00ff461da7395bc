// Package mseed reads and writes SEED 2.x data records (miniSEED), the
// container the OOI raw data archive stores hydrophone intervals in.
package mseed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Data encodings from blockette 1000.
const (
	EncodingASCII   = 0
	EncodingInt16   = 1
	EncodingInt32   = 3
	EncodingFloat32 = 4
	EncodingFloat64 = 5
	EncodingSteim1  = 10
	EncodingSteim2  = 11
)

const (
	fixedHeaderSize = 48
	frameSize       = 64
	minRecordLength = 128
	maxRecordLength = 1 << 16

	// activity flag bit 1: the time correction is already folded into the
	// start time
	flagTimeCorrected = 0x02
)

// ErrInvalidRecord is wrapped by every parse failure.
var ErrInvalidRecord = errors.New("mseed: invalid record")

// header is the fixed section plus the blockettes the decoder understands.
type header struct {
	Quality        byte
	Network        string
	Station        string
	Location       string
	Channel        string
	Start          time.Time
	NumSamples     int
	RateFactor     int16
	RateMultiplier int16
	Activity       byte
	NumBlockettes  int
	TimeCorrection int32 // 0.0001 s
	DataOffset     int
	FirstBlockette int

	Order binary.ByteOrder // header byte order

	// blockette 1000
	HasB1000     bool
	Encoding     byte
	WordOrder    binary.ByteOrder
	RecordLength int

	// blockette 100
	ActualRate float64

	// blockette 1001
	Microseconds int8
	FrameCount   int
}

// SampleRate prefers the exact rate of blockette 100 over the
// factor/multiplier pair.
func (h header) SampleRate() float64 {
	if h.ActualRate > 0 {
		return h.ActualRate
	}
	return nominalRate(h.RateFactor, h.RateMultiplier)
}

func nominalRate(factor, mult int16) float64 {
	f, m := float64(factor), float64(mult)
	switch {
	case factor == 0:
		return 0
	case factor > 0 && mult > 0:
		return f * m
	case factor > 0 && mult < 0:
		return -f / m
	case factor < 0 && mult > 0:
		return -m / f
	case factor < 0 && mult < 0:
		return 1 / (f * m)
	}
	return 0
}

// StreamID is "NET.STA.LOC.CHA".
func (h header) StreamID() string {
	return h.Network + "." + h.Station + "." + h.Location + "." + h.Channel
}

// parseHeader reads the record starting at data[0]. data may extend past the
// record; the returned header's RecordLength says where it ends.
func parseHeader(data []byte) (header, error) {
	var h header
	if len(data) < fixedHeaderSize {
		return h, fmt.Errorf("%w: %d bytes left, need a %d byte header", ErrInvalidRecord, len(data), fixedHeaderSize)
	}
	if !validSequence(data[0:6]) {
		return h, fmt.Errorf("%w: bad sequence number %q", ErrInvalidRecord, data[0:6])
	}
	switch data[6] {
	case 'D', 'R', 'Q', 'M':
	default:
		return h, fmt.Errorf("%w: bad quality indicator %q", ErrInvalidRecord, data[6])
	}

	order, err := detectByteOrder(data)
	if err != nil {
		return h, err
	}
	h.Order = order
	h.Quality = data[6]
	h.Station = field(data[8:13])
	h.Location = field(data[13:15])
	h.Channel = field(data[15:18])
	h.Network = field(data[18:20])

	year := int(order.Uint16(data[20:22]))
	doy := int(order.Uint16(data[22:24]))
	hour, minute, sec := int(data[24]), int(data[25]), int(data[26])
	tenthMs := int(order.Uint16(data[28:30]))
	if hour > 23 || minute > 59 || sec > 60 || tenthMs > 9999 {
		return h, fmt.Errorf("%w: bad start time %d,%03d %02d:%02d:%02d.%04d", ErrInvalidRecord, year, doy, hour, minute, sec, tenthMs)
	}
	h.Start = time.Date(year, 1, doy, hour, minute, sec, tenthMs*100_000, time.UTC)

	h.NumSamples = int(order.Uint16(data[30:32]))
	h.RateFactor = int16(order.Uint16(data[32:34]))
	h.RateMultiplier = int16(order.Uint16(data[34:36]))
	h.Activity = data[36]
	h.NumBlockettes = int(data[39])
	h.TimeCorrection = int32(order.Uint32(data[40:44]))
	h.DataOffset = int(order.Uint16(data[44:46]))
	h.FirstBlockette = int(order.Uint16(data[46:48]))
	h.WordOrder = order

	if err := h.readBlockettes(data); err != nil {
		return h, err
	}
	if h.RecordLength == 0 {
		h.RecordLength = detectRecordLength(data)
	}
	if h.RecordLength < minRecordLength || h.RecordLength > maxRecordLength {
		return h, fmt.Errorf("%w: record length %d", ErrInvalidRecord, h.RecordLength)
	}
	if h.RecordLength > len(data) {
		return h, fmt.Errorf("%w: truncated record: %d of %d bytes", ErrInvalidRecord, len(data), h.RecordLength)
	}
	if h.NumSamples > 0 && (h.DataOffset < fixedHeaderSize || h.DataOffset >= h.RecordLength) {
		return h, fmt.Errorf("%w: data offset %d outside record of %d bytes", ErrInvalidRecord, h.DataOffset, h.RecordLength)
	}

	if h.Activity&flagTimeCorrected == 0 && h.TimeCorrection != 0 {
		h.Start = h.Start.Add(time.Duration(h.TimeCorrection) * 100 * time.Microsecond)
	}
	h.Start = h.Start.Add(time.Duration(h.Microseconds) * time.Microsecond)
	return h, nil
}

func (h *header) readBlockettes(data []byte) error {
	off := h.FirstBlockette
	for i := 0; i < h.NumBlockettes && off != 0; i++ {
		if off < fixedHeaderSize || off+4 > len(data) {
			return fmt.Errorf("%w: blockette offset %d", ErrInvalidRecord, off)
		}
		typ := h.Order.Uint16(data[off : off+2])
		next := int(h.Order.Uint16(data[off+2 : off+4]))
		switch typ {
		case 1000:
			if off+8 > len(data) {
				return fmt.Errorf("%w: short blockette 1000", ErrInvalidRecord)
			}
			h.HasB1000 = true
			h.Encoding = data[off+4]
			if data[off+5] == 0 {
				h.WordOrder = binary.LittleEndian
			} else {
				h.WordOrder = binary.BigEndian
			}
			exp := data[off+6]
			if exp < 7 || exp > 16 {
				return fmt.Errorf("%w: record length exponent %d", ErrInvalidRecord, exp)
			}
			h.RecordLength = 1 << exp
		case 100:
			if off+8 > len(data) {
				return fmt.Errorf("%w: short blockette 100", ErrInvalidRecord)
			}
			h.ActualRate = float64(math.Float32frombits(h.Order.Uint32(data[off+4 : off+8])))
		case 1001:
			if off+8 > len(data) {
				return fmt.Errorf("%w: short blockette 1001", ErrInvalidRecord)
			}
			h.Microseconds = int8(data[off+5])
			h.FrameCount = int(data[off+7])
		}
		if next != 0 && next <= off {
			return fmt.Errorf("%w: blockette chain loops at %d", ErrInvalidRecord, off)
		}
		off = next
	}
	return nil
}

// detectByteOrder picks the order under which the start year and day of
// year are plausible.
func detectByteOrder(data []byte) (binary.ByteOrder, error) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		year := order.Uint16(data[20:22])
		doy := order.Uint16(data[22:24])
		if year >= 1900 && year <= 2100 && doy >= 1 && doy <= 366 {
			return order, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot determine byte order", ErrInvalidRecord)
}

// detectRecordLength finds the length of a record without blockette 1000 by
// looking for the next header at each power of two.
func detectRecordLength(data []byte) int {
	for n := 256; n <= maxRecordLength; n <<= 1 {
		if n == len(data) {
			return n
		}
		if n+fixedHeaderSize <= len(data) && looksLikeHeader(data[n:]) {
			return n
		}
	}
	return 0
}

func looksLikeHeader(data []byte) bool {
	if len(data) < fixedHeaderSize || !validSequence(data[0:6]) {
		return false
	}
	switch data[6] {
	case 'D', 'R', 'Q', 'M':
	default:
		return false
	}
	_, err := detectByteOrder(data)
	return err == nil
}

func validSequence(b []byte) bool {
	for _, c := range b {
		if (c < '0' || c > '9') && c != ' ' {
			return false
		}
	}
	return true
}

func field(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}
