package mseed

import (
	"encoding/binary"
	"fmt"
	"log"
)

// decodeSteim unpacks n samples of Steim1 (level 1) or Steim2 (level 2)
// compressed frames. Each 64 byte frame holds a control word and 15 data
// words; the first frame also carries the forward and reverse integration
// constants in words 1 and 2.
func decodeSteim(data []byte, order binary.ByteOrder, n, level int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	frames := len(data) / frameSize
	if frames == 0 {
		return nil, fmt.Errorf("%w: steim%d payload of %d bytes holds no frame", ErrInvalidRecord, level, len(data))
	}

	var x0, xn int32
	diffs := make([]int32, 0, n+7)
	for f := 0; f < frames && len(diffs) < n; f++ {
		frame := data[f*frameSize : (f+1)*frameSize]
		ctrl := order.Uint32(frame[0:4])
		for w := 1; w < 16; w++ {
			word := order.Uint32(frame[w*4 : w*4+4])
			if f == 0 && w == 1 {
				x0 = int32(word)
				continue
			}
			if f == 0 && w == 2 {
				xn = int32(word)
				continue
			}
			nibble := (ctrl >> (30 - 2*uint(w))) & 0x3
			var err error
			if level == 1 {
				diffs, err = steim1Word(diffs, nibble, word)
			} else {
				diffs, err = steim2Word(diffs, nibble, word)
			}
			if err != nil {
				return nil, fmt.Errorf("%w: steim%d frame %d word %d: %v", ErrInvalidRecord, level, f, w, err)
			}
		}
	}
	if len(diffs) < n {
		return nil, fmt.Errorf("%w: steim%d frames hold %d of %d samples", ErrInvalidRecord, level, len(diffs), n)
	}

	// the first difference refers to the previous record and is ignored
	out := make([]int32, n)
	out[0] = x0
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + diffs[i]
	}
	if out[n-1] != xn {
		log.Printf("WARN mseed: steim%d reverse integration constant mismatch: last sample %d, expected %d", level, out[n-1], xn)
	}
	return out, nil
}

func steim1Word(diffs []int32, nibble, word uint32) ([]int32, error) {
	switch nibble {
	case 0:
		return diffs, nil
	case 1:
		return unpack(diffs, word, 4, 8), nil
	case 2:
		return unpack(diffs, word, 2, 16), nil
	default:
		return append(diffs, int32(word)), nil
	}
}

func steim2Word(diffs []int32, nibble, word uint32) ([]int32, error) {
	dnib := word >> 30
	switch nibble {
	case 0:
		return diffs, nil
	case 1:
		return unpack(diffs, word, 4, 8), nil
	case 2:
		switch dnib {
		case 1:
			return unpack(diffs, word, 1, 30), nil
		case 2:
			return unpack(diffs, word, 2, 15), nil
		case 3:
			return unpack(diffs, word, 3, 10), nil
		}
	case 3:
		switch dnib {
		case 0:
			return unpack(diffs, word, 5, 6), nil
		case 1:
			return unpack(diffs, word, 6, 5), nil
		case 2:
			return unpack(diffs, word, 7, 4), nil
		}
	}
	return diffs, fmt.Errorf("invalid nibble %d with decode nibble %d", nibble, dnib)
}

// unpack appends count sign-extended fields of width bits, most significant
// field first, from the low count*bits bits of word.
func unpack(dst []int32, word uint32, count, bits uint) []int32 {
	mask := uint32(1)<<bits - 1
	for k := uint(0); k < count; k++ {
		shift := (count - 1 - k) * bits
		dst = append(dst, signExtend((word>>shift)&mask, bits))
	}
	return dst
}

func signExtend(v uint32, bits uint) int32 {
	return int32(v<<(32-bits)) >> (32 - bits)
}
