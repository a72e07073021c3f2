package codec

import (
	"encoding/binary"
	"sort"

	"github.com/tk2k-project/tk2k/internal/bitio"
	"github.com/tk2k-project/tk2k/internal/model"
)

// Arithmetic coding follows compression.cpp's AC_make/AC_reverse (order-0)
// and AC2_make/AC2_reverse (order-1): a 32-bit range coder with half/quarter
// renormalization and an underflow ("E3 scaling") counter. The original
// scales products with `long double` and `roundl()`; Go has no equivalent
// extended-precision float, so every rounding point here uses exact integer
// round-half-up (roundDivHalfUp) instead. This is not bit-identical to the
// C++ binary output, but it is self-consistent: the same rounding rule is
// used on the encode and decode side, which is what the coder's
// low <= state < high invariant actually depends on.
const (
	acWhole     = model.ACDenominator
	acHalf      = (acWhole + 1) / 2
	acQuarter   = (acWhole + 1) / 4
	acPrecision = 31
)

// roundDivHalfUp computes round(num/den) using exact integer arithmetic,
// replacing the original's roundl((long double)num / den).
func roundDivHalfUp(num, den uint64) uint64 {
	q, r := num/den, num%den
	if 2*r >= den {
		q++
	}
	return q
}

// acTable holds the cumulative mass function for one frequency row: K used
// symbols, lower[i] and upper[i] are the cumulative bounds for the i-th
// symbol in ascending byte order, and alphabet[i] is that symbol's byte.
type acTable struct {
	alphabet []byte
	lower    []uint64
	upper    []uint64
	indexOf  [256]int16 // -1 if the byte never occurs in this row
}

func buildACTable(freq []uint64) *acTable {
	t := &acTable{}
	for i := range t.indexOf {
		t.indexOf[i] = -1
	}
	var sum uint64
	for i, f := range freq {
		if f == 0 {
			continue
		}
		t.indexOf[i] = int16(len(t.alphabet))
		t.alphabet = append(t.alphabet, byte(i))
		t.lower = append(t.lower, sum)
		sum += f
		t.upper = append(t.upper, sum)
	}
	return t
}

// findSymbol returns the smallest j such that predicted < upper[j], mirroring
// std::upper_bound(upper_bound.begin(), upper_bound.end(), predicted_value).
func (t *acTable) findSymbol(predicted uint64) int {
	j := sort.Search(len(t.upper), func(i int) bool { return t.upper[i] > predicted })
	if j >= len(t.upper) {
		j = len(t.upper) - 1
	}
	return j
}

// EncodeAC0 implements order-0 arithmetic coding (AC_make). The returned
// bytes hold the little-endian header
// [compressed_bit_length:4][original_size:4][frequencies: 256*4] followed by
// the bitstream.
func EncodeAC0(text []byte) []byte {
	freq := model.Order0(text)
	t := buildACTable(freq)

	header := make([]byte, 8+256*4)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(text)))
	for i, f := range freq {
		binary.LittleEndian.PutUint32(header[8+i*4:], uint32(f))
	}

	w := bitio.NewWriter(header)
	acEncode(w, text, func(int) *acTable { return t })

	out := w.Flush()
	binary.LittleEndian.PutUint32(out[0:4], uint32(w.BitsWritten()))
	return out
}

// DecodeAC0 reverses EncodeAC0.
func DecodeAC0(encoded []byte) []byte {
	compressedBits := int(binary.LittleEndian.Uint32(encoded[0:4]))
	originalSize := int(binary.LittleEndian.Uint32(encoded[4:8]))

	freq := make([]uint64, 256)
	for i := range freq {
		freq[i] = uint64(binary.LittleEndian.Uint32(encoded[8+i*4:]))
	}
	t := buildACTable(freq)

	r := bitio.NewReader(encoded, compressedBits, 8+256*4)
	return acDecode(r, compressedBits, originalSize, func(int, byte) *acTable { return t }, 0)
}

// EncodeAC1 implements order-1 arithmetic coding (AC2_make): text[0] is
// stored verbatim, and each subsequent byte is coded against the frequency
// row conditioned on the preceding byte. The header is
// [compressed_bit_length:4][original_size:4][frequencies: 256*256*4][first_byte:1].
func EncodeAC1(text []byte) []byte {
	if len(text) == 0 {
		header := make([]byte, 8+256*256*4+1)
		binary.LittleEndian.PutUint32(header[4:8], 0)
		w := bitio.NewWriter(header)
		out := w.Flush()
		binary.LittleEndian.PutUint32(out[0:4], uint32(w.BitsWritten()))
		return out
	}

	rows := model.Order1(text)
	tables := make([]*acTable, 256)
	for i, row := range rows {
		tables[i] = buildACTable(row)
	}

	header := make([]byte, 8+256*256*4+1)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(text)))
	for r, row := range rows {
		for i, f := range row {
			if f != 0 {
				binary.LittleEndian.PutUint32(header[8+r*256*4+i*4:], uint32(f))
			}
		}
	}
	header[8+256*256*4] = text[0]

	if len(text) == 1 {
		w := bitio.NewWriter(header)
		out := w.Flush()
		binary.LittleEndian.PutUint32(out[0:4], uint32(w.BitsWritten()))
		return out
	}

	w := bitio.NewWriter(header)
	acEncode(w, text[1:], func(i int) *acTable { return tables[text[i]] })

	out := w.Flush()
	binary.LittleEndian.PutUint32(out[0:4], uint32(w.BitsWritten()))
	return out
}

// DecodeAC1 reverses EncodeAC1.
func DecodeAC1(encoded []byte) []byte {
	compressedBits := int(binary.LittleEndian.Uint32(encoded[0:4]))
	originalSize := int(binary.LittleEndian.Uint32(encoded[4:8]))
	if originalSize == 0 {
		return nil
	}

	tables := make([]*acTable, 256)
	for rIdx := 0; rIdx < 256; rIdx++ {
		row := make([]uint64, 256)
		base := 8 + rIdx*256*4
		for i := 0; i < 256; i++ {
			row[i] = uint64(binary.LittleEndian.Uint32(encoded[base+i*4:]))
		}
		tables[rIdx] = buildACTable(row)
	}
	firstByte := encoded[8+256*256*4]

	out := make([]byte, 1, originalSize)
	out[0] = firstByte
	if originalSize == 1 {
		return out
	}

	r := bitio.NewReader(encoded, compressedBits, 8+256*256*4+1)
	rest := acDecode(r, compressedBits, originalSize-1, func(_ int, prev byte) *acTable {
		return tables[prev]
	}, firstByte)
	return append(out, rest...)
}

// acEncode runs the shared range-coder loop. tableAt(i) returns the CMF to
// use when coding text[i] (constant for order-0, keyed by text[i-1] for
// order-1 via the closure's own indexing).
func acEncode(w *bitio.Writer, text []byte, tableAt func(i int) *acTable) {
	low, high := uint64(0), acWhole
	state := uint32(0)

	for i, b := range text {
		t := tableAt(i)
		j := t.indexOf[b]
		width := high - low
		high = low + roundDivHalfUp(t.upper[j]*width, acWhole)
		low = low + roundDivHalfUp(t.lower[j]*width, acWhole)

		for high < acHalf || low >= acHalf {
			if high < acHalf {
				w.WriteBit(false)
				w.WriteBits(true, int(state))
				state = 0
				low *= 2
				high *= 2
			} else {
				w.WriteBit(true)
				w.WriteBits(false, int(state))
				state = 0
				low = 2 * (low - acHalf)
				high = 2 * (high - acHalf)
			}
		}

		for low >= acQuarter && high < 3*acQuarter {
			state++
			low = 2 * (low - acQuarter)
			high = 2 * (high - acQuarter)
		}
	}

	state++
	if low <= acQuarter {
		w.WriteBit(false)
		w.WriteBits(true, int(state))
	} else {
		w.WriteBit(true)
		w.WriteBits(false, int(state))
	}
}

// acDecode runs the shared range-decoder loop, producing count further
// symbols beyond any already-known prefix (order-1 seeds prev with the
// verbatim first byte; order-0 ignores prev). tableAt(i, prev) returns the
// CMF to decode the i-th produced symbol (0-indexed within this call).
func acDecode(r *bitio.Reader, compressedBits, count int, tableAt func(i int, prev byte) *acTable, prev byte) []byte {
	low, high := uint64(0), acWhole
	state := uint64(0)

	i := 0
	for i <= acPrecision && i < compressedBits {
		if r.ReadBit() {
			state += uint64(1) << uint(acPrecision-i)
		}
		i++
	}

	out := make([]byte, 0, count)
	for n := 0; n < count; n++ {
		t := tableAt(n, prev)
		width := high - low

		predicted := (state - low) * acWhole / width
		j := t.findSymbol(predicted)

		newHigh := low + roundDivHalfUp(t.upper[j]*width, acWhole)
		if newHigh <= state {
			j++
			newHigh = low + roundDivHalfUp(t.upper[j]*width, acWhole)
		}
		newLow := low + roundDivHalfUp(t.lower[j]*width, acWhole)

		b := t.alphabet[j]
		out = append(out, b)
		prev = b

		low, high = newLow, newHigh
		if n == count-1 {
			break
		}

		for high < acHalf || low >= acHalf {
			if high < acHalf {
				low *= 2
				high *= 2
				state *= 2
			} else {
				low = (low - acHalf) * 2
				high = (high - acHalf) * 2
				state = (state - acHalf) * 2
			}
			if i < compressedBits {
				if r.ReadBit() {
					state++
				}
				i++
			}
		}
		for low >= acQuarter && high < 3*acQuarter {
			low = (low - acQuarter) * 2
			high = (high - acQuarter) * 2
			state = (state - acQuarter) * 2
			if i < compressedBits {
				if r.ReadBit() {
					state++
				}
				i++
			}
		}
	}
	return out
}
