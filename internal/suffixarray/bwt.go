package suffixarray

import "encoding/binary"

// sentinelSubstitute is emitted at L's sentinel row instead of the (logically
// out-of-alphabet) terminator byte. spec.md §4.4/§9 leaves this choice
// unconstrained ("the sentinel position is replaced by any valid in-range
// byte... any value is acceptable because the primary index recovers the
// mapping"); SPEC_FULL.md's Open Question 3 fixes it at 0x00 for
// determinism.
const sentinelSubstitute = 0x00

// BWT computes the Burrows-Wheeler transform of text via DC3 suffix array
// construction, per spec.md §4.4. The output is len(text)+5 bytes: the
// transformed text (len(text)+1 bytes) followed by the little-endian
// 4-byte primary index.
func BWT(text []byte) []byte {
	n := int32(len(text))

	// Map the alphabet to [1, 256] and append a 0 sentinel, which sorts
	// before every real byte.
	s := make([]int32, n+1)
	for i, b := range text {
		s[i] = int32(b) + 1
	}
	s[n] = 0

	sa := Build(s, 256)

	out := make([]byte, n+1+4)
	var primaryIndex int32
	for i := int32(0); i <= n; i++ {
		if sa[i] == 0 {
			primaryIndex = i
			out[i] = sentinelSubstitute
			continue
		}
		out[i] = text[sa[i]-1]
	}
	binary.LittleEndian.PutUint32(out[n+1:], uint32(primaryIndex))
	return out
}

// InverseBWT reverses BWT, reconstructing the original text. encoded must
// be at least 5 bytes (an empty original text encodes to exactly 5 bytes:
// the sentinel-substitute row plus the primary index).
//
// This is a direct port of Compression::BWT_reverse's L-F mapping from
// compression.cpp: build enum[i] (how many occurrences of L[i] precede
// position i, skipping the row holding the sentinel), derive
// firstOccurrence from cumulative counts, then walk backwards from the
// primary index.
func InverseBWT(encoded []byte) []byte {
	encodedLength := len(encoded) - 4
	eofPosition := int(binary.LittleEndian.Uint32(encoded[encodedLength:]))
	l := encoded[:encodedLength]

	var sc [256]int
	enumeration := make([]int, encodedLength)
	for i := 0; i < eofPosition; i++ {
		enumeration[i] = sc[l[i]]
		sc[l[i]]++
	}
	for i := eofPosition + 1; i < encodedLength; i++ {
		enumeration[i] = sc[l[i]]
		sc[l[i]]++
	}

	var sumSC [256]int
	sumSC[0] = 1
	for i := 1; i < 256; i++ {
		sumSC[i] = sumSC[i-1] + sc[i-1]
	}

	decodedLength := encodedLength - 1
	decoded := make([]byte, decodedLength)
	if decodedLength == 0 {
		return decoded
	}

	decoded[decodedLength-1] = l[0]
	nextSignIndex := 0
	for i := 1; i < decodedLength; i++ {
		previousSign := l[nextSignIndex]
		nextSignIndex = sumSC[previousSign] + enumeration[nextSignIndex]
		decoded[decodedLength-i-1] = l[nextSignIndex]
	}
	return decoded
}
