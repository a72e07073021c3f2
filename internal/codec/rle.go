package codec

// RLE performs the RLE-v2 transform from spec.md §4.5 (Compression::RLE_makeV2
// in compression.cpp): runs of identical bytes (capped at length 255) are
// split into a length-prefix array and a parallel characters array. If the
// combined arrays would not be meaningfully smaller than the input
// (len(lengths)+len(chars) > (2/3)*len(text)), RLE is abandoned and the
// original bytes are returned with a 0x00 marker prefix instead.
func RLE(text []byte) []byte {
	if len(text) == 0 {
		return []byte{0xFF}
	}

	var lengths, chars []byte
	counter := byte(0)
	for i := 1; i <= len(text); i++ {
		counter++
		if i == len(text) || text[i-1] != text[i] || counter == 255 {
			chars = append(chars, text[i-1])
			lengths = append(lengths, counter)
			counter = 0
		}
	}

	if (len(lengths)+len(chars))*3 > len(text)*2 {
		out := make([]byte, len(text)+1)
		out[0] = 0x00
		copy(out[1:], text)
		return out
	}

	out := make([]byte, 1+len(lengths)+len(chars))
	out[0] = 0xFF
	copy(out[1:], lengths)
	copy(out[1+len(lengths):], chars)
	return out
}

// InverseRLE reverses RLE.
func InverseRLE(encoded []byte) []byte {
	if encoded[0] == 0xFF {
		runs := (len(encoded) - 1) / 2
		lengths := encoded[1 : 1+runs]
		chars := encoded[1+runs:]

		total := 0
		for _, l := range lengths {
			total += int(l)
		}
		out := make([]byte, 0, total)
		for i := 0; i < runs; i++ {
			for j := byte(0); j < lengths[i]; j++ {
				out = append(out, chars[i])
			}
		}
		return out
	}
	if encoded[0] == 0x00 {
		out := make([]byte, len(encoded)-1)
		copy(out, encoded[1:])
		return out
	}
	panic("codec: RLE trailer was neither 0xFF nor 0x00")
}
