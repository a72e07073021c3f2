package codec

// MTF performs a move-to-front transform, per spec.md §4.5 and
// Compression::MTF_make in compression.cpp: the alphabet actually present
// in text is built once (in ascending byte order), then each input byte is
// replaced by its current position in that ordered alphabet before being
// moved to the front. The output is len(text)+32 bytes: the encoded stream
// followed by a 32-byte bitmap (MSB-first within each byte) recording which
// of the 256 possible bytes occurred, needed by the inverse to rebuild the
// starting alphabet.
func MTF(text []byte) []byte {
	var present [256]bool
	for _, b := range text {
		present[b] = true
	}

	alphabet := make([]byte, 0, 256)
	for i := 0; i < 256; i++ {
		if present[i] {
			alphabet = append(alphabet, byte(i))
		}
	}

	out := make([]byte, len(text)+32)
	for i, b := range text {
		pos := indexOf(alphabet, b)
		out[i] = byte(pos)
		if pos != 0 {
			copy(alphabet[1:pos+1], alphabet[:pos])
			alphabet[0] = b
		}
	}

	for i := 0; i < 32; i++ {
		var bitmapByte byte
		for k := 0; k < 8; k++ {
			bitmapByte <<= 1
			if present[i*8+k] {
				bitmapByte++
			}
		}
		out[len(text)+i] = bitmapByte
	}
	return out
}

func indexOf(alphabet []byte, b byte) int {
	for i, c := range alphabet {
		if c == b {
			return i
		}
	}
	return -1
}

// InverseMTF reverses MTF. encoded must be at least 32 bytes.
func InverseMTF(encoded []byte) []byte {
	textLength := len(encoded) - 32
	bitmap := encoded[textLength:]

	alphabet := make([]byte, 0, 256)
	for i := 0; i < 32; i++ {
		b := bitmap[i]
		for k := 0; k < 8; k++ {
			if b&(1<<uint(7-k)) != 0 {
				alphabet = append(alphabet, byte(i*8+k))
			}
		}
	}

	out := make([]byte, textLength)
	for i := 0; i < textLength; i++ {
		pos := int(encoded[i])
		b := alphabet[pos]
		if pos != 0 {
			copy(alphabet[1:pos+1], alphabet[:pos])
			alphabet[0] = b
		}
		out[i] = b
	}
	return out
}
