package codec

import (
	"encoding/binary"
	"sort"

	"github.com/tk2k-project/tk2k/internal/model"
)

// rANS (range Asymmetric Numeral Systems) coding, ported from
// Compression::rANS_make/rANS_reverse in compression.cpp. Unlike the
// arithmetic coder, rANS normalizes frequencies to exactly 2^32
// (model.ANSDenominator) and works around the one symbol that can't be
// represented in a uint32 state update (a lone symbol with probability
// 2^32) via the `(p_i << 32) - 1` trick below.
//
// Encoded layout: [original_size:4][used_symbol_bitmap:32]
// [per-used-symbol count:3 bytes, ascending byte order][state stack:4*N,
// little-endian uint32, bottom of stack first].

// EncodeRANS compresses text with order-0 rANS. text must be non-empty.
func EncodeRANS(text []byte) []byte {
	counts := model.CountBytes(text)

	var indexOfChar [256]int
	var trimmedPMF []uint64
	for i, c := range counts {
		if c != 0 {
			indexOfChar[i] = len(trimmedPMF)
			trimmedPMF = append(trimmedPMF, c)
		}
	}
	model.Normalize(trimmedPMF, model.ANSDenominator, uint64(len(text)))

	cmf := make([]uint64, len(trimmedPMF)+1)
	for i, p := range trimmedPMF {
		cmf[i+1] = cmf[i] + p
	}

	var rawCount [256]uint32
	for _, b := range text {
		rawCount[b]++
	}

	state := uint64(1) << 32
	stack := make([]uint32, 0, len(text)+10)

	for i := len(text) - 1; i >= 0; i-- {
		x := indexOfChar[text[i]]
		pI := trimmedPMF[x]
		prob := (pI << 32) - 1

		for state >= prob {
			stack = append(stack, uint32(state&0xFFFFFFFF))
			state >>= 32
		}

		state = ((state/pI)<<32 + state%pI) + cmf[x]
	}
	stack = append(stack, uint32(state&0xFFFFFFFF))
	stack = append(stack, uint32((state>>32)&0xFFFFFFFF))

	out := make([]byte, 4+32+len(trimmedPMF)*3+len(stack)*4)
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(text)))

	for i := 0; i < 4; i++ {
		var used uint64
		for j := 0; j < 64; j++ {
			if rawCount[i*64+j] != 0 {
				used |= uint64(1) << uint(j)
			}
		}
		binary.LittleEndian.PutUint64(out[4+i*8:], used)
	}

	saved := 0
	base := 4 + 32
	for i := 0; i < 256; i++ {
		if rawCount[i] == 0 {
			continue
		}
		c := rawCount[i]
		out[base+saved*3+0] = byte(c)
		out[base+saved*3+1] = byte(c >> 8)
		out[base+saved*3+2] = byte(c >> 16)
		saved++
	}

	stackBase := base + saved*3
	for i, s := range stack {
		binary.LittleEndian.PutUint32(out[stackBase+i*4:], s)
	}
	return out
}

// DecodeRANS reverses EncodeRANS.
func DecodeRANS(encoded []byte) []byte {
	originalSize := int(binary.LittleEndian.Uint32(encoded[0:4]))

	var charUsed [256]bool
	usedCharCount := 0
	for i := 0; i < 4; i++ {
		used := binary.LittleEndian.Uint64(encoded[4+8*i:])
		for j := 0; j < 64; j++ {
			if used&(uint64(1)<<uint(j)) != 0 {
				charUsed[i*64+j] = true
				usedCharCount++
			}
		}
	}

	index2char := make([]byte, usedCharCount)
	pmf := make([]uint64, 0, usedCharCount)
	base := 4 + 32
	usedFound := 0
	for i := 0; i < 256; i++ {
		if !charUsed[i] {
			continue
		}
		off := base + 3*usedFound
		c := uint32(encoded[off]) | uint32(encoded[off+1])<<8 | uint32(encoded[off+2])<<16
		pmf = append(pmf, uint64(c))
		index2char[usedFound] = byte(i)
		usedFound++
	}
	model.Normalize(pmf, model.ANSDenominator, 0)

	cmf := make([]uint64, usedFound+1)
	for i, p := range pmf {
		cmf[i+1] = cmf[i] + p
	}

	stackBase := base + usedFound*3
	stackWords := (len(encoded) - stackBase) / 4
	stack := make([]uint32, stackWords)
	for i := 0; i < stackWords; i++ {
		stack[i] = binary.LittleEndian.Uint32(encoded[stackBase+i*4:])
	}

	stackI := stackWords
	pop := func() uint32 {
		stackI--
		return stack[stackI]
	}

	state := uint64(pop())
	state <<= 32
	state += uint64(pop())

	const limit = uint64(1) << 32
	decoded := make([]byte, originalSize)
	for it := 0; it < originalSize; it++ {
		stateMod := state & 0xFFFFFFFF
		i := sort.Search(len(cmf), func(k int) bool { return cmf[k] > stateMod }) - 1

		previousState := pmf[i]*(state>>32) + stateMod - cmf[i]
		if previousState < limit {
			previousState = (previousState << 32) + uint64(pop())
			for previousState < limit {
				previousState = (previousState << 32) + uint64(pop())
			}
		}
		state = previousState
		decoded[it] = index2char[i]
	}
	return decoded
}
