// Package model computes and normalizes symbol-frequency tables for the
// order-0 and order-1 entropy coders (arithmetic coding and rANS), ported
// from misc/model.h in the original tk2k_lib.
package model

// ACDenominator is the fixed sum order-0 and order-1 arithmetic-coding
// frequency tables are normalized to. The original tk2k_lib
// (misc/model.h, namespace AC) normalizes to UINT32_MAX (2^32-1), not
// 2^32: that keeps every entry representable in the 4-byte frequency
// field spec.md §4.5 describes, which a literal 2^32 could not do for a
// single-symbol block (its lone entry would have to be 2^32, one past
// the field's range). rANS normalizes to 2^32 exactly instead (see
// ANSDenominator) and absorbs that edge case differently (compression.cpp,
// Compression::rANS_make's `(p_i << 32) - 1`). spec.md §8 invariant 4
// ("sum of frequencies after normalization equals 2^32") is a property of
// Normalize itself for an arbitrary upperLimit, not specifically of AC.
const ACDenominator = uint64(0xFFFFFFFF)

// ANSDenominator is the fixed sum rANS frequency tables are normalized to
// (misc/model.h, namespace ANS).
const ANSDenominator = uint64(1) << 32

// CountBytes returns a 256-entry histogram of b.
func CountBytes(b []byte) []uint64 {
	counts := make([]uint64, 256)
	for _, c := range b {
		counts[c]++
	}
	return counts
}

// Normalize scales freq in place so its entries sum to exactly upperLimit.
// sumOfFreq may be passed precomputed (0 means "compute it"). This is a
// direct port of model::normalize_frequencies: scale every entry by
// upperLimit/sum, then correct the rounding error against the single
// largest entry so the invariant sum(freq) == upperLimit always holds.
func Normalize(freq []uint64, upperLimit uint64, sumOfFreq uint64) {
	if sumOfFreq == 0 {
		for _, c := range freq {
			sumOfFreq += c
		}
	}
	if sumOfFreq == upperLimit {
		return
	}
	for i := range freq {
		freq[i] = freq[i] * upperLimit / sumOfFreq
	}
	var rsum uint64
	for _, c := range freq {
		rsum += c
	}
	maxIdx := maxIndex(freq)
	if rsum > upperLimit {
		freq[maxIdx] -= rsum - upperLimit
	} else if rsum < upperLimit {
		freq[maxIdx] += upperLimit - rsum
	}
}

func maxIndex(freq []uint64) int {
	best := 0
	for i, c := range freq {
		if c > freq[best] {
			best = i
		}
	}
	return best
}

// Order0 returns the 256-entry order-0 frequency table for text, normalized
// so the entries sum to ACDenominator. text must be non-empty.
func Order0(text []byte) []uint64 {
	counts := CountBytes(text)
	Normalize(counts, ACDenominator, uint64(len(text)))
	return counts
}

// ANSFrequencies returns the 256-entry order-0 frequency table for text,
// normalized so the entries sum to ANSDenominator (misc/model.h,
// ANS::memoryless). text must be non-empty.
func ANSFrequencies(text []byte) []uint64 {
	counts := CountBytes(text)
	Normalize(counts, ANSDenominator, uint64(len(text)))
	return counts
}

// Order1 returns 256 conditional frequency tables keyed by the preceding
// byte, each normalized (independently) to sum to ACDenominator where the
// row is non-empty. Rows that never occur as a "previous byte" are left as
// all zero. text must have at least 2 bytes to produce any transitions;
// for shorter text every row is zero (the caller stores the first byte
// verbatim and codes nothing else, mirroring Compression::AC2_make's
// handling of a one-byte block).
func Order1(text []byte) [][]uint64 {
	rows := make([][]uint64, 256)
	rowSums := make([]uint64, 256)
	for i := range rows {
		rows[i] = make([]uint64, 256)
	}
	for i := 1; i < len(text); i++ {
		prev, cur := text[i-1], text[i]
		rows[prev][cur]++
		rowSums[prev]++
	}
	for i := 0; i < 256; i++ {
		if rowSums[i] == 0 {
			continue
		}
		scaleRowRounded(rows[i], rowSums[i])
		distributeResidual(rows[i])
	}
	return rows
}

// scaleRowRounded scales each nonzero entry of row to round(entry * max /
// sum), per the original's long-double round() scaling (model.h, AC::order_1).
func scaleRowRounded(row []uint64, sum uint64) {
	const max = ACDenominator
	for i, v := range row {
		if v == 0 {
			continue
		}
		// round(v * max / sum) computed in integer arithmetic with
		// half-up rounding, equivalent to the original's roundl().
		num := v * max
		scaled := num/sum + boolToUint64((num%sum)*2 >= sum)
		if scaled == 0 {
			scaled = 1
		}
		row[i] = scaled
	}
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// distributeResidual repairs the rounding error left by scaleRowRounded so
// the row sums to exactly ACDenominator. misc/model.h's AC::order_1 leaves
// this residual handling unspecified; the residual is distributed one unit
// at a time across non-zero entries, incrementing/decrementing each in
// turn, until the row sums to the denominator.
func distributeResidual(row []uint64) {
	const want = ACDenominator
	var sum uint64
	for _, v := range row {
		sum += v
	}
	if sum == want {
		return
	}
	if sum > want {
		diff := sum - want
		for diff > 0 {
			for i := range row {
				if diff == 0 {
					break
				}
				if row[i] > 1 {
					row[i]--
					diff--
				}
			}
		}
		return
	}
	diff := want - sum
	for diff > 0 {
		for i := range row {
			if diff == 0 {
				break
			}
			if row[i] != 0 {
				row[i]++
				diff--
			}
		}
	}
}
