// Package codec implements the block-parallel compression pipeline: the
// BWT/MTF/RLE/AC/rANS transforms (this package's other files) composed
// under a 16-bit flag word, applied independently to fixed-size blocks by a
// worker pool, and reassembled by a strictly-ordered writer. Grounded on
// misc/multithreading.cpp's processing_worker/processing_scribe/
// processing_foreman in the original tk2k_lib.
package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/tk2k-project/tk2k/internal/hashsum"
	"github.com/tk2k-project/tk2k/internal/progress"
	"github.com/tk2k-project/tk2k/internal/suffixarray"
)

// Flag bits, from misc/multithreading.cpp's bin_flags indexing (bit 0 is
// the least significant bit of the 16-bit flags word).
const (
	FlagBWT uint16 = 1 << 0
	FlagMTF uint16 = 1 << 1
	FlagRLE uint16 = 1 << 2
	FlagAC0 uint16 = 1 << 3 // order-0 arithmetic coding
	FlagAC1 uint16 = 1 << 4 // order-1 arithmetic coding
	FlagRANS uint16 = 1 << 5

	FlagBlockHalve1 uint16 = 1 << 9  // block_size >>= 1
	FlagBlockHalve2 uint16 = 1 << 10 // block_size >>= 2
	FlagBlockHalve3 uint16 = 1 << 11 // block_size >>= 4
	FlagBlockHalve4 uint16 = 1 << 12 // block_size >>= 8

	FlagSHA256 uint16 = 1 << 13
	FlagCRC32  uint16 = 1 << 14
	FlagSHA1   uint16 = 1 << 15
)

// defaultBlockSize is 2^24 bytes (16 MiB), halved by the FlagBlockHalve*
// bits exactly as processing_foreman computes it.
const defaultBlockSize = 1 << 24

// BlockLayout returns the block size and block count for an object of
// originalSize bytes under flags, matching processing_foreman: a lone
// block absorbs the whole object (no use splitting a small file), and an
// empty object still gets one (zero-sized) block so the pipeline always
// has at least one unit of work.
func BlockLayout(flags uint16, originalSize uint64) (blockSize uint32, blockCount uint32) {
	size := uint32(defaultBlockSize)
	if flags&FlagBlockHalve1 != 0 {
		size >>= 1
	}
	if flags&FlagBlockHalve2 != 0 {
		size >>= 2
	}
	if flags&FlagBlockHalve3 != 0 {
		size >>= 4
	}
	if flags&FlagBlockHalve4 != 0 {
		size >>= 8
	}
	if size == 0 {
		size = 1
	}

	if originalSize == 0 {
		return 0, 1
	}
	count := uint32((originalSize + uint64(size) - 1) / uint64(size))
	if count == 1 {
		size = uint32(originalSize)
	}
	return size, count
}

// transformBlock applies the flag-selected transforms to one block in the
// fixed forward order BWT -> MTF -> RLE -> AC0 -> AC1 -> rANS, matching
// processing_worker's compress branch.
func transformBlock(block []byte, flags uint16) []byte {
	if flags&FlagBWT != 0 {
		block = suffixarray.BWT(block)
	}
	if flags&FlagMTF != 0 {
		block = MTF(block)
	}
	if flags&FlagRLE != 0 {
		block = RLE(block)
	}
	if flags&FlagAC0 != 0 {
		block = EncodeAC0(block)
	}
	if flags&FlagAC1 != 0 {
		block = EncodeAC1(block)
	}
	if flags&FlagRANS != 0 {
		block = EncodeRANS(block)
	}
	return block
}

// inverseTransformBlock reverses transformBlock, in the mirrored order
// rANS -> AC1 -> AC0 -> RLE -> MTF -> BWT, matching processing_worker's
// decompress branch.
func inverseTransformBlock(block []byte, flags uint16) []byte {
	if flags&FlagRANS != 0 {
		block = DecodeRANS(block)
	}
	if flags&FlagAC1 != 0 {
		block = DecodeAC1(block)
	}
	if flags&FlagAC0 != 0 {
		block = DecodeAC0(block)
	}
	if flags&FlagRLE != 0 {
		block = InverseRLE(block)
	}
	if flags&FlagMTF != 0 {
		block = InverseMTF(block)
	}
	if flags&FlagBWT != 0 {
		block = suffixarray.InverseBWT(block)
	}
	return block
}

// workerCount mirrors std::thread::hardware_concurrency()'s fallback
// (0 -> 2), capped to the number of blocks there actually is work for.
func workerCount(blockCount uint32) int {
	n := runtime.GOMAXPROCS(0)
	if n <= 0 {
		n = 2
	}
	if uint32(n) > blockCount {
		n = int(blockCount)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// EncodePayload compresses data under flags over fixed-size blocks (the
// errgroup.Group IS the worker pool from processing_foreman; unlike the
// original's thread-per-block-slot model, each block is its own errgroup
// task, and SetLimit caps how many run at once). Each block's result is written into its own slice slot --
// there is no cross-block mutation -- so the later sequential reassembly
// step plays the role of processing_scribe's "write blocks in ascending
// order" without needing a condition variable: every slot is already
// final by the time errgroup.Wait returns.
//
// The returned bytes are the concatenation of per-block records
// [part_number:4][compressed_size:4][compressed bytes...] followed by a
// checksum trailer selected by flags' SHA1/CRC32/SHA256 bits
// (internal/hashsum.FromFlags), mirroring processing_scribe and
// processing_foreman's checksum dispatch.
func EncodePayload(ctx context.Context, data []byte, flags uint16, counters *progress.Counters) ([]byte, error) {
	blockSize, blockCount := BlockLayout(flags, uint64(len(data)))
	results := make([][]byte, blockCount)

	if counters != nil {
		counters.SetTotal(blockCount)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workerCount(blockCount))
	for i := uint32(0); i < blockCount; i++ {
		i := i
		eg.Go(func() error {
			if progress.Aborted(egCtx) {
				return egCtx.Err()
			}
			start := uint64(i) * uint64(blockSize)
			end := start + uint64(blockSize)
			if end > uint64(len(data)) || blockCount == 1 {
				end = uint64(len(data))
			}
			results[i] = transformBlock(data[start:end], flags)
			if counters != nil {
				counters.Advance()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, xerrors.Errorf("encoding block: %w", err)
	}

	var out []byte
	var header [8]byte
	for i, r := range results {
		binary.LittleEndian.PutUint32(header[0:4], uint32(i))
		binary.LittleEndian.PutUint32(header[4:8], uint32(len(r)))
		out = append(out, header[:]...)
		out = append(out, r...)
	}

	// The trailer is computed over the original plaintext, not the encoded
	// block stream just built (spec.md §4.3: "compute the corresponding
	// checksum over the original plaintext file (not the encoded stream)").
	kind := hashsum.FromFlags(flags)
	if kind != hashsum.None {
		sum, err := hashsum.Sum(kind, bytes.NewReader(data))
		if err != nil {
			return nil, xerrors.Errorf("computing checksum: %w", err)
		}
		out = append(out, []byte(sum)...)
	}
	return out, nil
}

// DecodePayload reverses EncodePayload. originalSize is the pre-compression
// length, used to recompute the block layout exactly as the encoder did.
func DecodePayload(ctx context.Context, encoded []byte, originalSize uint64, flags uint16, counters *progress.Counters) ([]byte, error) {
	kind := hashsum.FromFlags(flags)
	trailerLen := kind.TrailerLength()
	payload := encoded
	var wantSum string
	if trailerLen > 0 {
		payload = encoded[:len(encoded)-trailerLen]
		wantSum = string(encoded[len(encoded)-trailerLen:])
	}

	_, blockCount := BlockLayout(flags, originalSize)
	blocks := make([][]byte, blockCount)

	off := 0
	for i := uint32(0); i < blockCount; i++ {
		if off+8 > len(payload) {
			return nil, xerrors.Errorf("truncated block header for block %d", i)
		}
		partNum := binary.LittleEndian.Uint32(payload[off : off+4])
		size := binary.LittleEndian.Uint32(payload[off+4 : off+8])
		off += 8
		if partNum >= blockCount {
			return nil, xerrors.Errorf("block index %d out of range (%d blocks)", partNum, blockCount)
		}
		if off+int(size) > len(payload) {
			return nil, xerrors.Errorf("truncated block %d payload", partNum)
		}
		blocks[partNum] = payload[off : off+int(size)]
		off += int(size)
	}

	if counters != nil {
		counters.SetTotal(blockCount)
	}

	results := make([][]byte, blockCount)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workerCount(blockCount))
	for i := uint32(0); i < blockCount; i++ {
		i := i
		eg.Go(func() error {
			if progress.Aborted(egCtx) {
				return egCtx.Err()
			}
			results[i] = inverseTransformBlock(blocks[i], flags)
			if counters != nil {
				counters.Advance()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, xerrors.Errorf("decoding block: %w", err)
	}

	var out []byte
	for _, r := range results {
		out = append(out, r...)
	}

	if kind != hashsum.None {
		gotSum := hashsum.SumBytes(kind, out)
		if gotSum != wantSum {
			return nil, xerrors.Errorf("checksum mismatch: got %s, want %s", gotSum, wantSum)
		}
	}
	return out, nil
}
