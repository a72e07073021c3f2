package codec

import (
	"bytes"
	"context"
	"testing"

	"github.com/tk2k-project/tk2k/internal/progress"
)

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		data  []byte
		flags uint16
	}{
		{"empty", nil, FlagBWT | FlagMTF | FlagRLE | FlagRANS | FlagSHA1},
		{"single byte", []byte("a"), FlagBWT | FlagMTF | FlagRANS | FlagSHA1},
		{"bwt+mtf+rle+rans+sha256", []byte("banana banana banana"), FlagBWT | FlagMTF | FlagRLE | FlagRANS | FlagSHA256},
		{"ac0 only", bytes.Repeat([]byte("mississippi"), 10), FlagAC0 | FlagCRC32},
		{"ac1 only", bytes.Repeat([]byte("mississippi"), 10), FlagAC1 | FlagSHA1},
		{"no transforms, no checksum", []byte("raw bytes through unchanged"), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var counters progress.Counters
			encoded, err := EncodePayload(context.Background(), tc.data, tc.flags, &counters)
			if err != nil {
				t.Fatalf("EncodePayload: %v", err)
			}
			decoded, err := DecodePayload(context.Background(), encoded, uint64(len(tc.data)), tc.flags, &counters)
			if err != nil {
				t.Fatalf("DecodePayload: %v", err)
			}
			if !bytes.Equal(decoded, tc.data) {
				t.Fatalf("round trip mismatch: got %q, want %q", decoded, tc.data)
			}
		})
	}
}

func TestDecodePayloadRejectsCorruptedBlockHeader(t *testing.T) {
	data := []byte("banana banana banana")
	flags := uint16(FlagBWT | FlagMTF | FlagRANS | FlagSHA1)
	encoded, err := EncodePayload(context.Background(), data, flags, nil)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	// Corrupt the first block's index field (byte 0) without touching the
	// trailer: the block index becomes 255 for a one-block payload.
	encoded[0] ^= 0xFF
	if _, err := DecodePayload(context.Background(), encoded, uint64(len(data)), flags, nil); err == nil {
		t.Fatal("DecodePayload accepted a corrupted block header without an error")
	}
}

func TestBlockLayoutSingleBlockForSmallInput(t *testing.T) {
	size, count := BlockLayout(0, 100)
	if count != 1 {
		t.Fatalf("count = %d, want 1 for a small input", count)
	}
	if size != 100 {
		t.Fatalf("size = %d, want 100 (the whole input) for a lone block", size)
	}
}

func TestBlockLayoutEmptyInputStillOneBlock(t *testing.T) {
	_, count := BlockLayout(0, 0)
	if count != 1 {
		t.Fatalf("count = %d, want 1 even for an empty input", count)
	}
}
