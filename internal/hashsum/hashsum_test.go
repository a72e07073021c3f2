package hashsum

import (
	"bytes"
	"testing"
)

func TestSumBytesSHA1OneByteFile(t *testing.T) {
	// spec.md's concrete end-to-end scenario: a one-byte file holding "A"
	// has the SHA-1 trailer 6dcd4ce23d88e2ee9568ba546c007c63d9131c1b.
	got := SumBytes(SHA1, []byte{'A'})
	want := "6dcd4ce23d88e2ee9568ba546c007c63d9131c1b"
	if got != want {
		t.Fatalf("SumBytes(SHA1, \"A\") = %s, want %s", got, want)
	}
}

func TestTrailerLength(t *testing.T) {
	cases := map[Kind]int{
		None:   0,
		CRC32:  10,
		SHA1:   40,
		SHA256: 64,
	}
	for kind, want := range cases {
		if got := kind.TrailerLength(); got != want {
			t.Errorf("%v.TrailerLength() = %d, want %d", kind, got, want)
		}
	}
}

func TestFromFlags(t *testing.T) {
	if got := FromFlags(1 << 14); got != CRC32 {
		t.Errorf("FromFlags(crc32 bit) = %v, want CRC32", got)
	}
	if got := FromFlags(1 << 15); got != SHA1 {
		t.Errorf("FromFlags(sha1 bit) = %v, want SHA1", got)
	}
	if got := FromFlags(1 << 13); got != SHA256 {
		t.Errorf("FromFlags(sha256 bit) = %v, want SHA256", got)
	}
	if got := FromFlags(0); got != None {
		t.Errorf("FromFlags(0) = %v, want None", got)
	}
}

func TestSumMatchesSumBytes(t *testing.T) {
	data := []byte("banana")
	viaReader, err := Sum(SHA256, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	viaBytes := SumBytes(SHA256, data)
	if viaReader != viaBytes {
		t.Fatalf("Sum and SumBytes disagree: %s vs %s", viaReader, viaBytes)
	}
}
