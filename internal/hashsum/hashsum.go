// Package hashsum computes the three checksum trailers the container format
// can append after a file's encoded blocks: CRC-32, SHA-1, and SHA-256,
// each rendered as ASCII hex. cmd/zi/zi.go, internal/build/build.go, and
// cmd/distri/build.go all reach for crypto/sha256 directly for this same
// kind of job, so this package follows suit rather than adding a
// third-party hashing wrapper — CRC-32/SHA-1/SHA-256 are exactly what
// hash/crc32, crypto/sha1, and crypto/sha256 implement.
package hashsum

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// Kind identifies which trailer checksum is in play. FromFlags maps the
// flag bits from spec.md §3 (13 SHA-256, 14 CRC-32, 15 SHA-1) to a Kind;
// the Kind values themselves are not bit positions.
type Kind int

const (
	None Kind = iota
	CRC32
	SHA1
	SHA256
)

// TrailerLength is the ASCII length of the trailer for the given kind: 10
// bytes for CRC-32 ("0x" + 8 hex digits), 40 for SHA-1, 64 for SHA-256.
func (k Kind) TrailerLength() int {
	switch k {
	case CRC32:
		return 10
	case SHA1:
		return 40
	case SHA256:
		return 64
	default:
		return 0
	}
}

func (k Kind) newHash() hash.Hash {
	switch k {
	case CRC32:
		return crc32.NewIEEE()
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	default:
		return nil
	}
}

// Sum streams r through the hash for kind and renders the ASCII trailer.
func Sum(kind Kind, r io.Reader) (string, error) {
	h := kind.newHash()
	if h == nil {
		return "", fmt.Errorf("hashsum: unsupported kind %d", kind)
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return render(kind, h), nil
}

// SumBytes is a convenience wrapper over Sum for in-memory buffers.
func SumBytes(kind Kind, b []byte) string {
	h := kind.newHash()
	h.Write(b)
	return render(kind, h)
}

func render(kind Kind, h hash.Hash) string {
	sum := h.Sum(nil)
	switch kind {
	case CRC32:
		return fmt.Sprintf("0x%08x", sum)
	default:
		return fmt.Sprintf("%x", sum)
	}
}

// FromFlags maps the three trailer flag bits (13, 14, 15) to a Kind. At most
// one is expected to be set; if more than one is set CRC-32 takes priority,
// then SHA-1, then SHA-256, in the order they are checked here. Exclusivity
// is not validated anywhere else.
func FromFlags(flags uint16) Kind {
	switch {
	case flags&(1<<14) != 0:
		return CRC32
	case flags&(1<<15) != 0:
		return SHA1
	case flags&(1<<13) != 0:
		return SHA256
	default:
		return None
	}
}
