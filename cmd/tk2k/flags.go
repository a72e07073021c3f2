package main

import (
	"flag"
	"fmt"

	"github.com/tk2k-project/tk2k/internal/codec"
)

// compressionFlags registers the transform/checksum flag bits (spec.md §3)
// on fset and returns a closure that assembles them into the 16-bit word
// internal/codec and internal/archive expect.
func compressionFlags(fset *flag.FlagSet) func() (uint16, error) {
	bwt := fset.Bool("bwt", true, "apply the Burrows-Wheeler transform")
	mtf := fset.Bool("mtf", true, "apply move-to-front")
	rle := fset.Bool("rle", true, "apply run-length encoding (v2)")
	ac0 := fset.Bool("ac0", false, "apply order-0 arithmetic coding")
	ac1 := fset.Bool("ac1", false, "apply order-1 arithmetic coding")
	rans := fset.Bool("rans", true, "apply rANS entropy coding")
	checksum := fset.String("checksum", "sha1", "trailer checksum: none, crc32, sha1, or sha256")
	halve1 := fset.Bool("halve1", false, "halve block size by 1 (bit 9)")
	halve2 := fset.Bool("halve2", false, "halve block size by 2 (bit 10)")
	halve3 := fset.Bool("halve3", false, "halve block size by 4 (bit 11)")
	halve4 := fset.Bool("halve4", false, "halve block size by 8 (bit 12)")

	return func() (uint16, error) {
		if *ac0 && *ac1 {
			return 0, fmt.Errorf("-ac0 and -ac1 are mutually exclusive")
		}
		var flags uint16
		if *bwt {
			flags |= codec.FlagBWT
		}
		if *mtf {
			flags |= codec.FlagMTF
		}
		if *rle {
			flags |= codec.FlagRLE
		}
		if *ac0 {
			flags |= codec.FlagAC0
		}
		if *ac1 {
			flags |= codec.FlagAC1
		}
		if *rans {
			flags |= codec.FlagRANS
		}
		if *halve1 {
			flags |= codec.FlagBlockHalve1
		}
		if *halve2 {
			flags |= codec.FlagBlockHalve2
		}
		if *halve3 {
			flags |= codec.FlagBlockHalve3
		}
		if *halve4 {
			flags |= codec.FlagBlockHalve4
		}
		switch *checksum {
		case "none":
		case "crc32":
			flags |= codec.FlagCRC32
		case "sha1":
			flags |= codec.FlagSHA1
		case "sha256":
			flags |= codec.FlagSHA256
		default:
			return 0, fmt.Errorf("unknown -checksum %q: want none, crc32, sha1, or sha256", *checksum)
		}
		return flags, nil
	}
}
