package main

import (
	"flag"
	"testing"

	"github.com/tk2k-project/tk2k/internal/codec"
)

func TestCompressionFlagsDefaults(t *testing.T) {
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	getFlags := compressionFlags(fset)
	if err := fset.Parse(nil); err != nil {
		t.Fatal(err)
	}

	got, err := getFlags()
	if err != nil {
		t.Fatalf("getFlags: %v", err)
	}
	want := codec.FlagBWT | codec.FlagMTF | codec.FlagRLE | codec.FlagRANS | codec.FlagSHA1
	if got != want {
		t.Fatalf("default flags = %#x, want %#x", got, want)
	}
}

func TestCompressionFlagsAC0AC1Exclusive(t *testing.T) {
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	getFlags := compressionFlags(fset)
	if err := fset.Parse([]string{"-ac0", "-ac1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := getFlags(); err == nil {
		t.Fatal("expected an error when both -ac0 and -ac1 are set")
	}
}

func TestCompressionFlagsUnknownChecksum(t *testing.T) {
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	getFlags := compressionFlags(fset)
	if err := fset.Parse([]string{"-checksum=md5"}); err != nil {
		t.Fatal(err)
	}
	if _, err := getFlags(); err == nil {
		t.Fatal("expected an error for an unknown -checksum value")
	}
}

func TestCompressionFlagsHalving(t *testing.T) {
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	getFlags := compressionFlags(fset)
	if err := fset.Parse([]string{"-halve2", "-checksum=none"}); err != nil {
		t.Fatal(err)
	}
	got, err := getFlags()
	if err != nil {
		t.Fatal(err)
	}
	if got&codec.FlagBlockHalve2 == 0 {
		t.Fatal("expected FlagBlockHalve2 to be set")
	}
	if got&(codec.FlagSHA1|codec.FlagCRC32|codec.FlagSHA256) != 0 {
		t.Fatal("expected no checksum flag with -checksum=none")
	}
}
