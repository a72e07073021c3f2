package main

import (
	"context"
	"flag"

	"github.com/tk2k-project/tk2k/internal/archive"
)

const unpackHelp = `tk2k unpack <archive.tk2k> <destination-dir>

Recreate the archive's whole tree under destination-dir: one directory per
folder, one decoded file per file node. destination-dir is created if it
does not already exist.

Example:
  % tk2k unpack backup.tk2k ./restored
`

func cmdUnpack(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("unpack", flag.ExitOnError)
	fset.Usage = usage(fset, unpackHelp)
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) != 2 {
		fset.Usage()
		return errUsage
	}
	archivePath, outDir := rest[0], rest[1]

	a, err := archive.Load(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.UnpackAll(ctx, outDir)
}
