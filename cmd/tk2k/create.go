package main

import (
	"context"
	"flag"
	"path/filepath"

	"github.com/tk2k-project/tk2k/internal/archive"
)

const createHelp = `tk2k create [-flags] <archive.tk2k> [paths...]

Create a new archive at <archive.tk2k>, optionally adding each of paths
(files only; use add for directories) under the root with the given
transform flags.

Example:
  % tk2k create backup.tk2k notes.txt photo.jpg
`

func cmdCreate(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("create", flag.ExitOnError)
	getFlags := compressionFlags(fset)
	fset.Usage = usage(fset, createHelp)
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 1 {
		fset.Usage()
		return errUsage
	}
	archivePath, paths := rest[0], rest[1:]

	flags, err := getFlags()
	if err != nil {
		return err
	}

	a := archive.Create(filepath.Base(archivePath))
	for _, p := range paths {
		if _, err := a.AddFile(ctx, a.Root().LookupID, p, flags); err != nil {
			return err
		}
	}
	return a.Save(archivePath)
}
