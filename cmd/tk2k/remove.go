package main

import (
	"context"
	"flag"
	"strconv"

	"github.com/tk2k-project/tk2k/internal/archive"
)

const removeHelp = `tk2k remove <archive.tk2k> <lookup-id> [lookup-ids...]

Mark the given nodes (and their entire subtrees) as removed, then repack
the archive into a fresh backing file with those nodes gone. Lookup ids
are printed by "tk2k ls".

Example:
  % tk2k remove backup.tk2k 4 7
`

func cmdRemove(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("remove", flag.ExitOnError)
	fset.Usage = usage(fset, removeHelp)
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 2 {
		fset.Usage()
		return errUsage
	}
	archivePath, idArgs := rest[0], rest[1:]

	ids := make([]int64, len(idArgs))
	for i, s := range idArgs {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errUsage
		}
		ids[i] = id
	}

	a, err := archive.Load(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.RemoveNodes(ctx, ids)
}
