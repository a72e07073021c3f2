package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/tk2k-project/tk2k/internal/archive"
)

const addHelp = `tk2k add [-flags] <archive.tk2k> <path> [paths...]

Add one or more files to an existing archive's root folder, appending the
new nodes to the end of the archive without rewriting what is already
there. Directories are walked recursively, each subdirectory becoming a
folder node under the parent it was found in.

Example:
  % tk2k add -ac1 backup.tk2k report.pdf
`

func cmdAdd(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("add", flag.ExitOnError)
	getFlags := compressionFlags(fset)
	fset.Usage = usage(fset, addHelp)
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) < 2 {
		fset.Usage()
		return errUsage
	}
	archivePath, paths := rest[0], rest[1:]

	flags, err := getFlags()
	if err != nil {
		return err
	}

	a, err := archive.Load(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, p := range paths {
		if err := addPath(ctx, a, a.Root().LookupID, p, flags); err != nil {
			return err
		}
	}

	return a.Append()
}

// addPath adds p (a file or a directory walked recursively) under the
// folder identified by parentID.
func addPath(ctx context.Context, a *archive.Archive, parentID int64, p string, flags uint16) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		_, err := a.AddFile(ctx, parentID, p, flags)
		return err
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return err
	}
	folder, err := a.AddFolder(parentID, filepath.Base(p))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := addPath(ctx, a, folder.LookupID, filepath.Join(p, e.Name()), flags); err != nil {
			return err
		}
	}
	return nil
}
