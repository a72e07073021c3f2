package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/tk2k-project/tk2k/internal/archive"
)

const checkHelp = `tk2k check <archive.tk2k>

Decode every file in the archive and verify its checksum trailer without
writing anything to disk. Prints one line per file and exits non-zero if
any checksum fails to match.

Example:
  % tk2k check backup.tk2k
`

func cmdCheck(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("check", flag.ExitOnError)
	fset.Usage = usage(fset, checkHelp)
	fset.Parse(args)

	rest := fset.Args()
	if len(rest) != 1 {
		fset.Usage()
		return errUsage
	}

	a, err := archive.Load(rest[0])
	if err != nil {
		return err
	}
	defer a.Close()

	failed := 0
	if err := checkFolder(ctx, a, a.Root(), &failed); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed checksum verification", failed)
	}
	return nil
}

func checkFolder(ctx context.Context, a *archive.Archive, f *archive.FolderNode, failed *int) error {
	for file := f.ChildFile(); file != nil; file = file.Sibling() {
		err := a.VerifyChecksum(ctx, file)
		if err != nil {
			*failed++
			fmt.Printf("FAIL %s: %v\n", file.Name, err)
			continue
		}
		fmt.Printf("ok   %s\n", file.Name)
	}
	for child := f.ChildDir(); child != nil; child = child.Sibling() {
		if err := checkFolder(ctx, a, child, failed); err != nil {
			return err
		}
	}
	return nil
}
