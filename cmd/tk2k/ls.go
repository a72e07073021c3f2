package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/tk2k-project/tk2k/internal/archive"
)

const lsHelp = `tk2k ls <archive.tk2k>

Print the archive's tree: one line per folder and file, indented by depth,
with each node's lookup id (for use with "tk2k remove") and, for files,
original and compressed size.

Example:
  % tk2k ls backup.tk2k
`

func cmdLs(_ context.Context, args []string) error {
	fset := flag.NewFlagSet("ls", flag.ExitOnError)
	fset.Usage = usage(fset, lsHelp)
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

	// Bold the folder names when stdout is an actual terminal; piped or
	// redirected output (a file, "| less", a CI log) stays plain.
	bold := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	printFolder(a.Root(), 0, bold)
	return nil
}

func printFolder(f *archive.FolderNode, depth int, bold bool) {
	indent := strings.Repeat("  ", depth)
	name := f.Name
	if bold {
		name = "\033[1m" + name + "\033[0m"
	}
	fmt.Printf("%s%s/ [%d]\n", indent, name, f.LookupID)
	for file := f.ChildFile(); file != nil; file = file.Sibling() {
		fmt.Printf("%s  %s (%s -> %s) [%d]\n", indent, file.Name,
			file.OriginalSizeString(), file.CompressedSizeString(), file.LookupID)
	}
	for child := f.ChildDir(); child != nil; child = child.Sibling() {
		printFolder(child, depth+1, bold)
	}
}
