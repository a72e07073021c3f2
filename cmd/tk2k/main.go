// Command tk2k is a CLI around internal/archive: create/add/remove/unpack/ls
// verbs over a .tk2k container, in the same verb-dispatch shape as distri's
// cmd/distri/distri.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

var debug = flag.Bool("debug", false, "format error messages with additional detail")

func funcmain() error {
	flag.Parse()

	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"create": {cmdCreate},
		"add":    {cmdAdd},
		"remove": {cmdRemove},
		"unpack": {cmdUnpack},
		"ls":     {cmdLs},
		"check":  {cmdCheck},
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "tk2k [-flags] <command> [-flags] <args>\n")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "\tcreate  - create a new, empty archive\n")
		fmt.Fprintf(os.Stderr, "\tadd     - add a file or folder to an archive\n")
		fmt.Fprintf(os.Stderr, "\tremove  - remove nodes by lookup id and repack\n")
		fmt.Fprintf(os.Stderr, "\tunpack  - extract an archive to a directory\n")
		fmt.Fprintf(os.Stderr, "\tls      - list an archive's tree\n")
		fmt.Fprintf(os.Stderr, "\tcheck   - verify every file's checksum trailer\n")
		os.Exit(2)
	}
	verb, rest := args[0], args[1:]

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: tk2k <command> [options]\n")
		os.Exit(2)
	}

	ctx, canc := interruptibleContext()
	defer canc()
	if err := v.fn(ctx, rest); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
