// Command atlas-asm assembles one Atlas-8 source file into an ATOB object file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/atlas8/toolchain/assemble"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("atlas-asm", flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "print version information and exit")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: atlas-asm <input.asm> <out.o>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Printf("atlas-asm %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	rest := fs.Args()
	if len(rest) != 2 {
		fs.Usage()
		return 2
	}
	inputPath, outputPath := rest[0], rest[1]

	source, err := os.ReadFile(inputPath) // #nosec G304 -- user-provided assembly file path
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-asm: %v\n", err)
		return 1
	}

	obj, err := assemble.Assemble(string(source), inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-asm: %v\n", err)
		return 1
	}

	encoded, err := obj.Encode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-asm: failed to serialize object: %v\n", err)
		return 1
	}

	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil { // #nosec G306 -- object files are not secrets
		fmt.Fprintf(os.Stderr, "atlas-asm: %v\n", err)
		return 1
	}

	return 0
}
