// Command atlas-inspect opens a terminal browser over one ATOB object file.
package main

import (
	"fmt"
	"os"

	"github.com/atlas8/toolchain/inspect"
	"github.com/atlas8/toolchain/object"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: atlas-inspect <file.o>")
		os.Exit(2)
	}

	data, err := os.ReadFile(os.Args[1]) // #nosec G304 -- user-provided object file path
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-inspect: %v\n", err)
		os.Exit(1)
	}

	obj, err := object.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-inspect: %v\n", err)
		os.Exit(1)
	}

	if err := inspect.New(obj).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "atlas-inspect: %v\n", err)
		os.Exit(1)
	}
}
