// Command atlas-gui opens a desktop window over one ATOB object file.
package main

import (
	"fmt"
	"os"

	"github.com/atlas8/toolchain/gui"
	"github.com/atlas8/toolchain/object"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: atlas-gui <file.o>")
		os.Exit(2)
	}

	data, err := os.ReadFile(os.Args[1]) // #nosec G304 -- user-provided object file path
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-gui: %v\n", err)
		os.Exit(1)
	}

	obj, err := object.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-gui: %v\n", err)
		os.Exit(1)
	}

	gui.New(obj).Run()
}
