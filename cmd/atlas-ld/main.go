// Command atlas-ld links one or more Atlas-8 object files into a flat
// binary or Intel HEX image.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/atlas8/toolchain/config"
	"github.com/atlas8/toolchain/linker"
	"github.com/atlas8/toolchain/object"
	"github.com/atlas8/toolchain/writer"
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
	fs := flag.NewFlagSet("atlas-ld", flag.ContinueOnError)
	output := fs.String("o", "", "output file path")
	configPath := fs.String("config", "", "load inputs/output from a TOML project file")
	xref := fs.Bool("xref", false, "print the cross-reference report (the image is still written when an output path is set)")
	showVersion := fs.Bool("version", false, "print version information and exit")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: atlas-ld <in1.o> <in2.o> ... -o <out.{bin,hex}>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Printf("atlas-ld %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	inputs := fs.Args()
	outPath := *output
	cfgFormat := "" // set when the output path comes from the project file

	if *configPath != "" || (len(inputs) == 0 && outPath == "") {
		path := *configPath
		if path == "" {
			path = config.DefaultProjectFile
		}
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "atlas-ld: %v\n", err)
			return 1
		}
		if len(inputs) == 0 {
			inputs = cfg.Link.Inputs
		}
		if outPath == "" {
			outPath = cfg.Link.Output
			cfgFormat = cfg.ResolvedFormat()
		}
	}

	if len(inputs) == 0 || (outPath == "" && !*xref) {
		fs.Usage()
		return 2
	}

	l := linker.New()
	for _, path := range inputs {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided object file path
		if err != nil {
			fmt.Fprintf(os.Stderr, "atlas-ld: %v\n", err)
			return 1
		}
		obj, err := object.Decode(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "atlas-ld: %s: %v\n", path, err)
			return 1
		}
		l.Add(path, obj)
	}

	result, err := l.Link()
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-ld: %v\n", err)
		return 1
	}

	if *xref {
		entries := linker.BuildXRef(l, result)
		fmt.Print(linker.FormatXRefReport(entries))
	}

	if outPath == "" {
		return 0
	}

	format := writer.FormatFromExtension(outPath)
	switch cfgFormat {
	case "hex":
		format = writer.IntelHex
	case "bin":
		format = writer.RawBinary
	}
	image := writer.Write(result.Image(), format)

	if err := os.WriteFile(outPath, image, 0o644); err != nil { // #nosec G306 -- linked images are not secrets
		fmt.Fprintf(os.Stderr, "atlas-ld: %v\n", err)
		return 1
	}

	return 0
}
