// Package assemble wires the lexer, parser, and encoder together behind the
// single `Assemble` entry point spec'd for the core, producing an in-memory
// object file.
package assemble

import (
	"github.com/atlas8/toolchain/encoder"
	"github.com/atlas8/toolchain/object"
	"github.com/atlas8/toolchain/parser"
)

// Assemble runs the lex -> parse -> encode pipeline over one source file and
// returns its object file in memory; object.File.Encode serializes it.
func Assemble(sourceText, sourceName string) (*object.File, error) {
	p := parser.NewParser(sourceText, sourceName)
	program, err := p.Parse()
	if err != nil {
		return nil, err
	}

	enc := encoder.NewEncoder(program.Symbols, program.Imports)
	result, err := enc.Encode(program)
	if err != nil {
		return nil, err
	}

	return buildObjectFile(program, result), nil
}

func buildObjectFile(program *parser.Program, result *encoder.EncodeResult) *object.File {
	obj := object.New()

	for _, name := range result.SectionOrder {
		obj.Sections = append(obj.Sections, object.Section{Name: name, Data: result.Sections[name]})
	}

	for _, sym := range program.Symbols.GetAllSymbols() {
		objSym := object.Symbol{
			Name:       sym.Name,
			Value:      sym.Value,
			HasSection: sym.Defined,
			Section:    sym.Section,
		}
		if sym.Binding == parser.BindingGlobal {
			objSym.Binding = object.BindingGlobal
		}
		obj.Symbols = append(obj.Symbols, objSym)
	}

	for _, rel := range result.Relocations {
		obj.Relocations = append(obj.Relocations, object.Relocation{
			Offset:  rel.Offset,
			Symbol:  rel.Symbol,
			Addend:  rel.Addend,
			Section: rel.Section,
		})
	}

	return obj
}
