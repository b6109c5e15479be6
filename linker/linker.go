// Package linker merges assembled object files into one flat image: it
// concatenates sections in input order, builds a global symbol table
// honoring Local/Global visibility, and patches every relocation's low byte
// with its resolved symbol address.
package linker

import (
	"fmt"
	"sort"

	"github.com/atlas8/toolchain/object"
)

// DuplicateSymbolError reports two Global definitions of the same name.
type DuplicateSymbolError struct {
	Name        string
	FileA, FileB string
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("duplicate global symbol %q defined in %q and %q", e.Name, e.FileA, e.FileB)
}

// UnresolvedSymbolError reports a relocation whose symbol resolved nowhere.
type UnresolvedSymbolError struct {
	Name, File string
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("unresolved symbol %q referenced in %q", e.Name, e.File)
}

// ImmediateOverflowError reports a patched value outside [0,0xFF].
type ImmediateOverflowError struct {
	Name  string
	Value int64
}

func (e *ImmediateOverflowError) Error() string {
	return fmt.Sprintf("relocation target for %q overflows 8 bits: %d", e.Name, e.Value)
}

// inputFile pairs a loaded object with the name it was loaded under, for
// diagnostics and Local-symbol scoping.
type inputFile struct {
	name string
	obj  *object.File
}

// Linker accumulates input objects in link order.
type Linker struct {
	files []inputFile
}

// New creates an empty Linker.
func New() *Linker {
	return &Linker{}
}

// Add appends an object file (as loaded from fileName) to the link set, in
// the order it should be merged.
func (l *Linker) Add(fileName string, obj *object.File) {
	l.files = append(l.files, inputFile{name: fileName, obj: obj})
}

// GlobalSymbol is a resolved entry in the linker's global symbol table.
type GlobalSymbol struct {
	Name    string
	Value   uint32
	Section string
}

// LinkResult carries the merged sections and global symbol table a
// completed link produced, for the output writer and the cross-reference
// report to consume.
type LinkResult struct {
	Sections     map[string][]byte
	SectionOrder []string
	Globals      map[string]GlobalSymbol
}

type localSymbol struct {
	value   uint32
	section string
}

// Link runs section merge, global symbol table construction, and relocation
// application, returning the LinkResult that holds the merged sections (see
// Image for the flat byte stream) and the global table used for xref
// reporting.
func (l *Linker) Link() (*LinkResult, error) {
	merged := make(map[string][]byte)
	sectionBase := make([]map[string]int, len(l.files))
	localSymbols := make([]map[string]localSymbol, len(l.files))
	globals := make(map[string]GlobalSymbol)
	globalOwner := make(map[string]string) // name -> owning file name

	// Merge sections, in input order.
	for i, f := range l.files {
		sectionBase[i] = make(map[string]int)
		for _, sec := range f.obj.Sections {
			if sec.Name == ".abs" {
				continue // virtual, never materialized
			}
			sectionBase[i][sec.Name] = len(merged[sec.Name])
			merged[sec.Name] = append(merged[sec.Name], sec.Data...)
		}
	}

	// Build the per-file local table and the global symbol table.
	for i, f := range l.files {
		localSymbols[i] = make(map[string]localSymbol)
		for _, sym := range f.obj.Symbols {
			if !sym.HasSection {
				continue // import: undefined, nothing to register
			}
			var addr uint32
			if sym.Section == ".abs" {
				addr = sym.Value
			} else {
				addr = uint32(sectionBase[i][sym.Section]) + sym.Value
			}
			localSymbols[i][sym.Name] = localSymbol{value: addr, section: sym.Section}

			if sym.Binding == object.BindingGlobal {
				if owner, exists := globalOwner[sym.Name]; exists && owner != f.name {
					return nil, &DuplicateSymbolError{Name: sym.Name, FileA: owner, FileB: f.name}
				}
				globals[sym.Name] = GlobalSymbol{Name: sym.Name, Value: addr, Section: sym.Section}
				globalOwner[sym.Name] = f.name
			}
		}
	}

	// Apply relocations.
	for i, f := range l.files {
		for _, rel := range f.obj.Relocations {
			patchOffset := sectionBase[i][rel.Section] + int(rel.Offset)

			var value uint32
			if local, ok := localSymbols[i][rel.Symbol]; ok {
				value = local.value
			} else if g, ok := globals[rel.Symbol]; ok {
				value = g.Value
			} else {
				return nil, &UnresolvedSymbolError{Name: rel.Symbol, File: f.name}
			}

			final := int64(value) + int64(rel.Addend)
			if final < 0 || final > 0xFF {
				return nil, &ImmediateOverflowError{Name: rel.Symbol, Value: final}
			}

			buf := merged[rel.Section]
			if patchOffset+1 >= len(buf) {
				return nil, fmt.Errorf("relocation for %q in %q points outside section %q", rel.Symbol, f.name, rel.Section)
			}
			buf[patchOffset+1] = byte(final & 0xFF)
		}
	}

	order := sectionEmitOrder(merged)

	return &LinkResult{Sections: merged, SectionOrder: order, Globals: globals}, nil
}

// sectionEmitOrder returns ".text" first, then the remaining section names
// in lexicographic order, per spec.md's output ordering rule.
func sectionEmitOrder(sections map[string][]byte) []string {
	var rest []string
	_, hasText := sections[".text"]
	for name := range sections {
		if name == ".text" {
			continue
		}
		rest = append(rest, name)
	}
	sort.Strings(rest)

	var order []string
	if hasText {
		order = append(order, ".text")
	}
	return append(order, rest...)
}

// Image concatenates LinkResult's sections in emit order into the final
// flat byte stream.
func (r *LinkResult) Image() []byte {
	var out []byte
	for _, name := range r.SectionOrder {
		out = append(out, r.Sections[name]...)
	}
	return out
}
