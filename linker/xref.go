package linker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atlas8/toolchain/object"
)

// ReferenceKind classifies how a symbol was used at a reference site.
type ReferenceKind int

const (
	// ReferenceBranch marks a relocation in the .text section.
	ReferenceBranch ReferenceKind = iota
	// ReferenceData marks a relocation in any other section.
	ReferenceData
)

func (k ReferenceKind) String() string {
	if k == ReferenceBranch {
		return "branch"
	}
	return "data"
}

// XRefReference is one use site of a symbol.
type XRefReference struct {
	File    string
	Section string
	Offset  uint32
	Kind    ReferenceKind
}

// XRefEntry is a symbol's full usage record: where (if anywhere) it is
// defined, and every site that references it.
type XRefEntry struct {
	Symbol     string
	Defined    bool
	DefinedIn  string
	Section    string
	Address    uint32
	References []XRefReference
}

// classifyRelocation guesses a reference's kind from the family implied by
// its section; the object format does not carry instruction family, so
// branch-shaped sections (.text) default to ReferenceBranch and everything
// else to ReferenceData. This is a reporting heuristic only — it never
// feeds back into encoding or linking.
func classifyRelocation(rel object.Relocation) ReferenceKind {
	if rel.Section == ".text" {
		return ReferenceBranch
	}
	return ReferenceData
}

// BuildXRef scans every loaded object's symbols and relocations, plus the
// already-linked global symbol table, producing one entry per symbol name
// that appears anywhere in the link set. It is a read-only pass: it never
// mutates sections, the symbol table, or the relocation lists it scans.
func BuildXRef(l *Linker, result *LinkResult) []XRefEntry {
	entries := make(map[string]*XRefEntry)

	ensure := func(name string) *XRefEntry {
		if e, ok := entries[name]; ok {
			return e
		}
		e := &XRefEntry{Symbol: name}
		entries[name] = e
		return e
	}

	bases := make(map[string]uint32) // merged offset of the current file's part of each section
	for _, f := range l.files {
		for _, sym := range f.obj.Symbols {
			e := ensure(sym.Name)
			if !sym.HasSection {
				continue
			}
			if !e.Defined {
				e.Defined = true
				e.DefinedIn = f.name
				e.Section = sym.Section
				if g, ok := result.Globals[sym.Name]; ok {
					e.Address = g.Value
				} else if sym.Section == ".abs" {
					e.Address = sym.Value
				} else {
					e.Address = bases[sym.Section] + sym.Value
				}
			}
		}
		for _, rel := range f.obj.Relocations {
			e := ensure(rel.Symbol)
			e.References = append(e.References, XRefReference{
				File:    f.name,
				Section: rel.Section,
				Offset:  rel.Offset,
				Kind:    classifyRelocation(rel),
			})
		}
		for _, sec := range f.obj.Sections {
			if sec.Name != ".abs" {
				bases[sec.Name] += uint32(len(sec.Data))
			}
		}
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]XRefEntry, 0, len(names))
	for _, name := range names {
		out = append(out, *entries[name])
	}
	return out
}

// FormatXRefReport renders entries as a human-readable table.
func FormatXRefReport(entries []XRefEntry) string {
	var b strings.Builder
	for _, e := range entries {
		if e.Defined {
			fmt.Fprintf(&b, "%s  defined in %s (%s+0x%04X)\n", e.Symbol, e.DefinedIn, e.Section, e.Address)
		} else {
			fmt.Fprintf(&b, "%s  undefined\n", e.Symbol)
		}
		for _, ref := range e.References {
			fmt.Fprintf(&b, "    %s %s:0x%04X in %s\n", ref.Kind, ref.Section, ref.Offset, ref.File)
		}
	}
	return b.String()
}
