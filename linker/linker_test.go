package linker_test

import (
	"testing"

	"github.com/atlas8/toolchain/linker"
	"github.com/atlas8/toolchain/object"
)

func TestLinker_CrossFileBranchPatch(t *testing.T) {
	mainText := make([]byte, 0x86)
	mainText[0x84] = 0x88 // BI-type, abs=1 (label target), cond=br(0)
	mainText[0x85] = 0x00 // placeholder low byte

	mainObj := object.New()
	mainObj.Sections = []object.Section{{Name: ".text", Data: mainText}}
	mainObj.Relocations = []object.Relocation{
		{Offset: 0x84, Symbol: "multiply", Addend: 0, Section: ".text"},
	}

	mathObj := object.New()
	mathObj.Sections = []object.Section{{Name: ".text", Data: []byte{0x01, 0x20}}}
	mathObj.Symbols = []object.Symbol{
		{Name: "multiply", Value: 0, HasSection: true, Section: ".text", Binding: object.BindingGlobal},
	}

	l := linker.New()
	l.Add("main.o", mainObj)
	l.Add("math.o", mathObj)

	result, err := l.Link()
	if err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}

	text := result.Sections[".text"]
	if text[0x84] != 0x88 || text[0x85] != 0x86 {
		t.Fatalf("want [0x88 0x86] at 0x84, got [0x%02X 0x%02X]", text[0x84], text[0x85])
	}
}

func TestLinker_DuplicateGlobal(t *testing.T) {
	makeObj := func() *object.File {
		o := object.New()
		o.Sections = []object.Section{{Name: ".text", Data: []byte{0, 0}}}
		o.Symbols = []object.Symbol{
			{Name: "foo", Value: 0, HasSection: true, Section: ".text", Binding: object.BindingGlobal},
		}
		return o
	}

	l := linker.New()
	l.Add("a.o", makeObj())
	l.Add("b.o", makeObj())

	_, err := l.Link()
	var dup *linker.DuplicateSymbolError
	if err == nil {
		t.Fatal("expected a DuplicateSymbolError")
	}
	if !asError(err, &dup) {
		t.Fatalf("want *DuplicateSymbolError, got %T: %v", err, err)
	}
}

func TestLinker_UnresolvedSymbol(t *testing.T) {
	o := object.New()
	o.Sections = []object.Section{{Name: ".text", Data: []byte{0, 0}}}
	o.Relocations = []object.Relocation{{Offset: 0, Symbol: "missing", Section: ".text"}}

	l := linker.New()
	l.Add("a.o", o)

	_, err := l.Link()
	var unresolved *linker.UnresolvedSymbolError
	if !asError(err, &unresolved) {
		t.Fatalf("want *UnresolvedSymbolError, got %T: %v", err, err)
	}
}

func TestLinker_ImmediateOverflow(t *testing.T) {
	o := object.New()
	o.Sections = []object.Section{{Name: ".text", Data: make([]byte, 0x152)}}
	o.Symbols = []object.Symbol{
		{Name: "big", Value: 0x150, HasSection: true, Section: ".text", Binding: object.BindingLocal},
	}
	o.Relocations = []object.Relocation{{Offset: 0, Symbol: "big", Section: ".text"}}

	l := linker.New()
	l.Add("a.o", o)

	_, err := l.Link()
	var overflow *linker.ImmediateOverflowError
	if !asError(err, &overflow) {
		t.Fatalf("want *ImmediateOverflowError, got %T: %v", err, err)
	}
}

func TestLinker_SectionEmitOrder(t *testing.T) {
	o := object.New()
	o.Sections = []object.Section{
		{Name: ".data", Data: []byte{1}},
		{Name: ".text", Data: []byte{2}},
		{Name: ".bss", Data: []byte{3}},
	}

	l := linker.New()
	l.Add("a.o", o)

	result, err := l.Link()
	if err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}
	want := []string{".text", ".bss", ".data"}
	if len(result.SectionOrder) != len(want) {
		t.Fatalf("want %v, got %v", want, result.SectionOrder)
	}
	for i := range want {
		if result.SectionOrder[i] != want[i] {
			t.Fatalf("want %v, got %v", want, result.SectionOrder)
		}
	}
}

func TestLinker_AbsSectionNeverMerged(t *testing.T) {
	o := object.New()
	o.Sections = []object.Section{{Name: ".abs", Data: []byte{1, 2, 3}}}

	l := linker.New()
	l.Add("a.o", o)

	result, err := l.Link()
	if err != nil {
		t.Fatalf("unexpected link error: %v", err)
	}
	if _, ok := result.Sections[".abs"]; ok {
		t.Fatal(".abs must never be merged into output")
	}
}

// asError is a small helper around errors.As without importing the errors
// package into every test for a single call each.
func asError(err error, target interface{}) bool {
	switch t := target.(type) {
	case **linker.DuplicateSymbolError:
		if e, ok := err.(*linker.DuplicateSymbolError); ok {
			*t = e
			return true
		}
	case **linker.UnresolvedSymbolError:
		if e, ok := err.(*linker.UnresolvedSymbolError); ok {
			*t = e
			return true
		}
	case **linker.ImmediateOverflowError:
		if e, ok := err.(*linker.ImmediateOverflowError); ok {
			*t = e
			return true
		}
	}
	return false
}
