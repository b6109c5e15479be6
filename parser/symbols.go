package parser

import "fmt"

// SymbolBinding is Local or Global visibility for a symbol.
type SymbolBinding int

const (
	BindingLocal SymbolBinding = iota
	BindingGlobal
)

// Symbol is `{ name, value, section, binding }` from the data model.
// Section == "" means the symbol is undefined (an import); Defined reports
// whether a value has actually been assigned yet.
type Symbol struct {
	Name    string
	Value   uint32
	Section string
	Defined bool
	Binding SymbolBinding
}

// SymbolTable is the parser's per-file local symbol table: labels and
// `.imm` constants defined while parsing one source file.
type SymbolTable struct {
	symbols map[string]*Symbol
	order   []string
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*Symbol)}
}

// Define records a new definition. Returns an error if name is already defined.
func (t *SymbolTable) Define(name string, value uint32, section string) error {
	if existing, ok := t.symbols[name]; ok && existing.Defined {
		return fmt.Errorf("duplicate symbol %q", name)
	}
	binding := BindingLocal
	if existing, ok := t.symbols[name]; ok {
		binding = existing.Binding // keep a .global/.export seen before the definition
	} else {
		t.order = append(t.order, name)
	}
	t.symbols[name] = &Symbol{Name: name, Value: value, Section: section, Defined: true, Binding: binding}
	return nil
}

// Reference ensures name exists in the table (as an undefined forward
// reference) without marking it defined; used while scanning operands.
func (t *SymbolTable) Reference(name string) {
	if _, ok := t.symbols[name]; !ok {
		t.symbols[name] = &Symbol{Name: name}
		t.order = append(t.order, name)
	}
}

// MarkGlobal sets name's binding to Global, creating an undefined entry if needed.
func (t *SymbolTable) MarkGlobal(name string) {
	if sym, ok := t.symbols[name]; ok {
		sym.Binding = BindingGlobal
		return
	}
	t.symbols[name] = &Symbol{Name: name, Binding: BindingGlobal}
	t.order = append(t.order, name)
}

// Lookup returns the symbol and whether it is both present and defined.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.symbols[name]
	if !ok || !sym.Defined {
		return sym, false
	}
	return sym, true
}

// Get returns the raw entry (defined or not) and whether it exists at all.
func (t *SymbolTable) Get(name string) (*Symbol, bool) {
	sym, ok := t.symbols[name]
	return sym, ok
}

// GetUndefinedSymbols returns symbols referenced but never defined, in
// first-reference order.
func (t *SymbolTable) GetUndefinedSymbols() []*Symbol {
	var undefined []*Symbol
	for _, name := range t.order {
		if sym := t.symbols[name]; !sym.Defined {
			undefined = append(undefined, sym)
		}
	}
	return undefined
}

// GetAllSymbols returns every symbol in definition/reference order.
func (t *SymbolTable) GetAllSymbols() []*Symbol {
	all := make([]*Symbol, 0, len(t.order))
	for _, name := range t.order {
		all = append(all, t.symbols[name])
	}
	return all
}

// RelocationType distinguishes how a relocation's value is interpreted; the
// core currently has only one kind (low-byte patch of an 8-bit field) but
// the type is kept distinct so the object format's `section`/`symbol`
// fields aren't conflated with a bare offset.
type RelocationType int

const (
	RelocLowByte RelocationType = iota
)

// Relocation is `{ offset, section, symbol, addend }` from the data model.
type Relocation struct {
	Offset  uint32
	Section string
	Symbol  string
	Addend  int32
	Type    RelocationType
}
