package parser_test

import (
	"testing"

	"github.com/atlas8/toolchain/parser"
)

func mustParse(t *testing.T, source string) *parser.Program {
	t.Helper()
	p := parser.NewParser(source, "t.asm")
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return program
}

func TestParser_SimpleInstruction(t *testing.T) {
	program := mustParse(t, "add r1, r2\n")
	items := program.ItemsBySection[".text"]
	if len(items) != 1 {
		t.Fatalf("want 1 item, got %d", len(items))
	}
	inst := items[0].Instruction
	if inst.Family != parser.FamilyA || inst.Rd != 1 || inst.Rs != 2 {
		t.Fatalf("unexpected instruction: %+v", inst)
	}
}

func TestParser_LabelDefinition(t *testing.T) {
	program := mustParse(t, "start:\n add r1, r2\n br start\n")
	sym, ok := program.Symbols.Lookup("start")
	if !ok {
		t.Fatal("expected start to be defined")
	}
	if sym.Value != 0 || sym.Section != ".text" {
		t.Fatalf("unexpected symbol: %+v", sym)
	}
}

func TestParser_DuplicateLabel(t *testing.T) {
	p := parser.NewParser("a:\n a:\n nop\n", "t.asm")
	_, err := p.Parse()
	if err == nil {
		t.Fatal("expected a duplicate-symbol parse error")
	}
}

func TestParser_ImmConstant(t *testing.T) {
	program := mustParse(t, "PORT: .imm 0x80\n ldi r3, PORT\n")
	sym, ok := program.Symbols.Lookup("PORT")
	if !ok || sym.Section != ".abs" || sym.Value != 0x80 {
		t.Fatalf("unexpected PORT symbol: %+v", sym)
	}
	items := program.ItemsBySection[".text"]
	if len(items) != 1 {
		t.Fatalf("want 1 instruction item in .text, got %d", len(items))
	}
}

func TestParser_GlobalImportDirectives(t *testing.T) {
	program := mustParse(t, ".export multiply\nmultiply:\n add r1, r2\n")
	if !program.Exports["multiply"] {
		t.Fatal("expected multiply to be exported")
	}

	program2 := mustParse(t, ".import multiply\n br multiply\n")
	if !program2.Imports["multiply"] {
		t.Fatal("expected multiply to be imported")
	}
}

func TestParser_SectionSwitching(t *testing.T) {
	program := mustParse(t, ".data\n.byte 1,2,3\n.text\nadd r1,r2\n")
	if len(program.ItemsBySection[".data"]) != 1 {
		t.Fatalf("want 1 data item, got %d", len(program.ItemsBySection[".data"]))
	}
	if len(program.ItemsBySection[".text"]) != 1 {
		t.Fatalf("want 1 text item, got %d", len(program.ItemsBySection[".text"]))
	}
}

func TestParser_MemoryOperandWithSPR(t *testing.T) {
	program := mustParse(t, "ld r1, [r2, tr]\n")
	inst := program.ItemsBySection[".text"][0].Instruction
	if inst.Offset != parser.SPRTr {
		t.Fatalf("want SPR TR offset, got %d", inst.Offset)
	}
}

func TestParser_BranchFamilyDisambiguation(t *testing.T) {
	programBI := mustParse(t, "br 0x10\n")
	if programBI.ItemsBySection[".text"][0].Instruction.Family != parser.FamilyBI {
		t.Fatal("expected BI-type for immediate operand")
	}

	programBR := mustParse(t, "br r1, r2\n")
	if programBR.ItemsBySection[".text"][0].Instruction.Family != parser.FamilyBR {
		t.Fatal("expected BR-type for register-pair operand")
	}
}

func TestParser_VirtualNop(t *testing.T) {
	program := mustParse(t, "nop\n")
	inst := program.ItemsBySection[".text"][0].Instruction
	if !inst.IsNop || inst.Rd != 0 || inst.Rs != 0 {
		t.Fatalf("unexpected nop encoding: %+v", inst)
	}
}

func TestParser_EoFTerminatesLastStatement(t *testing.T) {
	program := mustParse(t, "add r1, r2")
	if len(program.ItemsBySection[".text"]) != 1 {
		t.Fatal("expected EoF to terminate the final instruction")
	}
}
