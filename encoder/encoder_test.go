package encoder_test

import (
	"testing"

	"github.com/atlas8/toolchain/encoder"
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

func TestEncoder_R0WriteRejected(t *testing.T) {
	program := mustParse(t, "ldi r0, 0x10\n")
	_, err := encoder.NewEncoder(program.Symbols, program.Imports).Encode(program)
	if err == nil {
		t.Fatal("expected EncodeError for write to r0")
	}
}

func TestEncoder_CmpR0Allowed(t *testing.T) {
	program := mustParse(t, "cmp r0, r0\n")
	result, err := encoder.NewEncoder(program.Symbols, program.Imports).Encode(program)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	data := result.Sections[".text"]
	if len(data) != 2 {
		t.Fatalf("want 2 bytes, got %d", len(data))
	}
	if data[0] != 0x00 || data[1] != 0x0C {
		t.Fatalf("want [0x00 0x0C], got [0x%02X 0x%02X]", data[0], data[1])
	}
}

func TestEncoder_LocalConstantSubstitution(t *testing.T) {
	program := mustParse(t, "PORT: .imm 0x80\n ldi r3, PORT\n")
	result, err := encoder.NewEncoder(program.Symbols, program.Imports).Encode(program)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if len(result.Relocations) != 0 {
		t.Fatalf("want zero relocations, got %d", len(result.Relocations))
	}
	data := result.Sections[".text"]
	if data[0] != 0x13 || data[1] != 0x80 {
		t.Fatalf("want [0x13 0x80], got [0x%02X 0x%02X]", data[0], data[1])
	}
}

func TestEncoder_CrossFileReferenceEmitsRelocation(t *testing.T) {
	program := mustParse(t, ".import multiply\n br multiply\n")
	result, err := encoder.NewEncoder(program.Symbols, program.Imports).Encode(program)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if len(result.Relocations) != 1 {
		t.Fatalf("want 1 relocation, got %d", len(result.Relocations))
	}
	rel := result.Relocations[0]
	if rel.Symbol != "multiply" || rel.Offset != 0 || rel.Section != ".text" {
		t.Fatalf("unexpected relocation: %+v", rel)
	}
	// Placeholder low byte must be zero until the linker patches it.
	data := result.Sections[".text"]
	if data[1] != 0 {
		t.Fatalf("want placeholder low byte 0, got 0x%02X", data[1])
	}
}

func TestEncoder_UndeclaredLabelEmitsRelocation(t *testing.T) {
	program := mustParse(t, "br nowhere\n")
	result, err := encoder.NewEncoder(program.Symbols, program.Imports).Encode(program)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if len(result.Relocations) != 1 || result.Relocations[0].Symbol != "nowhere" {
		t.Fatalf("want one relocation against %q for a label not defined in this file, got %+v", "nowhere", result.Relocations)
	}
}

func TestEncoder_EveryInstructionIsTwoBytes(t *testing.T) {
	program := mustParse(t, "add r1, r2\n nop\n push r3\n halt\n")
	result, err := encoder.NewEncoder(program.Symbols, program.Imports).Encode(program)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if len(result.Sections[".text"])%2 != 0 {
		t.Fatalf("expected an even byte count, got %d", len(result.Sections[".text"]))
	}
}

func TestEncoder_ByteDirectivePassesThroughLiteralBytes(t *testing.T) {
	program := mustParse(t, ".data\n.byte 1,2,3\n")
	result, err := encoder.NewEncoder(program.Symbols, program.Imports).Encode(program)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	data := result.Sections[".data"]
	want := []byte{1, 2, 3}
	if len(data) != len(want) {
		t.Fatalf("want %v, got %v", want, data)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("want %v, got %v", want, data)
		}
	}
}

func TestEncoder_AbsSectionNeverEmitsBytes(t *testing.T) {
	program := mustParse(t, "PORT: .imm 0x80\n")
	result, err := encoder.NewEncoder(program.Symbols, program.Imports).Encode(program)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if _, ok := result.Sections[".abs"]; ok {
		t.Fatal(".abs must never appear in encoded output")
	}
}
