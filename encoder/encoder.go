package encoder

import (
	"fmt"

	"github.com/atlas8/toolchain/parser"
)

// EncodeResult is the encoder's output: byte-exact section buffers plus the
// relocations recorded for references it could not resolve locally.
type EncodeResult struct {
	Sections     map[string][]byte
	SectionOrder []string
	Relocations  []parser.Relocation
}

// Encoder walks a parsed Program's item lists, performs local resolution of
// same-file labels and constants, and emits 16-bit big-endian words (or raw
// data bytes) into per-section buffers.
type Encoder struct {
	symbols *parser.SymbolTable
	imports map[string]bool
}

// NewEncoder creates an encoder resolving labels against symbols. imports
// lists the names declared with `.import`; a reference to one of them, like
// a reference to any other name not defined in this file, becomes a
// relocation for the linker to complete.
func NewEncoder(symbols *parser.SymbolTable, imports map[string]bool) *Encoder {
	return &Encoder{symbols: symbols, imports: imports}
}

// Encode produces the EncodeResult for program, or the first error hit.
func (e *Encoder) Encode(program *parser.Program) (*EncodeResult, error) {
	result := &EncodeResult{
		Sections:     make(map[string][]byte),
		SectionOrder: nil,
	}

	for _, section := range program.SectionOrder {
		if section == ".abs" {
			continue // virtual: contributes no bytes to any output
		}
		result.SectionOrder = append(result.SectionOrder, section)
		buf := result.Sections[section]

		for _, item := range program.ItemsBySection[section] {
			switch item.Kind {
			case parser.ItemData:
				buf = append(buf, item.Data...)
			case parser.ItemInstruction:
				offset := len(buf)
				hi, lo, reloc, err := e.encodeInstruction(&item.Instruction, section, offset)
				if err != nil {
					return nil, err
				}
				buf = append(buf, hi, lo)
				if reloc != nil {
					result.Relocations = append(result.Relocations, *reloc)
				}
			}
		}
		result.Sections[section] = buf
	}

	return result, nil
}

// resolveOperand returns the operand's concrete 16-bit value if it can be
// resolved within this file (an immediate, or a same-file defined label or
// `.imm` constant); for a name declared `.import` or not defined in this
// file, it returns a relocation for the linker to patch in later. A name that
// no input object defines is reported by the linker as unresolved.
func (e *Encoder) resolveOperand(op parser.Operand, section string, instructionOffset int) (uint16, *parser.Relocation, error) {
	if op.Kind == parser.OperandImmediate {
		return op.Value, nil, nil
	}
	if sym, ok := e.symbols.Lookup(op.Name); ok {
		return uint16(sym.Value), nil, nil
	}
	return 0, &parser.Relocation{
		Offset:  uint32(instructionOffset),
		Section: section,
		Symbol:  op.Name,
		Addend:  0,
	}, nil
}

func writesRegister(inst *parser.ParsedInstruction) (int, bool) {
	if inst.IsNop {
		return 0, false
	}
	switch inst.Family {
	case parser.FamilyA:
		if inst.Mnemonic == "cmp" || inst.Mnemonic == "tst" {
			return 0, false
		}
		return inst.Rd, true
	case parser.FamilyI:
		return inst.Rd, true
	case parser.FamilyM:
		if inst.Mnemonic == "ld" {
			return inst.Rd, true
		}
		return 0, false
	case parser.FamilyS:
		if inst.Mnemonic == "pop" {
			return inst.Rd, true
		}
		return 0, false
	case parser.FamilyP:
		if inst.Mnemonic == "peek" {
			return inst.Rd, true
		}
		return 0, false
	}
	return 0, false
}

func (e *Encoder) encodeInstruction(inst *parser.ParsedInstruction, section string, offset int) (byte, byte, *parser.Relocation, error) {
	if rd, writes := writesRegister(inst); writes && rd == 0 {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("write to r0 is not permitted by %q", inst.Mnemonic)}
	}

	switch inst.Family {
	case parser.FamilyA:
		return e.encodeA(inst)
	case parser.FamilyI:
		return e.encodeI(inst, section, offset)
	case parser.FamilyM:
		return e.encodeM(inst)
	case parser.FamilyBI:
		return e.encodeBI(inst, section, offset)
	case parser.FamilyBR:
		return e.encodeBR(inst)
	case parser.FamilyS:
		return e.encodeS(inst)
	case parser.FamilyP:
		return e.encodeP(inst, section, offset)
	case parser.FamilyX:
		return e.encodeX(inst)
	default:
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: "unknown instruction family"}
	}
}

func (e *Encoder) encodeA(inst *parser.ParsedInstruction) (byte, byte, *parser.Relocation, error) {
	op, ok := parser.AOpcodes[inst.Mnemonic]
	if !ok {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("unknown A-type mnemonic %q", inst.Mnemonic)}
	}
	hi := byte((TopNibbleA << 4) | (inst.Rd & Nibble4Mask))
	lo := byte(((inst.Rs & Nibble4Mask) << Field2Shift) | (op & Nibble4Mask))
	return hi, lo, nil, nil
}

func (e *Encoder) encodeI(inst *parser.ParsedInstruction, section string, offset int) (byte, byte, *parser.Relocation, error) {
	top, ok := parser.IOpcodes[inst.Mnemonic]
	if !ok {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("unknown I-type mnemonic %q", inst.Mnemonic)}
	}
	val, reloc, err := e.resolveOperand(inst.Imm, section, offset)
	if err != nil {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: err.Error()}
	}
	if reloc == nil && val > LowByteMask {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("immediate %d exceeds 8 bits", val)}
	}
	hi := byte((top << 4) | (inst.Rd & Nibble4Mask))
	lo := byte(val & LowByteMask)
	return hi, lo, reloc, nil
}

func (e *Encoder) encodeM(inst *parser.ParsedInstruction) (byte, byte, *parser.Relocation, error) {
	var top int
	switch inst.Mnemonic {
	case "ld":
		top = parser.MOpcodes["ld"]
	case "st":
		top = parser.MOpcodes["st"]
	default:
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("unknown M-type mnemonic %q", inst.Mnemonic)}
	}
	if inst.Offset < -8 || inst.Offset > 7 {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("M-type offset %d out of range", inst.Offset)}
	}
	hi := byte((top << 4) | (inst.Rd & Nibble4Mask))
	lo := byte(((inst.Rb & Nibble4Mask) << Field2Shift) | (inst.Offset & Nibble4Mask))
	return hi, lo, nil, nil
}

func (e *Encoder) encodeBI(inst *parser.ParsedInstruction, section string, offset int) (byte, byte, *parser.Relocation, error) {
	cond, ok := parser.BranchConditions[inst.Mnemonic]
	if !ok {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("unknown branch mnemonic %q", inst.Mnemonic)}
	}
	val, reloc, err := e.resolveOperand(inst.Imm, section, offset)
	if err != nil {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: err.Error()}
	}
	if reloc == nil && val > LowByteMask {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("branch address %d exceeds 8 bits", val)}
	}
	var absBit int
	if inst.Abs {
		absBit = 1
	}
	field1 := (absBit << AbsBitShift) | (cond & CondBitsMask)
	hi := byte((TopNibbleBI << 4) | (field1 & Nibble4Mask))
	lo := byte(val & LowByteMask)
	return hi, lo, reloc, nil
}

func (e *Encoder) encodeBR(inst *parser.ParsedInstruction) (byte, byte, *parser.Relocation, error) {
	cond, ok := parser.BranchConditions[inst.Mnemonic]
	if !ok {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("unknown branch mnemonic %q", inst.Mnemonic)}
	}
	var absBit int
	if inst.Abs {
		absBit = 1
	}
	field1 := (absBit << AbsBitShift) | (cond & CondBitsMask)
	hi := byte((TopNibbleBR << 4) | (field1 & Nibble4Mask))
	lo := byte(((inst.Rs & Nibble4Mask) << Field2Shift) | (inst.Rb & Nibble4Mask))
	return hi, lo, nil, nil
}

func (e *Encoder) encodeS(inst *parser.ParsedInstruction) (byte, byte, *parser.Relocation, error) {
	xop, ok := parser.SSelectors[inst.Mnemonic]
	if !ok {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("unknown S-type mnemonic %q", inst.Mnemonic)}
	}
	var field byte
	switch inst.Mnemonic {
	case "push":
		field = SRegTagBit | byte(inst.Rs&SRegMask)
	case "pop":
		field = SRegTagBit | byte(inst.Rd&SRegMask)
	case "subsp", "addsp":
		if inst.Rs >= 0 {
			field = SRegTagBit | byte(inst.Rs&SRegMask)
		} else {
			if inst.Imm.Value > SImmMask {
				return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("%s immediate %d exceeds 7 bits", inst.Mnemonic, inst.Imm.Value)}
			}
			field = byte(inst.Imm.Value & SImmMask)
		}
	}
	hi := byte((TopNibbleS << 4) | (xop & Nibble4Mask))
	return hi, field, nil, nil
}

func (e *Encoder) encodeP(inst *parser.ParsedInstruction, section string, offset int) (byte, byte, *parser.Relocation, error) {
	var top int
	var reg int
	switch inst.Mnemonic {
	case "peek":
		top = TopNibbleP1
		reg = inst.Rd
	case "poke":
		top = TopNibbleP2
		reg = inst.Rs
	default:
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("unknown P-type mnemonic %q", inst.Mnemonic)}
	}
	val, reloc, err := e.resolveOperand(inst.Imm, section, offset)
	if err != nil {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: err.Error()}
	}
	if reloc == nil && val > LowByteMask {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("offset %d exceeds 8 bits", val)}
	}
	hi := byte((top << 4) | (reg & Nibble4Mask))
	lo := byte(val & LowByteMask)
	return hi, lo, reloc, nil
}

func (e *Encoder) encodeX(inst *parser.ParsedInstruction) (byte, byte, *parser.Relocation, error) {
	opcode, ok := parser.XOpcodes[inst.Mnemonic]
	if !ok {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("unknown X-type mnemonic %q", inst.Mnemonic)}
	}
	if inst.Imm.Value > LowByteMask {
		return 0, 0, nil, &EncodingError{Instruction: inst, Message: fmt.Sprintf("operand %d exceeds 8 bits", inst.Imm.Value)}
	}
	hi := byte((TopNibbleX << 4) | (opcode & Nibble4Mask))
	lo := byte(inst.Imm.Value & LowByteMask)
	return hi, lo, nil, nil
}
