package parser

// Mnemonic tables. Concrete numeric opcode/condition/selector assignments
// are this repository's resolution of spec.md's open-ended "op (0-15)"
// field; see DESIGN.md's "Open Question resolutions" for the full table.

// AOpcodes maps A-type mnemonics to their op nibble.
var AOpcodes = map[string]int{
	"add": 0x0, "addc": 0x1, "sub": 0x2, "subc": 0x3,
	"and": 0x4, "or": 0x5, "xor": 0x6, "not": 0x7,
	"shl": 0x8, "shr": 0x9, "rol": 0xA, "ror": 0xB,
	"cmp": 0xC, "tst": 0xD, "mov": 0xE, "neg": 0xF,
}

// IOpcodes maps I-type mnemonics to their top nibble.
var IOpcodes = map[string]int{
	"ldi": 0x1, "addi": 0x2, "subi": 0x3, "andi": 0x4, "ori": 0x5,
}

// MOpcodes maps M-type mnemonics to their top nibble.
var MOpcodes = map[string]int{
	"ld": 0x6, "st": 0x7,
}

// BranchConditions maps BI/BR mnemonics to their 3-bit condition code.
var BranchConditions = map[string]int{
	"br": 0, "beq": 1, "bne": 2, "bcs": 3, "bcc": 4, "bmi": 5, "bpl": 6, "bov": 7,
}

// SSelectors maps S-type mnemonics to their xop selector.
var SSelectors = map[string]int{
	"push": 0, "pop": 1, "subsp": 2, "addsp": 3,
}

// XOpcodes maps X-type mnemonics to their opcode field.
var XOpcodes = map[string]int{
	"sysc": 0, "eret": 1, "halt": 2, "icinv": 3, "dcinv": 4, "dcclean": 5, "flush": 6,
}

// SPR selector literal values used in M-type offset fields.
const (
	SPRTr = -6
	SPRSp = -7
	SPRPc = -8
)

func isAType(m string) bool      { _, ok := AOpcodes[m]; return ok }
func isIType(m string) bool      { _, ok := IOpcodes[m]; return ok }
func isMType(m string) bool      { _, ok := MOpcodes[m]; return ok }
func isBranchType(m string) bool { _, ok := BranchConditions[m]; return ok }
func isSType(m string) bool      { _, ok := SSelectors[m]; return ok }
func isXType(m string) bool      { _, ok := XOpcodes[m]; return ok }
func isPType(m string) bool      { return m == "peek" || m == "poke" }
func isVirtual(m string) bool    { return m == "nop" || m == "inc" || m == "dec" }

// isInstructionMnemonic reports whether name names any recognized instruction,
// including the P-type and virtual forms not covered by the tables above.
func isInstructionMnemonic(name string) bool {
	return isAType(name) || isIType(name) || isMType(name) || isBranchType(name) ||
		isSType(name) || isXType(name) || isPType(name) || isVirtual(name)
}
