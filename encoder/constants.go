package encoder

// Bit-field shift positions within a 16-bit Atlas-8 instruction word.
// Named the way the teacher's vm/constants.go names ARM bit positions:
// one constant per field, used as `(value & Mask) << Shift`.
const (
	TypeNibbleShift = 12
	Field1Shift     = 8 // [11:8]
	Field2Shift     = 4 // [7:4]
	// [3:0] needs no shift.

	LowByteMask  = 0xFF
	Nibble4Mask  = 0xF
	TopNibbleA   = 0x0
	TopNibbleM1  = 0x6 // ld
	TopNibbleM2  = 0x7 // st
	TopNibbleBI  = 0x8
	TopNibbleBR  = 0x9
	TopNibbleS   = 0xA
	TopNibbleP1  = 0xB // peek
	TopNibbleP2  = 0xC // poke
	TopNibbleX   = 0xD
	AbsBitShift  = 3 // within the shared [11:8] BI/BR field
	CondBitsMask = 0x7

	// S-type shared 8-bit field: bit 7 discriminates register (1) vs
	// 7-bit immediate (0). See DESIGN.md's Open Question resolution.
	SRegTagBit  = 0x80
	SRegMask    = 0x0F
	SImmMask    = 0x7F
)
