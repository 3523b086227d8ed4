// Package insts provides RISC-V instruction encoding manipulation.
//
// This package implements operand extraction for the base R/I/S/B/U/J
// formats and for every compressed (RVC) instruction, plus the packed
// 20-bit projection of 32-bit encodings used by precomputed decode
// tables. It identifies no opcodes itself; the decode tree lives with
// the hart, which binds each encoding to an executor and to one of the
// extraction functions defined here.
package insts

// Operands carries the decoded operand fields of one instruction.
//
// The interpretation of each field depends on the opcode the operands
// were extracted for: Imm holds the sign-extended immediate for most
// formats, the zero-extended CSR number for Zicsr instructions, the
// shift amount for shift-immediate instructions, and the raw encoding
// for the illegal-instruction handler.
type Operands struct {
	Rd  uint8
	Rs1 uint8
	Rs2 uint8
	Imm int64
}

// Extractor produces the operands of one encoding.
type Extractor func(encoding uint32) Operands

func signExtend(v uint32, signBit uint) int64 {
	shift := 64 - signBit - 1
	return int64(uint64(v)<<shift) >> shift
}

// RType extracts rd, rs1, rs2.
func RType(enc uint32) Operands {
	return Operands{
		Rd:  uint8(enc >> 7 & 0x1f),
		Rs1: uint8(enc >> 15 & 0x1f),
		Rs2: uint8(enc >> 20 & 0x1f),
	}
}

// IType extracts rd, rs1, and the sign-extended 12-bit immediate.
func IType(enc uint32) Operands {
	return Operands{
		Rd:  uint8(enc >> 7 & 0x1f),
		Rs1: uint8(enc >> 15 & 0x1f),
		Imm: signExtend(enc>>20, 11),
	}
}

// CSRType extracts rd, rs1 (also the uimm for the immediate forms), and
// the zero-extended CSR number.
func CSRType(enc uint32) Operands {
	return Operands{
		Rd:  uint8(enc >> 7 & 0x1f),
		Rs1: uint8(enc >> 15 & 0x1f),
		Imm: int64(enc >> 20 & 0xfff),
	}
}

// ShiftType extracts rd, rs1, and the 6-bit shift amount. The decode
// tree is responsible for rejecting shamt[5] on 32-bit shifts.
func ShiftType(enc uint32) Operands {
	return Operands{
		Rd:  uint8(enc >> 7 & 0x1f),
		Rs1: uint8(enc >> 15 & 0x1f),
		Imm: int64(enc >> 20 & 0x3f),
	}
}

// SType extracts rs1, rs2, and the sign-extended store offset.
func SType(enc uint32) Operands {
	imm := enc>>20&0xfe0 | enc>>7&0x1f
	return Operands{
		Rs1: uint8(enc >> 15 & 0x1f),
		Rs2: uint8(enc >> 20 & 0x1f),
		Imm: signExtend(imm, 11),
	}
}

// BType extracts rs1, rs2, and the sign-extended branch offset.
func BType(enc uint32) Operands {
	imm := enc>>19&0x1000 | enc<<4&0x800 | enc>>20&0x7e0 | enc>>7&0x1e
	return Operands{
		Rs1: uint8(enc >> 15 & 0x1f),
		Rs2: uint8(enc >> 20 & 0x1f),
		Imm: signExtend(imm, 12),
	}
}

// UType extracts rd and the sign-extended upper immediate.
func UType(enc uint32) Operands {
	return Operands{
		Rd:  uint8(enc >> 7 & 0x1f),
		Imm: signExtend(enc&0xfffff000, 31),
	}
}

// JType extracts rd and the sign-extended jump offset.
func JType(enc uint32) Operands {
	imm := enc>>11&0x100000 | enc&0xff000 | enc>>9&0x800 | enc>>20&0x7fe
	return Operands{
		Rd:  uint8(enc >> 7 & 0x1f),
		Imm: signExtend(imm, 20),
	}
}

// Raw stores the encoding itself in Imm; used by the
// illegal-instruction handler to populate the trap value register.
func Raw(enc uint32) Operands {
	return Operands{Imm: int64(enc)}
}

// None extracts nothing; used by opcodes without operand fields.
func None(enc uint32) Operands {
	return Operands{}
}
