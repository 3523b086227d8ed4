package insts

// Compressed-format operand extraction. Each function decodes the
// scrambled immediate of one RVC instruction and maps the compressed
// register fields onto the base-format Operands the expanded
// instruction executes with: C.LW yields the operands of the LW it
// stands for, and so on. The register convention follows the RVC spec:
// full register fields in bits [11:7] and [6:2], three-bit "prime"
// fields offset by x8.

const spReg = 2

func primeLow(enc uint32) uint8 {
	return uint8(8 + enc>>2&0x7)
}

func primeHigh(enc uint32) uint8 {
	return uint8(8 + enc>>7&0x7)
}

func fullRd(enc uint32) uint8 {
	return uint8(enc >> 7 & 0x1f)
}

func fullRs2(enc uint32) uint8 {
	return uint8(enc >> 2 & 0x1f)
}

// CIWType extracts C.ADDI4SPN: addi rd', x2, nzuimm.
func CIWType(enc uint32) Operands {
	imm := enc>>11&0x3<<4 | enc>>7&0xf<<6 | enc>>6&0x1<<2 | enc>>5&0x1<<3
	return Operands{Rd: primeLow(enc), Rs1: spReg, Imm: int64(imm)}
}

// CLWType extracts C.LW: lw rd', uimm(rs1').
func CLWType(enc uint32) Operands {
	imm := enc>>10&0x7<<3 | enc>>6&0x1<<2 | enc>>5&0x1<<6
	return Operands{Rd: primeLow(enc), Rs1: primeHigh(enc), Imm: int64(imm)}
}

// CLDType extracts C.LD: ld rd', uimm(rs1').
func CLDType(enc uint32) Operands {
	imm := enc>>10&0x7<<3 | enc>>5&0x3<<6
	return Operands{Rd: primeLow(enc), Rs1: primeHigh(enc), Imm: int64(imm)}
}

// CSWType extracts C.SW: sw rs2', uimm(rs1').
func CSWType(enc uint32) Operands {
	imm := enc>>10&0x7<<3 | enc>>6&0x1<<2 | enc>>5&0x1<<6
	return Operands{Rs1: primeHigh(enc), Rs2: primeLow(enc), Imm: int64(imm)}
}

// CSDType extracts C.SD: sd rs2', uimm(rs1').
func CSDType(enc uint32) Operands {
	imm := enc>>10&0x7<<3 | enc>>5&0x3<<6
	return Operands{Rs1: primeHigh(enc), Rs2: primeLow(enc), Imm: int64(imm)}
}

// CIType extracts C.ADDI and C.ADDIW: addi rd, rd, imm.
func CIType(enc uint32) Operands {
	imm := enc>>12&0x1<<5 | enc>>2&0x1f
	rd := fullRd(enc)
	return Operands{Rd: rd, Rs1: rd, Imm: signExtend(imm, 5)}
}

// CLIType extracts C.LI: addi rd, x0, imm.
func CLIType(enc uint32) Operands {
	imm := enc>>12&0x1<<5 | enc>>2&0x1f
	return Operands{Rd: fullRd(enc), Rs1: 0, Imm: signExtend(imm, 5)}
}

// CLUIType extracts C.LUI: lui rd, nzimm.
func CLUIType(enc uint32) Operands {
	imm := (enc>>12&0x1<<5 | enc>>2&0x1f) << 12
	return Operands{Rd: fullRd(enc), Imm: signExtend(imm, 17)}
}

// CADDI16SPType extracts C.ADDI16SP: addi x2, x2, nzimm.
func CADDI16SPType(enc uint32) Operands {
	imm := enc>>12&0x1<<9 | enc>>6&0x1<<4 | enc>>5&0x1<<6 | enc>>3&0x3<<7 | enc>>2&0x1<<5
	return Operands{Rd: spReg, Rs1: spReg, Imm: signExtend(imm, 9)}
}

func cjOffset(enc uint32) int64 {
	imm := enc>>12&0x1<<11 | enc>>11&0x1<<4 | enc>>9&0x3<<8 | enc>>8&0x1<<10 |
		enc>>7&0x1<<6 | enc>>6&0x1<<7 | enc>>3&0x7<<1 | enc>>2&0x1<<5
	return signExtend(imm, 11)
}

// CJType extracts C.J: jal x0, offset.
func CJType(enc uint32) Operands {
	return Operands{Rd: 0, Imm: cjOffset(enc)}
}

// CJALType extracts C.JAL: jal x1, offset.
func CJALType(enc uint32) Operands {
	return Operands{Rd: 1, Imm: cjOffset(enc)}
}

// CBranchType extracts C.BEQZ and C.BNEZ: beq/bne rs1', x0, offset.
func CBranchType(enc uint32) Operands {
	imm := enc>>12&0x1<<8 | enc>>10&0x3<<3 | enc>>5&0x3<<6 | enc>>3&0x3<<1 | enc>>2&0x1<<5
	return Operands{Rs1: primeHigh(enc), Rs2: 0, Imm: signExtend(imm, 8)}
}

// CShiftType extracts C.SRLI and C.SRAI: srli/srai rd', rd', shamt.
func CShiftType(enc uint32) Operands {
	shamt := enc>>12&0x1<<5 | enc>>2&0x1f
	rd := primeHigh(enc)
	return Operands{Rd: rd, Rs1: rd, Imm: int64(shamt)}
}

// CANDIType extracts C.ANDI: andi rd', rd', imm.
func CANDIType(enc uint32) Operands {
	imm := enc>>12&0x1<<5 | enc>>2&0x1f
	rd := primeHigh(enc)
	return Operands{Rd: rd, Rs1: rd, Imm: signExtend(imm, 5)}
}

// CAType extracts the register-register quadrant-1 group
// (C.SUB/C.XOR/C.OR/C.AND/C.SUBW/C.ADDW): op rd', rd', rs2'.
func CAType(enc uint32) Operands {
	rd := primeHigh(enc)
	return Operands{Rd: rd, Rs1: rd, Rs2: primeLow(enc)}
}

// CSLLIType extracts C.SLLI: slli rd, rd, shamt.
func CSLLIType(enc uint32) Operands {
	shamt := enc>>12&0x1<<5 | enc>>2&0x1f
	rd := fullRd(enc)
	return Operands{Rd: rd, Rs1: rd, Imm: int64(shamt)}
}

// CLWSPType extracts C.LWSP: lw rd, uimm(x2).
func CLWSPType(enc uint32) Operands {
	imm := enc>>12&0x1<<5 | enc>>4&0x7<<2 | enc>>2&0x3<<6
	return Operands{Rd: fullRd(enc), Rs1: spReg, Imm: int64(imm)}
}

// CLDSPType extracts C.LDSP: ld rd, uimm(x2).
func CLDSPType(enc uint32) Operands {
	imm := enc>>12&0x1<<5 | enc>>5&0x3<<3 | enc>>2&0x7<<6
	return Operands{Rd: fullRd(enc), Rs1: spReg, Imm: int64(imm)}
}

// CSWSPType extracts C.SWSP: sw rs2, uimm(x2).
func CSWSPType(enc uint32) Operands {
	imm := enc>>9&0xf<<2 | enc>>7&0x3<<6
	return Operands{Rs1: spReg, Rs2: fullRs2(enc), Imm: int64(imm)}
}

// CSDSPType extracts C.SDSP: sd rs2, uimm(x2).
func CSDSPType(enc uint32) Operands {
	imm := enc>>10&0x7<<3 | enc>>7&0x7<<6
	return Operands{Rs1: spReg, Rs2: fullRs2(enc), Imm: int64(imm)}
}

// CJRType extracts C.JR: jalr x0, 0(rs1).
func CJRType(enc uint32) Operands {
	return Operands{Rd: 0, Rs1: fullRd(enc), Imm: 0}
}

// CJALRType extracts C.JALR: jalr x1, 0(rs1).
func CJALRType(enc uint32) Operands {
	return Operands{Rd: 1, Rs1: fullRd(enc), Imm: 0}
}

// CMVType extracts C.MV: add rd, x0, rs2.
func CMVType(enc uint32) Operands {
	return Operands{Rd: fullRd(enc), Rs1: 0, Rs2: fullRs2(enc)}
}

// CADDType extracts C.ADD: add rd, rd, rs2.
func CADDType(enc uint32) Operands {
	rd := fullRd(enc)
	return Operands{Rd: rd, Rs1: rd, Rs2: fullRs2(enc)}
}
