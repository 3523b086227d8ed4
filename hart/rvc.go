package hart

import (
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/riscv"
)

func cseq(e Executor, x insts.Extractor) Instruction {
	return Instruction{Execute: e, GetOperands: x, Width: 2, Class: ClassSequential}
}

func cctl(e Executor, x insts.Extractor, c ControlFlowClass) Instruction {
	return Instruction{Execute: e, GetOperands: x, Width: 2, Class: c}
}

// decodeCompressed decodes one RVC halfword. Every compressed
// instruction expands to a base instruction: the executor is shared
// with the 32-bit form and only the operand extraction differs.
func decodeCompressed(enc uint32, extensions uint32, xlen riscv.XlenMode) Instruction {
	if extensions&riscv.ExtC == 0 || enc == 0 {
		return illegal(2)
	}
	rv64 := xlen == riscv.Xlen64
	funct3 := enc >> 13 & 0x7

	switch enc & 0x3 {
	case 0b00:
		switch funct3 {
		case 0: // C.ADDI4SPN
			if enc>>5&0xff == 0 {
				break
			}
			return cseq(execADDI, insts.CIWType)
		case 2: // C.LW
			return cseq(execLW, insts.CLWType)
		case 3: // C.LD
			if rv64 {
				return cseq(execLD, insts.CLDType)
			}
		case 6: // C.SW
			return cseq(execSW, insts.CSWType)
		case 7: // C.SD
			if rv64 {
				return cseq(execSD, insts.CSDType)
			}
		}

	case 0b01:
		switch funct3 {
		case 0: // C.ADDI, C.NOP
			return cseq(execADDI, insts.CIType)
		case 1: // C.JAL on RV32, C.ADDIW on RV64
			if rv64 {
				return cseq(execADDIW, insts.CIType)
			}
			return cctl(execJAL, insts.CJALType, ClassJump)
		case 2: // C.LI
			return cseq(execADDI, insts.CLIType)
		case 3: // C.ADDI16SP or C.LUI
			nzimm := enc>>12&0x1 != 0 || enc>>2&0x1f != 0
			if !nzimm {
				break
			}
			if enc>>7&0x1f == 2 {
				return cseq(execADDI, insts.CADDI16SPType)
			}
			return cseq(execLUI, insts.CLUIType)
		case 4:
			switch enc >> 10 & 0x3 {
			case 0: // C.SRLI
				if !rv64 && enc>>12&0x1 != 0 {
					break
				}
				return cseq(execSRLI, insts.CShiftType)
			case 1: // C.SRAI
				if !rv64 && enc>>12&0x1 != 0 {
					break
				}
				return cseq(execSRAI, insts.CShiftType)
			case 2: // C.ANDI
				return cseq(execANDI, insts.CANDIType)
			case 3:
				if enc>>12&0x1 == 0 {
					switch enc >> 5 & 0x3 {
					case 0: // C.SUB
						return cseq(execSUB, insts.CAType)
					case 1: // C.XOR
						return cseq(execXOR, insts.CAType)
					case 2: // C.OR
						return cseq(execOR, insts.CAType)
					case 3: // C.AND
						return cseq(execAND, insts.CAType)
					}
				} else if rv64 {
					switch enc >> 5 & 0x3 {
					case 0: // C.SUBW
						return cseq(execSUBW, insts.CAType)
					case 1: // C.ADDW
						return cseq(execADDW, insts.CAType)
					}
				}
			}
		case 5: // C.J
			return cctl(execJAL, insts.CJType, ClassJump)
		case 6: // C.BEQZ
			return cctl(execBEQ, insts.CBranchType, ClassBranch)
		case 7: // C.BNEZ
			return cctl(execBNE, insts.CBranchType, ClassBranch)
		}

	case 0b10:
		switch funct3 {
		case 0: // C.SLLI
			if !rv64 && enc>>12&0x1 != 0 {
				break
			}
			return cseq(execSLLI, insts.CSLLIType)
		case 2: // C.LWSP
			if enc>>7&0x1f == 0 {
				break
			}
			return cseq(execLW, insts.CLWSPType)
		case 3: // C.LDSP
			if rv64 && enc>>7&0x1f != 0 {
				return cseq(execLD, insts.CLDSPType)
			}
		case 4:
			rs1 := enc >> 7 & 0x1f
			rs2 := enc >> 2 & 0x1f
			if enc>>12&0x1 == 0 {
				if rs2 == 0 { // C.JR
					if rs1 == 0 {
						break
					}
					return cctl(execJALR, insts.CJRType, ClassJump)
				}
				return cseq(execADD, insts.CMVType) // C.MV
			}
			if rs2 == 0 {
				if rs1 == 0 { // C.EBREAK
					return cctl(execEBREAK, insts.None, ClassTrap)
				}
				return cctl(execJALR, insts.CJALRType, ClassJump) // C.JALR
			}
			return cseq(execADD, insts.CADDType) // C.ADD
		case 6: // C.SWSP
			return cseq(execSW, insts.CSWSPType)
		case 7: // C.SDSP
			if rv64 {
				return cseq(execSD, insts.CSDSPType)
			}
		}
	}

	return illegal(2)
}
