package hart

import (
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/riscv"
)

// Decoder turns encodings into Instructions for the configuration of a
// bound hart state.
type Decoder interface {
	// Configure binds the decoder to the state's current
	// (extensions, machine XLEN, current XLEN) triple.
	Configure(s *State)

	// Decode decodes one 16- or 32-bit encoding word. Decode never
	// fails: illegal encodings map to the illegal-instruction
	// executor.
	Decode(encoding uint32) Instruction
}

// DirectDecoder applies the decode tree on every call.
type DirectDecoder struct {
	extensions uint32
	mxlen      riscv.XlenMode
	xlen       riscv.XlenMode
}

// NewDirectDecoder creates a direct decoder bound to the state.
func NewDirectDecoder(s *State) *DirectDecoder {
	d := &DirectDecoder{}
	d.Configure(s)
	return d
}

// Configure implements Decoder.
func (d *DirectDecoder) Configure(s *State) {
	d.extensions = s.Extensions
	d.mxlen = s.MXLen
	d.xlen = s.Xlen()
}

// Decode implements Decoder.
func (d *DirectDecoder) Decode(encoding uint32) Instruction {
	return Decode(encoding, d.extensions, d.mxlen, d.xlen)
}

func seq(e Executor, x insts.Extractor) Instruction {
	return Instruction{Execute: e, GetOperands: x, Width: 4, Class: ClassSequential}
}

func ctl(e Executor, x insts.Extractor, c ControlFlowClass) Instruction {
	return Instruction{Execute: e, GetOperands: x, Width: 4, Class: c}
}

func illegal(width uint64) Instruction {
	return Instruction{Execute: execIllegal, GetOperands: insts.Raw, Width: width, Class: ClassTrap}
}

// Decode fully decodes one encoding for an
// (extensions, machine-XLEN, current-XLEN) triple. The result is
// independent of any dynamic state beyond the triple, which is what
// lets precomputed tables memoize it.
//
// For 32-bit encodings the tree inspects only the bits the packed
// projection keeps — [6:2], [14:12], [31:20] — so decoding an encoding
// and decoding its packed-then-unpacked canonical form agree.
func Decode(encoding uint32, extensions uint32, mxlen, xlen riscv.XlenMode) Instruction {
	if riscv.IsCompressed(encoding) {
		return decodeCompressed(encoding&0xffff, extensions, xlen)
	}
	return decode32(encoding, extensions, xlen)
}

func decode32(enc uint32, extensions uint32, xlen riscv.XlenMode) Instruction {
	rv64 := xlen == riscv.Xlen64
	funct3 := enc >> 12 & 0x7
	funct7 := enc >> 25 & 0x7f
	imm12 := enc >> 20 & 0xfff

	switch enc >> 2 & 0x1f {
	case 0x0d: // LUI
		return seq(execLUI, insts.UType)

	case 0x05: // AUIPC
		return seq(execAUIPC, insts.UType)

	case 0x1b: // JAL
		return ctl(execJAL, insts.JType, ClassJump)

	case 0x19: // JALR
		if funct3 == 0 {
			return ctl(execJALR, insts.IType, ClassJump)
		}

	case 0x18: // BRANCH
		switch funct3 {
		case 0:
			return ctl(execBEQ, insts.BType, ClassBranch)
		case 1:
			return ctl(execBNE, insts.BType, ClassBranch)
		case 4:
			return ctl(execBLT, insts.BType, ClassBranch)
		case 5:
			return ctl(execBGE, insts.BType, ClassBranch)
		case 6:
			return ctl(execBLTU, insts.BType, ClassBranch)
		case 7:
			return ctl(execBGEU, insts.BType, ClassBranch)
		}

	case 0x00: // LOAD
		switch funct3 {
		case 0:
			return seq(execLB, insts.IType)
		case 1:
			return seq(execLH, insts.IType)
		case 2:
			return seq(execLW, insts.IType)
		case 4:
			return seq(execLBU, insts.IType)
		case 5:
			return seq(execLHU, insts.IType)
		case 3:
			if rv64 {
				return seq(execLD, insts.IType)
			}
		case 6:
			if rv64 {
				return seq(execLWU, insts.IType)
			}
		}

	case 0x08: // STORE
		switch funct3 {
		case 0:
			return seq(execSB, insts.SType)
		case 1:
			return seq(execSH, insts.SType)
		case 2:
			return seq(execSW, insts.SType)
		case 3:
			if rv64 {
				return seq(execSD, insts.SType)
			}
		}

	case 0x04: // OP-IMM
		switch funct3 {
		case 0:
			return seq(execADDI, insts.IType)
		case 2:
			return seq(execSLTI, insts.IType)
		case 3:
			return seq(execSLTIU, insts.IType)
		case 4:
			return seq(execXORI, insts.IType)
		case 6:
			return seq(execORI, insts.IType)
		case 7:
			return seq(execANDI, insts.IType)
		case 1:
			if shiftLegal(funct7, rv64) && funct7>>1 == 0 {
				return seq(execSLLI, insts.ShiftType)
			}
		case 5:
			if shiftLegal(funct7, rv64) {
				switch funct7 &^ 1 {
				case 0x00:
					return seq(execSRLI, insts.ShiftType)
				case 0x20:
					return seq(execSRAI, insts.ShiftType)
				}
			}
		}

	case 0x0c: // OP
		switch funct7 {
		case 0x00:
			switch funct3 {
			case 0:
				return seq(execADD, insts.RType)
			case 1:
				return seq(execSLL, insts.RType)
			case 2:
				return seq(execSLT, insts.RType)
			case 3:
				return seq(execSLTU, insts.RType)
			case 4:
				return seq(execXOR, insts.RType)
			case 5:
				return seq(execSRL, insts.RType)
			case 6:
				return seq(execOR, insts.RType)
			case 7:
				return seq(execAND, insts.RType)
			}
		case 0x20:
			switch funct3 {
			case 0:
				return seq(execSUB, insts.RType)
			case 5:
				return seq(execSRA, insts.RType)
			}
		case 0x01:
			if extensions&riscv.ExtM != 0 {
				switch funct3 {
				case 0:
					return seq(execMUL, insts.RType)
				case 1:
					return seq(execMULH, insts.RType)
				case 2:
					return seq(execMULHSU, insts.RType)
				case 3:
					return seq(execMULHU, insts.RType)
				case 4:
					return seq(execDIV, insts.RType)
				case 5:
					return seq(execDIVU, insts.RType)
				case 6:
					return seq(execREM, insts.RType)
				case 7:
					return seq(execREMU, insts.RType)
				}
			}
		}

	case 0x06: // OP-IMM-32
		if !rv64 {
			break
		}
		switch funct3 {
		case 0:
			return seq(execADDIW, insts.IType)
		case 1:
			if funct7 == 0x00 {
				return seq(execSLLIW, insts.ShiftType)
			}
		case 5:
			switch funct7 {
			case 0x00:
				return seq(execSRLIW, insts.ShiftType)
			case 0x20:
				return seq(execSRAIW, insts.ShiftType)
			}
		}

	case 0x0e: // OP-32
		if !rv64 {
			break
		}
		switch funct7 {
		case 0x00:
			switch funct3 {
			case 0:
				return seq(execADDW, insts.RType)
			case 1:
				return seq(execSLLW, insts.RType)
			case 5:
				return seq(execSRLW, insts.RType)
			}
		case 0x20:
			switch funct3 {
			case 0:
				return seq(execSUBW, insts.RType)
			case 5:
				return seq(execSRAW, insts.RType)
			}
		case 0x01:
			if extensions&riscv.ExtM != 0 {
				switch funct3 {
				case 0:
					return seq(execMULW, insts.RType)
				case 4:
					return seq(execDIVW, insts.RType)
				case 5:
					return seq(execDIVUW, insts.RType)
				case 6:
					return seq(execREMW, insts.RType)
				case 7:
					return seq(execREMUW, insts.RType)
				}
			}
		}

	case 0x03: // MISC-MEM
		switch funct3 {
		case 0:
			return ctl(execFENCE, insts.None, ClassFence)
		case 1:
			return ctl(execFENCEI, insts.None, ClassFence)
		}

	case 0x1c: // SYSTEM
		switch funct3 {
		case 0:
			switch imm12 {
			case 0x000:
				return ctl(execECALL, insts.None, ClassTrap)
			case 0x001:
				return ctl(execEBREAK, insts.None, ClassTrap)
			case 0x302:
				return ctl(execMRET, insts.None, ClassTrapReturn)
			case 0x102:
				if extensions&riscv.ExtS != 0 {
					return ctl(execSRET, insts.None, ClassTrapReturn)
				}
			case 0x105:
				return seq(execWFI, insts.None)
			}
			if funct7 == 0x09 && extensions&riscv.ExtS != 0 {
				return ctl(execSFENCEVMA, insts.RType, ClassFence)
			}
		case 1:
			return seq(execCSRRW, insts.CSRType)
		case 2:
			return seq(execCSRRS, insts.CSRType)
		case 3:
			return seq(execCSRRC, insts.CSRType)
		case 5:
			return seq(execCSRRWI, insts.CSRType)
		case 6:
			return seq(execCSRRSI, insts.CSRType)
		case 7:
			return seq(execCSRRCI, insts.CSRType)
		}

	case 0x0b: // AMO
		if extensions&riscv.ExtA == 0 {
			break
		}
		double := false
		switch funct3 {
		case 2:
		case 3:
			if !rv64 {
				return illegal(4)
			}
			double = true
		default:
			return illegal(4)
		}
		switch funct7 >> 2 {
		case 0x02:
			return seq(amoExec(execLR, double), insts.RType)
		case 0x03:
			return seq(amoExec(execSC, double), insts.RType)
		case 0x01:
			return seq(amoExec(execAMOSwap, double), insts.RType)
		case 0x00:
			return seq(amoExec(execAMOAdd, double), insts.RType)
		case 0x04:
			return seq(amoExec(execAMOXor, double), insts.RType)
		case 0x0c:
			return seq(amoExec(execAMOAnd, double), insts.RType)
		case 0x08:
			return seq(amoExec(execAMOOr, double), insts.RType)
		case 0x10:
			return seq(amoExec(execAMOMin, double), insts.RType)
		case 0x14:
			return seq(amoExec(execAMOMax, double), insts.RType)
		case 0x18:
			return seq(amoExec(execAMOMinU, double), insts.RType)
		case 0x1c:
			return seq(amoExec(execAMOMaxU, double), insts.RType)
		}
	}

	return illegal(4)
}

// shiftLegal rejects shift-immediate encodings whose shamt[5] bit is
// set on a 32-bit hart.
func shiftLegal(funct7 uint32, rv64 bool) bool {
	return rv64 || funct7&1 == 0
}
