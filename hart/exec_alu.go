package hart

import (
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
)

// Integer computational instructions. All arithmetic is performed in
// uint64 and masked to the current XLEN on register write-back; signed
// comparisons read through RegS, which sign-extends from the current
// width.

func execLUI(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, uint64(ops.Imm))
}

func execAUIPC(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.PC+uint64(ops.Imm))
}

func execADDI(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)+uint64(ops.Imm))
}

func execSLTI(ops insts.Operands, s *State, t mem.Transactor) {
	var v uint64
	if s.RegS(ops.Rs1) < ops.Imm {
		v = 1
	}
	s.SetReg(ops.Rd, v)
}

func execSLTIU(ops insts.Operands, s *State, t mem.Transactor) {
	var v uint64
	if s.Reg(ops.Rs1) < uint64(ops.Imm)&s.XlenMask() {
		v = 1
	}
	s.SetReg(ops.Rd, v)
}

func execXORI(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)^uint64(ops.Imm))
}

func execORI(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)|uint64(ops.Imm))
}

func execANDI(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)&uint64(ops.Imm))
}

func execSLLI(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)<<uint(ops.Imm))
}

func execSRLI(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)>>uint(ops.Imm))
}

func execSRAI(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, uint64(s.RegS(ops.Rs1)>>uint(ops.Imm)))
}

func execADD(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)+s.Reg(ops.Rs2))
}

func execSUB(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)-s.Reg(ops.Rs2))
}

func (s *State) shiftAmount(rs2 uint8) uint {
	return uint(s.Reg(rs2)) & (s.XlenBits() - 1)
}

func execSLL(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)<<s.shiftAmount(ops.Rs2))
}

func execSLT(ops insts.Operands, s *State, t mem.Transactor) {
	var v uint64
	if s.RegS(ops.Rs1) < s.RegS(ops.Rs2) {
		v = 1
	}
	s.SetReg(ops.Rd, v)
}

func execSLTU(ops insts.Operands, s *State, t mem.Transactor) {
	var v uint64
	if s.Reg(ops.Rs1) < s.Reg(ops.Rs2) {
		v = 1
	}
	s.SetReg(ops.Rd, v)
}

func execXOR(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)^s.Reg(ops.Rs2))
}

func execSRL(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)>>s.shiftAmount(ops.Rs2))
}

func execSRA(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, uint64(s.RegS(ops.Rs1)>>s.shiftAmount(ops.Rs2)))
}

func execOR(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)|s.Reg(ops.Rs2))
}

func execAND(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)&s.Reg(ops.Rs2))
}

// RV64 word instructions: operate on the low 32 bits and sign-extend
// the 32-bit result.

func word(v uint64) uint64 {
	return uint64(int64(int32(uint32(v))))
}

func execADDIW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, word(s.Reg(ops.Rs1)+uint64(ops.Imm)))
}

func execSLLIW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, word(s.Reg(ops.Rs1)<<uint(ops.Imm&0x1f)))
}

func execSRLIW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, word(uint64(uint32(s.Reg(ops.Rs1))>>uint(ops.Imm&0x1f))))
}

func execSRAIW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, uint64(int64(int32(uint32(s.Reg(ops.Rs1)))>>uint(ops.Imm&0x1f))))
}

func execADDW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, word(s.Reg(ops.Rs1)+s.Reg(ops.Rs2)))
}

func execSUBW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, word(s.Reg(ops.Rs1)-s.Reg(ops.Rs2)))
}

func execSLLW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, word(s.Reg(ops.Rs1)<<(s.Reg(ops.Rs2)&0x1f)))
}

func execSRLW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, word(uint64(uint32(s.Reg(ops.Rs1))>>(s.Reg(ops.Rs2)&0x1f))))
}

func execSRAW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, uint64(int64(int32(uint32(s.Reg(ops.Rs1)))>>(s.Reg(ops.Rs2)&0x1f))))
}
