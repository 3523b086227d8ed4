package hart

import (
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// Control transfer instructions. The driver sets NextPC to PC plus the
// instruction width before executing, so the fall-through link value
// is simply NextPC. Taken targets are checked against the current
// instruction alignment before NextPC is redirected.

func (s *State) redirect(target uint64) bool {
	target &= s.XlenMask()
	if target&s.IAlignMask() != 0 {
		s.RaiseException(riscv.CauseInstructionAddressMisaligned, target)
		return false
	}
	s.NextPC = target
	return true
}

func execJAL(ops insts.Operands, s *State, t mem.Transactor) {
	link := s.NextPC
	if s.redirect(s.PC + uint64(ops.Imm)) {
		s.SetReg(ops.Rd, link)
	}
}

func execJALR(ops insts.Operands, s *State, t mem.Transactor) {
	link := s.NextPC
	if s.redirect((s.Reg(ops.Rs1) + uint64(ops.Imm)) &^ 1) {
		s.SetReg(ops.Rd, link)
	}
}

func branch(ops insts.Operands, s *State, taken bool) {
	if taken {
		s.redirect(s.PC + uint64(ops.Imm))
	}
}

func execBEQ(ops insts.Operands, s *State, t mem.Transactor) {
	branch(ops, s, s.Reg(ops.Rs1) == s.Reg(ops.Rs2))
}

func execBNE(ops insts.Operands, s *State, t mem.Transactor) {
	branch(ops, s, s.Reg(ops.Rs1) != s.Reg(ops.Rs2))
}

func execBLT(ops insts.Operands, s *State, t mem.Transactor) {
	branch(ops, s, s.RegS(ops.Rs1) < s.RegS(ops.Rs2))
}

func execBGE(ops insts.Operands, s *State, t mem.Transactor) {
	branch(ops, s, s.RegS(ops.Rs1) >= s.RegS(ops.Rs2))
}

func execBLTU(ops insts.Operands, s *State, t mem.Transactor) {
	branch(ops, s, s.Reg(ops.Rs1) < s.Reg(ops.Rs2))
}

func execBGEU(ops insts.Operands, s *State, t mem.Transactor) {
	branch(ops, s, s.Reg(ops.Rs1) >= s.Reg(ops.Rs2))
}
