package hart

import (
	"math/bits"

	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// M extension. The high-half multiplies branch on the current width:
// a 32-bit hart computes them in 64-bit arithmetic, a 64-bit hart uses
// the 128-bit product from math/bits with the usual signed
// corrections. Division follows the ISA's quotient/remainder rules for
// zero divisors and signed overflow, which Go would otherwise panic
// on.

func execMUL(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, s.Reg(ops.Rs1)*s.Reg(ops.Rs2))
}

func execMULH(ops insts.Operands, s *State, t mem.Transactor) {
	a, b := s.RegS(ops.Rs1), s.RegS(ops.Rs2)
	if s.Xlen() == riscv.Xlen32 {
		s.SetReg(ops.Rd, uint64(a*b>>32))
		return
	}
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	s.SetReg(ops.Rd, hi)
}

func execMULHSU(ops insts.Operands, s *State, t mem.Transactor) {
	a := s.RegS(ops.Rs1)
	b := s.Reg(ops.Rs2)
	if s.Xlen() == riscv.Xlen32 {
		s.SetReg(ops.Rd, uint64(a*int64(b)>>32))
		return
	}
	hi, _ := bits.Mul64(uint64(a), b)
	if a < 0 {
		hi -= b
	}
	s.SetReg(ops.Rd, hi)
}

func execMULHU(ops insts.Operands, s *State, t mem.Transactor) {
	a, b := s.Reg(ops.Rs1), s.Reg(ops.Rs2)
	if s.Xlen() == riscv.Xlen32 {
		s.SetReg(ops.Rd, a*b>>32)
		return
	}
	hi, _ := bits.Mul64(a, b)
	s.SetReg(ops.Rd, hi)
}

func divSigned(dividend, divisor int64, min int64) (quotient, remainder int64) {
	switch {
	case divisor == 0:
		return -1, dividend
	case dividend == min && divisor == -1:
		return min, 0
	}
	return dividend / divisor, dividend % divisor
}

func (s *State) signedMin() int64 {
	if s.Xlen() == riscv.Xlen32 {
		return -1 << 31
	}
	return -1 << 63
}

func execDIV(ops insts.Operands, s *State, t mem.Transactor) {
	q, _ := divSigned(s.RegS(ops.Rs1), s.RegS(ops.Rs2), s.signedMin())
	s.SetReg(ops.Rd, uint64(q))
}

func execREM(ops insts.Operands, s *State, t mem.Transactor) {
	_, r := divSigned(s.RegS(ops.Rs1), s.RegS(ops.Rs2), s.signedMin())
	s.SetReg(ops.Rd, uint64(r))
}

func execDIVU(ops insts.Operands, s *State, t mem.Transactor) {
	a, b := s.Reg(ops.Rs1), s.Reg(ops.Rs2)
	if b == 0 {
		s.SetReg(ops.Rd, s.XlenMask())
		return
	}
	s.SetReg(ops.Rd, a/b)
}

func execREMU(ops insts.Operands, s *State, t mem.Transactor) {
	a, b := s.Reg(ops.Rs1), s.Reg(ops.Rs2)
	if b == 0 {
		s.SetReg(ops.Rd, a)
		return
	}
	s.SetReg(ops.Rd, a%b)
}

func execMULW(ops insts.Operands, s *State, t mem.Transactor) {
	s.SetReg(ops.Rd, word(s.Reg(ops.Rs1)*s.Reg(ops.Rs2)))
}

func execDIVW(ops insts.Operands, s *State, t mem.Transactor) {
	q, _ := divSigned(int64(int32(uint32(s.Reg(ops.Rs1)))), int64(int32(uint32(s.Reg(ops.Rs2)))), -1<<31)
	s.SetReg(ops.Rd, word(uint64(q)))
}

func execDIVUW(ops insts.Operands, s *State, t mem.Transactor) {
	a, b := uint32(s.Reg(ops.Rs1)), uint32(s.Reg(ops.Rs2))
	if b == 0 {
		s.SetReg(ops.Rd, uint64(0xffffffffffffffff))
		return
	}
	s.SetReg(ops.Rd, word(uint64(a/b)))
}

func execREMW(ops insts.Operands, s *State, t mem.Transactor) {
	_, r := divSigned(int64(int32(uint32(s.Reg(ops.Rs1)))), int64(int32(uint32(s.Reg(ops.Rs2)))), -1<<31)
	s.SetReg(ops.Rd, word(uint64(r)))
}

func execREMUW(ops insts.Operands, s *State, t mem.Transactor) {
	a, b := uint32(s.Reg(ops.Rs1)), uint32(s.Reg(ops.Rs2))
	if b == 0 {
		s.SetReg(ops.Rd, word(s.Reg(ops.Rs1)))
		return
	}
	s.SetReg(ops.Rd, word(uint64(a%b)))
}
