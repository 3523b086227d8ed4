package hart

import (
	"encoding/binary"

	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// A extension. Within a single hart atomicity is trivial: the executor
// is the only agent between the read and the write of an AMO, so each
// operation is a plain read-modify-write through the transactor.
// Misaligned atomics always fault; they are never strided.

type amoFn func(ops insts.Operands, s *State, t mem.Transactor, double bool)

func amoExec(fn amoFn, double bool) Executor {
	return func(ops insts.Operands, s *State, t mem.Transactor) {
		fn(ops, s, t, double)
	}
}

func amoWidth(double bool) uint64 {
	if double {
		return 8
	}
	return 4
}

func amoRead(s *State, t mem.Transactor, va uint64, size uint64) (uint64, bool) {
	var buf [8]byte
	tx := t.Read(va, buf[:size])
	if tx.Trap != riscv.CauseNone {
		s.RaiseException(tx.Trap, va)
		return 0, false
	}
	if tx.TransferredSize != size {
		s.RaiseException(riscv.CauseLoadAccessFault, va)
		return 0, false
	}
	v := binary.LittleEndian.Uint64(buf[:])
	if size == 4 {
		v = uint64(int64(int32(uint32(v))))
	}
	return v, true
}

func amoWrite(s *State, t mem.Transactor, va uint64, size uint64, v uint64) bool {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	tx := t.Write(va, buf[:size])
	if tx.Trap != riscv.CauseNone {
		s.RaiseException(tx.Trap, va)
		return false
	}
	if tx.TransferredSize != size {
		s.RaiseException(riscv.CauseStoreAccessFault, va)
		return false
	}
	return true
}

func execLR(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	size := amoWidth(double)
	va := s.Reg(ops.Rs1)
	if va&(size-1) != 0 {
		s.RaiseException(riscv.CauseLoadAddressMisaligned, va)
		return
	}
	if v, ok := amoRead(s, t, va, size); ok {
		s.SetReservation(va)
		s.SetReg(ops.Rd, v)
	}
}

func execSC(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	size := amoWidth(double)
	va := s.Reg(ops.Rs1)
	if va&(size-1) != 0 {
		s.RaiseException(riscv.CauseStoreAddressMisaligned, va)
		return
	}
	if !s.ClaimReservation(va) {
		s.SetReg(ops.Rd, 1)
		return
	}
	if amoWrite(s, t, va, size, s.Reg(ops.Rs2)) {
		s.SetReg(ops.Rd, 0)
	}
}

func amo(ops insts.Operands, s *State, t mem.Transactor, double bool, combine func(old, operand uint64) uint64) {
	size := amoWidth(double)
	va := s.Reg(ops.Rs1)
	if va&(size-1) != 0 {
		s.RaiseException(riscv.CauseStoreAddressMisaligned, va)
		return
	}
	old, ok := amoRead(s, t, va, size)
	if !ok {
		return
	}
	if amoWrite(s, t, va, size, combine(old, s.Reg(ops.Rs2))) {
		s.SetReg(ops.Rd, old)
	}
}

func execAMOSwap(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	amo(ops, s, t, double, func(old, v uint64) uint64 { return v })
}

func execAMOAdd(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	amo(ops, s, t, double, func(old, v uint64) uint64 { return old + v })
}

func execAMOXor(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	amo(ops, s, t, double, func(old, v uint64) uint64 { return old ^ v })
}

func execAMOAnd(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	amo(ops, s, t, double, func(old, v uint64) uint64 { return old & v })
}

func execAMOOr(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	amo(ops, s, t, double, func(old, v uint64) uint64 { return old | v })
}

func execAMOMin(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	amo(ops, s, t, double, func(old, v uint64) uint64 {
		if int64(old) < int64(signAt(v, double)) {
			return old
		}
		return v
	})
}

func execAMOMax(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	amo(ops, s, t, double, func(old, v uint64) uint64 {
		if int64(old) > int64(signAt(v, double)) {
			return old
		}
		return v
	})
}

func execAMOMinU(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	amo(ops, s, t, double, func(old, v uint64) uint64 {
		if maskAt(old, double) < maskAt(v, double) {
			return old
		}
		return v
	})
}

func execAMOMaxU(ops insts.Operands, s *State, t mem.Transactor, double bool) {
	amo(ops, s, t, double, func(old, v uint64) uint64 {
		if maskAt(old, double) > maskAt(v, double) {
			return old
		}
		return v
	})
}

func signAt(v uint64, double bool) uint64 {
	if double {
		return v
	}
	return uint64(int64(int32(uint32(v))))
}

func maskAt(v uint64, double bool) uint64 {
	if double {
		return v
	}
	return v & 0xffffffff
}
