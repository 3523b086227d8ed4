package hart

import (
	"encoding/binary"

	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// Loads and stores. Misaligned and page-crossing accesses are a
// transactor policy: a striding transactor completes them, a
// non-striding one transfers short and the short transfer is raised
// here as the address-misaligned or access-fault exception.

func loadCause(va uint64, size uint64) riscv.TrapCause {
	if va&(size-1) != 0 {
		return riscv.CauseLoadAddressMisaligned
	}
	return riscv.CauseLoadAccessFault
}

func storeCause(va uint64, size uint64) riscv.TrapCause {
	if va&(size-1) != 0 {
		return riscv.CauseStoreAddressMisaligned
	}
	return riscv.CauseStoreAccessFault
}

func load(ops insts.Operands, s *State, t mem.Transactor, size uint64) (uint64, bool) {
	va := (s.Reg(ops.Rs1) + uint64(ops.Imm)) & s.XlenMask()
	var buf [8]byte
	tx := t.Read(va, buf[:size])
	if tx.Trap != riscv.CauseNone {
		s.RaiseException(tx.Trap, va)
		return 0, false
	}
	if tx.TransferredSize != size {
		s.RaiseException(loadCause(va, size), va)
		return 0, false
	}
	return binary.LittleEndian.Uint64(buf[:]), true
}

func store(ops insts.Operands, s *State, t mem.Transactor, size uint64) {
	va := (s.Reg(ops.Rs1) + uint64(ops.Imm)) & s.XlenMask()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], s.Reg(ops.Rs2))
	tx := t.Write(va, buf[:size])
	if tx.Trap != riscv.CauseNone {
		s.RaiseException(tx.Trap, va)
		return
	}
	if tx.TransferredSize != size {
		s.RaiseException(storeCause(va, size), va)
	}
}

func execLB(ops insts.Operands, s *State, t mem.Transactor) {
	if v, ok := load(ops, s, t, 1); ok {
		s.SetReg(ops.Rd, uint64(int64(int8(uint8(v)))))
	}
}

func execLH(ops insts.Operands, s *State, t mem.Transactor) {
	if v, ok := load(ops, s, t, 2); ok {
		s.SetReg(ops.Rd, uint64(int64(int16(uint16(v)))))
	}
}

func execLW(ops insts.Operands, s *State, t mem.Transactor) {
	if v, ok := load(ops, s, t, 4); ok {
		s.SetReg(ops.Rd, uint64(int64(int32(uint32(v)))))
	}
}

func execLD(ops insts.Operands, s *State, t mem.Transactor) {
	if v, ok := load(ops, s, t, 8); ok {
		s.SetReg(ops.Rd, v)
	}
}

func execLBU(ops insts.Operands, s *State, t mem.Transactor) {
	if v, ok := load(ops, s, t, 1); ok {
		s.SetReg(ops.Rd, v&0xff)
	}
}

func execLHU(ops insts.Operands, s *State, t mem.Transactor) {
	if v, ok := load(ops, s, t, 2); ok {
		s.SetReg(ops.Rd, v&0xffff)
	}
}

func execLWU(ops insts.Operands, s *State, t mem.Transactor) {
	if v, ok := load(ops, s, t, 4); ok {
		s.SetReg(ops.Rd, v&0xffffffff)
	}
}

func execSB(ops insts.Operands, s *State, t mem.Transactor) {
	store(ops, s, t, 1)
}

func execSH(ops insts.Operands, s *State, t mem.Transactor) {
	store(ops, s, t, 2)
}

func execSW(ops insts.Operands, s *State, t mem.Transactor) {
	store(ops, s, t, 4)
}

func execSD(ops insts.Operands, s *State, t mem.Transactor) {
	store(ops, s, t, 8)
}
