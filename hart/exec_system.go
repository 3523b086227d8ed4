package hart

import (
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

func execIllegal(ops insts.Operands, s *State, t mem.Transactor) {
	s.RaiseException(riscv.CauseIllegalInstruction, uint64(uint32(ops.Imm)))
}

func execECALL(ops insts.Operands, s *State, t mem.Transactor) {
	s.RaiseException(riscv.CauseECallFromU+riscv.TrapCause(s.Privilege), 0)
}

func execEBREAK(ops insts.Operands, s *State, t mem.Transactor) {
	s.RaiseException(riscv.CauseBreakpoint, s.PC)
}

func execMRET(ops insts.Operands, s *State, t mem.Transactor) {
	if s.Privilege != riscv.Machine {
		s.RaiseException(riscv.CauseIllegalInstruction, 0)
		return
	}
	oldPrivilege := s.Privilege
	s.Status.MIE = s.Status.MPIE
	s.Status.MPIE = true
	newPrivilege := s.Status.MPP
	if s.MaximalExtensions&riscv.ExtU != 0 {
		s.Status.MPP = riscv.User
	}
	if newPrivilege != riscv.Machine {
		s.Status.MPRV = false
	}
	s.Privilege = newPrivilege
	s.NextPC = s.epcRead(s.MEPC)
	if s.Privilege != oldPrivilege {
		s.fire(EventPrivilegeChanged)
	}
}

func execSRET(ops insts.Operands, s *State, t mem.Transactor) {
	if s.Privilege < riscv.Supervisor {
		s.RaiseException(riscv.CauseIllegalInstruction, 0)
		return
	}
	oldPrivilege := s.Privilege
	s.Status.SIE = s.Status.SPIE
	s.Status.SPIE = true
	newPrivilege := s.Status.SPP
	s.Status.SPP = riscv.User
	if newPrivilege != riscv.Machine {
		s.Status.MPRV = false
	}
	s.Privilege = newPrivilege
	s.NextPC = s.epcRead(s.SEPC)
	if s.Privilege != oldPrivilege {
		s.fire(EventPrivilegeChanged)
	}
}

func execWFI(ops insts.Operands, s *State, t mem.Transactor) {
	// Treated as a hint; the driver's end-of-tick interrupt check
	// provides the wakeup semantics.
}

func execFENCE(ops insts.Operands, s *State, t mem.Transactor) {
	// A single in-order hart observes its own accesses in order.
}

func execFENCEI(ops insts.Operands, s *State, t mem.Transactor) {
	s.fire(EventRequestedIfence)
}

func execSFENCEVMA(ops insts.Operands, s *State, t mem.Transactor) {
	if s.Privilege < riscv.Supervisor {
		s.RaiseException(riscv.CauseIllegalInstruction, 0)
		return
	}
	s.fire(EventRequestedVMfence)
}

// Zicsr. The immediate forms reuse the register-form executors' shape
// with the uimm carried in the Rs1 field.

func execCSRRW(ops insts.Operands, s *State, t mem.Transactor) {
	csrReadModifyWrite(ops, s, s.Reg(ops.Rs1), true, csrWriteValue)
}

func execCSRRS(ops insts.Operands, s *State, t mem.Transactor) {
	csrReadModifyWrite(ops, s, s.Reg(ops.Rs1), ops.Rs1 != 0, csrSetBits)
}

func execCSRRC(ops insts.Operands, s *State, t mem.Transactor) {
	csrReadModifyWrite(ops, s, s.Reg(ops.Rs1), ops.Rs1 != 0, csrClearBits)
}

func execCSRRWI(ops insts.Operands, s *State, t mem.Transactor) {
	csrReadModifyWrite(ops, s, uint64(ops.Rs1), true, csrWriteValue)
}

func execCSRRSI(ops insts.Operands, s *State, t mem.Transactor) {
	csrReadModifyWrite(ops, s, uint64(ops.Rs1), ops.Rs1 != 0, csrSetBits)
}

func execCSRRCI(ops insts.Operands, s *State, t mem.Transactor) {
	csrReadModifyWrite(ops, s, uint64(ops.Rs1), ops.Rs1 != 0, csrClearBits)
}

func csrWriteValue(old, operand uint64) uint64 { return operand }
func csrSetBits(old, operand uint64) uint64    { return old | operand }
func csrClearBits(old, operand uint64) uint64  { return old &^ operand }

func csrReadModifyWrite(ops insts.Operands, s *State, operand uint64, write bool, combine func(old, operand uint64) uint64) {
	num := uint32(ops.Imm)
	old, ok := s.ReadCSR(num)
	if !ok {
		s.RaiseException(riscv.CauseIllegalInstruction, 0)
		return
	}
	if write {
		if !s.WriteCSR(num, combine(old, operand)) {
			s.RaiseException(riscv.CauseIllegalInstruction, 0)
			return
		}
	}
	s.SetReg(ops.Rd, old)
}
