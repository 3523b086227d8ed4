package hart

import "github.com/sarchlab/rvhart/riscv"

// RaiseException enters a trap for a synchronous exception. The faulting
// instruction's address is saved as the exception PC, so a handler that
// returns without adjustment re-executes it.
func (s *State) RaiseException(cause riscv.TrapCause, tval uint64) {
	s.trap(cause, tval, s.PC)
}

// deliverInterrupt enters a trap for an interrupt. Unlike an exception
// the saved PC is NextPC: the interrupted instruction has retired.
func (s *State) deliverInterrupt(cause riscv.TrapCause) {
	s.trap(cause, 0, s.NextPC)
}

func (s *State) trap(cause riscv.TrapCause, tval uint64, epc uint64) {
	delegated := false
	if s.Privilege <= riscv.Supervisor && s.Extensions&riscv.ExtS != 0 {
		if cause.IsInterrupt() {
			delegated = s.MIDeleg&(1<<cause.Code()) != 0
		} else {
			delegated = s.MEDeleg&(1<<cause.Code()) != 0
		}
	}

	oldPrivilege := s.Privilege
	if delegated {
		s.SEPC = epc &^ 1
		s.SCause = cause
		s.STVal = tval
		s.Status.SPIE = s.Status.SIE
		s.Status.SIE = false
		s.Status.SPP = oldPrivilege
		s.Privilege = riscv.Supervisor
		s.NextPC = trapVector(s.STVec, cause)
	} else {
		s.MEPC = epc &^ 1
		s.MCause = cause
		s.MTVal = tval
		s.Status.MPIE = s.Status.MIE
		s.Status.MIE = false
		s.Status.MPP = oldPrivilege
		s.Privilege = riscv.Machine
		s.NextPC = trapVector(s.MTVec, cause)
	}

	s.TookTrap = true
	s.fire(EventTookTrap)
	if s.Privilege != oldPrivilege {
		s.fire(EventPrivilegeChanged)
	}
}

// trapVector computes the handler address from a tvec register:
// vectored mode offsets interrupts by four bytes per cause.
func trapVector(tvec uint64, cause riscv.TrapCause) uint64 {
	base := tvec &^ 3
	if tvec&3 == 1 && cause.IsInterrupt() {
		return base + 4*uint64(cause.Code())
	}
	return base
}

// interruptPriority is the delivery order when several interrupts are
// pending and enabled.
var interruptPriority = [...]riscv.TrapCause{
	riscv.CauseMEI,
	riscv.CauseMSI,
	riscv.CauseMTI,
	riscv.CauseSEI,
	riscv.CauseSSI,
	riscv.CauseSTI,
}

// ServiceInterrupts delivers at most one pending enabled interrupt.
// Drivers call it at the end of each tick, the hart's only suspension
// point.
func (s *State) ServiceInterrupts() {
	pending := s.InterruptPending & s.InterruptEnabled
	if pending == 0 {
		return
	}

	for _, cause := range interruptPriority {
		if pending&(1<<cause.Code()) == 0 {
			continue
		}

		toSupervisor := s.MIDeleg&(1<<cause.Code()) != 0 && s.Extensions&riscv.ExtS != 0
		deliverable := false
		if toSupervisor {
			deliverable = s.Privilege < riscv.Supervisor ||
				(s.Privilege == riscv.Supervisor && s.Status.SIE)
		} else {
			deliverable = s.Privilege < riscv.Machine ||
				(s.Privilege == riscv.Machine && s.Status.MIE)
		}
		if deliverable {
			s.deliverInterrupt(cause)
			return
		}
	}
}

// SetInterruptPending asserts or clears a pending interrupt line, the
// way an external interrupt controller or timer drives MIP.
func (s *State) SetInterruptPending(cause riscv.TrapCause, pending bool) {
	bit := uint32(1) << cause.Code()
	if pending {
		s.InterruptPending |= bit
	} else {
		s.InterruptPending &^= bit
	}
}
