package hart

import "github.com/sarchlab/rvhart/riscv"

// Writable interrupt bit masks for mie/mip and their supervisor views.
const (
	machineInterruptMask    = 0xaaa
	supervisorInterruptMask = 0x222
)

// medelegMask limits delegation to the delegable exception causes;
// environment calls from M-mode always trap to M-mode.
const medelegMask = 0xb3ff

func boolBit(b bool, bit uint64) uint64 {
	if b {
		return bit
	}
	return 0
}

// csrPermitted checks the privilege and read-only encoding of a CSR
// number against the current mode.
func (s *State) csrPermitted(num uint32, write bool) bool {
	if riscv.PrivilegeMode(num>>8&3) > s.Privilege {
		return false
	}
	if write && num>>10&3 == 3 {
		return false
	}
	return true
}

func (s *State) composeStatus() uint64 {
	v := boolBit(s.Status.SIE, riscv.StatusSIE) |
		boolBit(s.Status.MIE, riscv.StatusMIE) |
		boolBit(s.Status.SPIE, riscv.StatusSPIE) |
		boolBit(s.Status.MPIE, riscv.StatusMPIE) |
		boolBit(s.Status.SPP == riscv.Supervisor, riscv.StatusSPP) |
		uint64(s.Status.MPP)<<riscv.StatusMPPShift |
		boolBit(s.Status.MPRV, riscv.StatusMPRV) |
		boolBit(s.Status.SUM, riscv.StatusSUM) |
		boolBit(s.Status.MXR, riscv.StatusMXR)
	if s.MXLen == riscv.Xlen64 {
		v |= uint64(s.Status.UXL) << riscv.StatusUXLShift
		v |= uint64(s.Status.SXL) << riscv.StatusSXLShift
	}
	return v
}

func (s *State) composeCause(cause riscv.TrapCause) uint64 {
	v := uint64(cause.Code())
	if cause.IsInterrupt() {
		v |= 1 << (s.MXLen.Bits() - 1)
	}
	return v
}

func (s *State) parseCause(v uint64) riscv.TrapCause {
	interrupt := v>>(s.MXLen.Bits()-1)&1 == 1
	cause := riscv.TrapCause(v & 0x7fffffff)
	if interrupt {
		cause = riscv.TrapCause(uint32(v)&0x7fffffff) | riscv.CauseInterrupt
	}
	return cause
}

func (s *State) composeSATP() uint64 {
	if s.MXLen == riscv.Xlen32 {
		v := s.Satp.PPN & 0x3fffff
		if s.Satp.Mode == riscv.Sv32 {
			v |= 1 << 31
		}
		return v
	}
	return uint64(s.Satp.Mode)<<60 | s.Satp.PPN&0xfffffffffff
}

func (s *State) epcRead(epc uint64) uint64 {
	return epc &^ (s.IAlignMask() &^ 1) &^ 1
}

// ReadCSR reads a CSR, reporting false for a CSR that does not exist
// or is not accessible at the current privilege.
func (s *State) ReadCSR(num uint32) (uint64, bool) {
	if !s.csrPermitted(num, false) {
		return 0, false
	}
	hasS := s.Extensions&riscv.ExtS != 0

	switch num {
	case riscv.CSRMStatus:
		return s.composeStatus(), true
	case riscv.CSRMISA:
		return uint64(s.Extensions) | uint64(s.MXLen)<<(s.MXLen.Bits()-2), true
	case riscv.CSRMEDeleg:
		return uint64(s.MEDeleg), true
	case riscv.CSRMIDeleg:
		return uint64(s.MIDeleg), true
	case riscv.CSRMIE:
		return uint64(s.InterruptEnabled), true
	case riscv.CSRMTVec:
		return s.MTVec, true
	case riscv.CSRMCounterEn, riscv.CSRSCounterEn:
		return 0, true
	case riscv.CSRMScratch:
		return s.MScratch, true
	case riscv.CSRMEPC:
		return s.epcRead(s.MEPC), true
	case riscv.CSRMCause:
		return s.composeCause(s.MCause), true
	case riscv.CSRMTVal:
		return s.MTVal, true
	case riscv.CSRMIP:
		return uint64(s.InterruptPending), true

	case riscv.CSRSStatus:
		if !hasS {
			return 0, false
		}
		mask := uint64(riscv.StatusSIE | riscv.StatusSPIE | riscv.StatusSPP |
			riscv.StatusSUM | riscv.StatusMXR)
		if s.MXLen == riscv.Xlen64 {
			mask |= 3 << riscv.StatusUXLShift
		}
		return s.composeStatus() & mask, true
	case riscv.CSRSIE:
		if !hasS {
			return 0, false
		}
		return uint64(s.InterruptEnabled & supervisorInterruptMask), true
	case riscv.CSRSTVec:
		if !hasS {
			return 0, false
		}
		return s.STVec, true
	case riscv.CSRSScratch:
		if !hasS {
			return 0, false
		}
		return s.SScratch, true
	case riscv.CSRSEPC:
		if !hasS {
			return 0, false
		}
		return s.epcRead(s.SEPC), true
	case riscv.CSRSCause:
		if !hasS {
			return 0, false
		}
		return s.composeCause(s.SCause), true
	case riscv.CSRSTVal:
		if !hasS {
			return 0, false
		}
		return s.STVal, true
	case riscv.CSRSIP:
		if !hasS {
			return 0, false
		}
		return uint64(s.InterruptPending & supervisorInterruptMask), true
	case riscv.CSRSATP:
		if !hasS {
			return 0, false
		}
		return s.composeSATP(), true

	case riscv.CSRMCycle, riscv.CSRCycle, riscv.CSRTime:
		return s.Cycle, true
	case riscv.CSRMInstRet, riscv.CSRInstRet:
		return s.InstRet, true

	case riscv.CSRMVendorID, riscv.CSRMArchID, riscv.CSRMImpID, riscv.CSRMHartID:
		return 0, true
	}
	return 0, false
}

// WriteCSR writes a CSR, reporting false for a CSR that does not
// exist, is read-only, or is not accessible at the current privilege.
// Writes that change translation- or decode-relevant state fire the
// corresponding events.
func (s *State) WriteCSR(num uint32, value uint64) bool {
	if !s.csrPermitted(num, true) {
		return false
	}
	hasS := s.Extensions&riscv.ExtS != 0

	switch num {
	case riscv.CSRMStatus:
		s.writeStatus(value, false)
		return true
	case riscv.CSRMISA:
		s.writeMISA(value)
		return true
	case riscv.CSRMEDeleg:
		s.MEDeleg = uint32(value) & medelegMask
		return true
	case riscv.CSRMIDeleg:
		s.MIDeleg = uint32(value) & supervisorInterruptMask
		return true
	case riscv.CSRMIE:
		s.InterruptEnabled = uint32(value) & machineInterruptMask
		return true
	case riscv.CSRMTVec:
		s.MTVec = writeTVec(value)
		return true
	case riscv.CSRMCounterEn, riscv.CSRSCounterEn:
		return true
	case riscv.CSRMScratch:
		s.MScratch = value
		return true
	case riscv.CSRMEPC:
		s.MEPC = value &^ 1
		return true
	case riscv.CSRMCause:
		s.MCause = s.parseCause(value)
		return true
	case riscv.CSRMTVal:
		s.MTVal = value
		return true
	case riscv.CSRMIP:
		s.InterruptPending = s.InterruptPending&^supervisorInterruptMask |
			uint32(value)&supervisorInterruptMask
		return true

	case riscv.CSRSStatus:
		if !hasS {
			return false
		}
		s.writeStatus(value, true)
		return true
	case riscv.CSRSIE:
		if !hasS {
			return false
		}
		s.InterruptEnabled = s.InterruptEnabled&^supervisorInterruptMask |
			uint32(value)&supervisorInterruptMask
		return true
	case riscv.CSRSTVec:
		if !hasS {
			return false
		}
		s.STVec = writeTVec(value)
		return true
	case riscv.CSRSScratch:
		if !hasS {
			return false
		}
		s.SScratch = value
		return true
	case riscv.CSRSEPC:
		if !hasS {
			return false
		}
		s.SEPC = value &^ 1
		return true
	case riscv.CSRSCause:
		if !hasS {
			return false
		}
		s.SCause = s.parseCause(value)
		return true
	case riscv.CSRSTVal:
		if !hasS {
			return false
		}
		s.STVal = value
		return true
	case riscv.CSRSIP:
		if !hasS {
			return false
		}
		s.InterruptPending = s.InterruptPending&^0x2 | uint32(value)&0x2
		return true
	case riscv.CSRSATP:
		if !hasS {
			return false
		}
		s.writeSATP(value)
		return true

	case riscv.CSRMCycle:
		s.Cycle = value
		return true
	case riscv.CSRMInstRet:
		s.InstRet = value
		return true
	}
	return false
}

func writeTVec(value uint64) uint64 {
	if value&3 > 1 {
		value &^= 3
	}
	return value
}

func (s *State) writeStatus(value uint64, supervisorView bool) {
	s.Status.SIE = value&riscv.StatusSIE != 0
	s.Status.SPIE = value&riscv.StatusSPIE != 0
	if value&riscv.StatusSPP != 0 {
		s.Status.SPP = riscv.Supervisor
	} else {
		s.Status.SPP = riscv.User
	}
	s.Status.SUM = value&riscv.StatusSUM != 0
	s.Status.MXR = value&riscv.StatusMXR != 0

	if !supervisorView {
		s.Status.MIE = value&riscv.StatusMIE != 0
		s.Status.MPIE = value&riscv.StatusMPIE != 0
		mpp := riscv.PrivilegeMode(value >> riscv.StatusMPPShift & 3)
		if mpp != 2 {
			s.Status.MPP = mpp
		}
		s.Status.MPRV = value&riscv.StatusMPRV != 0
		// SXL and UXL are WARL; only the implemented widths stick.
		if s.MXLen == riscv.Xlen64 {
			if sxl := riscv.XlenMode(value >> riscv.StatusSXLShift & 3); sxl == riscv.Xlen32 || sxl == riscv.Xlen64 {
				s.Status.SXL = sxl
			}
			if uxl := riscv.XlenMode(value >> riscv.StatusUXLShift & 3); uxl == riscv.Xlen32 || uxl == riscv.Xlen64 {
				s.Status.UXL = uxl
			}
		}
	}

	s.fire(EventChangedMSTATUS)
}

func (s *State) writeMISA(value uint64) {
	proposed := uint32(value) & 0x3ffffff & s.MaximalExtensions
	proposed |= riscv.ExtI
	// Clearing C is ignored while the next fetch is only 2-byte
	// aligned; the write would leave the hart unable to fetch.
	if proposed&riscv.ExtC == 0 && s.NextPC&3 != 0 {
		proposed |= riscv.ExtC & s.Extensions
	}
	if proposed == s.Extensions {
		return
	}
	s.Extensions = proposed
	s.fire(EventChangedMISA)
}

func (s *State) writeSATP(value uint64) {
	var mode riscv.PagingMode
	var ppn uint64
	if s.MXLen == riscv.Xlen32 {
		if value>>31&1 == 1 {
			mode = riscv.Sv32
		}
		ppn = value & 0x3fffff
	} else {
		mode = riscv.PagingMode(value >> 60)
		switch mode {
		case riscv.Bare, riscv.Sv39, riscv.Sv48, riscv.Sv57:
		default:
			// Unsupported mode: the entire write takes no effect.
			return
		}
		ppn = value & 0xfffffffffff
	}
	s.Satp = Satp{Mode: mode, PPN: ppn}
	s.fire(EventChangedSATP)
}
