// Package hart provides the architectural state of a RISC-V hart and
// the decode/execute machinery that mutates it.
//
// The package is organized the way the state flows: State holds the
// register file, CSR shadows, and the current fetch slot; the decoder
// binds encodings to executor functions; executors mutate the state
// through a mem.Transactor. Drivers in the driver package own the
// fetch loop and call into everything here.
package hart

import (
	"fmt"

	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// Event is a notification the state raises toward the driver when an
// instruction changes something a driver-level cache depends on. The
// state announces events without knowing which driver is attached.
type Event uint8

// Events.
const (
	// EventTookTrap fires after any exception or interrupt is taken.
	EventTookTrap Event = iota

	// EventRequestedIfence fires on FENCE.I.
	EventRequestedIfence

	// EventRequestedVMfence fires on SFENCE.VMA.
	EventRequestedVMfence

	// EventChangedMISA fires on a MISA write that changed the
	// extension set.
	EventChangedMISA

	// EventChangedMSTATUS fires on writes to MSTATUS bits that affect
	// translation or execution.
	EventChangedMSTATUS

	// EventChangedSATP fires on any SATP write.
	EventChangedSATP

	// EventPrivilegeChanged fires whenever the privilege mode changes:
	// trap entry, trap return.
	EventPrivilegeChanged
)

// Fetch is the hart's current fetch slot: the workspace the driver
// fills and the executor reads.
type Fetch struct {
	VirtualPC    uint64
	Encoding     uint32
	Instruction  Instruction
	Operands     insts.Operands
	DeferredTrap riscv.TrapCause
}

// Status mirrors the MSTATUS bits the core consumes.
type Status struct {
	MIE  bool
	SIE  bool
	MPIE bool
	SPIE bool
	MPP  riscv.PrivilegeMode
	SPP  riscv.PrivilegeMode
	MPRV bool
	SUM  bool
	MXR  bool
	SXL  riscv.XlenMode
	UXL  riscv.XlenMode
}

// Satp mirrors the SATP register.
type Satp struct {
	Mode riscv.PagingMode
	PPN  uint64
}

// State is the architectural state of one hart. It is created once at
// construction with a maximal extension set and mutated only by the
// driver that owns it.
type State struct {
	// X is the integer register file. X[0] always reads zero; SetReg
	// enforces it.
	X [32]uint64

	// PC is the virtual address of the instruction being executed;
	// NextPC is the next virtual address to fetch from.
	PC     uint64
	NextPC uint64

	Privilege riscv.PrivilegeMode

	// MXLen and Extensions shadow MISA. MaximalExtensions bounds what
	// MISA writes may enable.
	MXLen             riscv.XlenMode
	Extensions        uint32
	MaximalExtensions uint32

	Status Status
	Satp   Satp

	MTVec, STVec       uint64
	MEPC, SEPC         uint64
	MCause, SCause     riscv.TrapCause
	MTVal, STVal       uint64
	MEDeleg, MIDeleg   uint32
	MScratch, SScratch uint64

	// InterruptPending and InterruptEnabled shadow MIP and MIE.
	InterruptPending uint32
	InterruptEnabled uint32

	Cycle   uint64
	InstRet uint64

	// CurrentFetch is the fetch slot the driver most recently filled.
	CurrentFetch Fetch

	// TookTrap is set by trap entry and cleared by the driver each
	// tick; an executing basic block checks it to stop iterating.
	TookTrap bool

	reservationAddr  uint64
	reservationValid bool

	notify func(Event)

	resetVector uint64
}

// NewState creates the state of a hart with the given machine XLEN and
// maximal extension set. Only 32- and 64-bit harts are supported; Go
// has no native 128-bit integer arithmetic, so Xlen128 is rejected as
// a configuration error.
func NewState(mxlen riscv.XlenMode, maximalExtensions uint32, resetVector uint64) (*State, error) {
	if mxlen != riscv.Xlen32 && mxlen != riscv.Xlen64 {
		return nil, fmt.Errorf("unsupported machine XLEN %d", mxlen.Bits())
	}
	if maximalExtensions&riscv.ExtI == 0 {
		return nil, fmt.Errorf("maximal extension set %q lacks the base ISA",
			riscv.ExtensionsToString(maximalExtensions))
	}
	s := &State{
		MXLen:             mxlen,
		MaximalExtensions: maximalExtensions,
		resetVector:       resetVector,
	}
	s.Reset()
	return s, nil
}

// SetNotify installs the driver's event callback.
func (s *State) SetNotify(notify func(Event)) {
	s.notify = notify
}

func (s *State) fire(e Event) {
	if s.notify != nil {
		s.notify(e)
	}
}

// Reset restores the construction-time state: registers zeroed,
// privilege Machine, PC at the reset vector, paging bare, all
// extensions of the maximal set enabled. Reset is idempotent.
func (s *State) Reset() {
	s.X = [32]uint64{}
	s.PC = s.resetVector
	s.NextPC = s.resetVector
	s.Privilege = riscv.Machine
	s.Extensions = s.MaximalExtensions
	s.Status = Status{MPP: riscv.Machine, SXL: s.MXLen, UXL: s.MXLen}
	s.Satp = Satp{}
	s.MTVec, s.STVec = 0, 0
	s.MEPC, s.SEPC = 0, 0
	s.MCause, s.SCause = 0, 0
	s.MTVal, s.STVal = 0, 0
	s.MEDeleg, s.MIDeleg = 0, 0
	s.MScratch, s.SScratch = 0, 0
	s.InterruptPending, s.InterruptEnabled = 0, 0
	s.Cycle, s.InstRet = 0, 0
	s.CurrentFetch = Fetch{}
	s.TookTrap = false
	s.reservationValid = false
}

// Xlen returns the current operating width, derived from MXLen and the
// SXL/UXL status fields for the current privilege.
func (s *State) Xlen() riscv.XlenMode {
	switch s.Privilege {
	case riscv.Supervisor:
		return s.Status.SXL
	case riscv.User:
		return s.Status.UXL
	}
	return s.MXLen
}

// XlenMask returns the all-ones register mask at the current width.
func (s *State) XlenMask() uint64 {
	return s.Xlen().Mask()
}

// XlenBits returns the current width in bits.
func (s *State) XlenBits() uint {
	return s.Xlen().Bits()
}

// Reg reads a register. X[0] is always zero.
func (s *State) Reg(i uint8) uint64 {
	return s.X[i]
}

// RegS reads a register sign-extended from the current width to 64
// bits.
func (s *State) RegS(i uint8) int64 {
	bits := s.XlenBits()
	return int64(s.X[i]<<(64-bits)) >> (64 - bits)
}

// SetReg writes a register masked to the current width. Writes to
// X[0] are ignored.
func (s *State) SetReg(i uint8, v uint64) {
	if i == 0 {
		return
	}
	s.X[i] = v & s.XlenMask()
}

// IAlignMask returns the PC alignment mask: 1 with the C extension
// enabled, 3 without.
func (s *State) IAlignMask() uint64 {
	if s.Extensions&riscv.ExtC != 0 {
		return 1
	}
	return 3
}

// Retire accounts one retired instruction.
func (s *State) Retire() {
	s.InstRet++
	s.Cycle++
}

// SetReservation records a load-reservation for LR/SC.
func (s *State) SetReservation(address uint64) {
	s.reservationAddr = address
	s.reservationValid = true
}

// ClaimReservation consumes the reservation, reporting whether it was
// valid for the address.
func (s *State) ClaimReservation(address uint64) bool {
	ok := s.reservationValid && s.reservationAddr == address
	s.reservationValid = false
	return ok
}

// PagingMode implements mem.TranslationContext.
func (s *State) PagingMode() riscv.PagingMode {
	return s.Satp.Mode
}

// RootPPN implements mem.TranslationContext.
func (s *State) RootPPN() uint64 {
	return s.Satp.PPN
}

// EffectivePrivilege implements mem.TranslationContext: MPP when MPRV
// is set for loads and stores, the current privilege otherwise.
// Fetches always translate at the current privilege.
func (s *State) EffectivePrivilege(access mem.AccessType) riscv.PrivilegeMode {
	if access != mem.AccessFetch && s.Status.MPRV {
		return s.Status.MPP
	}
	return s.Privilege
}

// MakeExecutableReadable implements mem.TranslationContext.
func (s *State) MakeExecutableReadable() bool {
	return s.Status.MXR
}

// SupervisorUserMemory implements mem.TranslationContext.
func (s *State) SupervisorUserMemory() bool {
	return s.Status.SUM
}

// AddressMask implements mem.TranslationContext.
func (s *State) AddressMask() uint64 {
	return s.XlenMask()
}
