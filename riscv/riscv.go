// Package riscv provides RISC-V architectural constants and encoding helpers.
//
// This package holds the privilege-level, paging-mode, CSR, and trap-cause
// definitions shared by the translation, decode, and execution packages. It
// has no dependencies and performs no emulation itself.
package riscv

import "strings"

// PrivilegeMode represents a RISC-V privilege level.
type PrivilegeMode uint8

// Privilege levels, encoded as in the MPP field of MSTATUS.
const (
	User       PrivilegeMode = 0
	Supervisor PrivilegeMode = 1
	Machine    PrivilegeMode = 3
)

// XlenMode represents an integer-register width, encoded as in the MXL
// field of MISA.
type XlenMode uint8

// Register widths.
const (
	XlenNone XlenMode = 0
	Xlen32   XlenMode = 1
	Xlen64   XlenMode = 2
	Xlen128  XlenMode = 3
)

// Bits returns the register width in bits, or 0 for XlenNone.
func (x XlenMode) Bits() uint {
	switch x {
	case Xlen32:
		return 32
	case Xlen64:
		return 64
	case Xlen128:
		return 128
	}
	return 0
}

// Mask returns the address/register mask for the width. Xlen128 saturates
// at a 64-bit mask because values are carried in uint64.
func (x XlenMode) Mask() uint64 {
	if x == Xlen32 {
		return 0xffffffff
	}
	return 0xffffffffffffffff
}

// PagingMode represents an address-translation scheme, encoded as in the
// MODE field of SATP (the RV64 encoding; Sv32 uses 1 in both).
type PagingMode uint8

// Paging modes.
const (
	Bare PagingMode = 0
	Sv32 PagingMode = 1
	Sv39 PagingMode = 8
	Sv48 PagingMode = 9
	Sv57 PagingMode = 10
)

// Levels returns the number of page-table levels for the mode.
func (m PagingMode) Levels() uint {
	switch m {
	case Sv32:
		return 2
	case Sv39:
		return 3
	case Sv48:
		return 4
	case Sv57:
		return 5
	}
	return 0
}

// VPNBits returns the number of virtual-page-number bits per level.
func (m PagingMode) VPNBits() uint {
	if m == Sv32 {
		return 10
	}
	return 9
}

// PTESize returns the size in bytes of one page-table entry.
func (m PagingMode) PTESize() uint64 {
	if m == Sv32 {
		return 4
	}
	return 8
}

// PageShift is the log2 of the base page size.
const PageShift = 12

// PageSize is the base page size in bytes.
const PageSize = 1 << PageShift

// Page-table entry bits.
const (
	PTEValid    = 1 << 0
	PTERead     = 1 << 1
	PTEWrite    = 1 << 2
	PTEExec     = 1 << 3
	PTEUser     = 1 << 4
	PTEGlobal   = 1 << 5
	PTEAccessed = 1 << 6
	PTEDirty    = 1 << 7
)

// PTEPPNShift is the bit position of the PPN field within a PTE.
const PTEPPNShift = 10

// TrapCause identifies an exception or interrupt cause.
type TrapCause uint32

// CauseInterrupt marks interrupt causes; the architectural MSB of xcause.
const CauseInterrupt TrapCause = 1 << 31

// CauseNone indicates the absence of a trap on a translation or
// transaction result.
const CauseNone TrapCause = 0xffffffff

// Exception causes.
const (
	CauseInstructionAddressMisaligned TrapCause = 0
	CauseInstructionAccessFault       TrapCause = 1
	CauseIllegalInstruction           TrapCause = 2
	CauseBreakpoint                   TrapCause = 3
	CauseLoadAddressMisaligned        TrapCause = 4
	CauseLoadAccessFault              TrapCause = 5
	CauseStoreAddressMisaligned       TrapCause = 6
	CauseStoreAccessFault             TrapCause = 7
	CauseECallFromU                   TrapCause = 8
	CauseECallFromS                   TrapCause = 9
	CauseECallFromM                   TrapCause = 11
	CauseInstructionPageFault         TrapCause = 12
	CauseLoadPageFault                TrapCause = 13
	CauseStorePageFault               TrapCause = 15
)

// Interrupt causes.
const (
	CauseSSI = CauseInterrupt | 1
	CauseMSI = CauseInterrupt | 3
	CauseSTI = CauseInterrupt | 5
	CauseMTI = CauseInterrupt | 7
	CauseSEI = CauseInterrupt | 9
	CauseMEI = CauseInterrupt | 11
)

// IsInterrupt reports whether the cause is an interrupt.
func (c TrapCause) IsInterrupt() bool {
	return c != CauseNone && c&CauseInterrupt != 0
}

// Code returns the cause number without the interrupt bit.
func (c TrapCause) Code() uint32 {
	return uint32(c &^ CauseInterrupt)
}

// Extension bits as laid out in MISA: bit 0 is "A", bit 25 is "Z".
const (
	ExtA uint32 = 1 << 0
	ExtC uint32 = 1 << 2
	ExtD uint32 = 1 << 3
	ExtF uint32 = 1 << 5
	ExtI uint32 = 1 << 8
	ExtM uint32 = 1 << 12
	ExtS uint32 = 1 << 18
	ExtU uint32 = 1 << 20
)

// StringToExtensions converts an ISA letter string such as "imacsu" into
// a MISA extension bitset. Unknown letters are ignored.
func StringToExtensions(s string) uint32 {
	var ext uint32
	for _, c := range strings.ToLower(s) {
		if c >= 'a' && c <= 'z' {
			ext |= 1 << (c - 'a')
		}
	}
	return ext
}

// ExtensionsToString renders a MISA extension bitset as a letter string.
func ExtensionsToString(ext uint32) string {
	var b strings.Builder
	for i := 0; i < 26; i++ {
		if ext&(1<<i) != 0 {
			b.WriteByte(byte('a' + i))
		}
	}
	return b.String()
}

// CSR numbers.
const (
	CSRSStatus    = 0x100
	CSRSIE        = 0x104
	CSRSTVec      = 0x105
	CSRSCounterEn = 0x106
	CSRSScratch   = 0x140
	CSRSEPC       = 0x141
	CSRSCause     = 0x142
	CSRSTVal      = 0x143
	CSRSIP        = 0x144
	CSRSATP       = 0x180

	CSRMStatus    = 0x300
	CSRMISA       = 0x301
	CSRMEDeleg    = 0x302
	CSRMIDeleg    = 0x303
	CSRMIE        = 0x304
	CSRMTVec      = 0x305
	CSRMCounterEn = 0x306
	CSRMScratch   = 0x340
	CSRMEPC       = 0x341
	CSRMCause     = 0x342
	CSRMTVal      = 0x343
	CSRMIP        = 0x344

	CSRMCycle   = 0xb00
	CSRMInstRet = 0xb02

	CSRCycle   = 0xc00
	CSRTime    = 0xc01
	CSRInstRet = 0xc02

	CSRMVendorID = 0xf11
	CSRMArchID   = 0xf12
	CSRMImpID    = 0xf13
	CSRMHartID   = 0xf14
)

// MSTATUS bit positions.
const (
	StatusSIE  = 1 << 1
	StatusMIE  = 1 << 3
	StatusSPIE = 1 << 5
	StatusMPIE = 1 << 7
	StatusSPP  = 1 << 8
	StatusMPP  = 3 << 11
	StatusMPRV = 1 << 17
	StatusSUM  = 1 << 18
	StatusMXR  = 1 << 19

	StatusMPPShift = 11
	StatusUXLShift = 32
	StatusSXLShift = 34
)

// IsCompressed reports whether an encoding is a 16-bit compressed
// instruction: the low two bits are anything but 0b11.
func IsCompressed(encoding uint32) bool {
	return encoding&0b11 != 0b11
}

// InstructionLength returns the byte length of the instruction starting
// with the given encoding word.
func InstructionLength(encoding uint32) uint64 {
	if IsCompressed(encoding) {
		return 2
	}
	return 4
}
