// Package mem provides the memory-side primitives of a hart: physical
// transactors over a bus, the paged-virtual-memory translator, the
// software TLB wrapping it, and the translating transactor that
// composes translation with physical transactions.
package mem

import (
	"github.com/sarchlab/rvhart/riscv"
)

// AccessType distinguishes the three kinds of memory access a hart
// performs. Translation permissions and fault causes depend on it.
type AccessType uint8

// Access types.
const (
	AccessRead AccessType = iota
	AccessWrite
	AccessFetch
)

// AccessFault returns the access-fault trap cause for the access type.
func (a AccessType) AccessFault() riscv.TrapCause {
	switch a {
	case AccessWrite:
		return riscv.CauseStoreAccessFault
	case AccessFetch:
		return riscv.CauseInstructionAccessFault
	}
	return riscv.CauseLoadAccessFault
}

// PageFault returns the page-fault trap cause for the access type.
func (a AccessType) PageFault() riscv.TrapCause {
	switch a {
	case AccessWrite:
		return riscv.CauseStorePageFault
	case AccessFetch:
		return riscv.CauseInstructionPageFault
	}
	return riscv.CauseLoadPageFault
}

// Transaction is the result of one byte-range memory operation.
type Transaction struct {
	// Trap is the architectural trap the operation produced, or
	// riscv.CauseNone.
	Trap riscv.TrapCause

	// TransferredSize is the number of bytes actually moved. It may be
	// less than requested when a non-striding transactor truncates an
	// access at a page boundary or a device transfers short.
	TransferredSize uint64
}

// Transactor moves byte ranges to and from memory at an address. The
// size of an access is the length of the buffer.
type Transactor interface {
	Read(address uint64, buf []byte) Transaction
	Write(address uint64, buf []byte) Transaction
	Fetch(address uint64, buf []byte) Transaction
}

// IOTarget is the bus beneath the physical transactors: a device model
// addressed physically, returning the number of bytes it moved. The
// bus owns its own concurrency; the hart treats each call as atomic.
type IOTarget interface {
	ReadAt(address uint64, p []byte) uint64
	WriteAt(address uint64, p []byte) uint64
}

// DirectTransactor exposes an IOTarget as a Transactor at physical
// addresses. Short transfers become the verb-appropriate access fault,
// so device failures surface architecturally rather than as host
// errors.
type DirectTransactor struct {
	Target IOTarget
}

// NewDirectTransactor wraps a bus target.
func NewDirectTransactor(target IOTarget) *DirectTransactor {
	return &DirectTransactor{Target: target}
}

func (t *DirectTransactor) transact(address uint64, buf []byte, access AccessType) Transaction {
	var n uint64
	if access == AccessWrite {
		n = t.Target.WriteAt(address, buf)
	} else {
		n = t.Target.ReadAt(address, buf)
	}
	if n != uint64(len(buf)) {
		return Transaction{Trap: access.AccessFault(), TransferredSize: n}
	}
	return Transaction{Trap: riscv.CauseNone, TransferredSize: n}
}

// Read copies len(buf) bytes from the bus at the physical address.
func (t *DirectTransactor) Read(address uint64, buf []byte) Transaction {
	return t.transact(address, buf, AccessRead)
}

// Write copies len(buf) bytes to the bus at the physical address.
func (t *DirectTransactor) Write(address uint64, buf []byte) Transaction {
	return t.transact(address, buf, AccessWrite)
}

// Fetch copies len(buf) instruction bytes from the bus.
func (t *DirectTransactor) Fetch(address uint64, buf []byte) Transaction {
	return t.transact(address, buf, AccessFetch)
}
