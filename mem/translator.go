package mem

import (
	"encoding/binary"

	"github.com/sarchlab/rvhart/riscv"
)

// Translation is the result of mapping one virtual address for one
// access type.
type Translation struct {
	// Untranslated is the virtual address the translation was made for.
	Untranslated uint64

	// Translated is the physical address it maps to, or 0 on a fault.
	Translated uint64

	// ValidThrough is the last virtual address within the same
	// translated page, so striding accesses know how far this mapping
	// carries them. Identity translations extend it to the address
	// mask.
	ValidThrough uint64

	// Trap is the page- or access-fault the walk produced, or
	// riscv.CauseNone.
	Trap riscv.TrapCause
}

// Translator maps virtual addresses to physical for each access type.
// Translators never raise exceptions themselves; faults are reported on
// the Translation.
type Translator interface {
	TranslateRead(address uint64) Translation
	TranslateWrite(address uint64) Translation
	TranslateFetch(address uint64) Translation
}

// TranslationContext is the slice of hart state the walker reads:
// paging configuration and the privilege/permission bits that govern a
// walk. The hart's architectural state implements it.
type TranslationContext interface {
	// PagingMode returns the SATP paging mode.
	PagingMode() riscv.PagingMode

	// RootPPN returns the SATP root page-table PPN.
	RootPPN() uint64

	// EffectivePrivilege returns the privilege the access translates
	// under: MPP when MPRV is set and the access is a load or store,
	// the current privilege otherwise. Fetches never honor MPRV.
	EffectivePrivilege(access AccessType) riscv.PrivilegeMode

	// MakeExecutableReadable reports MSTATUS.MXR.
	MakeExecutableReadable() bool

	// SupervisorUserMemory reports MSTATUS.SUM.
	SupervisorUserMemory() bool

	// AddressMask returns the all-ones mask at the current XLEN.
	AddressMask() uint64
}

// DirectTranslator performs the RISC-V Sv32/Sv39/Sv48/Sv57 page-table
// walk against a physical transactor. Same inputs and same
// architectural state yield the same result; nothing is memoized here.
type DirectTranslator struct {
	Context   TranslationContext
	PageTable Transactor
}

// NewDirectTranslator creates a walker reading page tables through the
// given physical transactor.
func NewDirectTranslator(ctx TranslationContext, pageTable Transactor) *DirectTranslator {
	return &DirectTranslator{Context: ctx, PageTable: pageTable}
}

// TranslateRead translates for a load.
func (t *DirectTranslator) TranslateRead(address uint64) Translation {
	return t.translate(address, AccessRead)
}

// TranslateWrite translates for a store.
func (t *DirectTranslator) TranslateWrite(address uint64) Translation {
	return t.translate(address, AccessWrite)
}

// TranslateFetch translates for an instruction fetch.
func (t *DirectTranslator) TranslateFetch(address uint64) Translation {
	return t.translate(address, AccessFetch)
}

func (t *DirectTranslator) translate(address uint64, access AccessType) Translation {
	mask := t.Context.AddressMask()
	va := address & mask
	mode := t.Context.PagingMode()
	priv := t.Context.EffectivePrivilege(access)

	if mode == riscv.Bare || priv == riscv.Machine {
		return Translation{
			Untranslated: va,
			Translated:   va,
			ValidThrough: mask,
			Trap:         riscv.CauseNone,
		}
	}

	fault := Translation{Untranslated: va, ValidThrough: va, Trap: access.PageFault()}

	levels := mode.Levels()
	vpnBits := mode.VPNBits()
	pteSize := mode.PTESize()

	// Sv39 and up leave high VA bits unused; they must replicate the
	// top implemented bit or the access page-faults.
	vaBits := uint(riscv.PageShift) + levels*vpnBits
	if mode != riscv.Sv32 && vaBits < 64 {
		high := va >> vaBits
		want := uint64(0)
		if va>>(vaBits-1)&1 == 1 {
			want = mask >> vaBits
		}
		if high != want {
			return fault
		}
	}

	tableBase := t.Context.RootPPN() << riscv.PageShift
	for level := int(levels) - 1; level >= 0; level-- {
		vpn := va >> (riscv.PageShift + uint(level)*vpnBits) & (1<<vpnBits - 1)
		var buf [8]byte
		tx := t.PageTable.Read(tableBase+vpn*pteSize, buf[:pteSize])
		if tx.Trap != riscv.CauseNone || tx.TransferredSize != pteSize {
			faulted := fault
			faulted.Trap = access.AccessFault()
			return faulted
		}
		var pte uint64
		if pteSize == 4 {
			pte = uint64(binary.LittleEndian.Uint32(buf[:4]))
		} else {
			pte = binary.LittleEndian.Uint64(buf[:8])
		}

		if pte&riscv.PTEValid == 0 {
			return fault
		}
		if pte&riscv.PTERead == 0 && pte&riscv.PTEWrite != 0 {
			return fault
		}

		ppn := pte >> riscv.PTEPPNShift
		if pte&(riscv.PTERead|riscv.PTEExec) == 0 {
			// Non-leaf; descend.
			tableBase = ppn << riscv.PageShift
			continue
		}

		permitted := false
		switch access {
		case AccessRead:
			permitted = pte&riscv.PTERead != 0 ||
				(t.Context.MakeExecutableReadable() && pte&riscv.PTEExec != 0)
		case AccessWrite:
			permitted = pte&riscv.PTEWrite != 0
		case AccessFetch:
			permitted = pte&riscv.PTEExec != 0
		}
		if !permitted {
			return fault
		}

		if priv == riscv.User && pte&riscv.PTEUser == 0 {
			return fault
		}
		if priv == riscv.Supervisor && pte&riscv.PTEUser != 0 {
			// Supervisor never executes user pages; loads and stores
			// need SUM.
			if access == AccessFetch || !t.Context.SupervisorUserMemory() {
				return fault
			}
		}

		// Svade: a clear A bit, or a clear D bit on a store, faults
		// rather than being set by hardware.
		if pte&riscv.PTEAccessed == 0 {
			return fault
		}
		if access == AccessWrite && pte&riscv.PTEDirty == 0 {
			return fault
		}

		// Superpage leaves must be aligned: the PPN bits below the
		// leaf level are required to be zero.
		if level > 0 && ppn&(1<<(uint(level)*vpnBits)-1) != 0 {
			return fault
		}

		pageMask := uint64(1)<<(riscv.PageShift+uint(level)*vpnBits) - 1
		return Translation{
			Untranslated: va,
			Translated:   ppn<<riscv.PageShift | va&pageMask,
			ValidThrough: (va | pageMask) & mask,
			Trap:         riscv.CauseNone,
		}
	}

	return fault
}
