package mem_test

import (
	"encoding/binary"

	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// walkContext is a standalone translation context for exercising the
// walker without a hart.
type walkContext struct {
	mode riscv.PagingMode
	root uint64
	priv riscv.PrivilegeMode
	mxr  bool
	sum  bool
	mask uint64
}

func (c *walkContext) PagingMode() riscv.PagingMode { return c.mode }
func (c *walkContext) RootPPN() uint64              { return c.root }
func (c *walkContext) EffectivePrivilege(access mem.AccessType) riscv.PrivilegeMode {
	return c.priv
}
func (c *walkContext) MakeExecutableReadable() bool { return c.mxr }
func (c *walkContext) SupervisorUserMemory() bool   { return c.sum }
func (c *walkContext) AddressMask() uint64          { return c.mask }

// pageTable builds page tables in a Memory, allocating intermediate
// tables linearly after the root.
type pageTable struct {
	memory *mem.Memory
	mode   riscv.PagingMode
	rootPA uint64
	nextPA uint64
}

func newPageTable(memory *mem.Memory, mode riscv.PagingMode, rootPA uint64) *pageTable {
	return &pageTable{memory: memory, mode: mode, rootPA: rootPA, nextPA: rootPA + riscv.PageSize}
}

func (pt *pageTable) readPTE(addr uint64) uint64 {
	var buf [8]byte
	pt.memory.ReadAt(addr, buf[:pt.mode.PTESize()])
	if pt.mode.PTESize() == 4 {
		return uint64(binary.LittleEndian.Uint32(buf[:4]))
	}
	return binary.LittleEndian.Uint64(buf[:8])
}

func (pt *pageTable) writePTE(addr, pte uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], pte)
	pt.memory.WriteAt(addr, buf[:pt.mode.PTESize()])
}

// Map installs a 4 KiB leaf for va with the given permission bits
// (V is implied).
func (pt *pageTable) Map(va, pa uint64, flags uint64) {
	vpnBits := pt.mode.VPNBits()
	table := pt.rootPA
	for level := int(pt.mode.Levels()) - 1; level > 0; level-- {
		idx := va >> (riscv.PageShift + uint(level)*vpnBits) & (1<<vpnBits - 1)
		pteAddr := table + idx*pt.mode.PTESize()
		pte := pt.readPTE(pteAddr)
		if pte&riscv.PTEValid != 0 {
			table = pte >> riscv.PTEPPNShift << riscv.PageShift
			continue
		}
		next := pt.nextPA
		pt.nextPA += riscv.PageSize
		pt.writePTE(pteAddr, next>>riscv.PageShift<<riscv.PTEPPNShift|riscv.PTEValid)
		table = next
	}
	idx := va >> riscv.PageShift & (1<<vpnBits - 1)
	pt.writePTE(table+idx*pt.mode.PTESize(),
		pa>>riscv.PageShift<<riscv.PTEPPNShift|flags|riscv.PTEValid)
}

// MapSuper installs a superpage leaf one level above the base pages.
func (pt *pageTable) MapSuper(va, pa uint64, flags uint64) {
	vpnBits := pt.mode.VPNBits()
	levels := int(pt.mode.Levels())
	table := pt.rootPA
	for level := levels - 1; level > 1; level-- {
		idx := va >> (riscv.PageShift + uint(level)*vpnBits) & (1<<vpnBits - 1)
		pteAddr := table + idx*pt.mode.PTESize()
		pte := pt.readPTE(pteAddr)
		if pte&riscv.PTEValid != 0 {
			table = pte >> riscv.PTEPPNShift << riscv.PageShift
			continue
		}
		next := pt.nextPA
		pt.nextPA += riscv.PageSize
		pt.writePTE(pteAddr, next>>riscv.PageShift<<riscv.PTEPPNShift|riscv.PTEValid)
		table = next
	}
	idx := va >> (riscv.PageShift + vpnBits) & (1<<vpnBits - 1)
	pt.writePTE(table+idx*pt.mode.PTESize(),
		pa>>riscv.PageShift<<riscv.PTEPPNShift|flags|riscv.PTEValid)
}

const rwxad = riscv.PTERead | riscv.PTEWrite | riscv.PTEExec |
	riscv.PTEAccessed | riscv.PTEDirty

// countingTranslator wraps a Translator and counts walks per access
// type.
type countingTranslator struct {
	inner mem.Translator
	walks int
}

func (t *countingTranslator) TranslateRead(address uint64) mem.Translation {
	t.walks++
	return t.inner.TranslateRead(address)
}

func (t *countingTranslator) TranslateWrite(address uint64) mem.Translation {
	t.walks++
	return t.inner.TranslateWrite(address)
}

func (t *countingTranslator) TranslateFetch(address uint64) mem.Translation {
	t.walks++
	return t.inner.TranslateFetch(address)
}
