package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

var _ = Describe("DirectTranslator", func() {
	var (
		memory *mem.Memory
		phys   *mem.DirectTransactor
		ctx    *walkContext
		walker *mem.DirectTranslator
		tables *pageTable
	)

	const rootPA = uint64(0x80000000)

	BeforeEach(func() {
		memory = mem.NewMemory()
		phys = mem.NewDirectTransactor(memory)
		ctx = &walkContext{
			mode: riscv.Sv39,
			root: rootPA >> riscv.PageShift,
			priv: riscv.Supervisor,
			mask: riscv.Xlen64.Mask(),
		}
		walker = mem.NewDirectTranslator(ctx, phys)
		tables = newPageTable(memory, riscv.Sv39, rootPA)
	})

	It("should translate identically in Bare mode", func() {
		ctx.mode = riscv.Bare
		tr := walker.TranslateRead(0x12345678)
		Expect(tr.Trap).To(Equal(riscv.CauseNone))
		Expect(tr.Translated).To(Equal(uint64(0x12345678)))
		Expect(tr.ValidThrough).To(Equal(riscv.Xlen64.Mask()))
	})

	It("should translate identically for Machine mode accesses", func() {
		ctx.priv = riscv.Machine
		tr := walker.TranslateWrite(0xdead0000)
		Expect(tr.Trap).To(Equal(riscv.CauseNone))
		Expect(tr.Translated).To(Equal(uint64(0xdead0000)))
	})

	It("should walk a three-level Sv39 mapping", func() {
		tables.Map(0x1000, 0x80001000, rwxad)
		tr := walker.TranslateRead(0x1234)
		Expect(tr.Trap).To(Equal(riscv.CauseNone))
		Expect(tr.Untranslated).To(Equal(uint64(0x1234)))
		Expect(tr.Translated).To(Equal(uint64(0x80001234)))
		Expect(tr.ValidThrough).To(Equal(uint64(0x1fff)))
	})

	It("should page-fault on an unmapped address", func() {
		tables.Map(0x1000, 0x80001000, rwxad)
		tr := walker.TranslateRead(0x3000)
		Expect(tr.Trap).To(Equal(riscv.CauseLoadPageFault))
		Expect(tr.Translated).To(Equal(uint64(0)))
	})

	It("should produce the verb-appropriate fault cause", func() {
		Expect(walker.TranslateRead(0x3000).Trap).To(Equal(riscv.CauseLoadPageFault))
		Expect(walker.TranslateWrite(0x3000).Trap).To(Equal(riscv.CauseStorePageFault))
		Expect(walker.TranslateFetch(0x3000).Trap).To(Equal(riscv.CauseInstructionPageFault))
	})

	It("should fault a write to a read-only page", func() {
		tables.Map(0x1000, 0x80001000, riscv.PTERead|riscv.PTEAccessed|riscv.PTEDirty)
		Expect(walker.TranslateRead(0x1000).Trap).To(Equal(riscv.CauseNone))
		Expect(walker.TranslateWrite(0x1000).Trap).To(Equal(riscv.CauseStorePageFault))
	})

	It("should fault a fetch from a non-executable page", func() {
		tables.Map(0x1000, 0x80001000, riscv.PTERead|riscv.PTEWrite|riscv.PTEAccessed|riscv.PTEDirty)
		Expect(walker.TranslateFetch(0x1000).Trap).To(Equal(riscv.CauseInstructionPageFault))
	})

	It("should let MXR reads use execute-only pages", func() {
		tables.Map(0x1000, 0x80001000, riscv.PTEExec|riscv.PTEAccessed)
		Expect(walker.TranslateRead(0x1000).Trap).To(Equal(riscv.CauseLoadPageFault))
		ctx.mxr = true
		Expect(walker.TranslateRead(0x1000).Trap).To(Equal(riscv.CauseNone))
	})

	It("should require U=1 for user accesses", func() {
		tables.Map(0x1000, 0x80001000, rwxad)
		ctx.priv = riscv.User
		Expect(walker.TranslateRead(0x1000).Trap).To(Equal(riscv.CauseLoadPageFault))
	})

	It("should gate supervisor loads of user pages on SUM", func() {
		tables.Map(0x1000, 0x80001000, rwxad|riscv.PTEUser)
		Expect(walker.TranslateRead(0x1000).Trap).To(Equal(riscv.CauseLoadPageFault))
		ctx.sum = true
		Expect(walker.TranslateRead(0x1000).Trap).To(Equal(riscv.CauseNone))
	})

	It("should never let the supervisor fetch from user pages", func() {
		tables.Map(0x1000, 0x80001000, rwxad|riscv.PTEUser)
		ctx.sum = true
		Expect(walker.TranslateFetch(0x1000).Trap).To(Equal(riscv.CauseInstructionPageFault))
	})

	It("should fault when A is clear, and when D is clear on a write", func() {
		tables.Map(0x1000, 0x80001000, riscv.PTERead|riscv.PTEWrite|riscv.PTEDirty)
		Expect(walker.TranslateRead(0x1000).Trap).To(Equal(riscv.CauseLoadPageFault))

		tables.Map(0x2000, 0x80002000, riscv.PTERead|riscv.PTEWrite|riscv.PTEAccessed)
		Expect(walker.TranslateRead(0x2000).Trap).To(Equal(riscv.CauseNone))
		Expect(walker.TranslateWrite(0x2000).Trap).To(Equal(riscv.CauseStorePageFault))
	})

	It("should translate an aligned 2 MiB superpage", func() {
		tables.MapSuper(0x40000000, 0x80200000, rwxad)
		tr := walker.TranslateRead(0x40012345)
		Expect(tr.Trap).To(Equal(riscv.CauseNone))
		Expect(tr.Translated).To(Equal(uint64(0x80212345)))
		Expect(tr.ValidThrough).To(Equal(uint64(0x401fffff)))
	})

	It("should fault a misaligned superpage", func() {
		// Leaf PPN with nonzero low bits at level 1.
		tables.MapSuper(0x40000000, 0x80201000, rwxad)
		Expect(walker.TranslateRead(0x40000000).Trap).To(Equal(riscv.CauseLoadPageFault))
	})

	It("should fault non-canonical Sv39 addresses", func() {
		tables.Map(0x1000, 0x80001000, rwxad)
		Expect(walker.TranslateRead(uint64(1)<<40|0x1000).Trap).
			To(Equal(riscv.CauseLoadPageFault))
	})

	It("should walk Sv32 with 4-byte PTEs", func() {
		ctx.mode = riscv.Sv32
		ctx.mask = riscv.Xlen32.Mask()
		sv32 := newPageTable(memory, riscv.Sv32, rootPA)
		sv32.Map(0x1000, 0x80001000, rwxad)
		tr := walker.TranslateRead(0x1008)
		Expect(tr.Trap).To(Equal(riscv.CauseNone))
		Expect(tr.Translated).To(Equal(uint64(0x80001008)))
	})
})
