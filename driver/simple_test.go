package driver_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhart/driver"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

var _ = Describe("SimpleHart", func() {
	It("should reject a 128-bit configuration", func() {
		memory := mem.NewMemory()
		_, err := driver.NewSimpleHart(memory, memory, driver.WithXLen(128))
		Expect(err).To(HaveOccurred())
	})

	It("should run addi, addi, ecall from User mode on a 32-bit hart", func() {
		memory := mem.NewMemory()
		newProgram(memory, 0).emit(
			encodeADDI(1, 0, 5),
			encodeADDI(2, 1, 7),
			encECALL,
		)

		h, err := driver.NewSimpleHart(memory, memory,
			driver.WithXLen(32), driver.WithResetVector(0))
		Expect(err).To(BeNil())
		h.BeforeFirstTick()

		s := h.State()
		s.MTVec = 0x100
		s.Privilege = riscv.User

		Expect(h.Tick()).To(Equal(1))
		Expect(h.Tick()).To(Equal(1))
		Expect(h.Tick()).To(Equal(0)) // the ecall traps

		Expect(s.Reg(1)).To(Equal(uint64(5)))
		Expect(s.Reg(2)).To(Equal(uint64(12)))
		Expect(s.Privilege).To(Equal(riscv.Machine))
		Expect(s.MCause).To(Equal(riscv.CauseECallFromU))
		Expect(s.MEPC).To(Equal(uint64(8)))
	})

	It("should advance PC by the instruction length on non-branches", func() {
		memory := mem.NewMemory()
		newProgram(memory, 0).emit(
			encodeADDI(1, 0, 1),
			0x4505, // c.li x10, 1
			encodeADDI(2, 0, 2),
		)

		h, err := driver.NewSimpleHart(memory, memory)
		Expect(err).To(BeNil())
		h.BeforeFirstTick()
		s := h.State()

		h.Tick()
		Expect(s.PC).To(Equal(uint64(0)))
		Expect(s.NextPC).To(Equal(uint64(4)))
		h.Tick()
		Expect(s.PC).To(Equal(uint64(4)))
		Expect(s.NextPC).To(Equal(uint64(6)))
		h.Tick()
		Expect(s.PC).To(Equal(uint64(6)))
		Expect(s.NextPC).To(Equal(uint64(10)))
	})

	Context("under Sv39 paging", func() {
		var (
			memory *mem.Memory
			tables *sv39Tables
			h      *driver.SimpleHart
		)

		const (
			rootPA = uint64(0x80100000)
			codeVA = uint64(0x4000)
			codePA = uint64(0x80004000)
			userVA = uint64(0x5000)
			userPA = uint64(0x80005000)
			dataVA = uint64(0x1000)
			dataPA = uint64(0x80001000)
		)

		BeforeEach(func() {
			memory = mem.NewMemory()
			tables = newSv39Tables(memory, rootPA)
			tables.Map(codeVA, codePA, flagsCode)
			tables.Map(userVA, userPA, flagsCode|riscv.PTEUser)
			tables.Map(dataVA, dataPA, flagsData)

			var err error
			h, err = driver.NewSimpleHart(memory, memory, driver.WithXLen(64))
			Expect(err).To(BeNil())
			h.BeforeFirstTick()
		})

		enterSupervisor := func(pc uint64) {
			s := h.State()
			s.Privilege = riscv.Supervisor
			s.WriteCSR(riscv.CSRSATP, uint64(riscv.Sv39)<<60|rootPA>>riscv.PageShift)
			s.MEDeleg = 1 << riscv.CauseLoadPageFault.Code()
			s.STVec = 0x200
			s.MTVec = 0x300
			s.NextPC = pc
		}

		It("should load through the page tables in Supervisor mode", func() {
			memory.WriteAt(dataPA, []byte{0x78, 0x56, 0x34, 0x12})
			newProgram(memory, codePA).emit(encodeLW(5, 1, 0))

			enterSupervisor(codeVA)
			s := h.State()
			s.SetReg(1, dataVA)

			Expect(h.Tick()).To(Equal(1))
			Expect(s.Reg(5)).To(Equal(uint64(0x12345678)))
		})

		It("should page-fault a User load of a supervisor page", func() {
			newProgram(memory, userPA).emit(encodeLW(5, 1, 0))

			enterSupervisor(userVA)
			s := h.State()
			s.Privilege = riscv.User
			s.SetReg(1, dataVA)

			Expect(h.Tick()).To(Equal(0))
			Expect(s.Privilege).To(Equal(riscv.Supervisor))
			Expect(s.SCause).To(Equal(riscv.CauseLoadPageFault))
			Expect(s.STVal).To(Equal(dataVA))
			Expect(s.SEPC).To(Equal(userVA))
		})

		It("should fetch a compressed instruction at the end of a mapped page", func() {
			// c.li x10, 1 in the last halfword; the next page is
			// unmapped.
			newProgram(memory, codePA+riscv.PageSize-2).emit(0x4505)

			enterSupervisor(codeVA + riscv.PageSize - 2)
			s := h.State()

			Expect(h.Tick()).To(Equal(1))
			Expect(s.TookTrap).To(BeFalse())
			Expect(s.Reg(10)).To(Equal(uint64(1)))
			Expect(s.NextPC).To(Equal(codeVA + riscv.PageSize))
		})

		It("should consult the new translation after SFENCE.VMA", func() {
			memory.WriteAt(dataPA, []byte{1, 0, 0, 0})
			memory.WriteAt(0x80009000, []byte{2, 0, 0, 0})
			newProgram(memory, codePA).emit(
				encodeLW(5, 1, 0),
				encodeLW(6, 1, 0),
				encSFENCE,
				encodeLW(7, 1, 0),
			)

			enterSupervisor(codeVA)
			s := h.State()
			s.SetReg(1, dataVA)

			h.Tick() // x5 = 1, translation now cached
			tables.Map(dataVA, 0x80009000, flagsData)
			h.Tick() // stale translation
			Expect(s.Reg(6)).To(Equal(uint64(1)))
			h.Tick() // sfence.vma
			h.Tick() // fresh walk
			Expect(s.Reg(7)).To(Equal(uint64(2)))
		})
	})

	It("should decode a halfword as illegal after MISA disables C", func() {
		memory := mem.NewMemory()
		newProgram(memory, 0).emit(encodeCSRRW(0, riscv.CSRMISA, 1))
		newProgram(memory, 4).emit(0x4505) // c.li x10, 1

		h, err := driver.NewSimpleHart(memory, memory)
		Expect(err).To(BeNil())
		h.BeforeFirstTick()
		s := h.State()
		s.MTVec = 0x100
		s.SetReg(1, uint64(riscv.StringToExtensions("imsu")))

		Expect(h.Tick()).To(Equal(1))
		Expect(s.Extensions & riscv.ExtC).To(BeZero())
		Expect(h.Tick()).To(Equal(0))
		Expect(s.MCause).To(Equal(riscv.CauseIllegalInstruction))
	})
})
