package hart_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhart/hart"
	"github.com/sarchlab/rvhart/riscv"
)

var _ = Describe("Traps", func() {
	var s *hart.State

	BeforeEach(func() {
		var err error
		s, err = hart.NewState(riscv.Xlen64, riscv.StringToExtensions("imacsu"), 0)
		Expect(err).To(BeNil())
		s.MTVec = 0x100
		s.STVec = 0x200
	})

	It("should enter Machine mode with the cause, epc, and tval saved", func() {
		s.Privilege = riscv.User
		s.PC = 0x44
		s.Status.MIE = true

		s.RaiseException(riscv.CauseLoadPageFault, 0xbeef)

		Expect(s.Privilege).To(Equal(riscv.Machine))
		Expect(s.MEPC).To(Equal(uint64(0x44)))
		Expect(s.MCause).To(Equal(riscv.CauseLoadPageFault))
		Expect(s.MTVal).To(Equal(uint64(0xbeef)))
		Expect(s.NextPC).To(Equal(uint64(0x100)))
		Expect(s.Status.MPP).To(Equal(riscv.User))
		Expect(s.Status.MPIE).To(BeTrue())
		Expect(s.Status.MIE).To(BeFalse())
		Expect(s.TookTrap).To(BeTrue())
	})

	It("should delegate to Supervisor mode via medeleg", func() {
		s.MEDeleg = 1 << riscv.CauseLoadPageFault.Code()
		s.Privilege = riscv.User
		s.PC = 0x44

		s.RaiseException(riscv.CauseLoadPageFault, 0x1000)

		Expect(s.Privilege).To(Equal(riscv.Supervisor))
		Expect(s.SEPC).To(Equal(uint64(0x44)))
		Expect(s.SCause).To(Equal(riscv.CauseLoadPageFault))
		Expect(s.STVal).To(Equal(uint64(0x1000)))
		Expect(s.NextPC).To(Equal(uint64(0x200)))
		Expect(s.Status.SPP).To(Equal(riscv.User))
	})

	It("should never delegate a trap taken in Machine mode", func() {
		s.MEDeleg = 1 << riscv.CauseIllegalInstruction.Code()
		s.Privilege = riscv.Machine
		s.RaiseException(riscv.CauseIllegalInstruction, 0)
		Expect(s.Privilege).To(Equal(riscv.Machine))
	})

	It("should emit TookTrap and PrivilegeChanged notifications", func() {
		var events []hart.Event
		s.SetNotify(func(e hart.Event) { events = append(events, e) })
		s.Privilege = riscv.User
		s.RaiseException(riscv.CauseECallFromU, 0)
		Expect(events).To(ContainElement(hart.EventTookTrap))
		Expect(events).To(ContainElement(hart.EventPrivilegeChanged))
	})

	Describe("interrupts", func() {
		BeforeEach(func() {
			s.Privilege = riscv.Machine
			s.Status.MIE = true
			s.WriteCSR(riscv.CSRMIE, 0xaaa)
		})

		It("should save NextPC rather than PC", func() {
			s.PC = 0x40
			s.NextPC = 0x44
			s.SetInterruptPending(riscv.CauseMTI, true)
			s.ServiceInterrupts()
			Expect(s.MEPC).To(Equal(uint64(0x44)))
			Expect(s.MCause).To(Equal(riscv.CauseMTI))
		})

		It("should respect the MEI > MSI > MTI priority order", func() {
			s.SetInterruptPending(riscv.CauseMTI, true)
			s.SetInterruptPending(riscv.CauseMEI, true)
			s.ServiceInterrupts()
			Expect(s.MCause).To(Equal(riscv.CauseMEI))
		})

		It("should hold interrupts while MIE is clear in Machine mode", func() {
			s.Status.MIE = false
			s.SetInterruptPending(riscv.CauseMTI, true)
			s.ServiceInterrupts()
			Expect(s.TookTrap).To(BeFalse())
		})

		It("should deliver Machine interrupts from User mode regardless of MIE", func() {
			s.Privilege = riscv.User
			s.Status.MIE = false
			s.SetInterruptPending(riscv.CauseMTI, true)
			s.ServiceInterrupts()
			Expect(s.Privilege).To(Equal(riscv.Machine))
		})

		It("should vector interrupts in vectored mode", func() {
			s.MTVec = 0x100 | 1
			s.SetInterruptPending(riscv.CauseMTI, true)
			s.ServiceInterrupts()
			Expect(s.NextPC).To(Equal(uint64(0x100 + 4*7)))
		})

		It("should render the interrupt bit in mcause reads", func() {
			s.SetInterruptPending(riscv.CauseMTI, true)
			s.ServiceInterrupts()
			v, ok := s.ReadCSR(riscv.CSRMCause)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(uint64(1)<<63 | 7))
		})

		It("should delegate supervisor interrupts via mideleg", func() {
			s.WriteCSR(riscv.CSRMIDeleg, 0x222)
			s.Privilege = riscv.User
			s.SetInterruptPending(riscv.CauseSTI, true)
			s.ServiceInterrupts()
			Expect(s.Privilege).To(Equal(riscv.Supervisor))
			Expect(s.SCause).To(Equal(riscv.CauseSTI))
		})
	})
})
