package hart_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhart/hart"
	"github.com/sarchlab/rvhart/riscv"
)

var _ = Describe("Decode", func() {
	ext := riscv.StringToExtensions("imacsu")

	decode := func(enc uint32) hart.Instruction {
		return hart.Decode(enc, ext, riscv.Xlen64, riscv.Xlen64)
	}

	It("should size instructions by their low bits", func() {
		Expect(decode(encodeADDI(1, 0, 5)).Width).To(Equal(uint64(4)))
		Expect(decode(0x4501).Width).To(Equal(uint64(2))) // c.li x10, 0
	})

	It("should classify sequential instructions", func() {
		Expect(decode(encodeADDI(1, 0, 5)).Class).To(Equal(hart.ClassSequential))
		Expect(decode(encodeLW(1, 2, 0)).Class).To(Equal(hart.ClassSequential))
	})

	It("should classify every block terminator", func() {
		Expect(decode(encodeBEQ(1, 2, 8)).Class).To(Equal(hart.ClassBranch))
		Expect(decode(encodeJAL(1, 16)).Class).To(Equal(hart.ClassJump))
		Expect(decode(encodeIType(0x67, 0, 1, 2, 0)).Class).To(Equal(hart.ClassJump)) // jalr
		Expect(decode(encECALL).Class).To(Equal(hart.ClassTrap))
		Expect(decode(encEBREAK).Class).To(Equal(hart.ClassTrap))
		Expect(decode(encMRET).Class).To(Equal(hart.ClassTrapReturn))
		Expect(decode(encSRET).Class).To(Equal(hart.ClassTrapReturn))
		Expect(decode(0x0000000f).Class).To(Equal(hart.ClassFence)) // fence
		Expect(decode(encFENCEI).Class).To(Equal(hart.ClassFence))
		Expect(decode(encSFENCE).Class).To(Equal(hart.ClassFence))
	})

	It("should classify compressed control flow", func() {
		Expect(decode(0xa801).Class).To(Equal(hart.ClassJump))   // c.j 16
		Expect(decode(0xc111).Class).To(Equal(hart.ClassBranch)) // c.beqz
		Expect(decode(0x9002).Class).To(Equal(hart.ClassTrap))   // c.ebreak
		Expect(decode(0x8082).Class).To(Equal(hart.ClassJump))   // c.jr ra
	})

	It("should reject RV64-only opcodes on a 32-bit hart", func() {
		ld := encodeIType(0x03, 3, 1, 2, 0)
		inst64 := hart.Decode(ld, ext, riscv.Xlen64, riscv.Xlen64)
		inst32 := hart.Decode(ld, ext, riscv.Xlen32, riscv.Xlen32)
		Expect(inst64.Class).To(Equal(hart.ClassSequential))
		Expect(inst32.Class).To(Equal(hart.ClassTrap))
	})

	It("should reject M-extension opcodes without M", func() {
		mul := uint32(0x02208033) // mul x0, x1, x2
		withM := hart.Decode(mul, ext, riscv.Xlen64, riscv.Xlen64)
		withoutM := hart.Decode(mul, riscv.StringToExtensions("iacsu"), riscv.Xlen64, riscv.Xlen64)
		Expect(withM.Class).To(Equal(hart.ClassSequential))
		Expect(withoutM.Class).To(Equal(hart.ClassTrap))
	})

	It("should reject compressed encodings without C", func() {
		inst := hart.Decode(0x4501, riscv.StringToExtensions("imasu"), riscv.Xlen64, riscv.Xlen64)
		Expect(inst.Class).To(Equal(hart.ClassTrap))
		Expect(inst.Width).To(Equal(uint64(2)))
	})

	It("should reject shamt[5] shifts on a 32-bit hart", func() {
		slli33 := encodeIType(0x13, 1, 1, 1, 0x21) // slli x1, x1, 33
		Expect(hart.Decode(slli33, ext, riscv.Xlen64, riscv.Xlen64).Class).
			To(Equal(hart.ClassSequential))
		Expect(hart.Decode(slli33, ext, riscv.Xlen32, riscv.Xlen32).Class).
			To(Equal(hart.ClassTrap))
	})

	It("should decode the all-zero halfword as illegal", func() {
		Expect(decode(0x0000).Class).To(Equal(hart.ClassTrap))
	})
})
