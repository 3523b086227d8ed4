package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhart/insts"
)

// opcodeBits is the mask of the bits Pack keeps: [31:20], [14:12],
// [6:2], plus the implied 0b11 low bits of an uncompressed encoding.
const opcodeBits = uint32(0xfff00000 | 0x7000 | 0x7c | 0x3)

var _ = Describe("Pack/Unpack", func() {
	It("should round-trip every packed value", func() {
		for packed := uint32(0); packed < 1<<20; packed++ {
			Expect(insts.Pack(insts.Unpack(packed))).To(Equal(packed))
		}
	})

	It("should clear exactly the non-opcode bits on unpack of pack", func() {
		samples := []uint32{
			0x00000013, // addi x0, x0, 0
			0x00a50533, // add x10, x10, x10
			0xfff00f93, // addi x31, x0, -1
			0x30200073, // mret
			0xdeadbeef,
			0xffffffff,
		}
		for _, enc := range samples {
			enc |= 0x3
			Expect(insts.Unpack(insts.Pack(enc))).To(Equal(enc & opcodeBits))
		}
	})

	It("should keep funct7, funct3 and the base opcode", func() {
		// add x10, x11, x12 -> funct7=0, funct3=0, opcode 0x33
		// sub x10, x11, x12 -> funct7=0x20
		add := uint32(0x00c58533)
		sub := uint32(0x40c58533)
		Expect(insts.Pack(add)).NotTo(Equal(insts.Pack(sub)))
	})
})

var _ = Describe("Operand extraction", func() {
	It("should extract I-type operands", func() {
		// addi x1, x2, -3
		ops := insts.IType(0xffd10093)
		Expect(ops.Rd).To(Equal(uint8(1)))
		Expect(ops.Rs1).To(Equal(uint8(2)))
		Expect(ops.Imm).To(Equal(int64(-3)))
	})

	It("should extract S-type operands", func() {
		// sw x5, 8(x10)
		ops := insts.SType(0x00552423)
		Expect(ops.Rs1).To(Equal(uint8(10)))
		Expect(ops.Rs2).To(Equal(uint8(5)))
		Expect(ops.Imm).To(Equal(int64(8)))
	})

	It("should extract B-type operands with a negative offset", func() {
		// beq x1, x2, -4
		ops := insts.BType(0xfe208ee3)
		Expect(ops.Rs1).To(Equal(uint8(1)))
		Expect(ops.Rs2).To(Equal(uint8(2)))
		Expect(ops.Imm).To(Equal(int64(-4)))
	})

	It("should extract U-type operands", func() {
		// lui x3, 0xfffff
		ops := insts.UType(0xfffff1b7)
		Expect(ops.Rd).To(Equal(uint8(3)))
		Expect(ops.Imm).To(Equal(int64(-4096)))
	})

	It("should extract J-type operands", func() {
		// jal x1, 2048
		ops := insts.JType(0x001000ef)
		Expect(ops.Rd).To(Equal(uint8(1)))
		Expect(ops.Imm).To(Equal(int64(2048)))
	})

	It("should extract CSR operands zero-extended", func() {
		// csrrw x1, mstatus(0x300), x2
		ops := insts.CSRType(0x300110f3)
		Expect(ops.Rd).To(Equal(uint8(1)))
		Expect(ops.Rs1).To(Equal(uint8(2)))
		Expect(ops.Imm).To(Equal(int64(0x300)))
	})

	It("should extract C.ADDI operands", func() {
		// c.addi x8, -1  -> 000 1 01000 11111 01
		ops := insts.CIType(0x147d)
		Expect(ops.Rd).To(Equal(uint8(8)))
		Expect(ops.Rs1).To(Equal(uint8(8)))
		Expect(ops.Imm).To(Equal(int64(-1)))
	})

	It("should extract C.LW operands", func() {
		// c.lw x14, 12(x11) -> 010 001 011 1 0 110 00
		ops := insts.CLWType(0x45d8)
		Expect(ops.Rd).To(Equal(uint8(14)))
		Expect(ops.Rs1).To(Equal(uint8(11)))
		Expect(ops.Imm).To(Equal(int64(12)))
	})

	It("should extract C.J offsets symmetrically", func() {
		// c.j +16 then c.j -16: the scramble must sign-extend.
		forward := insts.CJType(0xa801)
		Expect(forward.Imm).To(Equal(int64(16)))
		backward := insts.CJType(0xbfc5)
		Expect(backward.Imm).To(Equal(int64(-16)))
	})
})
