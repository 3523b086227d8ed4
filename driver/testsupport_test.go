package driver_test

import (
	"encoding/binary"

	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// program writes encodings into memory back to back from a base
// address.
type program struct {
	memory *mem.Memory
	cursor uint64
}

func newProgram(memory *mem.Memory, base uint64) *program {
	return &program{memory: memory, cursor: base}
}

func (p *program) emit(encodings ...uint32) {
	for _, enc := range encodings {
		if riscv.IsCompressed(enc) {
			var buf [2]byte
			binary.LittleEndian.PutUint16(buf[:], uint16(enc))
			p.memory.WriteAt(p.cursor, buf[:])
			p.cursor += 2
			continue
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], enc)
		p.memory.WriteAt(p.cursor, buf[:])
		p.cursor += 4
	}
}

func encodeIType(opcode, funct3, rd, rs1 uint32, imm int32) uint32 {
	return uint32(imm)&0xfff<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeADDI(rd, rs1 uint32, imm int32) uint32 {
	return encodeIType(0x13, 0, rd, rs1, imm)
}

func encodeLW(rd, rs1 uint32, imm int32) uint32 {
	return encodeIType(0x03, 2, rd, rs1, imm)
}

func encodeSW(rs2, rs1 uint32, imm int32) uint32 {
	u := uint32(imm)
	return u>>5&0x7f<<25 | rs2<<20 | rs1<<15 | 2<<12 | u&0x1f<<7 | 0x23
}

func encodeBNE(rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return u>>12&0x1<<31 | u>>5&0x3f<<25 | rs2<<20 | rs1<<15 |
		1<<12 | u>>1&0xf<<8 | u>>11&0x1<<7 | 0x63
}

func encodeJAL(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return u>>20&0x1<<31 | u>>1&0x3ff<<21 | u>>11&0x1<<20 |
		u>>12&0xff<<12 | rd<<7 | 0x6f
}

func encodeCSRRW(rd, csr, rs1 uint32) uint32 {
	return csr<<20 | rs1<<15 | 1<<12 | rd<<7 | 0x73
}

const (
	encECALL  = uint32(0x00000073)
	encMRET   = uint32(0x30200073)
	encSFENCE = uint32(0x12000073)
)

// sv39Tables builds Sv39 page tables in memory, allocating
// intermediate tables linearly after the root.
type sv39Tables struct {
	memory *mem.Memory
	rootPA uint64
	nextPA uint64
}

func newSv39Tables(memory *mem.Memory, rootPA uint64) *sv39Tables {
	return &sv39Tables{memory: memory, rootPA: rootPA, nextPA: rootPA + riscv.PageSize}
}

func (t *sv39Tables) readPTE(addr uint64) uint64 {
	var buf [8]byte
	t.memory.ReadAt(addr, buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func (t *sv39Tables) writePTE(addr, pte uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], pte)
	t.memory.WriteAt(addr, buf[:])
}

// Map installs a 4 KiB leaf for va (V is implied in flags handling).
func (t *sv39Tables) Map(va, pa uint64, flags uint64) {
	table := t.rootPA
	for level := 2; level > 0; level-- {
		idx := va >> (riscv.PageShift + uint(level)*9) & 0x1ff
		pteAddr := table + idx*8
		pte := t.readPTE(pteAddr)
		if pte&riscv.PTEValid != 0 {
			table = pte >> riscv.PTEPPNShift << riscv.PageShift
			continue
		}
		next := t.nextPA
		t.nextPA += riscv.PageSize
		t.writePTE(pteAddr, next>>riscv.PageShift<<riscv.PTEPPNShift|riscv.PTEValid)
		table = next
	}
	idx := va >> riscv.PageShift & 0x1ff
	t.writePTE(table+idx*8, pa>>riscv.PageShift<<riscv.PTEPPNShift|flags|riscv.PTEValid)
}

// Unmap clears the leaf for va.
func (t *sv39Tables) Unmap(va uint64) {
	table := t.rootPA
	for level := 2; level > 0; level-- {
		idx := va >> (riscv.PageShift + uint(level)*9) & 0x1ff
		pte := t.readPTE(table + idx*8)
		if pte&riscv.PTEValid == 0 {
			return
		}
		table = pte >> riscv.PTEPPNShift << riscv.PageShift
	}
	t.writePTE(table+(va>>riscv.PageShift&0x1ff)*8, 0)
}

const (
	flagsCode = uint64(riscv.PTEExec | riscv.PTEAccessed)
	flagsData = uint64(riscv.PTERead | riscv.PTEWrite |
		riscv.PTEAccessed | riscv.PTEDirty)
)
