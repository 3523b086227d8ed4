package insts

// Pack projects a 32-bit encoding onto the 20 bits that identify its
// opcode: bits [31:20], [14:12], and [6:2]. The remaining bits carry
// only register indices and immediate fragments, which operand
// extraction reads from the full encoding. A dense table indexed by the
// packed form therefore discriminates every uncompressed opcode.
func Pack(encoding uint32) uint32 {
	return encoding>>20&0xfff<<8 | encoding>>12&0x7<<5 | encoding>>2&0x1f
}

// Unpack reverses Pack, producing the canonical 32-bit encoding whose
// non-opcode bits are zero. Unpack(Pack(e)) equals e with the
// non-opcode bits cleared, and Pack(Unpack(p)) == p for all 20-bit p.
func Unpack(packed uint32) uint32 {
	return 0b11 |
		packed&0x0001f<<2 |
		packed&0x000e0<<7 |
		packed&0xfff00<<12
}
