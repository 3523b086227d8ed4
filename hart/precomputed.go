package hart

import (
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/riscv"
)

// lutKey identifies one decode configuration. Exactly one decoded
// instruction corresponds to any (encoding, key) pair.
type lutKey struct {
	extensions uint32
	mxlen      riscv.XlenMode
	xlen       riscv.XlenMode
}

// lut holds the dense decode of every encoding for one key: all 2^16
// compressed halfwords and all 2^20 packed uncompressed projections.
type lut struct {
	uncompressed []Instruction
	compressed   []Instruction
}

// PrecomputedDecoder amortizes decoding by building, per
// (extensions, machine-XLEN, current-XLEN) triple, lookup tables of
// every fully decoded instruction. Tables are built lazily on the
// first Configure for a triple and retained for the hart's lifetime,
// so oscillating between privilege levels with different widths is
// cheap after the first crossing.
type PrecomputedDecoder struct {
	tables  map[lutKey]*lut
	current *lut
}

// NewPrecomputedDecoder creates a decoder configured for the state's
// current triple.
func NewPrecomputedDecoder(s *State) *PrecomputedDecoder {
	d := &PrecomputedDecoder{tables: make(map[lutKey]*lut)}
	d.Configure(s)
	return d
}

// Configure implements Decoder, binding the decoder to the state's
// current triple and building its tables on first use.
func (d *PrecomputedDecoder) Configure(s *State) {
	key := lutKey{extensions: s.Extensions, mxlen: s.MXLen, xlen: s.Xlen()}
	if table, ok := d.tables[key]; ok {
		d.current = table
		return
	}

	table := &lut{
		uncompressed: make([]Instruction, 1<<20),
		compressed:   make([]Instruction, 1<<16),
	}
	for packed := uint32(0); packed < 1<<20; packed++ {
		table.uncompressed[packed] = Decode(insts.Unpack(packed), key.extensions, key.mxlen, key.xlen)
	}
	for encoded := uint32(0); encoded < 1<<16; encoded++ {
		if !riscv.IsCompressed(encoded) {
			continue
		}
		table.compressed[encoded] = Decode(encoded, key.extensions, key.mxlen, key.xlen)
	}

	d.tables[key] = table
	d.current = table
}

// Decode implements Decoder by table lookup.
func (d *PrecomputedDecoder) Decode(encoding uint32) Instruction {
	if riscv.IsCompressed(encoding) {
		return d.current.compressed[encoding&0xffff]
	}
	return d.current.uncompressed[insts.Pack(encoding)]
}
