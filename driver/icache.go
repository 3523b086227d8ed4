package driver

import (
	"github.com/sarchlab/rvhart/hart"
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

const icacheBits = 16

// icacheEntry caches one decoded instruction, generation-tagged so the
// whole table invalidates by bumping the cache generation.
type icacheEntry struct {
	pc         uint64
	generation uint32
	encoding   uint32
	inst       hart.Instruction
	ops        insts.Operands
}

// ICacheHart is the direct-mapped instruction-cache driver: one table
// of 2^16 decoded entries indexed by (pc >> 1). It pays a tag
// comparison per instruction but wins over block caching on
// straight-line code with low locality.
type ICacheHart struct {
	*core
	decoder     *hart.PrecomputedDecoder
	entries     []icacheEntry
	generation  uint32
	decodedXlen riscv.XlenMode
}

// NewICacheHart constructs an instruction-cache driver.
func NewICacheHart(bus, memory mem.IOTarget, opts ...Option) (*ICacheHart, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := newCore(bus, memory, cfg, true)
	if err != nil {
		return nil, err
	}
	h := &ICacheHart{
		core:        c,
		decoder:     hart.NewPrecomputedDecoder(c.state),
		entries:     make([]icacheEntry, 1<<icacheBits),
		generation:  1,
		decodedXlen: c.state.Xlen(),
	}
	c.state.SetNotify(h.onEvent)
	return h, nil
}

// State exposes the architectural state for inspection.
func (h *ICacheHart) State() *hart.State {
	return h.state
}

func (h *ICacheHart) onEvent(e hart.Event) {
	if translationEvent(e) {
		h.tlb.Clear()
	}
	if decodeInvalidated(e, h.state, h.decodedXlen) {
		h.generation++
		h.decoder.Configure(h.state)
		h.decodedXlen = h.state.Xlen()
	}
}

// BeforeFirstTick implements Tickable.
func (h *ICacheHart) BeforeFirstTick() {
	h.Reset()
}

// Reset implements Tickable.
func (h *ICacheHart) Reset() {
	h.state.Reset()
	h.tlb.Clear()
	h.generation++
	h.decoder.Configure(h.state)
	h.decodedXlen = h.state.Xlen()
}

// Tick implements Tickable.
func (h *ICacheHart) Tick() int {
	s := h.state
	s.TookTrap = false

	vpc := s.NextPC
	entry := &h.entries[vpc>>1&(1<<icacheBits-1)]
	if entry.generation == h.generation && entry.pc == vpc {
		s.PC = vpc
		s.NextPC = (vpc + entry.inst.Width) & s.XlenMask()
		entry.inst.Execute(entry.ops, s, h.dataPath)
	} else {
		if !h.fetchInto(h.decoder) {
			s.ServiceInterrupts()
			return 0
		}
		fetch := &s.CurrentFetch
		*entry = icacheEntry{
			pc:         vpc,
			generation: h.generation,
			encoding:   fetch.Encoding,
			inst:       fetch.Instruction,
			ops:        fetch.Operands,
		}
		fetch.Instruction.Execute(fetch.Operands, s, h.dataPath)
	}

	retired := 0
	if !s.TookTrap {
		s.Retire()
		retired = 1
	}
	s.ServiceInterrupts()
	return retired
}
