package driver

import (
	"github.com/sarchlab/rvhart/hart"
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// blockInst is one recorded instruction of a basic block: its raw
// encoding alongside its decoded form and operands.
type blockInst struct {
	vpc      uint64
	encoding uint32
	inst     hart.Instruction
	ops      insts.Operands
}

// blockRef is a generation-tagged index into the block arena. Evicting
// a block bumps its slot's generation, so stale chain references fail
// their tag check without any back-reference sweep.
type blockRef struct {
	index      int32
	generation uint32
}

var nilRef = blockRef{index: -1}

// basicBlock is a recorded straight-line instruction sequence entered
// at startPC and ended by a control-flow terminator or the length
// bound.
type basicBlock struct {
	startPC    uint64
	generation uint32
	valid      bool
	insts      []blockInst
	next       []blockRef
}

// BlockHart is the basic-block driver. It keeps a ring of decoded
// blocks reached through a direct-mapped root table and through
// next-block chains: after a block executes, its successor at the new
// PC is linked so the next entry skips the root lookup entirely. On a
// miss the driver records a new block while executing it, one
// instruction at a time, until a terminator or the length bound.
type BlockHart struct {
	*core
	decoder *hart.PrecomputedDecoder

	blocks   []basicBlock
	cursor   int
	roots    []blockRef
	rootMask uint64
	prev     blockRef

	maxLen      int
	fanout      int
	decodedXlen riscv.XlenMode
}

// NewBlockHart constructs a basic-block driver.
func NewBlockHart(bus, memory mem.IOTarget, opts ...Option) (*BlockHart, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := newCore(bus, memory, cfg, true)
	if err != nil {
		return nil, err
	}
	numRoots := 1 << cfg.BlockCacheBits
	h := &BlockHart{
		core:     c,
		decoder:  hart.NewPrecomputedDecoder(c.state),
		blocks:   make([]basicBlock, numRoots),
		roots:    make([]blockRef, numRoots),
		rootMask: uint64(numRoots - 1),
		prev:     nilRef,
		maxLen:   cfg.MaxBlockLength,
		fanout:   cfg.NumNextBlocks,

		decodedXlen: c.state.Xlen(),
	}
	for i := range h.roots {
		h.roots[i] = nilRef
	}
	c.state.SetNotify(h.onEvent)
	return h, nil
}

// State exposes the architectural state for inspection.
func (h *BlockHart) State() *hart.State {
	return h.state
}

func (h *BlockHart) onEvent(e hart.Event) {
	if translationEvent(e) {
		h.tlb.Clear()
	}
	if decodeInvalidated(e, h.state, h.decodedXlen) {
		h.clearBlocks()
		h.decoder.Configure(h.state)
		h.decodedXlen = h.state.Xlen()
	}
}

func (h *BlockHart) clearBlocks() {
	for i := range h.blocks {
		h.blocks[i].valid = false
		h.blocks[i].generation++
	}
	h.prev = nilRef
}

// BeforeFirstTick implements Tickable.
func (h *BlockHart) BeforeFirstTick() {
	h.Reset()
}

// Reset implements Tickable.
func (h *BlockHart) Reset() {
	h.state.Reset()
	h.tlb.Clear()
	h.clearBlocks()
	h.decoder.Configure(h.state)
	h.decodedXlen = h.state.Xlen()
}

func (h *BlockHart) resolve(ref blockRef) *basicBlock {
	if ref.index < 0 {
		return nil
	}
	b := &h.blocks[ref.index]
	if !b.valid || b.generation != ref.generation {
		return nil
	}
	return b
}

func (h *BlockHart) rootIndex(pc uint64) uint64 {
	return pc >> 1 & h.rootMask
}

// allocate claims the next arena slot for a block starting at startPC,
// evicting the occupant by bumping the slot generation.
func (h *BlockHart) allocate(startPC uint64) (*basicBlock, blockRef) {
	index := h.cursor
	h.cursor++
	if h.cursor == len(h.blocks) {
		h.cursor = 0
	}
	b := &h.blocks[index]
	b.generation++
	b.valid = true
	b.startPC = startPC
	b.insts = b.insts[:0]
	b.next = b.next[:0]
	ref := blockRef{index: int32(index), generation: b.generation}
	h.roots[h.rootIndex(startPC)] = ref
	return b, ref
}

// chain links a successor onto the previously executed block.
func (h *BlockHart) chain(ref blockRef) {
	pb := h.resolve(h.prev)
	if pb == nil || len(pb.next) >= h.fanout {
		return
	}
	for _, existing := range pb.next {
		if existing == ref {
			return
		}
	}
	pb.next = append(pb.next, ref)
}

// Tick implements Tickable: it executes up to one basic block and
// returns the number of instructions retired.
func (h *BlockHart) Tick() int {
	s := h.state
	s.TookTrap = false
	entryPC := s.NextPC

	// Fast path: the previous block chains straight to a successor at
	// the entry PC.
	var b *basicBlock
	ref := nilRef
	if pb := h.resolve(h.prev); pb != nil {
		for _, nref := range pb.next {
			if nb := h.resolve(nref); nb != nil && nb.startPC == entryPC {
				b, ref = nb, nref
				break
			}
		}
	}

	// Root table.
	if b == nil {
		r := h.roots[h.rootIndex(entryPC)]
		if nb := h.resolve(r); nb != nil && nb.startPC == entryPC {
			b, ref = nb, r
			h.chain(r)
		}
	}

	var retired int
	if b != nil {
		retired = h.runBlock(b)
	} else {
		b, ref = h.allocate(entryPC)
		retired = h.record(b)
		if len(b.insts) == 0 {
			// Nothing recorded: the very first fetch trapped. An empty
			// block would spin forever, so drop it.
			b.valid = false
			ref = nilRef
		}
	}

	h.prev = ref
	s.ServiceInterrupts()
	return retired
}

// record fills a freshly allocated block by fetching, decoding, and
// executing one instruction at a time until a terminator, the length
// bound, a trap, or a fetch fault closes it.
func (h *BlockHart) record(b *basicBlock) int {
	s := h.state
	retired := 0
	for {
		if !h.fetchInto(h.decoder) {
			break
		}
		fetch := s.CurrentFetch
		b.insts = append(b.insts, blockInst{
			vpc:      fetch.VirtualPC,
			encoding: fetch.Encoding,
			inst:     fetch.Instruction,
			ops:      fetch.Operands,
		})
		fetch.Instruction.Execute(fetch.Operands, s, h.dataPath)
		if s.TookTrap {
			break
		}
		s.Retire()
		retired++
		if fetch.Instruction.Class.Terminator() {
			break
		}
		if len(b.insts) >= h.maxLen {
			break
		}
	}
	return retired
}

// runBlock executes a cached block, stopping early if an instruction
// takes a trap: instructions after the trap must not retire.
func (h *BlockHart) runBlock(b *basicBlock) int {
	s := h.state
	retired := 0
	for i := range b.insts {
		bi := &b.insts[i]
		s.PC = bi.vpc
		s.NextPC = (bi.vpc + bi.inst.Width) & s.XlenMask()
		bi.inst.Execute(bi.ops, s, h.dataPath)
		if s.TookTrap {
			break
		}
		s.Retire()
		retired++
	}
	return retired
}
