package driver

import (
	"encoding/binary"

	"github.com/sarchlab/rvhart/hart"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// ThreadedHart is the prefetch-thread driver. A producer goroutine
// walks a fetch-ahead PC, filling a Spigot ring with fetched and
// decoded frames; the executor consumes them. When control flow
// diverges from the prefetched sequence the executor pauses the
// producer, resets its cursor to the true next PC, discards the
// in-flight frames, and resumes. Traps discovered by the producer are
// deferred in the frame and raised only if the frame is consumed.
//
// With FetchThreadDepth of 1 the worker is disabled and the driver
// fetches synchronously through the same precomputed decoder.
type ThreadedHart struct {
	*core
	decoder *hart.PrecomputedDecoder
	spigot  *Spigot

	// Producer-owned, rewritten only while the producer is paused.
	fetchAheadPC uint64
	fetchAlign   uint64
	addrMask     uint64

	dirtyTranslation bool
	dirtyDecode      bool
	decodedXlen      riscv.XlenMode

	// producerRunning tracks whether the worker is filling or parked.
	// The worker starts parked and is first released by a tick, so
	// front-end state adjustments between Reset and the first Tick
	// never race with prefetching.
	producerRunning bool
}

// NewThreadedHart constructs a prefetch-thread driver and starts its
// producer. Call Close when done with the hart.
func NewThreadedHart(bus, memory mem.IOTarget, opts ...Option) (*ThreadedHart, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := newCore(bus, memory, cfg, true)
	if err != nil {
		return nil, err
	}
	h := &ThreadedHart{
		core:         c,
		decoder:      hart.NewPrecomputedDecoder(c.state),
		fetchAheadPC: cfg.ResetVector,
		fetchAlign:   c.state.IAlignMask(),
		addrMask:     c.state.MXLen.Mask(),
		decodedXlen:  c.state.Xlen(),
	}
	c.state.SetNotify(h.onEvent)
	if cfg.FetchThreadDepth > 1 {
		h.spigot = NewSpigot(cfg.FetchThreadDepth, h.fill)
		h.spigot.Run()
	}
	return h, nil
}

// State exposes the architectural state for inspection.
func (h *ThreadedHart) State() *hart.State {
	return h.state
}

// Close terminates the producer goroutine.
func (h *ThreadedHart) Close() {
	if h.spigot != nil {
		h.spigot.Stop()
		h.spigot = nil
	}
}

func (h *ThreadedHart) onEvent(e hart.Event) {
	// Cache work is deferred to the tick boundary: the producer must
	// be paused before any shared structure is touched.
	if translationEvent(e) {
		h.dirtyTranslation = true
	}
	if decodeInvalidated(e, h.state, h.decodedXlen) {
		h.dirtyDecode = true
	}
}

// fill is the producer: fetch, decode, and extract operands for the
// frame at the fetch-ahead PC. It reads MMU state through the fetch
// path but never architectural registers; the alignment and address
// masks are producer-owned snapshots refreshed while paused.
func (h *ThreadedHart) fill(f *FetchFrame) {
	vpc := h.fetchAheadPC & h.addrMask
	f.VirtualPC = vpc
	f.DeferredTrap = riscv.CauseNone

	if vpc&h.fetchAlign != 0 {
		f.DeferredTrap = riscv.CauseInstructionAddressMisaligned
		h.fetchAheadPC = vpc + 4
		return
	}

	var buf [4]byte
	tx := h.fetchPath.Fetch(vpc, buf[:2])
	if tx.Trap != riscv.CauseNone || tx.TransferredSize != 2 {
		f.DeferredTrap = fetchTrap(tx)
		h.fetchAheadPC = vpc + 4
		return
	}
	encoding := uint32(binary.LittleEndian.Uint16(buf[:2]))
	if !riscv.IsCompressed(encoding) {
		tx = h.fetchPath.Fetch(vpc+2, buf[2:4])
		if tx.Trap != riscv.CauseNone || tx.TransferredSize != 2 {
			f.DeferredTrap = fetchTrap(tx)
			h.fetchAheadPC = vpc + 4
			return
		}
		encoding = uint32(binary.LittleEndian.Uint32(buf[:4]))
	}

	f.Encoding = encoding
	f.Instruction = h.decoder.Decode(encoding)
	f.Operands = f.Instruction.GetOperands(encoding)
	h.fetchAheadPC = (vpc + f.Instruction.Width) & h.addrMask
}

func fetchTrap(tx mem.Transaction) riscv.TrapCause {
	if tx.Trap != riscv.CauseNone {
		return tx.Trap
	}
	return riscv.CauseInstructionAccessFault
}

// reseed redirects the producer to the architectural next PC,
// discarding every prefetched frame, and performs any deferred cache
// maintenance while the producer is parked.
func (h *ThreadedHart) reseed() {
	if h.spigot == nil {
		h.flushCaches()
		return
	}
	if h.producerRunning {
		h.spigot.Pause()
	}
	h.flushCaches()
	h.fetchAheadPC = h.state.NextPC
	h.fetchAlign = h.state.IAlignMask()
	h.spigot.Discard()
	h.spigot.Resume()
	h.producerRunning = true
}

func (h *ThreadedHart) flushCaches() {
	if h.dirtyTranslation {
		h.tlb.Clear()
		h.dirtyTranslation = false
	}
	if h.dirtyDecode {
		h.decoder.Configure(h.state)
		h.decodedXlen = h.state.Xlen()
		h.dirtyDecode = false
	}
}

// BeforeFirstTick implements Tickable.
func (h *ThreadedHart) BeforeFirstTick() {
	h.Reset()
}

// Reset implements Tickable. The producer is left parked; the next
// tick releases it at the reset vector.
func (h *ThreadedHart) Reset() {
	h.state.Reset()
	h.dirtyTranslation = true
	h.dirtyDecode = true
	if h.spigot == nil {
		h.flushCaches()
		return
	}
	if h.producerRunning {
		h.spigot.Pause()
		h.producerRunning = false
	}
	h.spigot.Discard()
}

// Tick implements Tickable.
func (h *ThreadedHart) Tick() int {
	s := h.state
	s.TookTrap = false

	if h.spigot == nil {
		return h.tickSynchronous()
	}
	if !h.producerRunning {
		h.reseed()
	}

	var frame FetchFrame
	for {
		next := h.spigot.Next()
		if next.VirtualPC != s.NextPC {
			// Control flow diverged from the prefetched sequence.
			h.reseed()
			continue
		}
		if next.DeferredTrap != riscv.CauseNone {
			s.PC = next.VirtualPC
			s.RaiseException(next.DeferredTrap, next.VirtualPC)
			h.reseed()
			s.ServiceInterrupts()
			return 0
		}
		frame = *next
		h.spigot.Release()
		break
	}

	s.PC = frame.VirtualPC
	s.NextPC = (frame.VirtualPC + frame.Instruction.Width) & s.XlenMask()
	s.CurrentFetch = hart.Fetch{
		VirtualPC:   frame.VirtualPC,
		Encoding:    frame.Encoding,
		Instruction: frame.Instruction,
		Operands:    frame.Operands,
	}
	frame.Instruction.Execute(frame.Operands, s, h.dataPath)

	retired := 0
	if !s.TookTrap {
		s.Retire()
		retired = 1
	}
	if h.dirtyTranslation || h.dirtyDecode || s.TookTrap {
		h.reseed()
	}
	s.ServiceInterrupts()
	return retired
}

func (h *ThreadedHart) tickSynchronous() int {
	s := h.state
	if !h.fetchInto(h.decoder) {
		h.flushCaches()
		s.ServiceInterrupts()
		return 0
	}
	fetch := &s.CurrentFetch
	fetch.Instruction.Execute(fetch.Operands, s, h.dataPath)
	retired := 0
	if !s.TookTrap {
		s.Retire()
		retired = 1
	}
	h.flushCaches()
	s.ServiceInterrupts()
	return retired
}
