package driver

import (
	"github.com/sarchlab/rvhart/hart"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// SimpleHart is the single-step driver: each tick fetches one
// encoding, decodes it with the direct decoder, and executes it. The
// only memoization is whatever the TLB provides.
type SimpleHart struct {
	*core
	decoder     *hart.DirectDecoder
	decodedXlen riscv.XlenMode
}

// NewSimpleHart constructs a single-step driver over a bus and a
// dedicated memory target.
func NewSimpleHart(bus, memory mem.IOTarget, opts ...Option) (*SimpleHart, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := newCore(bus, memory, cfg, true)
	if err != nil {
		return nil, err
	}
	h := &SimpleHart{
		core:        c,
		decoder:     hart.NewDirectDecoder(c.state),
		decodedXlen: c.state.Xlen(),
	}
	c.state.SetNotify(h.onEvent)
	return h, nil
}

// State exposes the architectural state for inspection.
func (h *SimpleHart) State() *hart.State {
	return h.state
}

// TLB exposes the translation cache for instrumentation.
func (h *SimpleHart) TLB() *mem.TranslationCache {
	return h.tlb
}

func (h *SimpleHart) onEvent(e hart.Event) {
	if translationEvent(e) {
		h.tlb.Clear()
	}
	if decodeInvalidated(e, h.state, h.decodedXlen) {
		h.decoder.Configure(h.state)
		h.decodedXlen = h.state.Xlen()
	}
}

// BeforeFirstTick implements Tickable.
func (h *SimpleHart) BeforeFirstTick() {
	h.Reset()
}

// Reset implements Tickable.
func (h *SimpleHart) Reset() {
	h.state.Reset()
	h.tlb.Clear()
	h.decoder.Configure(h.state)
	h.decodedXlen = h.state.Xlen()
}

// Tick implements Tickable: fetch, decode, execute, then check for
// pending interrupts at the tick boundary.
func (h *SimpleHart) Tick() int {
	s := h.state
	s.TookTrap = false

	if !h.fetchInto(h.decoder) {
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
	s.ServiceInterrupts()
	return retired
}
