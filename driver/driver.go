// Package driver provides the execution drivers of a hart: the Tick
// loops that fetch, decode, and execute over the translation and
// decode primitives. Four strategies are offered — single-step,
// basic-block caching, a direct-mapped instruction cache, and a
// prefetch-thread pipeline — all sharing the same plumbing of
// transactors, translator, TLB, and decoders.
package driver

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/rvhart/hart"
	"github.com/sarchlab/rvhart/mem"
	"github.com/sarchlab/rvhart/riscv"
)

// Tickable is the stepping interface drivers expose to the outer
// scheduler. Tick advances exactly one retired instruction — or up to
// one basic block for the block driver — and returns the number of
// instructions retired; a tick that only takes a trap returns 0.
// Reset is idempotent and restores the construction-time reset vector.
type Tickable interface {
	BeforeFirstTick()
	Tick() int
	Reset()
}

// Config carries the construction parameters shared by all drivers.
type Config struct {
	// XLenBits is the machine width: 32 or 64. Go provides no native
	// 128-bit arithmetic, so 128 is rejected at construction.
	XLenBits int

	// Extensions is the maximal ISA letter string, e.g. "imacsu".
	Extensions string

	// ResetVector is the PC loaded by Reset.
	ResetVector uint64

	// TranslationCacheBits sizes the TLB at 2^bits entries per access
	// type; 0 disables it.
	TranslationCacheBits uint

	// SkipBusForFetches routes fetches through the dedicated memory
	// transactor, bypassing MMIO devices.
	SkipBusForFetches bool

	// MaxBlockLength bounds recorded basic blocks.
	MaxBlockLength int

	// BlockCacheBits sizes the block driver's root table.
	BlockCacheBits uint

	// NumNextBlocks is the chain fanout per block.
	NumNextBlocks int

	// FetchThreadDepth sizes the prefetch ring; 1 disables the worker.
	FetchThreadDepth int
}

func defaultConfig() Config {
	return Config{
		XLenBits:             64,
		Extensions:           "imacsu",
		TranslationCacheBits: 9,
		SkipBusForFetches:    false,
		MaxBlockLength:       32,
		BlockCacheBits:       12,
		NumNextBlocks:        2,
		FetchThreadDepth:     8,
	}
}

// Option configures a driver at construction.
type Option func(*Config)

// WithXLen selects the machine width in bits.
func WithXLen(bits int) Option {
	return func(c *Config) { c.XLenBits = bits }
}

// WithExtensions sets the maximal ISA string.
func WithExtensions(ext string) Option {
	return func(c *Config) { c.Extensions = ext }
}

// WithResetVector sets the reset PC.
func WithResetVector(pc uint64) Option {
	return func(c *Config) { c.ResetVector = pc }
}

// WithTranslationCacheBits sizes the TLB; 0 disables it.
func WithTranslationCacheBits(bits uint) Option {
	return func(c *Config) { c.TranslationCacheBits = bits }
}

// WithSkipBusForFetches routes fetches around MMIO devices.
func WithSkipBusForFetches(skip bool) Option {
	return func(c *Config) { c.SkipBusForFetches = skip }
}

// WithMaxBlockLength bounds recorded basic blocks.
func WithMaxBlockLength(n int) Option {
	return func(c *Config) { c.MaxBlockLength = n }
}

// WithBlockCacheBits sizes the block driver's root table.
func WithBlockCacheBits(bits uint) Option {
	return func(c *Config) { c.BlockCacheBits = bits }
}

// WithNumNextBlocks sets the chain fanout per block.
func WithNumNextBlocks(n int) Option {
	return func(c *Config) { c.NumNextBlocks = n }
}

// WithFetchThreadDepth sizes the prefetch ring; 1 disables the worker.
func WithFetchThreadDepth(depth int) Option {
	return func(c *Config) { c.FetchThreadDepth = depth }
}

// core is the plumbing every driver shares: the architectural state
// and the transactor/translator stack between it and the bus.
type core struct {
	state *hart.State

	busPA  *mem.DirectTransactor
	memPA  *mem.DirectTransactor
	walker *mem.DirectTranslator
	tlb    *mem.TranslationCache
	busVA  *mem.TranslatingTransactor
	memVA  *mem.TranslatingTransactor

	// fetchPath is busVA or memVA per SkipBusForFetches; dataPath is
	// always the bus, so loads and stores see devices.
	fetchPath mem.Transactor
	dataPath  mem.Transactor
}

func newCore(bus, memory mem.IOTarget, cfg Config, stride bool) (*core, error) {
	var xlen riscv.XlenMode
	switch cfg.XLenBits {
	case 32:
		xlen = riscv.Xlen32
	case 64:
		xlen = riscv.Xlen64
	default:
		return nil, fmt.Errorf("unsupported XLEN %d: must be 32 or 64", cfg.XLenBits)
	}

	state, err := hart.NewState(xlen, riscv.StringToExtensions(cfg.Extensions), cfg.ResetVector)
	if err != nil {
		return nil, err
	}

	c := &core{state: state}
	c.busPA = mem.NewDirectTransactor(bus)
	c.memPA = mem.NewDirectTransactor(memory)
	// Page-table walks always bypass the bus: tables live in RAM.
	c.walker = mem.NewDirectTranslator(state, c.memPA)
	c.tlb = mem.NewTranslationCache(c.walker, cfg.TranslationCacheBits)
	c.busVA = mem.NewTranslatingTransactor(c.tlb, c.busPA, stride)
	c.memVA = mem.NewTranslatingTransactor(c.tlb, c.memPA, stride)
	c.dataPath = c.busVA
	if cfg.SkipBusForFetches {
		c.fetchPath = c.memVA
	} else {
		c.fetchPath = c.busVA
	}
	return c, nil
}

// fetchEncoding reads the encoding at vpc through a transactor. The
// first halfword decides the width, so a compressed instruction at
// the end of a mapped page fetches without touching the next page.
func fetchEncoding(s *hart.State, path mem.Transactor, vpc uint64) (uint32, riscv.TrapCause) {
	if vpc&s.IAlignMask() != 0 {
		return 0, riscv.CauseInstructionAddressMisaligned
	}
	var buf [4]byte
	tx := path.Fetch(vpc, buf[:2])
	if tx.Trap != riscv.CauseNone {
		return 0, tx.Trap
	}
	if tx.TransferredSize != 2 {
		return 0, riscv.CauseInstructionAccessFault
	}
	encoding := uint32(binary.LittleEndian.Uint16(buf[:2]))
	if riscv.IsCompressed(encoding) {
		return encoding, riscv.CauseNone
	}
	tx = path.Fetch(vpc+2, buf[2:4])
	if tx.Trap != riscv.CauseNone {
		return 0, tx.Trap
	}
	if tx.TransferredSize != 2 {
		return 0, riscv.CauseInstructionAccessFault
	}
	return uint32(binary.LittleEndian.Uint32(buf[:4])), riscv.CauseNone
}

// fetchInto fills the hart's fetch slot from NextPC. On a fetch trap
// it raises the exception and reports false; the caller returns from
// the tick and re-enters at the handler.
func (c *core) fetchInto(decoder hart.Decoder) bool {
	s := c.state
	vpc := s.NextPC
	encoding, trap := fetchEncoding(s, c.fetchPath, vpc)
	if trap != riscv.CauseNone {
		s.PC = vpc
		s.RaiseException(trap, vpc)
		return false
	}
	s.PC = vpc
	s.NextPC = (vpc + riscv.InstructionLength(encoding)) & s.XlenMask()
	instruction := decoder.Decode(encoding)
	s.CurrentFetch = hart.Fetch{
		VirtualPC:   vpc,
		Encoding:    encoding,
		Instruction: instruction,
		Operands:    instruction.GetOperands(encoding),
	}
	return true
}

// translationEvent reports whether an event invalidates cached
// translations.
func translationEvent(e hart.Event) bool {
	switch e {
	case hart.EventRequestedVMfence, hart.EventChangedSATP,
		hart.EventChangedMSTATUS, hart.EventPrivilegeChanged,
		hart.EventChangedMISA:
		return true
	}
	return false
}

// decodeInvalidated reports whether an event invalidates decoded
// instructions — decoded blocks, instruction caches, and prefetched
// frames — given the width they were decoded at. Privilege and status
// changes only matter when they move the operating XLEN.
func decodeInvalidated(e hart.Event, s *hart.State, decodedXlen riscv.XlenMode) bool {
	switch e {
	case hart.EventRequestedIfence, hart.EventRequestedVMfence,
		hart.EventChangedMISA:
		return true
	case hart.EventPrivilegeChanged, hart.EventChangedMSTATUS:
		return s.Xlen() != decodedXlen
	}
	return false
}
