package hart

import (
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/mem"
)

// Executor applies one instruction's semantics to the hart state,
// performing memory accesses through the given transactor.
type Executor func(ops insts.Operands, s *State, t mem.Transactor)

// ControlFlowClass classifies what an instruction may do to NextPC.
// Drivers use it to recognize basic-block terminators without
// comparing executor identities.
type ControlFlowClass uint8

// Control flow classes.
const (
	// ClassSequential instructions only ever fall through.
	ClassSequential ControlFlowClass = iota

	// ClassBranch instructions conditionally redirect NextPC.
	ClassBranch

	// ClassJump instructions unconditionally redirect NextPC.
	ClassJump

	// ClassTrap instructions enter a trap handler (ecall, ebreak).
	ClassTrap

	// ClassTrapReturn instructions return from a trap handler.
	ClassTrapReturn

	// ClassFence covers fence, fence.i, and sfence.vma, which demand a
	// fresh fetch pipeline even though they fall through.
	ClassFence
)

// Terminator reports whether an instruction of this class ends a basic
// block.
func (c ControlFlowClass) Terminator() bool {
	return c != ClassSequential
}

// Instruction is the fully decoded form of one encoding for a fixed
// (extensions, machine XLEN, current XLEN) triple.
type Instruction struct {
	// Execute applies the instruction.
	Execute Executor

	// GetOperands extracts the operand fields from the encoding.
	GetOperands insts.Extractor

	// Width is the encoding length in bytes: 2 or 4.
	Width uint64

	// Class is the control-flow classification.
	Class ControlFlowClass
}
