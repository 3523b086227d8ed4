package driver

import (
	"runtime"
	"sync/atomic"

	"github.com/sarchlab/rvhart/hart"
	"github.com/sarchlab/rvhart/insts"
	"github.com/sarchlab/rvhart/riscv"
)

// FetchFrame is one slot of the prefetch ring: a fetched, decoded
// instruction waiting to be consumed, or the trap its fetch produced,
// deferred until the frame is architecturally reached.
type FetchFrame struct {
	VirtualPC    uint64
	Encoding     uint32
	Instruction  hart.Instruction
	Operands     insts.Operands
	DeferredTrap riscv.TrapCause
}

// Spigot is the bounded single-producer single-consumer ring feeding
// the prefetch-thread driver. The producer fills the slot at its
// cursor when the slot is free and publishes it with a release store
// on the slot's ready flag; the consumer acquires the flag before
// reading, which is the only happens-before edge the transfer needs.
//
// The consumer can pause the producer at a slot boundary, rewrite the
// producer's state, discard every in-flight frame, and resume. Frames
// discarded this way were never architecturally reached, so their
// deferred traps are never delivered.
type Spigot struct {
	frames []FetchFrame
	ready  []atomic.Bool

	fill func(*FetchFrame)

	head int // consumer cursor
	tail int // producer cursor

	pauseRequest chan struct{}
	pauseAck     chan struct{}
	resume       chan struct{}
	stop         chan struct{}
}

// NewSpigot creates a ring of the given depth whose producer runs fill
// for each frame. Run starts the producer.
func NewSpigot(depth int, fill func(*FetchFrame)) *Spigot {
	return &Spigot{
		frames:       make([]FetchFrame, depth),
		ready:        make([]atomic.Bool, depth),
		fill:         fill,
		pauseRequest: make(chan struct{}),
		pauseAck:     make(chan struct{}),
		resume:       make(chan struct{}),
		stop:         make(chan struct{}),
	}
}

// Run starts the producer goroutine parked; the first Resume sets it
// filling.
func (sp *Spigot) Run() {
	go sp.produce()
}

func (sp *Spigot) produce() {
	select {
	case <-sp.resume:
	case <-sp.stop:
		return
	}
	for {
		select {
		case <-sp.pauseRequest:
			sp.pauseAck <- struct{}{}
			select {
			case <-sp.resume:
				continue
			case <-sp.stop:
				return
			}
		case <-sp.stop:
			return
		default:
		}

		if sp.ready[sp.tail].Load() {
			// Ring full; the consumer is behind.
			runtime.Gosched()
			continue
		}

		sp.fill(&sp.frames[sp.tail])
		sp.ready[sp.tail].Store(true)
		sp.tail++
		if sp.tail == len(sp.frames) {
			sp.tail = 0
		}
	}
}

// Next blocks until the frame at the consumer cursor is ready and
// returns it. The frame stays owned by the consumer until Release.
func (sp *Spigot) Next() *FetchFrame {
	for !sp.ready[sp.head].Load() {
		runtime.Gosched()
	}
	return &sp.frames[sp.head]
}

// Release frees the consumed frame back to the producer.
func (sp *Spigot) Release() {
	sp.ready[sp.head].Store(false)
	sp.head++
	if sp.head == len(sp.frames) {
		sp.head = 0
	}
}

// Pause stops the producer at its next slot boundary and waits until
// it is parked. While paused the consumer owns all producer state.
func (sp *Spigot) Pause() {
	sp.pauseRequest <- struct{}{}
	<-sp.pauseAck
}

// Discard drops every in-flight frame and rewinds both cursors. Only
// legal while paused.
func (sp *Spigot) Discard() {
	for i := range sp.ready {
		sp.ready[i].Store(false)
	}
	sp.head = 0
	sp.tail = 0
}

// Resume restarts a paused producer.
func (sp *Spigot) Resume() {
	sp.resume <- struct{}{}
}

// Stop terminates the producer goroutine. The spigot cannot be reused
// afterwards.
func (sp *Spigot) Stop() {
	close(sp.stop)
}
