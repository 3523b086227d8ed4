package mem

import (
	"sync"

	"github.com/sarchlab/rvhart/riscv"
)

// Memory is a sparse page-granular RAM implementing IOTarget. Pages
// are allocated on first write; reads of unallocated pages return
// zeroes. A Memory models the main-memory region drivers route fetches
// and page-table walks through when bypassing MMIO devices.
//
// An IOTarget owns its concurrency; Memory serializes with a
// read-write lock so a prefetch worker can fetch while the executor
// stores.
type Memory struct {
	mu    sync.RWMutex
	pages map[uint64]*[riscv.PageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[riscv.PageSize]byte)}
}

// ReadAt copies bytes from memory into p, returning len(p).
func (m *Memory) ReadAt(address uint64, p []byte) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	done := uint64(0)
	for done < uint64(len(p)) {
		pageNum := (address + done) >> riscv.PageShift
		offset := (address + done) & (riscv.PageSize - 1)
		n := uint64(riscv.PageSize) - offset
		if remaining := uint64(len(p)) - done; n > remaining {
			n = remaining
		}
		if page := m.pages[pageNum]; page != nil {
			copy(p[done:done+n], page[offset:offset+n])
		} else {
			for i := done; i < done+n; i++ {
				p[i] = 0
			}
		}
		done += n
	}
	return done
}

// WriteAt copies p into memory, returning len(p).
func (m *Memory) WriteAt(address uint64, p []byte) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	done := uint64(0)
	for done < uint64(len(p)) {
		pageNum := (address + done) >> riscv.PageShift
		offset := (address + done) & (riscv.PageSize - 1)
		n := uint64(riscv.PageSize) - offset
		if remaining := uint64(len(p)) - done; n > remaining {
			n = remaining
		}
		page := m.pages[pageNum]
		if page == nil {
			page = new([riscv.PageSize]byte)
			m.pages[pageNum] = page
		}
		copy(page[offset:offset+n], p[done:done+n])
		done += n
	}
	return done
}
