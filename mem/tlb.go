package mem

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/rvhart/riscv"
)

// TranslationCacheStats counts cache activity for one access type.
// While the cache is enabled the miss counter doubles as the
// instrumented walk counter: it increments exactly when the underlying
// translator is consulted. A disabled cache (bits == 0) passes every
// call through and leaves both counters at zero.
type TranslationCacheStats struct {
	Hits   uint64
	Misses uint64
}

// TranslationCache is a direct-mapped software TLB wrapping any
// Translator. It holds one table per access type of 2^bits entries
// indexed by the virtual page number, tag-checked by the akita cache
// directory. With bits == 0 the cache is disabled and every call
// passes through.
//
// The cache is hart-private and unlocked; the driver clears it in
// response to SFENCE.VMA, SATP writes, translation-affecting MSTATUS
// writes, privilege changes, and MISA changes.
type TranslationCache struct {
	translator Translator
	bits       uint

	dirs  [3]*akitacache.DirectoryImpl
	data  [3][]Translation
	stats [3]TranslationCacheStats
}

// NewTranslationCache wraps a translator with 2^bits entries per
// access type.
func NewTranslationCache(translator Translator, bits uint) *TranslationCache {
	c := &TranslationCache{translator: translator, bits: bits}
	if bits == 0 {
		return c
	}
	numSets := 1 << bits
	for i := range c.dirs {
		c.dirs[i] = akitacache.NewDirectory(
			numSets,
			1,
			riscv.PageSize,
			akitacache.NewLRUVictimFinder(),
		)
		c.data[i] = make([]Translation, numSets)
	}
	return c
}

// Clear invalidates every entry in all three tables.
func (c *TranslationCache) Clear() {
	if c.bits == 0 {
		return
	}
	for _, dir := range c.dirs {
		dir.Reset()
	}
}

// Stats returns the counters for one access type.
func (c *TranslationCache) Stats(access AccessType) TranslationCacheStats {
	return c.stats[access]
}

// TranslateRead translates for a load, consulting the read table.
func (c *TranslationCache) TranslateRead(address uint64) Translation {
	return c.translate(address, AccessRead)
}

// TranslateWrite translates for a store, consulting the write table.
func (c *TranslationCache) TranslateWrite(address uint64) Translation {
	return c.translate(address, AccessWrite)
}

// TranslateFetch translates for a fetch, consulting the fetch table.
func (c *TranslationCache) TranslateFetch(address uint64) Translation {
	return c.translate(address, AccessFetch)
}

func (c *TranslationCache) walk(address uint64, access AccessType) Translation {
	switch access {
	case AccessWrite:
		return c.translator.TranslateWrite(address)
	case AccessFetch:
		return c.translator.TranslateFetch(address)
	}
	return c.translator.TranslateRead(address)
}

func (c *TranslationCache) translate(address uint64, access AccessType) Translation {
	if c.bits == 0 {
		return c.walk(address, access)
	}

	pageAddr := address &^ uint64(riscv.PageSize-1)
	dir := c.dirs[access]

	if block := dir.Lookup(0, pageAddr); block != nil && block.IsValid {
		cached := c.data[access][block.SetID+block.WayID]
		if cached.Untranslated <= address && address <= cached.ValidThrough {
			c.stats[access].Hits++
			dir.Visit(block)
			return cached
		}
	}

	c.stats[access].Misses++
	translation := c.walk(address, access)
	if translation.Trap != riscv.CauseNone {
		// Faults are never memoized; the walk is repeated so a fixed
		// page table is observed on the next access.
		return translation
	}

	victim := dir.FindVictim(pageAddr)
	victim.Tag = pageAddr
	victim.IsValid = true
	victim.IsDirty = false
	dir.Visit(victim)
	c.data[access][victim.SetID+victim.WayID] = translation
	return translation
}
