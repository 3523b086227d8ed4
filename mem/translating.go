package mem

import "github.com/sarchlab/rvhart/riscv"

// TranslatingTransactor exposes Read/Write/Fetch at virtual addresses
// by composing a Translator with a physical Transactor.
//
// In striding mode an access that crosses translation spans is split
// into page-bounded chunks, every chunk is translated first, and bytes
// move only after all translations succeed: a fault on any chunk
// surfaces the trap with zero bytes transferred. In non-striding mode
// a crossing access is truncated to the in-page size and the caller
// observes the short TransferredSize.
type TranslatingTransactor struct {
	Translator Translator
	Physical   Transactor
	Stride     bool
}

// NewTranslatingTransactor composes a translator and a physical
// transactor.
func NewTranslatingTransactor(translator Translator, physical Transactor, stride bool) *TranslatingTransactor {
	return &TranslatingTransactor{Translator: translator, Physical: physical, Stride: stride}
}

// Read performs a virtual-address load.
func (t *TranslatingTransactor) Read(address uint64, buf []byte) Transaction {
	return t.transact(address, buf, AccessRead)
}

// Write performs a virtual-address store.
func (t *TranslatingTransactor) Write(address uint64, buf []byte) Transaction {
	return t.transact(address, buf, AccessWrite)
}

// Fetch performs a virtual-address instruction fetch.
func (t *TranslatingTransactor) Fetch(address uint64, buf []byte) Transaction {
	return t.transact(address, buf, AccessFetch)
}

func (t *TranslatingTransactor) translateFor(address uint64, access AccessType) Translation {
	switch access {
	case AccessWrite:
		return t.Translator.TranslateWrite(address)
	case AccessFetch:
		return t.Translator.TranslateFetch(address)
	}
	return t.Translator.TranslateRead(address)
}

func (t *TranslatingTransactor) forward(pa uint64, buf []byte, access AccessType) Transaction {
	switch access {
	case AccessWrite:
		return t.Physical.Write(pa, buf)
	case AccessFetch:
		return t.Physical.Fetch(pa, buf)
	}
	return t.Physical.Read(pa, buf)
}

// span returns how many bytes of the access starting at address the
// translation covers; 0 means the span extends past any request.
func span(tr Translation, address uint64) uint64 {
	return tr.ValidThrough - address + 1
}

func (t *TranslatingTransactor) transact(address uint64, buf []byte, access AccessType) Transaction {
	size := uint64(len(buf))
	if size == 0 {
		return Transaction{Trap: riscv.CauseNone}
	}

	translation := t.translateFor(address, access)
	if translation.Trap != riscv.CauseNone {
		return Transaction{Trap: translation.Trap}
	}

	covered := span(translation, address)
	pa := translation.Translated + (address - translation.Untranslated)
	if covered == 0 || covered >= size {
		return t.forward(pa, buf, access)
	}

	if !t.Stride {
		return t.forward(pa, buf[:covered], access)
	}

	// Striding: translate every chunk before moving any bytes, keeping
	// the pending chunks local to this call.
	type chunk struct {
		pa  uint64
		buf []byte
	}
	chunks := []chunk{{pa: pa, buf: buf[:covered]}}
	offset := covered
	for offset < size {
		translation := t.translateFor(address+offset, access)
		if translation.Trap != riscv.CauseNone {
			return Transaction{Trap: translation.Trap}
		}
		n := size - offset
		if covered := span(translation, address+offset); covered != 0 && covered < n {
			n = covered
		}
		pa := translation.Translated + (address + offset - translation.Untranslated)
		chunks = append(chunks, chunk{pa: pa, buf: buf[offset : offset+n]})
		offset += n
	}

	result := Transaction{Trap: riscv.CauseNone}
	for _, ch := range chunks {
		tx := t.forward(ch.pa, ch.buf, access)
		result.TransferredSize += tx.TransferredSize
		if tx.Trap != riscv.CauseNone {
			result.Trap = tx.Trap
			break
		}
		if tx.TransferredSize != uint64(len(ch.buf)) {
			break
		}
	}
	return result
}
