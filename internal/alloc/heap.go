package alloc

import (
	"unsafe"

	"github.com/orizon-lang/heapmalloc/internal/allocerrs"
	"github.com/orizon-lang/heapmalloc/internal/memlib"
)

// ChunkSize is the default heap-growth granularity named in the GLOSSARY.
const ChunkSize = 4096

// Heap is a single allocator instance: one arena, one free list, one
// prologue/epilogue pair. It holds no synchronization — per spec §5 this
// is a single-writer data structure, and concurrent use from multiple
// goroutines is undefined behavior, exactly like the C original it is
// modeled on.
type Heap struct {
	arena       memlib.Arena
	prologueBp  unsafe.Pointer // permanently-allocated sentinel, see freelist.go
	epilogueHdr unsafe.Pointer // address of the current zero-size epilogue header
	freeListp   unsafe.Pointer
}

// NewHeap constructs a Heap backed by arena and performs the equivalent of
// spec §4.6 Init. arena must be freshly constructed (or Reset) — NewHeap
// does not reset an already-grown arena itself.
func NewHeap(arena memlib.Arena) (*Heap, error) {
	h := &Heap{arena: arena}
	if err := h.init(); err != nil {
		return nil, err
	}

	return h, nil
}

// init installs the prologue/epilogue sentinels and performs the first
// CHUNKSIZE heap extension. Layout of the initial request (padding, header,
// payload, footer, epilogue header):
//
//	offset 0:              alignment padding (4 bytes), so that the
//	                       payload after the header lands 8-byte aligned
//	offset 4:              prologue header = pack(minBlockSize, alloc)
//	offset 8:              prologue payload begins here (this is prologueBp)
//	offset minBlockSize:   prologue footer = pack(minBlockSize, alloc)
//	offset minBlockSize+4: epilogue header = pack(0, alloc)
func (h *Heap) init() error {
	initRegion := minBlockSize + 8

	base, err := h.arena.Sbrk(int(initRegion))
	if err != nil {
		return err
	}

	setTagAt(base, 0) // alignment padding

	prologueHeader := unsafe.Pointer(uintptr(base) + tagSize)
	setTagAt(prologueHeader, minBlockSize|allocBit)

	h.prologueBp = unsafe.Pointer(uintptr(prologueHeader) + tagSize)
	setTagAt(footerAddr(h.prologueBp, minBlockSize), minBlockSize|allocBit)

	h.epilogueHdr = unsafe.Pointer(uintptr(h.prologueBp) + minBlockSize - tagSize)
	setTagAt(h.epilogueHdr, 0|allocBit)

	// The free list is empty: the head rests on the sentinel.
	h.freeListp = h.prologueBp

	_, err = h.extendHeap(ChunkSize)

	return err
}

// extendHeap requests additional bytes from the memory primitive and
// installs a new free block at the heap's tail, per spec §4.5. size is
// rounded up to 8-byte alignment and floored at minBlockSize.
func (h *Heap) extendHeap(size uintptr) (unsafe.Pointer, error) {
	size = align8(size)
	if size < minBlockSize {
		size = minBlockSize
	}

	// The new region overwrites the old epilogue: the epilogue header's
	// address becomes the new block's header address, so the new block
	// pointer sits tagSize bytes past it.
	newBp := unsafe.Pointer(uintptr(h.epilogueHdr) + tagSize)

	granted, err := h.arena.Sbrk(int(size))
	if err != nil {
		return nil, err
	}

	if granted != newBp {
		// The arena contract guarantees contiguous, monotonic growth
		// immediately after the previous grant; if that ever fails it
		// is a bug in the memory primitive, not a recoverable request
		// error.
		return nil, allocerrs.InvalidArena("memory primitive returned a non-contiguous grant")
	}

	setHeaderFooter(newBp, size, false)

	h.epilogueHdr = unsafe.Pointer(uintptr(newBp) + size - tagSize)
	setTagAt(h.epilogueHdr, 0|allocBit)

	return h.coalesce(newBp), nil
}
