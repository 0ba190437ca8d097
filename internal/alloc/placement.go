package alloc

import "unsafe"

// Placement engine: findFit + place (spec §4.3).

// findFit walks the free list from the head, first-fit, until it finds a
// block with size >= asize. Traversal terminates on blockAllocated(bp),
// which the sentinel (prologueBp) always satisfies when the list is
// exhausted without a match.
func (h *Heap) findFit(asize uintptr) unsafe.Pointer {
	for bp := h.freeListp; !blockAllocated(bp); bp = *nextFreeSlot(bp) {
		if asize <= blockSize(bp) {
			return bp
		}
	}

	return nil
}

// place services a request of asize bytes from the free block bp (whose
// size is csize). If the leftover is large enough to host a block of its
// own, bp is split: the front asize bytes become allocated and the
// remainder is turned into a new free block and coalesced (which also
// re-inserts it into the free list). Otherwise the whole block is
// allocated and the leftover becomes internal fragmentation.
func (h *Heap) place(bp unsafe.Pointer, asize uintptr) {
	csize := blockSize(bp)

	if csize-asize >= minBlockSize {
		setHeaderFooter(bp, asize, true)
		h.removeFree(bp)

		remainder := nextBlock(bp)
		setHeaderFooter(remainder, csize-asize, false)
		h.coalesce(remainder)

		return
	}

	setHeaderFooter(bp, csize, true)
	h.removeFree(bp)
}
