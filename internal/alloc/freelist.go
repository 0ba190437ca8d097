package alloc

import "unsafe"

// Free list registry: a doubly-linked list threaded through the payload
// area of free blocks, LIFO ordering. The head (h.freeListp) always
// resolves, eventually, to h.prologueBp, which is permanently allocated —
// that is this package's choice of the "well-known sentinel" edge policy
// from spec §4.2: findFit's traversal terminates on blockAllocated(bp),
// and the prologue always satisfies that without a separate nil check.
//
// Consequence: writes to a free block's prev/next slots sometimes target
// h.prologueBp (when a block is inserted as the new head, or removed as
// the last live node before the sentinel). That is the one deliberate
// exception to "never touch an allocated block's free-list slots" — the
// prologue's payload is never used for anything else, so reusing those
// bytes purely as sentinel bookkeeping is safe and is the mechanism that
// lets traversal, insertion, and removal share one uniform termination
// rule.

func prevFreeSlot(bp unsafe.Pointer) *unsafe.Pointer {
	return (*unsafe.Pointer)(bp)
}

func nextFreeSlot(bp unsafe.Pointer) *unsafe.Pointer {
	return (*unsafe.Pointer)(unsafe.Pointer(uintptr(bp) + ptrSize))
}

// insertFront links bp in at the head of the free list.
func (h *Heap) insertFront(bp unsafe.Pointer) {
	*nextFreeSlot(bp) = h.freeListp
	*prevFreeSlot(h.freeListp) = bp
	*prevFreeSlot(bp) = nil
	h.freeListp = bp
}

// removeFree splices bp out of the free list, rewriting its neighbors'
// links and the head if bp was the head.
func (h *Heap) removeFree(bp unsafe.Pointer) {
	prev := *prevFreeSlot(bp)
	next := *nextFreeSlot(bp)

	if prev != nil {
		*nextFreeSlot(prev) = next
	} else {
		h.freeListp = next
	}

	*prevFreeSlot(next) = prev
}
