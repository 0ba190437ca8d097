package alloc

import (
	"fmt"
	"unsafe"
)

// Violation reports one failed invariant from spec §3.5 / §8.1. CheckHeap
// is the structured counterpart to the original mm_checkheap's printf
// debugging helper — it is optional diagnostic tooling (spec §6.1), never
// consulted on the hot allocation/free path.
type Violation struct {
	Property string
	Detail   string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Property, v.Detail)
}

// CheckHeap walks the block chain and the free list independently and
// reports every invariant violation found. With verbose set it also
// prints each violation's String() to standard output, or a single
// "no violations" line; callers that just want pass/fail can check
// len(violations) == 0.
func (h *Heap) CheckHeap(verbose bool) []Violation {
	var violations []Violation

	blocks := h.walkBlocks(&violations)
	h.walkFreeList(blocks, &violations)

	if verbose {
		if len(violations) == 0 {
			fmt.Println("check_heap: no violations")
		} else {
			for _, v := range violations {
				fmt.Println(v.String())
			}
		}
	}

	return violations
}

// walkBlocks traverses the heap physically from the prologue to the
// epilogue, checking alignment (invariant 1), tag consistency (invariant
// 2), and no-adjacent-frees (invariant 4/5). It returns the set of blocks
// observed free, keyed by address, for cross-checking against the free
// list in walkFreeList.
func (h *Heap) walkBlocks(violations *[]Violation) map[unsafe.Pointer]bool {
	free := make(map[unsafe.Pointer]bool)

	bp := h.prologueBp
	prevFree := false
	var covered uintptr

	for {
		if uintptr(bp)%8 != 0 {
			*violations = append(*violations, Violation{
				Property: "alignment",
				Detail:   fmt.Sprintf("block at %p is not 8-byte aligned", bp),
			})
		}

		size := blockSize(bp)
		if size == 0 {
			break // epilogue reached
		}

		hdr := tagAt(headerAddr(bp))
		ftr := tagAt(footerAddr(bp, size))

		if hdr != ftr {
			*violations = append(*violations, Violation{
				Property: "tag-consistency",
				Detail:   fmt.Sprintf("block at %p: header %#x != footer %#x", bp, hdr, ftr),
			})
		}

		isFree := !blockAllocated(bp) && bp != h.prologueBp

		if isFree {
			if prevFree {
				*violations = append(*violations, Violation{
					Property: "no-adjacent-frees",
					Detail:   fmt.Sprintf("block at %p is free and follows another free block", bp),
				})
			}

			free[bp] = true
		}

		prevFree = isFree
		covered += size
		bp = nextBlock(bp)
	}

	expected := uintptr(h.arena.Len()) - 8 // minus the leading alignment pad word and the live epilogue header
	if covered != expected {
		*violations = append(*violations, Violation{
			Property: "coverage",
			Detail:   fmt.Sprintf("blocks cover %d bytes, expected %d", covered, expected),
		})
	}

	return free
}

// walkFreeList traverses the free list from the head and checks
// free-list bijection (invariant 4) against the set observed by
// walkBlocks, and link symmetry (invariant 6).
func (h *Heap) walkFreeList(blockFree map[unsafe.Pointer]bool, violations *[]Violation) {
	seen := make(map[unsafe.Pointer]bool)

	for bp := h.freeListp; bp != h.prologueBp; bp = *nextFreeSlot(bp) {
		seen[bp] = true

		if blockAllocated(bp) {
			*violations = append(*violations, Violation{
				Property: "free-list-bijection",
				Detail:   fmt.Sprintf("block at %p is on the free list but marked allocated", bp),
			})
		}

		next := *nextFreeSlot(bp)
		if *prevFreeSlot(next) != bp {
			*violations = append(*violations, Violation{
				Property: "free-list-symmetry",
				Detail:   fmt.Sprintf("block at %p: next.prev != self", bp),
			})
		}
	}

	for bp := range blockFree {
		if !seen[bp] {
			*violations = append(*violations, Violation{
				Property: "free-list-bijection",
				Detail:   fmt.Sprintf("block at %p is free but missing from the free list", bp),
			})
		}
	}
}
