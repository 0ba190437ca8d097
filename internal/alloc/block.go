package alloc

import "unsafe"

// Block layout & boundary tags.
//
// Every block occupies a contiguous span of the heap beginning at its
// header and is addressed everywhere else by its block pointer bp, which
// points at the first payload byte (4 bytes past the header):
//
//	offset 0:   header  (4 bytes) = (size &^ 7) | allocBit
//	offset 4:   payload begins here; bp addresses this offset
//	offset S-4: footer  (4 bytes), same encoding as the header
//
// Free blocks additionally store prev/next free-list pointers inside the
// payload area (see freelist.go); allocated blocks never have those slots
// touched, since they may hold client data.

const (
	tagSize  = 4                        // bytes in one header/footer word
	ptrSize  = unsafe.Sizeof(uintptr(0)) // native pointer width
	allocBit = uintptr(1)
)

// minBlockSize is derived from the platform pointer size rather than
// hard-coded, per the Open Question in spec §9: header + two free-list
// pointers + footer, rounded up to 8-byte alignment. This is 24 on 64-bit
// targets and 16 on 32-bit targets.
var minBlockSize = align8(uintptr(tagSize) + 2*ptrSize + uintptr(tagSize))

func align8(n uintptr) uintptr {
	return (n + 7) &^ 7
}

// tagAt reads the 4-byte boundary tag word at addr.
func tagAt(addr unsafe.Pointer) uintptr {
	return uintptr(*(*uint32)(addr))
}

// setTagAt writes the 4-byte boundary tag word at addr.
func setTagAt(addr unsafe.Pointer, value uintptr) {
	*(*uint32)(addr) = uint32(value)
}

func headerAddr(bp unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(bp) - tagSize)
}

// footerAddr requires the block's size, so the header must already be
// written; blockSize reads it for callers that only have bp.
func footerAddr(bp unsafe.Pointer, size uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(bp) + size - 2*tagSize)
}

// blockSize decodes the size encoded in bp's header.
func blockSize(bp unsafe.Pointer) uintptr {
	return tagAt(headerAddr(bp)) &^ 7
}

// blockAllocated decodes the allocated bit in bp's header.
func blockAllocated(bp unsafe.Pointer) bool {
	return tagAt(headerAddr(bp))&allocBit != 0
}

// setHeaderFooter writes matching header and footer tags for bp, encoding
// size and the allocated bit. Both tags are written from the size known
// to the caller, never re-derived mid-write, so header and footer are
// always bit-exact (invariant 2).
func setHeaderFooter(bp unsafe.Pointer, size uintptr, allocated bool) {
	packed := size &^ 7
	if allocated {
		packed |= allocBit
	}

	setTagAt(headerAddr(bp), packed)
	setTagAt(footerAddr(bp, size), packed)
}

// nextBlock returns the block physically following bp.
func nextBlock(bp unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(bp) + blockSize(bp))
}

// prevBlock returns the block physically preceding bp by reading the
// previous block's footer, which sits 8 bytes before bp (4 bytes of
// footer immediately preceded by the current block's header-minus-4,
// i.e. at bp-8).
//
// For the prologue, the word read is the zero alignment padding at the
// very start of the heap, so the previous size is 0 and this aliases back
// to bp itself — callers (coalesce) must recognize prevBlock(bp) == bp as
// "no previous block", per the Open Question noted in spec §9, rather than
// dereferencing past the prologue.
func prevBlock(bp unsafe.Pointer) unsafe.Pointer {
	prevFooter := unsafe.Pointer(uintptr(bp) - 2*tagSize)
	prevSize := tagAt(prevFooter) &^ 7

	if prevSize == 0 {
		return bp
	}

	return unsafe.Pointer(uintptr(bp) - prevSize)
}
