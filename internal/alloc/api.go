package alloc

import "unsafe"

// Public API orchestration: Malloc, Free, Realloc (spec §4.6). The
// exported facade package (github.com/orizon-lang/heapmalloc) wraps these
// in the opaque Ptr handle; everything here still deals in raw
// unsafe.Pointer, which is handed only to packages inside this module
// (the facade and internal/trace).

// maxRequestSize is the largest size Malloc will even attempt to align;
// beyond this, align8(size)+2*tagSize would overflow uintptr and wrap
// into a small, spuriously satisfiable value. Spec §7 classifies an
// unrepresentable size as resource exhaustion, so Malloc returns nil
// before arithmetic ever overflows rather than risk serving a request
// short.
var maxRequestSize = ^uintptr(0) - 64

// Malloc implements spec §4.6: normalizes the request, tries the
// placement engine, and on failure grows the heap once before retrying.
func (h *Heap) Malloc(size uintptr) unsafe.Pointer {
	if size == 0 || size > maxRequestSize {
		return nil
	}

	asize := align8(size) + 2*tagSize
	if asize < minBlockSize {
		asize = minBlockSize
	}

	if bp := h.findFit(asize); bp != nil {
		h.place(bp, asize)
		return bp
	}

	extendSize := asize
	if ChunkSize > extendSize {
		extendSize = ChunkSize
	}

	bp, err := h.extendHeap(extendSize)
	if err != nil {
		return nil
	}

	h.place(bp, asize)

	return bp
}

// Free implements spec §4.4.1.
func (h *Heap) Free(bp unsafe.Pointer) {
	h.free(bp)
}

// Realloc implements spec §4.6's baseline policy: allocate fresh, copy
// min(size, old payload size) bytes, free the old block. No in-place
// growth optimization — the spec marks that optional, and the baseline
// keeps this package's invariants trivially easy to re-verify after every
// call.
func (h *Heap) Realloc(bp unsafe.Pointer, size uintptr) unsafe.Pointer {
	if bp == nil {
		return h.Malloc(size)
	}

	if size == 0 {
		h.free(bp)
		return nil
	}

	oldPayload := blockSize(bp) - 2*tagSize

	newBp := h.Malloc(size)
	if newBp == nil {
		return nil
	}

	copySize := oldPayload
	if size < copySize {
		copySize = size
	}

	copyBytes(newBp, bp, copySize)
	h.free(bp)

	return newBp
}

// copyBytes copies n bytes from src to dst via byte-slice views over the
// raw payload memory.
func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	dstSlice := unsafe.Slice((*byte)(dst), n)
	srcSlice := unsafe.Slice((*byte)(src), n)
	copy(dstSlice, srcSlice)
}

// PayloadSize returns the usable payload size of the block at bp (its
// total block size minus header/footer overhead). Exported for the
// facade's Ptr.Bytes() and for diagnostics.
func PayloadSize(bp unsafe.Pointer) uintptr {
	return blockSize(bp) - 2*tagSize
}
