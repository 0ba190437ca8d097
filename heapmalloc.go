// Package heapmalloc is a general-purpose dynamic storage allocator: an
// explicit free-list, first-fit, immediate-coalescing allocator over
// boundary-tagged blocks in a monotonically growable heap region.
//
// It is a single-writer allocator (spec §5): a *Heap, and the package-level
// Default heap, must each only ever be driven from one goroutine at a
// time. Concurrent use is undefined behavior, not a panic.
package heapmalloc

import (
	"unsafe"

	"github.com/orizon-lang/heapmalloc/internal/alloc"
	"github.com/orizon-lang/heapmalloc/internal/memlib"
)

// Ptr is an opaque handle to an allocated block. The zero value represents
// "no allocation" (what Malloc/Realloc return on failure or on a
// zero-byte request). Ptr deliberately is not a Go pointer a caller can
// dereference — Bytes is the only sanctioned way to read or write the
// payload, which keeps every unsafe.Pointer into the heap's backing
// memory inside this module.
type Ptr struct {
	raw unsafe.Pointer
}

// IsNil reports whether p represents "no allocation".
func (p Ptr) IsNil() bool { return p.raw == nil }

// Bytes returns a slice view over p's payload. The slice length is the
// block's usable payload size, which may be larger than the size
// originally requested (internal fragmentation); writes are visible until
// the block is freed or reallocated, per spec §8.1 payload preservation.
func (p Ptr) Bytes() []byte {
	if p.raw == nil {
		return nil
	}

	return unsafe.Slice((*byte)(p.raw), alloc.PayloadSize(p.raw))
}

// Heap is a single allocator instance. The zero value is not usable;
// construct one with New.
type Heap struct {
	core *alloc.Heap
}

// DefaultArenaCapacity is the address space reserved for a Heap's arena
// when New is used without NewWithCapacity. The heap never grows past
// this; reaching it surfaces as resource exhaustion (a nil Ptr from
// Malloc/Realloc), per spec §7.
const DefaultArenaCapacity = 64 * 1024 * 1024

// New constructs a Heap with the default arena capacity.
func New() (*Heap, error) {
	return NewWithCapacity(DefaultArenaCapacity)
}

// NewWithCapacity constructs a Heap whose backing arena can grow up to
// capacity bytes before exhaustion.
func NewWithCapacity(capacity int) (*Heap, error) {
	arena, err := memlib.NewMmap(capacity)
	if err != nil {
		return nil, err
	}

	core, err := alloc.NewHeap(arena)
	if err != nil {
		return nil, err
	}

	return &Heap{core: core}, nil
}

// Malloc allocates size bytes and returns a handle to the payload, or the
// nil Ptr if size is zero or the request cannot be serviced.
func (h *Heap) Malloc(size uintptr) Ptr {
	return Ptr{raw: h.core.Malloc(size)}
}

// Free releases p. Freeing the nil Ptr is a no-op.
func (h *Heap) Free(p Ptr) {
	h.core.Free(p.raw)
}

// Realloc resizes p to size bytes, preserving the first
// min(size, old payload size) bytes. Realloc(nil, size) behaves like
// Malloc(size); Realloc(p, 0) behaves like Free(p) and returns the nil
// Ptr.
func (h *Heap) Realloc(p Ptr, size uintptr) Ptr {
	return Ptr{raw: h.core.Realloc(p.raw, size)}
}

// CheckHeap validates block alignment, header/footer consistency, heap
// coverage, the absence of adjacent free blocks, and free-list membership
// and link symmetry, and returns the violations found, if any. It is a diagnostic: never called on the
// allocation/free hot path.
func (h *Heap) CheckHeap(verbose bool) []alloc.Violation {
	return h.core.CheckHeap(verbose)
}

// Default is the process-wide allocator used by the package-level Init,
// Malloc, Free, and Realloc functions, mirroring the singleton-plus-Init
// convenience API that callers of a C allocator expect.
var Default *Heap

// Init (re)initializes Default. It is idempotent-by-reset: calling it
// again discards all prior allocations and state, which is what lets test
// harnesses run many traces back-to-back against the same process.
func Init() error {
	h, err := New()
	if err != nil {
		return err
	}

	Default = h

	return nil
}

// Malloc allocates from Default. Panics if Init has not been called, the
// same contract the teacher's GlobalAllocator convenience functions use
// for an uninitialized global.
func Malloc(size uintptr) Ptr {
	mustInit()
	return Default.Malloc(size)
}

// Free releases p via Default.
func Free(p Ptr) {
	mustInit()
	Default.Free(p)
}

// Realloc resizes p via Default.
func Realloc(p Ptr, size uintptr) Ptr {
	mustInit()
	return Default.Realloc(p, size)
}

// CheckHeap validates Default.
func CheckHeap(verbose bool) []alloc.Violation {
	mustInit()
	return Default.CheckHeap(verbose)
}

func mustInit() {
	if Default == nil {
		panic("heapmalloc: Default heap not initialized; call heapmalloc.Init first")
	}
}
