//go:build !unix

package memlib

import (
	"unsafe"

	"github.com/orizon-lang/heapmalloc/internal/allocerrs"
)

// sliceArena is the portable fallback for platforms without mmap/mprotect.
// Capacity is fixed at construction and the backing array is never
// reallocated, so growth-by-reslicing never relocates already-granted
// bytes.
type sliceArena struct {
	region []byte
	length int
}

// NewMmap is named for parity with the unix implementation; on this
// platform it backs the arena with a fixed-capacity Go slice instead of a
// real memory mapping.
func NewMmap(capacity int) (Arena, error) {
	if capacity <= 0 {
		return nil, allocerrs.InvalidArena("arena capacity must be positive")
	}

	return &sliceArena{region: make([]byte, 0, capacity)}, nil
}

func (a *sliceArena) Sbrk(increment int) (unsafe.Pointer, error) {
	if increment <= 0 {
		return nil, allocerrs.InvalidArena("sbrk increment must be positive")
	}

	if a.length+increment > cap(a.region) {
		return nil, allocerrs.Exhausted(uintptr(increment))
	}

	a.region = a.region[:a.length+increment]
	newBytes := unsafe.Pointer(&a.region[a.length])
	a.length += increment

	return newBytes, nil
}

func (a *sliceArena) HeapLo() unsafe.Pointer {
	if a.length == 0 {
		return nil
	}

	return unsafe.Pointer(&a.region[0])
}

func (a *sliceArena) HeapHi() unsafe.Pointer {
	if a.length == 0 {
		return nil
	}

	return unsafe.Pointer(uintptr(unsafe.Pointer(&a.region[0])) + uintptr(a.length) - 1)
}

func (a *sliceArena) Len() int { return a.length }

func (a *sliceArena) Reset() {
	a.region = a.region[:0]
	a.length = 0
}
