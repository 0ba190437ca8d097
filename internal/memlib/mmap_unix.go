//go:build unix

package memlib

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/orizon-lang/heapmalloc/internal/allocerrs"
)

// mmapArena reserves a fixed-capacity address range up front with
// PROT_NONE, then commits pages with PROT_READ|PROT_WRITE as Sbrk grows
// the heap. The base address never changes once reserved, which is what
// lets internal/alloc hand out stable unsafe.Pointer values derived from
// block offsets.
type mmapArena struct {
	region []byte // len(region) == capacity, backs the whole reservation
	base   unsafe.Pointer
	length int
}

// NewMmap reserves capacity bytes of address space for a growable heap.
func NewMmap(capacity int) (Arena, error) {
	if capacity <= 0 {
		return nil, allocerrs.InvalidArena("arena capacity must be positive")
	}

	region, err := unix.Mmap(-1, 0, capacity, unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("reserve %d bytes: %w", capacity, err)
	}

	return &mmapArena{
		region: region,
		base:   unsafe.Pointer(&region[0]),
	}, nil
}

func (a *mmapArena) Sbrk(increment int) (unsafe.Pointer, error) {
	if increment <= 0 {
		return nil, allocerrs.InvalidArena("sbrk increment must be positive")
	}

	if a.length+increment > len(a.region) {
		return nil, allocerrs.Exhausted(uintptr(increment))
	}

	if err := unix.Mprotect(a.region[a.length:a.length+increment], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return nil, fmt.Errorf("commit %d bytes: %w", increment, err)
	}

	newBytes := unsafe.Pointer(&a.region[a.length])
	a.length += increment

	return newBytes, nil
}

func (a *mmapArena) HeapLo() unsafe.Pointer {
	if a.length == 0 {
		return nil
	}

	return a.base
}

func (a *mmapArena) HeapHi() unsafe.Pointer {
	if a.length == 0 {
		return nil
	}

	return unsafe.Pointer(uintptr(a.base) + uintptr(a.length) - 1)
}

func (a *mmapArena) Len() int { return a.length }

func (a *mmapArena) Reset() {
	if a.length == 0 {
		return
	}

	// Drop the committed pages back to PROT_NONE; the reservation itself
	// (and its base address) is kept for reuse by the next Init.
	_ = unix.Mprotect(a.region[:a.length], unix.PROT_NONE)
	a.length = 0
}
