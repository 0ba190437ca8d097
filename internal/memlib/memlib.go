// Package memlib models the external memory primitive that the allocator
// core consumes: a monotonically growable byte arena with a stable base
// address, in the spirit of the classic sbrk/memlib contract. It never
// returns memory to the OS and never relocates already-granted bytes.
package memlib

import "unsafe"

// Arena is the interface internal/alloc builds on top of. Grows are
// irreversible: once Sbrk returns a range, that range's address is stable
// for the lifetime of the Arena.
type Arena interface {
	// Sbrk extends the arena by increment bytes and returns a pointer to
	// the first new byte. increment must be > 0. Returns an error
	// (wrapping internal/allocerrs) if the arena cannot grow further.
	Sbrk(increment int) (unsafe.Pointer, error)

	// HeapLo returns the address of the first byte ever granted, or nil
	// if nothing has been granted yet.
	HeapLo() unsafe.Pointer

	// HeapHi returns the address of the last byte granted (inclusive),
	// or nil if nothing has been granted yet.
	HeapHi() unsafe.Pointer

	// Len returns the number of bytes granted so far.
	Len() int

	// Reset discards all granted bytes and returns the arena to its
	// initial, empty state. Supports idempotent-by-reset Init semantics
	// for test harnesses that run many traces back to back.
	Reset()
}
